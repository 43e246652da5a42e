package incremental

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/blacktop/ld-incr/pkg/macho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymtabStopsAtZeroStringIndex(t *testing.T) {
	order := binary.LittleEndian

	strTab := []byte{0, 'f', 'o', 'o', 0, 'b', 'a', 'r', 0}
	linkeditOff := uint64(0)
	linkeditSize := uint64(4096)

	var symBuf bytes.Buffer
	syms := []macho.Nlist64{
		{Name: 1, Type: uint8(macho.N_SECT), Value: 0x1000},
		{Name: 5, Type: uint8(macho.N_SECT), Value: 0x1010},
		{Name: 0}, // sentinel: end of meaningful symbols
		{Name: 1, Type: uint8(macho.N_SECT), Value: 0xdead},
	}
	for _, s := range syms {
		binary.Write(&symBuf, order, s)
	}

	symOff := uint32(8) // 8-byte aligned
	strOff := symOff + uint32(symBuf.Len())
	// pad strOff to 4-byte alignment
	for strOff%4 != 0 {
		strOff++
	}

	data := make([]byte, int(strOff)+len(strTab)+4)
	copy(data[symOff:], symBuf.Bytes())
	copy(data[strOff:], strTab)

	cmd := macho.SymtabCmd{
		Symoff:  symOff,
		Nsyms:   uint32(len(syms)),
		Stroff:  strOff,
		Strsize: uint32(len(strTab)),
	}

	info, err := parseSymtab(data, order, cmd, linkeditOff, linkeditSize)
	require.NoError(t, err)
	assert.Len(t, info.Symbols, 2)
	assert.Equal(t, 0, info.AddressToIndex[0x1000])
	assert.Equal(t, 1, info.AddressToIndex[0x1010])
}

func TestParseSymtabRejectsMisalignedSymoff(t *testing.T) {
	data := make([]byte, 4096)
	cmd := macho.SymtabCmd{Symoff: 3, Nsyms: 1, Stroff: 1024, Strsize: 16}
	_, err := parseSymtab(data, binary.LittleEndian, cmd, 0, 4096)
	assert.Error(t, err)
}
