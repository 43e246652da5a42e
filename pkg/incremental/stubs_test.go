package incremental

import (
	"encoding/binary"
	"testing"

	"github.com/blacktop/ld-incr/pkg/macho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructStubsResolvesIndirectSymbols(t *testing.T) {
	order := binary.LittleEndian

	linkeditOff := uint64(0)
	linkeditSize := uint64(4096)

	indirectOff := uint32(0)
	indirect := []uint32{0, indirectSymbolLocal, 1}
	data := make([]byte, 4096)
	for i, v := range indirect {
		order.PutUint32(data[indirectOff+uint32(i*4):], v)
	}

	m := &Model{
		Config: TargetConfig{PointerSize: 8, ByteOrder: order},
		data:   data,
		Sections: map[string]SectionBoundary{
			"__stubs": {Address: 0x4000, Size: 3 * 16},
		},
		sectionFlags: map[string]sectionStubInfo{
			"__stubs": {isStubs: true, reserve1: 0, reserve2: 16},
		},
		Dysymtab: &macho.DysymtabCmd{
			Indirectsymoff: indirectOff,
			Nindirectsyms:  uint32(len(indirect)),
		},
		Symtab: &symtabInfo{
			Cmd: macho.SymtabCmd{Stroff: 0, Strsize: 0},
			Symbols: []macho.Nlist64{
				{Name: 1, Desc: 1 << 8},
				{Name: 5, Desc: 2 << 8},
			},
			DylibSymbols: map[string]macho.Nlist64{"_foo": {}, "_bar": {}},
		},
	}

	require.NoError(t, reconstructStubs(m, linkeditOff, linkeditSize))
	require.Len(t, m.StubAtoms, 2)
	assert.Equal(t, uint64(0x4000), m.StubAtoms[0].Address)
	assert.Equal(t, uint64(0x4010), m.StubAtoms[1].Address)
	assert.True(t, m.StubAtoms[0].IsLazy)
}
