package incremental

import (
	"encoding/binary"
	"testing"

	"github.com/blacktop/ld-incr/pkg/macho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigForCpuAcceptsArm64AndAmd64(t *testing.T) {
	cfg, err := configForCpu(macho.CpuArm64)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.PointerSize)

	cfg, err = configForCpu(macho.CpuAmd64)
	require.NoError(t, err)
	assert.Equal(t, macho.CpuAmd64, cfg.Cpu)
}

func TestConfigForCpuRejectsOthers(t *testing.T) {
	_, err := configForCpu(macho.CpuArm)
	require.Error(t, err)
	_, ok := err.(*ArchMismatch)
	assert.True(t, ok)
}

func TestDecodeIncrementalCommandRoundTrip(t *testing.T) {
	order := binary.LittleEndian
	raw := make([]byte, sidecarCommandSize)
	fields := []uint32{
		uint32(macho.LoadCmdIncremental), sidecarCommandSize,
		0,    // file_count
		0, 0, // inputs
		0, 0, // fixups
		0, 0, // symtab
		0, 0, // patch space
		0, 0, // strtab
	}
	for i, f := range fields {
		order.PutUint32(raw[i*4:], f)
	}

	data := make([]byte, sidecarCommandSize)
	sc, err := decodeIncrementalCommand(data, order, raw)
	require.NoError(t, err)
	assert.Equal(t, macho.LoadCmdIncremental, sc.cmd.Cmd)
}

func TestCstringStopsAtNul(t *testing.T) {
	b := [16]byte{'_', '_', 'T', 'E', 'X', 'T'}
	assert.Equal(t, "__TEXT", cstring(b[:]))
}
