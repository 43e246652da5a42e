package incremental

import (
	"encoding/binary"
	"testing"

	"github.com/blacktop/ld-incr/internal/buffer"
	"github.com/blacktop/ld-incr/pkg/macho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatcherWriteAtomAdvancesPatchWindow(t *testing.T) {
	dst := buffer.NewReadWriteBuffer(4096, -1)
	m := &Model{
		Sections: map[string]SectionBoundary{"__data_patch": {Offset: 0x1000, Size: 64}},
		Sidecar: &Sidecar{PatchSpaces: map[string]PatchSpace{
			"__data_patch": {SectName: "__data_patch", PatchOffset: 0, PatchSpace: 16},
		}},
	}
	p := NewPatcher(m, dst)
	p.MarkDecided()

	off, err := p.WriteAtom("__data_patch", []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), off)

	ps := m.Sidecar.PatchSpaces["__data_patch"]
	assert.Equal(t, uint64(4), ps.PatchOffset)
	assert.Equal(t, uint32(12), ps.PatchSpace)
}

func TestPatcherWriteAtomExhaustedReturnsIncrementalImpossible(t *testing.T) {
	dst := buffer.NewReadWriteBuffer(64, -1)
	m := &Model{
		Sections: map[string]SectionBoundary{"__stubs": {Offset: 0, Size: 8}},
		Sidecar: &Sidecar{PatchSpaces: map[string]PatchSpace{
			"__stubs": {SectName: "__stubs", PatchOffset: 0, PatchSpace: 2},
		}},
	}
	p := NewPatcher(m, dst)
	p.MarkDecided()

	_, err := p.WriteAtom("__stubs", []byte{1, 2, 3, 4})
	_, ok := err.(*IncrementalImpossible)
	assert.True(t, ok)
}

func TestPatcherAppendStringDedups(t *testing.T) {
	dst := buffer.NewReadWriteBuffer(4096, -1)
	m := &Model{
		Symtab: &symtabInfo{
			Cmd:             macho.SymtabCmd{Stroff: 100},
			StringPool:      map[string]uint32{"_existing": 4},
			StringPoolPatch: PatchSpace{PatchOffset: 40, PatchSpace: 100},
		},
	}
	p := NewPatcher(m, dst)
	p.MarkDecided()

	off, err := p.AppendString("_existing")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), off)

	off, err = p.AppendString("_new")
	require.NoError(t, err)
	assert.Equal(t, uint32(40), off)
	assert.Equal(t, uint32(40), m.Symtab.StringPool["_new"])
	assert.Equal(t, uint64(45), m.Symtab.StringPoolPatch.PatchOffset)
}

func TestPatcherRegenerateRebaseRoundTrips(t *testing.T) {
	const rebaseRegionOff = 0x50
	m := &Model{
		Config: TargetConfig{PointerSize: 8, ByteOrder: binary.LittleEndian},
		Segments: map[string]SegmentBoundary{
			"__TEXT": {Start: 0x1000, Size: 0x1000},
			"__DATA": {Start: 0x2000, Size: 0x1000},
		},
		segmentOrder: []string{"__TEXT", "__DATA"},
		dyldInfoCmd:  &macho.DyldInfoCmd{RebaseOff: rebaseRegionOff, RebaseSize: 0},
	}
	dst := buffer.NewReadWriteBuffer(4096, -1)
	p := NewPatcher(m, dst)
	p.MarkDecided()

	entries := []RebaseEntry{
		{Type: 1, Address: 0x1008},
		{Type: 1, Address: 0x2010},
	}
	n, err := p.RegenerateRebase(entries)
	require.NoError(t, err)

	stream := p.staged["__rebase"].Bytes()
	require.Equal(t, n, len(stream))

	// the stream must have actually landed in dst at the rebase region's
	// offset, and the dyld_info_command's size field must reflect it.
	assert.Equal(t, stream, dst.Bytes()[rebaseRegionOff:rebaseRegionOff+len(stream)])
	assert.Equal(t, uint32(rebaseRegionOff), m.dyldInfoCmd.RebaseOff)
	assert.Equal(t, uint32(len(stream)), m.dyldInfoCmd.RebaseSize)

	rm := &Model{
		Config:       m.Config,
		Segments:     m.Segments,
		segmentOrder: m.segmentOrder,
		data:         stream,
		dyldInfoCmd:  &macho.DyldInfoCmd{RebaseOff: 0, RebaseSize: uint32(len(stream))},
		Sidecar: &Sidecar{PatchSpaces: map[string]PatchSpace{
			"__rebase": {PatchOffset: uint64(len(stream))},
		}},
	}
	require.NoError(t, parseRebase(rm))
	assert.Equal(t, entries, rm.Rebases)
}
