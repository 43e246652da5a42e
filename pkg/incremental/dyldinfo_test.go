package incremental

import (
	"encoding/binary"
	"testing"

	"github.com/blacktop/ld-incr/pkg/macho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(streamOff int, stream []byte) *Model {
	data := make([]byte, streamOff+len(stream)+64)
	copy(data[streamOff:], stream)
	return &Model{
		Config: TargetConfig{PointerSize: 8, ByteOrder: binary.LittleEndian},
		Segments: map[string]SegmentBoundary{
			"__TEXT": {Start: 0x100000000, Size: 0x4000},
			"__DATA": {Start: 0x100004000, Size: 0x4000},
		},
		segmentOrder: []string{"__TEXT", "__DATA"},
		Sections:     map[string]SectionBoundary{},
		Sidecar:      &Sidecar{PatchSpaces: map[string]PatchSpace{}},
		data:         data,
	}
}

func TestParseRebaseImmTimes(t *testing.T) {
	stream := []byte{
		rebaseOpcodeSetTypeImm | 1,
		rebaseOpcodeSetSegmentAndOffsetUleb | 1, // segment index 1 (__DATA)
		0x10,                                    // uleb offset 0x10
		rebaseOpcodeDoRebaseImmTimes | 2,        // emit twice
		rebaseOpcodeDone,
	}
	m := newTestModel(0, stream)
	m.dyldInfoCmd = &macho.DyldInfoCmd{RebaseOff: 0, RebaseSize: uint32(len(stream))}

	require.NoError(t, parseRebase(m))
	require.Len(t, m.Rebases, 2)
	assert.Equal(t, uint64(0x100004010), m.Rebases[0].Address)
	assert.Equal(t, uint64(0x100004018), m.Rebases[1].Address)
	assert.EqualValues(t, 1, m.Rebases[0].Type)
}

func TestParseBindDoBind(t *testing.T) {
	var stream []byte
	stream = append(stream, bindOpcodeSetDylibOrdinalImm|1)
	stream = append(stream, bindOpcodeSetSymbolTrailingFlagsImm|0)
	stream = append(stream, []byte("_foo")...)
	stream = append(stream, 0)
	stream = append(stream, bindOpcodeSetTypeImm|bindTypePointer)
	stream = append(stream, bindOpcodeSetSegmentAndOffsetUleb|0)
	stream = append(stream, 0x08)
	stream = append(stream, bindOpcodeDoBind)
	stream = append(stream, bindOpcodeDone)

	m := newTestModel(0, stream)
	m.dyldInfoCmd = &macho.DyldInfoCmd{BindOff: 0, BindSize: uint32(len(stream))}

	require.NoError(t, parseBind(m, false))
	require.Len(t, m.Bindings, 1)
	b := m.Bindings[0]
	assert.Equal(t, "_foo", b.SymbolName)
	assert.Equal(t, 1, b.LibraryOrdinal)
	assert.Equal(t, uint64(0x100000008), b.Address)
}

func TestParseLazyBindDoneDoesNotStopStream(t *testing.T) {
	var stream []byte
	// first symbol's run, ends in DONE (only ends this run, not the walk)
	stream = append(stream, bindOpcodeSetSegmentAndOffsetUleb|0)
	stream = append(stream, 0x00)
	stream = append(stream, bindOpcodeSetSymbolTrailingFlagsImm|0)
	stream = append(stream, []byte("_a")...)
	stream = append(stream, 0)
	stream = append(stream, bindOpcodeDoBind)
	stream = append(stream, bindOpcodeDone)
	// second symbol's run
	stream = append(stream, bindOpcodeSetSymbolTrailingFlagsImm|0)
	stream = append(stream, []byte("_b")...)
	stream = append(stream, 0)
	stream = append(stream, bindOpcodeSetSegmentAndOffsetUleb|0)
	stream = append(stream, 0x08)
	stream = append(stream, bindOpcodeDoBind)
	stream = append(stream, bindOpcodeDone)

	m := newTestModel(0, stream)
	m.dyldInfoCmd = &macho.DyldInfoCmd{LazyBindOff: 0, LazyBindSize: uint32(len(stream))}

	require.NoError(t, parseLazyBind(m))
	require.Len(t, m.LazyBindings, 2)
	assert.Equal(t, "_a", m.LazyBindings[0].SymbolName)
	assert.Equal(t, "_b", m.LazyBindings[1].SymbolName)
}
