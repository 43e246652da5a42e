package incremental

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructObjCClassRefsResolveToClassListIndex(t *testing.T) {
	order := binary.LittleEndian
	data := make([]byte, 128)

	classListOff := uint32(0)
	classAddrs := []uint64{0x2000, 0x2100, 0x2200}
	for i, addr := range classAddrs {
		order.PutUint64(data[classListOff+uint32(i*8):], addr)
	}

	classRefsOff := uint32(48)
	order.PutUint64(data[classRefsOff:], classAddrs[1])

	m := &Model{
		Config: TargetConfig{PointerSize: 8, ByteOrder: order},
		data:   data,
	}
	m.objcInit()
	m.ObjC.ClassListSection = &decodedSection{Offset: classListOff, Size: uint64(len(classAddrs) * 8)}
	m.ObjC.ClassRefsSection = &decodedSection{Offset: classRefsOff, Size: 8}

	require.NoError(t, reconstructObjC(m))
	assert.Equal(t, 1, m.ObjC.ClassIndex[classAddrs[1]])
	assert.Equal(t, 1, m.ObjC.ClassRefIndex[uint64(classRefsOff)])
}

func TestReconstructObjCNilWhenNoSections(t *testing.T) {
	m := &Model{}
	require.NoError(t, reconstructObjC(m))
	assert.Nil(t, m.ObjC)
}

func TestReconstructObjCResolvesClassNameThroughDataSection(t *testing.T) {
	order := binary.LittleEndian
	data := make([]byte, 1024)

	const base = 0x1000
	const classAddr = base + 0x100 // Content record
	const roAddr = base + 0x200    // ROContent record
	const nameAddr = base + 0x300  // "Foo\x00"

	classListOff := uint32(0x50)
	order.PutUint64(data[classListOff:], classAddr)

	contentDataFieldOff := (classAddr - base) + 4*8 // offsetof(Content, data)
	order.PutUint64(data[contentDataFieldOff:], roAddr)

	roNameFieldOff := (roAddr - base) + 8 + 2*8 // offsetof(ROContent, name)
	order.PutUint64(data[roNameFieldOff:], nameAddr)

	copy(data[nameAddr-base:], "Foo\x00")

	m := &Model{
		Config:   TargetConfig{PointerSize: 8, ByteOrder: order},
		data:     data,
		Segments: map[string]SegmentBoundary{"__TEXT": {Start: base, Size: 0x10000}},
	}
	m.objcInit()
	m.ObjC.ClassListSection = &decodedSection{Offset: classListOff, Size: 8}
	m.ObjC.DataSection = &decodedSection{Offset: 0x100, Size: 0x200}

	require.NoError(t, reconstructObjC(m))
	assert.Equal(t, uint64(0), m.ObjC.ClassNames["Foo"])
}
