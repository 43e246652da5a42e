package incremental

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStringPool(names ...string) []byte {
	var out []byte
	for _, n := range names {
		out = append(out, n...)
		out = append(out, 0)
	}
	return out
}

func TestDecodeStringPool(t *testing.T) {
	region := buildStringPool("a.o", "b.o", "libfoo.dylib")
	data := make([]byte, 100)
	copy(data[10:], region)

	strs, err := decodeStringPool(data, 10, uint32(len(region)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.o", "b.o", "libfoo.dylib"}, strs)
}

func TestDecodeStringPoolOutOfBounds(t *testing.T) {
	data := make([]byte, 8)
	_, err := decodeStringPool(data, 4, 100)
	assert.Error(t, err)
}

func TestDecodeInputsRelocatableAtoms(t *testing.T) {
	order := binary.LittleEndian
	strs := buildStringPool("a.o", "_foo")

	var inputs []byte
	inputs = appendU32(inputs, 0) // name index -> "a.o"
	inputs = appendU64(inputs, 100)
	inputs = appendU32(inputs, uint32(InputKindReloc))
	inputs = appendU32(inputs, 1) // atom count
	inputs = appendU32(inputs, 4) // atom name index -> "_foo"
	inputs = appendU64(inputs, 0x1000)
	inputs = appendU32(inputs, 64)

	data := make([]byte, 0, 200)
	data = append(data, make([]byte, 16)...)
	stringsOff := len(data)
	data = append(data, strs...)
	inputsOff := len(data)
	data = append(data, inputs...)

	cmd := sidecarCommand{
		FileCount:  1,
		InputsOff:  uint32(inputsOff),
		InputsSize: uint32(len(inputs)),
		StrtabOff:  uint32(stringsOff),
		StrtabSize: uint32(len(strs)),
	}
	sc := &Sidecar{InputsMap: make(map[string]*InputEntry)}
	strList, err := decodeStringPool(data, cmd.StrtabOff, cmd.StrtabSize)
	require.NoError(t, err)
	sc.Strings = strList

	require.NoError(t, decodeInputs(data, order, cmd, sc))
	require.Len(t, sc.Inputs, 1)
	entry := sc.Inputs[0]
	assert.Equal(t, "a.o", entry.Path)
	assert.Equal(t, uint64(100), entry.ModTime)
	assert.Equal(t, InputKindReloc, entry.Kind)
	require.Len(t, entry.Atoms, 1)
	assert.Equal(t, "_foo", strList[entry.Atoms[0].NameIndex])
	assert.Equal(t, uint64(0x1000), entry.Atoms[0].FileOffset)
	assert.Equal(t, uint32(64), entry.Atoms[0].Size)
	assert.Same(t, entry, sc.InputsMap["a.o"])
}

func TestDecodeGlobalSymbolsRejectsPartialTrailingRecord(t *testing.T) {
	order := binary.LittleEndian
	var region []byte
	region = appendU32(region, 0)
	region = appendU32(region, 2) // claims 2 referenced files
	region = appendU32(region, 1) // only 1 present

	data := make([]byte, len(region))
	copy(data, region)

	cmd := sidecarCommand{SymtabOff: 0, SymtabSize: uint32(len(region))}
	sc := &Sidecar{}
	err := decodeGlobalSymbols(data, order, cmd, sc)
	assert.Error(t, err)
}

func TestDecodePatchSpaceSkipsSyntheticStringPoolEntry(t *testing.T) {
	var region []byte
	region = append(region, packPatchSpaceRecord("__rebase", 10, 20)...)
	region = append(region, packPatchSpaceRecord("__string_pool", 5, 5)...)

	cmd := sidecarCommand{PatchSpaceOff: 0, PatchSpaceSize: uint32(len(region))}
	sc := &Sidecar{PatchSpaces: make(map[string]PatchSpace)}
	require.NoError(t, decodePatchSpace(region, cmd, sc))

	assert.Len(t, sc.PatchSpaces, 1)
	assert.Equal(t, PatchSpace{SectName: "__rebase", PatchOffset: 10, PatchSpace: 20}, sc.PatchSpaces["__rebase"])
	_, ok := sc.PatchSpaces["__string_pool"]
	assert.False(t, ok)
}

func TestDecodePatchSpaceRejectsTrailingPartialRecord(t *testing.T) {
	var region []byte
	region = append(region, packPatchSpaceRecord("__rebase", 10, 20)...)
	region = append(region, make([]byte, patchSpaceRecordSize-1)...) // one byte short of a second record

	cmd := sidecarCommand{PatchSpaceOff: 0, PatchSpaceSize: uint32(len(region))}
	sc := &Sidecar{PatchSpaces: make(map[string]PatchSpace)}
	assert.Error(t, decodePatchSpace(region, cmd, sc))
}

func packPatchSpaceRecord(name string, off uint64, space uint32) []byte {
	rec := make([]byte, patchSpaceRecordSize)
	copy(rec, name)
	binary.LittleEndian.PutUint64(rec[17:25], off)
	binary.LittleEndian.PutUint32(rec[25:29], space)
	return rec
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
