package incremental

import "encoding/binary"

// objcModel accumulates the four sections objc metadata reconstruction
// walks in order, then the class-index and class-ref maps computed from
// them (§4.6).
type objcModel struct {
	ClassNameSection *decodedSection
	ClassListSection *decodedSection
	ClassRefsSection *decodedSection
	DataSection      *decodedSection

	// ClassIndex maps a class's __objc_data address to its position in
	// __objc_classlist.
	ClassIndex map[uint64]int
	// ClassRefIndex maps a __objc_classrefs slot's file offset to the
	// class index its pointer resolves to.
	ClassRefIndex map[uint64]int
	// ClassNames maps a resolved class name to its slot's byte offset
	// within __objc_classlist, so the writer can relocate that slot
	// after a new class with the same name is added.
	ClassNames map[string]uint64
}

// objcInit lazily allocates m.ObjC, letting dispatchSegmentSections
// record whichever of the four sections it meets first without caring
// about segment order.
func (m *Model) objcInit() *objcModel {
	if m.ObjC == nil {
		m.ObjC = &objcModel{
			ClassIndex:    make(map[uint64]int),
			ClassRefIndex: make(map[uint64]int),
		}
	}
	return m.ObjC
}

// reconstructObjC rebuilds the class-index and class-ref maps described
// in §4.6: __objc_classlist holds one pointer per class's __objc_data
// record; each __objc_classrefs slot holds a pointer to one of those
// __objc_data records. Neither section implies the other is present —
// a binary with no ObjC content leaves m.ObjC nil.
func reconstructObjC(m *Model) error {
	if m.ObjC == nil {
		return nil
	}
	obj := m.ObjC
	order := m.Config.ByteOrder
	ptrSize := m.Config.PointerSize

	if obj.ClassListSection != nil {
		sect := obj.ClassListSection
		if int(sect.Offset)+int(sect.Size) > len(m.data) {
			return &MalformedImage{Kind: "objc", Reason: "__objc_classlist extends beyond file"}
		}
		raw := m.data[sect.Offset : uint64(sect.Offset)+sect.Size]
		count := int(sect.Size) / ptrSize
		for i := 0; i < count; i++ {
			ptr, err := readPointer(raw[i*ptrSize:], order, ptrSize)
			if err != nil {
				return err
			}
			obj.ClassIndex[ptr] = i
		}
	}

	if obj.ClassRefsSection != nil {
		sect := obj.ClassRefsSection
		if int(sect.Offset)+int(sect.Size) > len(m.data) {
			return &MalformedImage{Kind: "objc", Reason: "__objc_classrefs extends beyond file"}
		}
		raw := m.data[sect.Offset : uint64(sect.Offset)+sect.Size]
		count := int(sect.Size) / ptrSize
		for i := 0; i < count; i++ {
			ptr, err := readPointer(raw[i*ptrSize:], order, ptrSize)
			if err != nil {
				return err
			}
			if idx, ok := obj.ClassIndex[ptr]; ok {
				slotOffset := sect.Offset + uint32(i*ptrSize)
				obj.ClassRefIndex[uint64(slotOffset)] = idx
			}
		}
	}

	if obj.DataSection != nil && len(obj.ClassIndex) > 0 {
		if err := resolveObjCClassNames(m, order, ptrSize); err != nil {
			return err
		}
	}

	return nil
}

// objcClassContentDataOffset and objcClassROContentNameOffset are the
// byte offsets of the `data` field within a class's Content record and
// the `name` field within its ROContent record, per ObjCClass<A> in
// macho_incremental_file.hpp: Content is {isa, superclass, cache,
// vtable, data}, all pointer-sized; ROContent is {flags, instanceStart
// (u32 each), instanceSize (pointer-sized to keep the following field
// pointer-aligned), ivarLayout, name}.
func objcClassContentDataOffset(ptrSize int) uint64 { return uint64(4 * ptrSize) }
func objcClassROContentNameOffset(ptrSize int) uint64 { return uint64(8 + 2*ptrSize) }

// resolveObjCClassNames follows each class's Content.data pointer to its
// ROContent record, then ROContent.name to its NUL-terminated name in
// __objc_classname, recording the name against the class's byte offset
// within __objc_classlist. Every address involved is a vm address; the
// file is assumed laid out so that vmaddr - __TEXT.vmaddr equals file
// offset uniformly, matching the original parser's baseAddress()
// convention.
func resolveObjCClassNames(m *Model, order binary.ByteOrder, ptrSize int) error {
	obj := m.ObjC
	text, ok := m.Segments["__TEXT"]
	if !ok {
		return nil
	}
	base := text.Start
	obj.ClassNames = make(map[string]uint64, len(obj.ClassIndex))

	dataFieldOff := objcClassContentDataOffset(ptrSize)
	nameFieldOff := objcClassROContentNameOffset(ptrSize)

	for classAddr, slot := range obj.ClassIndex {
		if classAddr < base {
			return &MalformedImage{Kind: "objc", Reason: "class address precedes __TEXT base"}
		}
		roPtr, err := readPointerAt(m.data, classAddr-base+dataFieldOff, order, ptrSize)
		if err != nil {
			return err
		}
		if roPtr < base {
			return &MalformedImage{Kind: "objc", Reason: "class RO-data pointer precedes __TEXT base"}
		}
		namePtr, err := readPointerAt(m.data, roPtr-base+nameFieldOff, order, ptrSize)
		if err != nil {
			return err
		}
		if namePtr < base {
			return &MalformedImage{Kind: "objc", Reason: "class name pointer precedes __TEXT base"}
		}
		nameOff := namePtr - base
		if nameOff >= uint64(len(m.data)) {
			return &MalformedImage{Kind: "objc", Reason: "class name pointer out of range"}
		}
		obj.ClassNames[cstring(m.data[nameOff:])] = uint64(slot) * uint64(ptrSize)
	}
	return nil
}

func readPointer(b []byte, order binary.ByteOrder, size int) (uint64, error) {
	if len(b) < size {
		return 0, &MalformedImage{Kind: "objc", Reason: "truncated pointer field"}
	}
	if size == 8 {
		return order.Uint64(b[:8]), nil
	}
	return uint64(order.Uint32(b[:4])), nil
}

// readPointerAt bounds-checks off before delegating to readPointer,
// since offsets here are derived from on-disk pointer fields rather
// than section geometry already validated by the caller.
func readPointerAt(data []byte, off uint64, order binary.ByteOrder, size int) (uint64, error) {
	if off > uint64(len(data)) {
		return 0, &MalformedImage{Kind: "objc", Reason: "pointer field out of range"}
	}
	return readPointer(data[off:], order, size)
}
