package incremental

// Rebase and bind opcodes, as defined by mach-o/loader.h. Four opcode
// streams share this vocabulary; §4.4.
const (
	rebaseOpcodeMask    = 0xF0
	rebaseImmediateMask = 0x0F

	rebaseOpcodeDone                          = 0x00
	rebaseOpcodeSetTypeImm                    = 0x10
	rebaseOpcodeSetSegmentAndOffsetUleb       = 0x20
	rebaseOpcodeAddAddrUleb                   = 0x30
	rebaseOpcodeAddAddrImmScaled              = 0x40
	rebaseOpcodeDoRebaseImmTimes              = 0x50
	rebaseOpcodeDoRebaseUlebTimes             = 0x60
	rebaseOpcodeDoRebaseAddAddrUleb           = 0x70
	rebaseOpcodeDoRebaseUlebTimesSkippingUleb = 0x80
)

const (
	bindOpcodeMask    = 0xF0
	bindImmediateMask = 0x0F

	bindOpcodeDone                        = 0x00
	bindOpcodeSetDylibOrdinalImm          = 0x10
	bindOpcodeSetDylibOrdinalUleb         = 0x20
	bindOpcodeSetDylibSpecialImm          = 0x30
	bindOpcodeSetSymbolTrailingFlagsImm   = 0x40
	bindOpcodeSetTypeImm                  = 0x50
	bindOpcodeSetAddendSleb               = 0x60
	bindOpcodeSetSegmentAndOffsetUleb     = 0x70
	bindOpcodeAddAddrUleb                 = 0x80
	bindOpcodeDoBind                      = 0x90
	bindOpcodeDoBindAddAddrUleb           = 0xA0
	bindOpcodeDoBindAddAddrImmScaled      = 0xB0
	bindOpcodeDoBindUlebTimesSkippingUleb = 0xC0
	bindOpcodeThreaded                    = 0xD0

	bindSubopcodeThreadedSetBindOrdinalTableSizeUleb = 0x00
	bindSubopcodeThreadedApply                       = 0x01

	bindSymbolFlagsWeakImport = 0x1
	bindTypePointer           = 1
)

// RebaseEntry is one emitted rebase from the rebase opcode stream.
type RebaseEntry struct {
	Type    uint8
	Address uint64
}

// BindingEntry is a 6-tuple emitted from a bind, weak-bind, or lazy-bind
// opcode stream.
type BindingEntry struct {
	Type           uint8
	LibraryOrdinal int
	SymbolName     string
	WeakImport     bool
	Address        uint64
	Addend         int64
}

// parseDyldInfo runs the four opcode streams described in §4.4. It
// requires the sidecar's patch space to already be known: the rebase
// stream stops at the used prefix of __rebase's patch window, since the
// reserved tail of that region is scratch space, not data.
func parseDyldInfo(m *Model) error {
	if err := parseRebase(m); err != nil {
		return err
	}
	if err := parseBind(m, false); err != nil {
		return err
	}
	if err := parseBind(m, true); err != nil {
		return err
	}
	return parseLazyBind(m)
}

func (m *Model) segStartAddress(index int) uint64 {
	if index < 0 || index >= len(m.segmentOrder) {
		return 0
	}
	return m.Segments[m.segmentOrder[index]].Start
}

// segmentIndexForAddress reverses segStartAddress: given a vm address, it
// finds the load-command-order index of the segment containing it and the
// address's offset within that segment, for re-encoding a rebase entry as
// SET_SEGMENT_AND_OFFSET_ULEB.
func (m *Model) segmentIndexForAddress(addr uint64) (index int, offset uint64, ok bool) {
	for i, name := range m.segmentOrder {
		seg := m.Segments[name]
		if addr >= seg.Start && addr < seg.Start+seg.Size {
			return i, addr - seg.Start, true
		}
	}
	return 0, 0, false
}

func parseRebase(m *Model) error {
	di := m.dyldInfoCmd
	if di == nil || di.RebaseSize == 0 {
		return nil
	}
	data := m.data
	start := int(di.RebaseOff)
	limit := int(di.RebaseOff) + int(di.RebaseSize)
	if space, ok := m.Sidecar.PatchSpaces["__rebase"]; ok {
		limit = start + int(space.PatchOffset)
	}
	if limit > len(data) {
		return &MalformedImage{Kind: "dyld-info", Reason: "rebase stream extends beyond file"}
	}

	var typ uint8
	var segOffset uint64
	var segIndex int
	var segStart uint64
	pos := start
	for pos < limit {
		b := data[pos]
		immediate := b & rebaseImmediateMask
		opcode := b & rebaseOpcodeMask
		pos++

		emit := func() {
			addr := segStart + segOffset
			m.Rebases = append(m.Rebases, RebaseEntry{Type: typ, Address: addr})
			segOffset += uint64(m.Config.PointerSize)
		}

		switch opcode {
		case rebaseOpcodeDone:
			return nil
		case rebaseOpcodeSetTypeImm:
			typ = immediate
		case rebaseOpcodeSetSegmentAndOffsetUleb:
			segIndex = int(immediate)
			segStart = m.segStartAddress(segIndex)
			v, err := readULEB128(data, &pos, limit)
			if err != nil {
				return err
			}
			segOffset = v
		case rebaseOpcodeAddAddrUleb:
			v, err := readULEB128(data, &pos, limit)
			if err != nil {
				return err
			}
			segOffset += v
		case rebaseOpcodeAddAddrImmScaled:
			segOffset += uint64(immediate) * uint64(m.Config.PointerSize)
		case rebaseOpcodeDoRebaseImmTimes:
			for i := uint8(0); i < immediate; i++ {
				emit()
			}
		case rebaseOpcodeDoRebaseUlebTimes:
			count, err := readULEB128(data, &pos, limit)
			if err != nil {
				return err
			}
			for i := uint64(0); i < count; i++ {
				emit()
			}
		case rebaseOpcodeDoRebaseAddAddrUleb:
			emit()
			v, err := readULEB128(data, &pos, limit)
			if err != nil {
				return err
			}
			segOffset += v
		case rebaseOpcodeDoRebaseUlebTimesSkippingUleb:
			count, err := readULEB128(data, &pos, limit)
			if err != nil {
				return err
			}
			skip, err := readULEB128(data, &pos, limit)
			if err != nil {
				return err
			}
			for i := uint64(0); i < count; i++ {
				addr := segStart + segOffset
				m.Rebases = append(m.Rebases, RebaseEntry{Type: typ, Address: addr})
				segOffset += skip + uint64(m.Config.PointerSize)
			}
		default:
			return &MalformedImage{Kind: "dyld-info", Reason: "bad rebase opcode"}
		}
	}
	return nil
}

func (m *Model) parseBindStream(start, end int, weak bool) ([]BindingEntry, error) {
	data := m.data
	var out []BindingEntry

	var typ uint8
	var symbolName string
	var libraryOrdinal int
	var addend int64
	var address uint64
	var weakImport bool

	pos := start
	for pos < end {
		b := data[pos]
		immediate := b & bindImmediateMask
		opcode := b & bindOpcodeMask
		pos++

		switch opcode {
		case bindOpcodeDone:
			return out, nil
		case bindOpcodeSetDylibOrdinalImm:
			libraryOrdinal = int(immediate)
		case bindOpcodeSetDylibOrdinalUleb:
			v, err := readULEB128(data, &pos, end)
			if err != nil {
				return nil, err
			}
			libraryOrdinal = int(v)
		case bindOpcodeSetDylibSpecialImm:
			if immediate == 0 {
				libraryOrdinal = 0
			} else {
				libraryOrdinal = int(int8(bindOpcodeMask | immediate))
			}
		case bindOpcodeSetSymbolTrailingFlagsImm:
			nul := bytesIndexByte(data[pos:end], 0)
			if nul < 0 {
				return nil, &MalformedImage{Kind: "dyld-info", Reason: "unterminated bind symbol name"}
			}
			symbolName = string(data[pos : pos+nul])
			pos += nul + 1
			weakImport = immediate&bindSymbolFlagsWeakImport != 0
		case bindOpcodeSetTypeImm:
			typ = immediate
		case bindOpcodeSetAddendSleb:
			v, err := readSLEB128(data, &pos, end)
			if err != nil {
				return nil, err
			}
			addend = v
		case bindOpcodeSetSegmentAndOffsetUleb:
			segIndex := int(immediate)
			v, err := readULEB128(data, &pos, end)
			if err != nil {
				return nil, err
			}
			address = m.segStartAddress(segIndex) + v
		case bindOpcodeAddAddrUleb:
			v, err := readULEB128(data, &pos, end)
			if err != nil {
				return nil, err
			}
			address += v
		case bindOpcodeDoBind:
			out = append(out, BindingEntry{typ, libraryOrdinal, symbolName, weakImport, address, addend})
			address += uint64(m.Config.PointerSize)
		case bindOpcodeDoBindAddAddrUleb:
			skip, err := readULEB128(data, &pos, end)
			if err != nil {
				return nil, err
			}
			out = append(out, BindingEntry{typ, libraryOrdinal, symbolName, weakImport, address, addend})
			address += uint64(m.Config.PointerSize) + skip
		case bindOpcodeDoBindAddAddrImmScaled:
			out = append(out, BindingEntry{typ, libraryOrdinal, symbolName, weakImport, address, addend})
			address += uint64(immediate)*uint64(m.Config.PointerSize) + uint64(m.Config.PointerSize)
		case bindOpcodeDoBindUlebTimesSkippingUleb:
			count, err := readULEB128(data, &pos, end)
			if err != nil {
				return nil, err
			}
			skip, err := readULEB128(data, &pos, end)
			if err != nil {
				return nil, err
			}
			for i := uint64(0); i < count; i++ {
				out = append(out, BindingEntry{typ, libraryOrdinal, symbolName, weakImport, address, addend})
				address += uint64(m.Config.PointerSize) + skip
			}
		case bindOpcodeThreaded:
			switch immediate {
			case bindSubopcodeThreadedSetBindOrdinalTableSizeUleb:
				if _, err := readULEB128(data, &pos, end); err != nil {
					return nil, err
				}
			case bindSubopcodeThreadedApply:
				// no immediate operand
			default:
				return nil, &MalformedImage{Kind: "dyld-info", Reason: "unknown threaded bind subopcode"}
			}
		default:
			return nil, &MalformedImage{Kind: "dyld-info", Reason: "unknown bind opcode"}
		}
	}
	_ = weak
	return out, nil
}

func parseBind(m *Model, weak bool) error {
	di := m.dyldInfoCmd
	if di == nil {
		return nil
	}
	var off, size uint32
	if weak {
		off, size = di.WeakBindOff, di.WeakBindSize
	} else {
		off, size = di.BindOff, di.BindSize
	}
	if size == 0 {
		return nil
	}
	start := int(off)
	end := start + int(size)
	if end > len(m.data) {
		return &MalformedImage{Kind: "dyld-info", Reason: "bind stream extends beyond file"}
	}
	entries, err := m.parseBindStream(start, end, weak)
	if err != nil {
		return err
	}
	if weak {
		m.WeakBindings = entries
	} else {
		m.Bindings = entries
	}
	return nil
}

func parseLazyBind(m *Model) error {
	di := m.dyldInfoCmd
	if di == nil || di.LazyBindSize == 0 {
		return nil
	}
	data := m.data
	start := int(di.LazyBindOff)
	end := start + int(di.LazyBindSize)
	if end > len(data) {
		return &MalformedImage{Kind: "dyld-info", Reason: "lazy bind stream extends beyond file"}
	}

	typ := uint8(bindTypePointer)
	var symbolName string
	var libraryOrdinal int
	var addend int64
	var segStart, segOffset uint64
	var weakImport bool

	pos := start
	for pos < end {
		b := data[pos]
		immediate := b & bindImmediateMask
		opcode := b & bindOpcodeMask
		pos++

		switch opcode {
		case bindOpcodeDone:
			// unlike normal bind, lazy-bind DONE ends only this symbol's run
		case bindOpcodeSetDylibOrdinalImm:
			libraryOrdinal = int(immediate)
		case bindOpcodeSetDylibOrdinalUleb:
			v, err := readULEB128(data, &pos, end)
			if err != nil {
				return err
			}
			libraryOrdinal = int(v)
		case bindOpcodeSetDylibSpecialImm:
			if immediate == 0 {
				libraryOrdinal = 0
			} else {
				libraryOrdinal = int(int8(bindOpcodeMask | immediate))
			}
		case bindOpcodeSetSymbolTrailingFlagsImm:
			nul := bytesIndexByte(data[pos:end], 0)
			if nul < 0 {
				return &MalformedImage{Kind: "dyld-info", Reason: "unterminated lazy bind symbol name"}
			}
			symbolName = string(data[pos : pos+nul])
			pos += nul + 1
			weakImport = immediate&bindSymbolFlagsWeakImport != 0
		case bindOpcodeSetTypeImm:
			typ = immediate
		case bindOpcodeSetAddendSleb:
			v, err := readSLEB128(data, &pos, end)
			if err != nil {
				return err
			}
			addend = v
		case bindOpcodeSetSegmentAndOffsetUleb:
			segIndex := int(immediate)
			segStart = m.segStartAddress(segIndex)
			v, err := readULEB128(data, &pos, end)
			if err != nil {
				return err
			}
			segOffset = v
		case bindOpcodeAddAddrUleb:
			v, err := readULEB128(data, &pos, end)
			if err != nil {
				return err
			}
			segOffset += v
		case bindOpcodeDoBind:
			m.LazyBindings = append(m.LazyBindings, BindingEntry{
				typ, libraryOrdinal, symbolName, weakImport, segStart + segOffset, addend,
			})
			segOffset += uint64(m.Config.PointerSize)
		default:
			return &MalformedImage{Kind: "dyld-info", Reason: "bad lazy bind opcode"}
		}
	}
	return nil
}
