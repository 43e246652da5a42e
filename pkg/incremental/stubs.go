package incremental

import (
	"github.com/blacktop/ld-incr/pkg/macho"
)

// indirectSymbolLocal marks a S_NON_LAZY_SYMBOL_POINTERS/S_SYMBOL_STUBS
// slot that is bound locally rather than through the indirect symbol
// table, per <mach-o/loader.h> INDIRECT_SYMBOL_LOCAL.
const indirectSymbolLocal = 0x80000000

// dyldStubBinderSymbolName is the synthetic helper every lazy stub's
// first slot resolves to before its real target is bound.
const dyldStubBinderSymbolName = "dyld_stub_binder"

// StubAtom is one materialized stub or non-lazy pointer proxy, standing
// in for the atom the original linker would have created for a call or
// data reference into a dylib (§4.5).
type StubAtom struct {
	SectionName    string
	Address        uint64
	SymbolName     string
	LibraryOrdinal int
	IsLazy         bool
}

// sectionStubInfo captures the section-flag bits reconstructStubs needs
// but SectionBoundary doesn't carry. The walker records one of these per
// section alongside its SectionBoundary as it decodes each Section64.
type sectionStubInfo struct {
	isStubs           bool
	isNonLazyPointers bool
	isLazyPointers    bool
	reserve1          uint32
	reserve2          uint32
}

// reconstructStubs walks S_SYMBOL_STUBS, S_LAZY_SYMBOL_POINTERS and
// S_NON_LAZY_SYMBOL_POINTERS sections, resolving each indirect-symbol-
// table slot back to the dylib-imported symbol it stands in for.
// Grounded on Parser<A>::parseStubsSection / parseNonLazyPointerSection
// in macho_incremental_file.hpp.
func reconstructStubs(m *Model, linkeditOff, linkeditSize uint64) error {
	if m.Dysymtab == nil || m.Symtab == nil {
		return nil
	}
	dt := m.Dysymtab
	if dt.Nindirectsyms == 0 {
		return nil
	}

	indirectOff := uint64(dt.Indirectsymoff)
	indirectEnd := indirectOff + uint64(dt.Nindirectsyms)*4
	if indirectOff < linkeditOff || indirectEnd > linkeditOff+linkeditSize {
		return &MalformedImage{Kind: "dysymtab", Reason: "indirect symbol table not in __LINKEDIT"}
	}
	if indirectEnd > uint64(len(m.data)) {
		return &MalformedImage{Kind: "dysymtab", Reason: "indirect symbol table extends beyond file"}
	}

	order := m.Config.ByteOrder
	indirect := make([]uint32, dt.Nindirectsyms)
	for i := range indirect {
		off := indirectOff + uint64(i)*4
		indirect[i] = order.Uint32(m.data[off : off+4])
	}

	strTab := m.data[m.Symtab.Cmd.Stroff : uint32(m.Symtab.Cmd.Stroff)+m.Symtab.Cmd.Strsize]

	for secName, info := range m.sectionFlags {
		if !info.isStubs && !info.isNonLazyPointers && !info.isLazyPointers {
			continue
		}
		boundary, ok := m.Sections[secName]
		if !ok {
			continue
		}
		stride := info.reserve2
		if !info.isStubs {
			stride = uint32(m.Config.PointerSize)
		}
		if stride == 0 {
			continue
		}
		usedSize := boundary.Size
		if m.Sidecar != nil {
			if ps, ok := m.Sidecar.PatchSpaces[secName]; ok {
				usedSize -= uint64(ps.PatchSpace)
			}
		}
		count := uint32(usedSize) / stride
		if info.reserve1+count > dt.Nindirectsyms {
			return &MalformedImage{Kind: "section", Reason: "indirect symbol range extends beyond table for " + secName}
		}
		for i := uint32(0); i < count; i++ {
			idx := indirect[info.reserve1+i]
			if idx == indirectSymbolLocal {
				continue
			}
			if idx >= uint32(len(m.Symtab.Symbols)) {
				return &MalformedImage{Kind: "section", Reason: "indirect symbol index out of range in " + secName}
			}
			sym := m.Symtab.Symbols[idx]
			name := m.Symtab.nameForSymbol(strTab, sym)
			ordinal := macho.GetLibraryOrdinal(sym.Desc)
			if name == dyldStubBinderSymbolName {
				continue
			}
			atom := StubAtom{
				SectionName:    secName,
				Address:        boundary.Address + uint64(i)*uint64(m.Config.PointerSize),
				SymbolName:     name,
				LibraryOrdinal: int(ordinal),
				IsLazy:         info.isStubs || info.isLazyPointers,
			}
			m.StubAtoms = append(m.StubAtoms, atom)
			registerDylibOrdinal(m, name, int(ordinal))
			delete(m.Symtab.DylibSymbols, name)
		}
	}

	// §4.5 post-walk step: every symbol left in DylibSymbols after the
	// section walk is an import with no stub (e.g. referenced but never
	// called through a lazy pointer) — it still needs an ordinal entry
	// so the writer can relocate its bind, even though no proxy atom is
	// produced for it.
	for name, sym := range m.Symtab.DylibSymbols {
		ordinal := macho.GetLibraryOrdinal(sym.Desc)
		registerDylibOrdinal(m, name, int(ordinal))
	}

	return nil
}

// registerDylibOrdinal records the dylib name for a 1-based library
// ordinal in m.DylibToOrdinal, if the ordinal is a real dylib index
// (not one of the special ordinals) and its name is known.
func registerDylibOrdinal(m *Model, symbolName string, ordinal int) {
	if ordinal < 1 || ordinal > len(m.DylibOrdinals) {
		return
	}
	dylib := m.DylibOrdinals[ordinal-1]
	if dylib == "" {
		return
	}
	if _, ok := m.DylibToOrdinal[dylib]; !ok {
		m.DylibToOrdinal[dylib] = ordinal
	}
}
