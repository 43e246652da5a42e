package incremental

import (
	"bytes"
	"encoding/binary"

	"github.com/blacktop/ld-incr/pkg/macho"
)

// symtabInfo is the result of §4.3: the string pool's used/reserved
// split, the per-type symbol maps, and the address->index map. Stub and
// objc reconstruction do not read the address->index map.
type symtabInfo struct {
	Cmd     macho.SymtabCmd
	Symbols []macho.Nlist64

	// StringPool maps a symbol name to its byte offset in the string table.
	StringPool map[string]uint32
	// currentBufferUsed is the offset of the first byte of the reserved
	// (unused) tail of the string table.
	currentBufferUsed uint32
	StringPoolPatch   PatchSpace

	// TypeNameOffset is (n_type -> name -> record offset), letting the
	// writer locate the slot for a given name in O(1).
	TypeNameOffset map[uint8]map[string]uint32
	// TypeFirstOffset is (n_type -> first record offset).
	TypeFirstOffset map[uint8]uint32
	// AddressToIndex relates a symbol's value back to its table index.
	AddressToIndex map[uint64]int

	// DylibSymbols holds undefined+external symbols, keyed by name; stub
	// reconstruction removes entries as it materializes proxy atoms for
	// them, leaving only symbols imported with no stub.
	DylibSymbols map[string]macho.Nlist64
}

// parseSymtab is grounded on Parser<A>::parseSymbolTable in
// macho_incremental_file.hpp.
func parseSymtab(data []byte, order binary.ByteOrder, cmd macho.SymtabCmd, linkeditOff, linkeditSize uint64) (*symtabInfo, error) {
	if uint64(cmd.Stroff) < linkeditOff {
		return nil, &MalformedImage{Kind: "symtab", Reason: "string pool not in __LINKEDIT"}
	}
	if uint64(cmd.Stroff)+uint64(cmd.Strsize) > linkeditOff+linkeditSize {
		return nil, &MalformedImage{Kind: "symtab", Reason: "string pool extends beyond __LINKEDIT"}
	}
	if cmd.Stroff%4 != 0 {
		return nil, &MalformedImage{Kind: "symtab", Reason: "string pool start not pointer aligned"}
	}
	if int(cmd.Stroff)+int(cmd.Strsize) > len(data) {
		return nil, &MalformedImage{Kind: "symtab", Reason: "string pool extends beyond file"}
	}

	info := &symtabInfo{
		Cmd:             cmd,
		StringPool:      make(map[string]uint32),
		TypeNameOffset:  make(map[uint8]map[string]uint32),
		TypeFirstOffset: make(map[uint8]uint32),
		AddressToIndex:  make(map[uint64]int),
		DylibSymbols:    make(map[string]macho.Nlist64),
	}

	strTab := data[cmd.Stroff : uint32(cmd.Stroff)+cmd.Strsize]
	pos := uint32(0)
	for pos < cmd.Strsize {
		nul := bytesIndexByte(strTab[pos:], 0)
		if nul < 0 {
			return nil, &MalformedImage{Kind: "symtab", Reason: "string table entry not NUL-terminated"}
		}
		if nul == 0 {
			break
		}
		name := string(strTab[pos : pos+uint32(nul)])
		info.StringPool[name] = pos
		pos += uint32(nul) + 1
	}
	info.currentBufferUsed = pos
	info.StringPoolPatch = PatchSpace{
		SectName:    "__string_pool",
		PatchOffset: uint64(pos),
		PatchSpace:  cmd.Strsize - pos,
	}

	if cmd.Nsyms != 0 {
		if uint64(cmd.Symoff) < linkeditOff {
			return nil, &MalformedImage{Kind: "symtab", Reason: "symbol table not in __LINKEDIT"}
		}
		const nlistSize = 16 // sizeof(nlist_64)
		if uint64(cmd.Symoff)+uint64(cmd.Nsyms)*nlistSize > uint64(cmd.Stroff) {
			return nil, &MalformedImage{Kind: "symtab", Reason: "symbol table overlaps string pool"}
		}
		if cmd.Symoff%8 != 0 {
			return nil, &MalformedImage{Kind: "symtab", Reason: "symbol table start not pointer aligned"}
		}
		if int(cmd.Symoff)+int(cmd.Nsyms)*nlistSize > len(data) {
			return nil, &MalformedImage{Kind: "symtab", Reason: "symbol table extends beyond file"}
		}

		r := bytes.NewReader(data[cmd.Symoff:])
		info.Symbols = make([]macho.Nlist64, 0, cmd.Nsyms)
		count := cmd.Nsyms
		for i := uint32(0); i < cmd.Nsyms; i++ {
			var sym macho.Nlist64
			if err := binary.Read(r, order, &sym); err != nil {
				return nil, err
			}
			if sym.Name == 0 {
				// A zero string index is a sentinel for end-of-meaningful-symbols,
				// not a symbol literally named the empty string (§4.3).
				count = i
				break
			}
			name := ""
			if int(sym.Name) < len(strTab) {
				if nul := bytesIndexByte(strTab[sym.Name:], 0); nul >= 0 {
					name = string(strTab[sym.Name : uint32(sym.Name)+uint32(nul)])
				}
			}

			if sym.Type&uint8(macho.N_TYPE) == uint8(macho.N_UNDF) && sym.Type&uint8(macho.N_EXT) != 0 {
				info.DylibSymbols[name] = sym
			}

			if info.TypeNameOffset[sym.Type] == nil {
				info.TypeNameOffset[sym.Type] = make(map[string]uint32)
			}
			off := i * nlistSize
			info.TypeNameOffset[sym.Type][name] = off
			if _, ok := info.TypeFirstOffset[sym.Type]; !ok {
				info.TypeFirstOffset[sym.Type] = off
			}
			if sym.Value != 0 {
				info.AddressToIndex[sym.Value] = int(i)
			}

			info.Symbols = append(info.Symbols, sym)
		}
		info.Symbols = info.Symbols[:count]
	}

	return info, nil
}

// nameForSymbol resolves a symbol's name from the string table given its
// n_strx field.
func (info *symtabInfo) nameForSymbol(strTab []byte, sym macho.Nlist64) string {
	if int(sym.Name) >= len(strTab) {
		return ""
	}
	if nul := bytesIndexByte(strTab[sym.Name:], 0); nul >= 0 {
		return string(strTab[sym.Name : uint32(sym.Name)+uint32(nul)])
	}
	return ""
}
