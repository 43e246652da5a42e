package incremental

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Sidecar is the fully decoded incremental-link payload carried by an
// LC_INCREMENTAL command: the five auxiliary tables described in §4.7.
type Sidecar struct {
	cmd sidecarCommand

	Strings []string

	Inputs    []*InputEntry
	InputsMap map[string]*InputEntry

	Fixups      []Fixup
	FixupsByName map[string][]Fixup

	GlobalSymbols []GlobalSymbol

	// PatchSpaces excludes the synthetic "__string_pool" entry, which is
	// derived separately from the Mach-O string table (§4.3) and kept in
	// Model.Symtab.StringPoolPatch instead.
	PatchSpaces map[string]PatchSpace
}

// decodeSidecar walks the five regions in the prescribed order: strings,
// then inputs, then fixups, then global symbols, then patch-space.
// Ordering matters because inputs and fixups index into the string pool.
func decodeSidecar(data []byte, order binary.ByteOrder, cmd sidecarCommand) (*Sidecar, error) {
	sc := &Sidecar{
		cmd:          cmd,
		InputsMap:    make(map[string]*InputEntry),
		FixupsByName: make(map[string][]Fixup),
		PatchSpaces:  make(map[string]PatchSpace),
	}

	strs, err := decodeStringPool(data, cmd.StrtabOff, cmd.StrtabSize)
	if err != nil {
		return nil, errors.Wrap(err, "decode incremental string pool")
	}
	sc.Strings = strs

	if err := decodeInputs(data, order, cmd, sc); err != nil {
		return nil, errors.Wrap(err, "decode incremental inputs")
	}

	if err := decodeFixups(data, order, cmd, sc); err != nil {
		return nil, errors.Wrap(err, "decode incremental fixups")
	}

	if err := decodeGlobalSymbols(data, order, cmd, sc); err != nil {
		return nil, errors.Wrap(err, "decode incremental global symbols")
	}

	if err := decodePatchSpace(data, cmd, sc); err != nil {
		return nil, errors.Wrap(err, "decode incremental patch space")
	}

	return sc, nil
}

func (s *Sidecar) stringAt(idx uint32) string {
	if int(idx) >= len(s.Strings) {
		return ""
	}
	return s.Strings[idx]
}

// decodeStringPool concatenates NUL-terminated names; the region size is
// authoritative, an embedded empty string terminates early exactly as
// the original's parseIncrementalStringPool does.
func decodeStringPool(data []byte, off, size uint32) ([]string, error) {
	if size == 0 {
		return nil, nil
	}
	end := int(off) + int(size)
	if end > len(data) || off > uint32(len(data)) {
		return nil, &MalformedImage{Kind: "sidecar", Reason: "string pool extends beyond file"}
	}
	region := data[off:end]
	var out []string
	pos := 0
	for pos < len(region) {
		nul := bytes.IndexByte(region[pos:], 0)
		if nul < 0 {
			return nil, &MalformedImage{Kind: "sidecar", Reason: "string pool entry not NUL-terminated"}
		}
		if nul == 0 {
			break
		}
		out = append(out, string(region[pos:pos+nul]))
		pos += nul + 1
	}
	return out, nil
}

func decodeInputs(data []byte, order binary.ByteOrder, cmd sidecarCommand, sc *Sidecar) error {
	if cmd.FileCount == 0 {
		return nil
	}
	end := int(cmd.InputsOff) + int(cmd.InputsSize)
	if end > len(data) {
		return &MalformedImage{Kind: "sidecar", Reason: "inputs region extends beyond file"}
	}
	pos := int(cmd.InputsOff)
	for i := uint32(0); i < cmd.FileCount; i++ {
		if pos+16 > end {
			return &MalformedImage{Kind: "sidecar", Reason: "truncated input entry"}
		}
		nameIdx := order.Uint32(data[pos : pos+4])
		modTime := order.Uint64(data[pos+4 : pos+12])
		kind := InputKind(order.Uint32(data[pos+12 : pos+16]))
		pos += 16

		entry := &InputEntry{
			Path:      sc.stringAt(nameIdx),
			ModTime:   modTime,
			Kind:      kind,
			NameIndex: nameIdx,
		}

		if kind == InputKindReloc {
			if pos+4 > end {
				return &MalformedImage{Kind: "sidecar", Reason: "truncated relocatable input atom count"}
			}
			atomCount := order.Uint32(data[pos : pos+4])
			pos += 4
			entry.Atoms = make([]AtomEntry, 0, atomCount)
			for a := uint32(0); a < atomCount; a++ {
				if pos+16 > end {
					return &MalformedImage{Kind: "sidecar", Reason: "truncated atom entry"}
				}
				atom := AtomEntry{
					NameIndex:  order.Uint32(data[pos : pos+4]),
					FileOffset: order.Uint64(data[pos+4 : pos+12]),
					Size:       order.Uint32(data[pos+12 : pos+16]),
				}
				pos += 16
				entry.Atoms = append(entry.Atoms, atom)
			}
		}

		sc.Inputs = append(sc.Inputs, entry)
		sc.InputsMap[entry.Path] = entry
	}
	return nil
}

func decodeFixups(data []byte, order binary.ByteOrder, cmd sidecarCommand, sc *Sidecar) error {
	if cmd.FixupsSize == 0 {
		return nil
	}
	pos := int(cmd.FixupsOff)
	end := pos + int(cmd.FixupsSize)
	if end > len(data) {
		return &MalformedImage{Kind: "sidecar", Reason: "fixups region extends beyond file"}
	}
	if pos+4 > end {
		return &MalformedImage{Kind: "sidecar", Reason: "truncated fixup count"}
	}
	count := order.Uint32(data[pos : pos+4])
	pos += 4
	for i := uint32(0); i < count; i++ {
		if pos+12 > end {
			return &MalformedImage{Kind: "sidecar", Reason: "truncated fixup entry"}
		}
		fx := Fixup{
			Address:   order.Uint64(data[pos : pos+8]),
			NameIndex: order.Uint32(data[pos+8 : pos+12]),
		}
		fx.Name = sc.stringAt(fx.NameIndex)
		pos += 12
		sc.Fixups = append(sc.Fixups, fx)
		sc.FixupsByName[fx.Name] = append(sc.FixupsByName[fx.Name], fx)
	}
	return nil
}

// decodeGlobalSymbols validates that a complete record fits within the
// remaining bytes before consuming it, erroring rather than silently
// truncating a partial trailing record (Open Question resolution, see
// DESIGN.md).
func decodeGlobalSymbols(data []byte, order binary.ByteOrder, cmd sidecarCommand, sc *Sidecar) error {
	if cmd.SymtabSize == 0 {
		return nil
	}
	pos := int(cmd.SymtabOff)
	end := pos + int(cmd.SymtabSize)
	if end > len(data) {
		return &MalformedImage{Kind: "sidecar", Reason: "global symbol region extends beyond file"}
	}
	for pos < end {
		if end-pos < 8 {
			return &MalformedImage{Kind: "sidecar", Reason: "partial trailing global symbol record"}
		}
		nameIdx := order.Uint32(data[pos : pos+4])
		refCount := order.Uint32(data[pos+4 : pos+8])
		recSize := 8 + int(refCount)*4
		if pos+recSize > end {
			return &MalformedImage{Kind: "sidecar", Reason: "partial trailing global symbol record"}
		}
		gs := GlobalSymbol{NameIndex: nameIdx, Name: sc.stringAt(nameIdx)}
		gs.ReferencedFiles = make([]uint32, refCount)
		for i := uint32(0); i < refCount; i++ {
			off := pos + 8 + int(i)*4
			gs.ReferencedFiles[i] = order.Uint32(data[off : off+4])
		}
		sc.GlobalSymbols = append(sc.GlobalSymbols, gs)
		pos += recSize
	}
	return nil
}

func decodePatchSpace(data []byte, cmd sidecarCommand, sc *Sidecar) error {
	if cmd.PatchSpaceSize == 0 {
		return nil
	}
	pos := int(cmd.PatchSpaceOff)
	end := pos + int(cmd.PatchSpaceSize)
	if end > len(data) {
		return &MalformedImage{Kind: "sidecar", Reason: "patch space region extends beyond file"}
	}
	for pos+patchSpaceRecordSize <= end {
		nameRaw := data[pos : pos+17]
		nul := 17
		if idx := indexByteOrLen(nameRaw, 0); idx < nul {
			nul = idx
		}
		name := string(nameRaw[:nul])
		off := binary.LittleEndian.Uint64(data[pos+17 : pos+25])
		space := binary.LittleEndian.Uint32(data[pos+25 : pos+29])
		pos += patchSpaceRecordSize
		if name == "__string_pool" {
			// Derived from the symtab command instead (§4.3).
			continue
		}
		sc.PatchSpaces[name] = PatchSpace{SectName: name, PatchOffset: off, PatchSpace: space}
	}
	if pos != end {
		return &MalformedImage{Kind: "sidecar", Reason: "partial trailing patch space record"}
	}
	return nil
}

func indexByteOrLen(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return len(b)
}
