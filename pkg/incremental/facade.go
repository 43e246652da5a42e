package incremental

import "fmt"

// Core is the top-level facade a driver links against: open an image,
// query its reconstructed model, arbitrate inputs, patch, close (§4.10).
// It composes Reader (mapping + parse) with the query/lookup helpers a
// driver needs and never exposes the raw mmap.
type Core struct {
	reader *Reader
}

// OpenCore opens path and reconstructs its incremental model. Callers
// that only want a read-only inspection (e.g. `ldincr inspect`) can stop
// here; callers that intend to patch should proceed to NewPatcher with
// the *Reader obtained from the returned Core's Reader method.
func OpenCore(path string) (*Core, error) {
	r, err := Open(path)
	if r == nil {
		return nil, err
	}
	return &Core{reader: r}, err
}

// Close releases the underlying mapping.
func (c *Core) Close() error { return c.reader.Close() }

// Reader exposes the underlying mapped reader, e.g. for constructing a
// Patcher against the same file descriptor.
func (c *Core) Reader() *Reader { return c.reader }

// Model returns the reconstructed view of the prior link. Nil if Open
// failed before the walk began.
func (c *Core) Model() *Model { return c.reader.Model }

// HasSidecar reports whether the image carries an LC_INCREMENTAL
// command at all.
func (c *Core) HasSidecar() bool {
	return c.reader.Model != nil && c.reader.Model.Sidecar != nil
}

// SegmentBoundary looks up a segment's {start, size} by name.
func (c *Core) SegmentBoundary(name string) (SegmentBoundary, bool) {
	b, ok := c.reader.Model.Segments[name]
	return b, ok
}

// SectionBoundary looks up a section's {address, offset, size} by name.
func (c *Core) SectionBoundary(name string) (SectionBoundary, bool) {
	b, ok := c.reader.Model.Sections[name]
	return b, ok
}

// SectionPatchFileOffset returns the absolute file offset at which the
// next byte written to sectionName's patch window would land.
func (c *Core) SectionPatchFileOffset(sectionName string) (uint64, error) {
	m := c.reader.Model
	sect, ok := m.Sections[sectionName]
	if !ok {
		return 0, &MalformedImage{Kind: "facade", Reason: "unknown section " + sectionName}
	}
	if m.Sidecar == nil {
		return 0, &SidecarMissing{}
	}
	ps, ok := m.Sidecar.PatchSpaces[sectionName]
	if !ok {
		return 0, &IncrementalImpossible{Section: sectionName}
	}
	return sect.Offset + ps.PatchOffset, nil
}

// FindRelocations returns every fixup recorded against atomName.
func (c *Core) FindRelocations(atomName string) []Fixup {
	if c.reader.Model.Sidecar == nil {
		return nil
	}
	return c.reader.Model.Sidecar.FixupsByName[atomName]
}

// SymSectionOffset finds the byte offset of a symbol-table record of the
// given n_type whose name matches, letting a driver overwrite an
// existing symbol slot in place.
func (c *Core) SymSectionOffset(nType uint8, name string) (uint32, bool) {
	st := c.reader.Model.Symtab
	if st == nil {
		return 0, false
	}
	byName, ok := st.TypeNameOffset[nType]
	if !ok {
		return 0, false
	}
	off, ok := byName[name]
	return off, ok
}

// SymbolIndexInStrings returns name's byte offset in the string table if
// it is already interned.
func (c *Core) SymbolIndexInStrings(name string) (uint32, bool) {
	st := c.reader.Model.Symtab
	if st == nil {
		return 0, false
	}
	off, ok := st.StringPool[name]
	return off, ok
}

// UpdateDylibOrdinal renumbers dylib references when the driver's dylib
// load-command order differs from the one recorded at the prior link.
func (c *Core) UpdateDylibOrdinal(byName map[string]int, dylib string) (int, error) {
	ord, ok := byName[dylib]
	if !ok {
		return 0, fmt.Errorf("dylib %q not present in ordinal map", dylib)
	}
	c.reader.Model.DylibToOrdinal[dylib] = ord
	return ord, nil
}

// PatchWindowBytes returns a copy of the bytes currently occupying
// sectionName's unused patch window, along with the virtual address of
// the first byte, for diagnostic dumps.
func (c *Core) PatchWindowBytes(sectionName string) ([]byte, uint64, error) {
	off, err := c.SectionPatchFileOffset(sectionName)
	if err != nil {
		return nil, 0, err
	}
	m := c.reader.Model
	ps := m.Sidecar.PatchSpaces[sectionName]
	end := off + uint64(ps.PatchSpace)
	if end > uint64(len(c.reader.data)) {
		end = uint64(len(c.reader.data))
	}
	buf := make([]byte, 0, end-off)
	buf = append(buf, c.reader.data[off:end]...)

	sect := m.Sections[sectionName]
	return buf, sect.Address + (off - sect.Offset), nil
}

// StubAtoms returns every reconstructed stub/pointer proxy.
func (c *Core) StubAtoms() []StubAtom { return c.reader.Model.StubAtoms }

// DylibOrdinals returns the dylib name table; library ordinal n is at
// index n-1.
func (c *Core) DylibOrdinals() []string { return c.reader.Model.DylibOrdinals }

// Rebases, Bindings, WeakBindings, LazyBindings expose the decoded
// dyld-info opcode results verbatim.
func (c *Core) Rebases() []RebaseEntry       { return c.reader.Model.Rebases }
func (c *Core) Bindings() []BindingEntry     { return c.reader.Model.Bindings }
func (c *Core) WeakBindings() []BindingEntry { return c.reader.Model.WeakBindings }
func (c *Core) LazyBindings() []BindingEntry { return c.reader.Model.LazyBindings }
