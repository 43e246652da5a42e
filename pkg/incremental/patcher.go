package incremental

import (
	"io"

	"github.com/blacktop/ld-incr/internal/buffer"
)

// PatcherState is the writer-session state machine described in §4.9:
// Idle → Opened → Decided → Patched → Closed. A Patcher is constructed
// already Opened (the model is parsed by the time one exists) and moves
// forward only.
type PatcherState int

const (
	StateOpened PatcherState = iota
	StateDecided
	StatePatched
	StateClosed
)

// Patcher splices new bytes into a parsed image's reserved patch space
// without disturbing anything at its original file offset or vm
// address. It never grows a section; every write must fit within that
// section's remaining PatchSpace, or the caller gets
// IncrementalImpossible and must fall back to a full link (§4.9, §4.11).
type Patcher struct {
	m     *Model
	dst   io.WriterAt
	state PatcherState

	// staged keeps a copy of each regenerated dyld-info opcode stream,
	// keyed by region name. Only RegenerateRebase fills it ("__rebase");
	// the stream itself is written to dst directly.
	staged map[string]*buffer.ReadWriteBuffer
}

// NewPatcher wraps dst — normally the shared read-write mmap the reader
// (§4.1) established — for writing. Constructing a Patcher does not
// itself write anything.
func NewPatcher(m *Model, dst io.WriterAt) *Patcher {
	return &Patcher{
		m:      m,
		dst:    dst,
		state:  StateOpened,
		staged: make(map[string]*buffer.ReadWriteBuffer),
	}
}

func (p *Patcher) requireState(want PatcherState) error {
	if p.state < want {
		return &MalformedImage{Kind: "patcher", Reason: "operation issued before its required state"}
	}
	return nil
}

// MarkDecided records that the arbiter has run; writes are only valid
// after this point.
func (p *Patcher) MarkDecided() { p.state = StateDecided }

// WriteAtom splices data into sectionName's reserved patch window,
// returning the absolute file offset the bytes landed at. It advances
// that section's recorded patch_offset and shrinks patch_space by
// len(data); if there isn't room, it returns IncrementalImpossible
// instead of a partial write.
func (p *Patcher) WriteAtom(sectionName string, data []byte) (uint64, error) {
	if err := p.requireState(StateDecided); err != nil {
		return 0, err
	}
	ps, ok := p.m.Sidecar.PatchSpaces[sectionName]
	if !ok {
		return 0, &IncrementalImpossible{Section: sectionName}
	}
	if uint32(len(data)) > ps.PatchSpace {
		return 0, &IncrementalImpossible{Section: sectionName}
	}
	sect, ok := p.m.Sections[sectionName]
	if !ok {
		return 0, &MalformedImage{Kind: "patcher", Reason: "unknown section " + sectionName}
	}
	fileOffset := sect.Offset + ps.PatchOffset

	if _, err := p.dst.WriteAt(data, int64(fileOffset)); err != nil {
		return 0, &IoError{Path: sectionName, Err: err}
	}

	ps.PatchOffset += uint64(len(data))
	ps.PatchSpace -= uint32(len(data))
	p.m.Sidecar.PatchSpaces[sectionName] = ps
	p.state = StatePatched
	return fileOffset, nil
}

// AppendString interns name into the string table, returning its byte
// offset. An already-present name is deduped against the existing pool
// instead of being written twice.
func (p *Patcher) AppendString(name string) (uint32, error) {
	if err := p.requireState(StateDecided); err != nil {
		return 0, err
	}
	if p.m.Symtab == nil {
		return 0, &MalformedImage{Kind: "patcher", Reason: "no symbol table to append to"}
	}
	if off, ok := p.m.Symtab.StringPool[name]; ok {
		return off, nil
	}
	needed := len(name) + 1
	patch := p.m.Symtab.StringPoolPatch
	if uint32(needed) > patch.PatchSpace {
		return 0, &IncrementalImpossible{Section: "__string_pool"}
	}

	strtabOff := uint64(p.m.Symtab.Cmd.Stroff)
	fileOffset := strtabOff + patch.PatchOffset

	buf := append([]byte(name), 0)
	if _, err := p.dst.WriteAt(buf, int64(fileOffset)); err != nil {
		return 0, &IoError{Path: "__string_pool", Err: err}
	}

	newOffset := uint32(patch.PatchOffset)
	p.m.Symtab.StringPool[name] = newOffset
	patch.PatchOffset += uint64(needed)
	patch.PatchSpace -= uint32(needed)
	p.m.Symtab.StringPoolPatch = patch
	p.state = StatePatched
	return newOffset, nil
}

// RegenerateRebase re-encodes a rebase opcode stream from scratch and
// appends it after the last used byte of the dyld-info rebase region,
// adds the new stream's length to the in-memory dyld_info_command's
// rebase_size field, and returns that length.
//
// Each entry gets its own SET_SEGMENT_AND_OFFSET_ULEB so the stream
// carries an explicit address rather than relying on emit-time segment
// state to accumulate correctly; DO_REBASE_IMM_TIMES with an immediate
// of 1 then emits exactly that address, matching what parseRebase (§4.4)
// expects to read back.
func (p *Patcher) RegenerateRebase(entries []RebaseEntry) (int, error) {
	if err := p.requireState(StateDecided); err != nil {
		return 0, err
	}
	if p.m.dyldInfoCmd == nil {
		return 0, &MalformedImage{Kind: "patcher", Reason: "no dyld_info_command to regenerate rebase into"}
	}
	buf := buffer.NewReadWriteBuffer(0, -1)
	var out []byte
	var lastType uint8
	for i, e := range entries {
		segIndex, segOffset, ok := p.m.segmentIndexForAddress(e.Address)
		if !ok {
			return 0, &MalformedImage{Kind: "rebase", Reason: "address has no owning segment"}
		}
		if i == 0 || e.Type != lastType {
			out = append(out, rebaseOpcodeSetTypeImm|byte(e.Type&rebaseImmediateMask))
			lastType = e.Type
		}
		out = append(out, rebaseOpcodeSetSegmentAndOffsetUleb|byte(segIndex&rebaseImmediateMask))
		out = writeULEB128(out, segOffset)
		out = append(out, rebaseOpcodeDoRebaseImmTimes|1)
	}
	out = append(out, rebaseOpcodeDone)
	if _, err := buf.WriteAt(out, 0); err != nil {
		return 0, &IoError{Path: "__rebase", Err: err}
	}
	p.staged["__rebase"] = buf

	di := p.m.dyldInfoCmd
	appendOffset := uint64(di.RebaseOff) + uint64(di.RebaseSize)
	if _, err := p.dst.WriteAt(out, int64(appendOffset)); err != nil {
		return 0, &IoError{Path: "__rebase", Err: err}
	}
	if di.RebaseOff == 0 {
		di.RebaseOff = uint32(appendOffset)
	}
	di.RebaseSize += uint32(len(out))
	p.state = StatePatched

	return len(out), nil
}

// UpdateIndirectSymbolIndex adjusts a stub or pointer section's
// reserved1 field when new entries have pushed its slot base further
// into the indirect symbol table (§4.9). The caller supplies the
// section's raw section-header file offset since reserved1's position
// within Section64 is fixed but this package works from decoded views.
func (p *Patcher) UpdateIndirectSymbolIndex(sectionHeaderOffset int64, newIndex uint32) error {
	if err := p.requireState(StateDecided); err != nil {
		return err
	}
	const reserved1FieldOffset = 64 // offsetof(section_64, reserved1)
	var buf [4]byte
	p.m.Config.ByteOrder.PutUint32(buf[:], newIndex)
	if _, err := p.dst.WriteAt(buf[:], sectionHeaderOffset+reserved1FieldOffset); err != nil {
		return &IoError{Path: "reserved1", Err: err}
	}
	p.state = StatePatched
	return nil
}

// Close finalizes the writer session. Nothing further may be written
// afterward.
func (p *Patcher) Close() error {
	p.state = StateClosed
	return nil
}
