package incremental

import "github.com/blacktop/ld-incr/pkg/macho"

// sidecarCommandSize is sizeof(macho_incremental_command): 13 uint32 fields.
const sidecarCommandSize = 13 * 4

// InputKind classifies the file that contributed to a prior link, mirroring
// ld::File::Type from macho_incremental_abstraction.hpp.
type InputKind uint32

const (
	InputKindReloc   InputKind = 0
	InputKindDylib   InputKind = 1
	InputKindArchive InputKind = 2
	InputKindOther   InputKind = 3
)

func (k InputKind) String() string {
	switch k {
	case InputKindReloc:
		return "relocatable"
	case InputKindDylib:
		return "dylib"
	case InputKindArchive:
		return "archive"
	default:
		return "other"
	}
}

// sidecarCommand is the decoded form of the LC_INCREMENTAL (0x41) load
// command, grounded on macho_incremental_command in
// macho_incremental_abstraction.hpp.
type sidecarCommand struct {
	Cmd            macho.LoadCmd
	Cmdsize        uint32
	FileCount      uint32
	InputsOff      uint32
	InputsSize     uint32
	FixupsOff      uint32
	FixupsSize     uint32
	SymtabOff      uint32
	SymtabSize     uint32
	PatchSpaceOff  uint32
	PatchSpaceSize uint32
	StrtabOff      uint32
	StrtabSize     uint32
}

// AtomEntry is one relocatable input's contributed atom, grounded on
// incremental_atom_entry.
type AtomEntry struct {
	NameIndex  uint32
	FileOffset uint64
	Size       uint32
}

// InputEntry is one file contributed to the prior link, grounded on
// incremental_input_entry. Atoms is populated only for InputKindReloc.
type InputEntry struct {
	Path      string
	ModTime   uint64
	Kind      InputKind
	NameIndex uint32
	Atoms     []AtomEntry
}

// Fixup ties an absolute image address to a named symbol, grounded on
// IncrFixup.
type Fixup struct {
	Address   uint64
	NameIndex uint32
	Name      string
}

// GlobalSymbol records which input files reference a given symbol,
// grounded on GlobalSymbolRefEntry.
type GlobalSymbol struct {
	NameIndex        uint32
	Name             string
	ReferencedFiles  []uint32
}

// PatchSpace is a section's reserved scratch window, grounded on the
// PatchSpace wire struct: sectname[17] | patchOffset u64 | patchSpace u32.
type PatchSpace struct {
	SectName    string
	PatchOffset uint64
	PatchSpace  uint32
}

const patchSpaceRecordSize = 17 + 8 + 4 // 29 bytes

// SegmentBoundary is the {vm_start, vm_size} pair for a parsed segment.
type SegmentBoundary struct {
	Start uint64
	Size  uint64
}

// SectionBoundary is the {vm_address, file_offset, size} triple recorded
// for any section the walker or a later pass has reason to remember.
type SectionBoundary struct {
	Address uint64
	Offset  uint64
	Size    uint64
}
