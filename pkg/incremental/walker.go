package incremental

import (
	"bytes"
	"encoding/binary"

	"github.com/apex/log"
	"github.com/blacktop/ld-incr/pkg/macho"
	"github.com/pkg/errors"
)

// TargetConfig parameterizes the walker over pointer width, byte order
// and load-command alignment: the same knobs the original's Parser<A>
// template specialized over, expressed here as a runtime value rather
// than a compile-time type parameter (§9 "Template specialization on
// pointer width").
type TargetConfig struct {
	PointerSize int
	ByteOrder   binary.ByteOrder
	AlignMask   uint32
	Magic       uint32
	Cpu         macho.Cpu
}

var configArm64 = TargetConfig{PointerSize: 8, ByteOrder: binary.LittleEndian, AlignMask: 7, Magic: macho.Magic64, Cpu: macho.CpuArm64}
var configAmd64 = TargetConfig{PointerSize: 8, ByteOrder: binary.LittleEndian, AlignMask: 7, Magic: macho.Magic64, Cpu: macho.CpuAmd64}

// configForCpu resolves a TargetConfig from a header's cputype. Unlike
// the original's openBinary(), which only ever instantiated the parser
// for CPU_TYPE_ARM64, both arm64 (any subtype, arm64e included) and
// x86_64 are accepted here (§9 "Original-architecture gap"); every other
// cputype, ppc64 included, is an ArchMismatch.
func configForCpu(cpu macho.Cpu) (TargetConfig, error) {
	switch cpu {
	case macho.CpuArm64:
		return configArm64, nil
	case macho.CpuAmd64:
		return configAmd64, nil
	default:
		return TargetConfig{}, &ArchMismatch{Want: "arm64 or x86_64", Got: cpu.String()}
	}
}

// Model is the reconstructed view of a prior link, assembled by a single
// forward pass over the image's load commands.
type Model struct {
	Header macho.FileHeader
	Config TargetConfig

	Segments map[string]SegmentBoundary
	// segmentOrder preserves load-command order: dyld-info opcode streams
	// address segments by index, not by name.
	segmentOrder []string
	Sections     map[string]SectionBoundary
	// sectionFlags carries the section-type/reserved fields stub
	// reconstruction needs but SectionBoundary doesn't.
	sectionFlags map[string]sectionStubInfo

	Symtab   *symtabInfo
	Dysymtab *macho.DysymtabCmd

	// DylibOrdinals holds dylib names in LC_LOAD_DYLIB-family command
	// order: the dylib for 1-based library ordinal n is at index n-1.
	DylibOrdinals []string

	Sidecar *Sidecar

	hasEntryPoint bool
	dyldInfoCmd   *macho.DyldInfoCmd

	StubAtoms      []StubAtom
	DylibToOrdinal map[string]int

	ObjC *objcModel

	Rebases      []RebaseEntry
	Bindings     []BindingEntry
	WeakBindings []BindingEntry
	LazyBindings []BindingEntry

	data []byte
}

// walk performs the single forward pass described in §4.2: verify each
// command's size and bounds, then dispatch by command type. Ordering
// rules from §5 are enforced by deferring the dyld-info pass and stub /
// objc reconstruction until after the rest of the walk completes.
func walk(data []byte, hdr macho.FileHeader, cfg TargetConfig, cmdsStart int64) (*Model, error) {
	m := &Model{
		Header:         hdr,
		Config:         cfg,
		Segments:       make(map[string]SegmentBoundary),
		Sections:       make(map[string]SectionBoundary),
		sectionFlags:   make(map[string]sectionStubInfo),
		DylibToOrdinal: make(map[string]int),
		data:           data,
	}

	order := cfg.ByteOrder
	endOfFile := int64(len(data))
	endOfLoadCommands := cmdsStart + int64(hdr.Cmdsz)
	if endOfLoadCommands > endOfFile {
		return nil, &MalformedImage{Kind: "header", Reason: "sizeofcmds exceeds file length"}
	}

	pos := cmdsStart
	var linkedit *SegmentBoundary
	var linkeditFileoff, linkeditFilesize uint64
	var sawDylinker bool

	for i := uint32(0); i < hdr.Ncmd; i++ {
		if pos+8 > endOfLoadCommands {
			return nil, &MalformedImage{Kind: "load-command", Reason: "command block too small"}
		}
		cmd := macho.LoadCmd(order.Uint32(data[pos : pos+4]))
		size := order.Uint32(data[pos+4 : pos+8])
		if size&cfg.AlignMask != 0 {
			return nil, &MalformedImage{Kind: "load-command", Reason: "unaligned command size"}
		}
		endOfCmd := pos + int64(size)
		if endOfCmd > endOfLoadCommands {
			return nil, &MalformedImage{Kind: "load-command", Reason: "command extends beyond load commands"}
		}
		if endOfCmd > endOfFile {
			return nil, &MalformedImage{Kind: "load-command", Reason: "command extends beyond file"}
		}
		raw := data[pos:endOfCmd]

		switch cmd {
		case macho.LoadCmdSegment64:
			var seg macho.Segment64
			if err := binary.Read(bytes.NewReader(raw), order, &seg); err != nil {
				return nil, errors.Wrap(err, "read segment64")
			}
			name := cstring(seg.Name[:])
			boundary := SegmentBoundary{Start: seg.Addr, Size: seg.Memsz}
			m.Segments[name] = boundary
			m.segmentOrder = append(m.segmentOrder, name)
			if name == "__LINKEDIT" {
				linkeditFileoff, linkeditFilesize = seg.Offset, seg.Filesz
				b := boundary
				linkedit = &b
			}
			sects, err := readSections64(raw[binary.Size(seg):], seg.Nsect, order)
			if err != nil {
				return nil, err
			}
			for _, s := range sects {
				m.Sections[s.name] = SectionBoundary{Address: s.Addr, Offset: uint64(s.Offset), Size: s.Size}
				m.sectionFlags[s.name] = sectionStubInfo{
					isStubs:           s.Flags.IsSymbolStubs(),
					isNonLazyPointers: s.Flags.IsNonLazySymbolPointers(),
					isLazyPointers:    s.Flags.IsLazySymbolPointers(),
					reserve1:          s.Reserve1,
					reserve2:          s.Reserve2,
				}
			}
			dispatchSegmentSections(m, name, sects)

		case macho.LoadCmdDyldInfo, macho.LoadCmdDyldInfoOnly:
			var di macho.DyldInfoCmd
			if err := binary.Read(bytes.NewReader(raw), order, &di); err != nil {
				return nil, errors.Wrap(err, "read dyld_info_command")
			}
			m.dyldInfoCmd = &di

		case macho.LoadCmdMain:
			if hdr.Type != macho.TypeExec {
				return nil, &UnsupportedImage{Reason: "LC_MAIN present in a non-executable"}
			}
			m.hasEntryPoint = true

		case macho.LoadCmdSymtab:
			var st macho.SymtabCmd
			if err := binary.Read(bytes.NewReader(raw), order, &st); err != nil {
				return nil, errors.Wrap(err, "read symtab_command")
			}
			info, err := parseSymtab(data, order, st, linkeditFileoff, linkeditFilesize)
			if err != nil {
				return nil, err
			}
			m.Symtab = info

		case macho.LoadCmdDysymtab:
			var dt macho.DysymtabCmd
			if err := binary.Read(bytes.NewReader(raw), order, &dt); err != nil {
				return nil, errors.Wrap(err, "read dysymtab_command")
			}
			m.Dysymtab = &dt

		case macho.LoadCmdDylib, macho.LoadCmdLoadWeakDylib, macho.LoadCmdReexportDylib,
			macho.LoadCmdLoadUpwardDylib, macho.LoadCmdLazyLoadDylib:
			var dl macho.DylibCmd
			if err := binary.Read(bytes.NewReader(raw), order, &dl); err != nil {
				return nil, errors.Wrap(err, "read dylib_command")
			}
			if int(dl.Name) >= len(raw) {
				return nil, &MalformedImage{Kind: "dylib-command", Reason: "name offset out of range"}
			}
			name := cstring(raw[dl.Name:])
			m.DylibOrdinals = append(m.DylibOrdinals, name)

		case macho.LoadCmdLoadDylinker:
			sawDylinker = true

		case macho.LoadCmdIncremental:
			sc, err := decodeIncrementalCommand(data, order, raw)
			if err != nil {
				return nil, err
			}
			m.Sidecar = sc

		default:
			log.Debugf("skipping load command %s", cmd)
		}

		pos = endOfCmd
	}

	if linkedit == nil && (m.Symtab != nil || m.Dysymtab != nil) {
		return nil, &MalformedImage{Kind: "segment", Reason: "no __LINKEDIT segment present"}
	}

	// A static executable — one with no LC_LOAD_DYLINKER — must carry
	// exactly MH_NOUNDEFS, optionally with MH_PIE, and nothing else
	// (§4.1). This can only be checked here, once the load-command walk
	// has established whether a dylinker is present; parseHeader sees
	// only the fixed header.
	if hdr.Type == macho.TypeExec && !sawDylinker {
		flags := macho.HeaderFlags(hdr.Flags)
		if !flags.NoUndefs() || (hdr.Flags&^(uint32(macho.FlagNoUndefs)|uint32(macho.FlagPIE))) != 0 {
			return nil, &MalformedImage{Kind: "header", Reason: "static executable must carry exactly MH_NOUNDEFS (optionally MH_PIE)"}
		}
	}

	if m.Sidecar == nil {
		return m, &SidecarMissing{}
	}

	// Sidecar parsed before dyld-info: patch space must be known first.
	if m.dyldInfoCmd != nil {
		if err := parseDyldInfo(m); err != nil {
			return nil, err
		}
	}

	// Stub reconstruction after symbol-table parsing (needs the decoded symbols).
	if m.Symtab != nil && m.Dysymtab != nil {
		if err := reconstructStubs(m, linkeditFileoff, linkeditFilesize); err != nil {
			return nil, err
		}
	}

	// ObjC reconstruction runs last; it reads only the ObjC sections
	// recorded during the walk, not the symbol table.
	if err := reconstructObjC(m); err != nil {
		return nil, err
	}

	return m, nil
}

func decodeIncrementalCommand(data []byte, order binary.ByteOrder, raw []byte) (*Sidecar, error) {
	if len(raw) < sidecarCommandSize {
		return nil, &MalformedImage{Kind: "sidecar", Reason: "LC_INCREMENTAL command too small"}
	}
	get := func(i int) uint32 { return order.Uint32(raw[i*4 : i*4+4]) }
	cmd := sidecarCommand{
		Cmd:            macho.LoadCmd(get(0)),
		Cmdsize:        get(1),
		FileCount:      get(2),
		InputsOff:      get(3),
		InputsSize:     get(4),
		FixupsOff:      get(5),
		FixupsSize:     get(6),
		SymtabOff:      get(7),
		SymtabSize:     get(8),
		PatchSpaceOff:  get(9),
		PatchSpaceSize: get(10),
		StrtabOff:      get(11),
		StrtabSize:     get(12),
	}
	return decodeSidecar(data, order, cmd)
}

func dispatchSegmentSections(m *Model, segName string, sects []decodedSection) {
	switch segName {
	case "__TEXT":
		for _, s := range sects {
			if s.name == "__objc_classname" {
				sCopy := s
				m.objcInit().ClassNameSection = &sCopy
			}
		}
	case "__DATA_CONST":
		for _, s := range sects {
			switch s.name {
			case "__got":
				// no-op, keeps parity with original's got_section_ note
			case "__objc_classlist":
				sCopy := s
				m.objcInit().ClassListSection = &sCopy
			}
		}
	case "__DATA":
		for _, s := range sects {
			switch s.name {
			case "__objc_classrefs":
				sCopy := s
				m.objcInit().ClassRefsSection = &sCopy
			case "__objc_data":
				sCopy := s
				m.objcInit().DataSection = &sCopy
			}
		}
	}
}

// cstring returns the NUL-terminated string stored in a fixed-size byte
// array field, e.g. a segment or section name.
func cstring(b []byte) string {
	if i := bytesIndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// decodedSection is the subset of a Section64 the incremental core needs
// once cstring/byte-order decoding has already happened.
type decodedSection struct {
	name     string
	segname  string
	Addr     uint64
	Offset   uint32
	Size     uint64
	Flags    macho.SectionFlag
	Reserve1 uint32
	Reserve2 uint32
}

func readSections64(raw []byte, nsect uint32, order binary.ByteOrder) ([]decodedSection, error) {
	var out []decodedSection
	r := bytes.NewReader(raw)
	for i := uint32(0); i < nsect; i++ {
		var s macho.Section64
		if err := binary.Read(r, order, &s); err != nil {
			return nil, errors.Wrap(err, "read section64")
		}
		out = append(out, decodedSection{
			name:     cstring(s.Name[:]),
			segname:  cstring(s.Seg[:]),
			Addr:     s.Addr,
			Offset:   s.Offset,
			Size:     s.Size,
			Flags:    s.Flags,
			Reserve1: s.Reserve1,
			Reserve2: s.Reserve2,
		})
	}
	return out, nil
}

func bytesIndexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
