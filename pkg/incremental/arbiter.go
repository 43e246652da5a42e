package incremental

import "github.com/apex/log"

// InputSpec is one input file the driver is considering for this link,
// as supplied on the command line: a path plus the mtime observed by
// the caller (normally a fresh os.Stat, injectable here for testing).
type InputSpec struct {
	Path  string
	MTime uint64
}

// PatchReport is the arbiter's verdict: which of the driver's inputs
// can be skipped, which must be reprocessed, and whether the sidecar's
// patch space can even accommodate an incremental link at all (§3, §4.8).
type PatchReport struct {
	Unchanged  []string
	Changed    []string
	New        []string
	Impossible []string

	// SuppressEntryPoint mirrors the image's existing LC_MAIN: the
	// driver should not synthesize a new entry point command.
	SuppressEntryPoint bool
}

// Arbitrate classifies each of the driver's declared inputs against the
// sidecar's recorded input entries, per §4.8. An input absent from the
// sidecar is "new". An input present but with a newer mtime is
// "changed". Everything else is "unchanged" and can be dropped from the
// driver's to-parse list.
func Arbitrate(m *Model, inputs []InputSpec) PatchReport {
	report := PatchReport{SuppressEntryPoint: m.hasEntryPoint}

	if m.Sidecar == nil {
		for _, in := range inputs {
			report.New = append(report.New, in.Path)
		}
		return report
	}

	for _, in := range inputs {
		recorded, ok := m.Sidecar.InputsMap[in.Path]
		switch {
		case !ok:
			log.Infof("incremental created new file: %s", in.Path)
			report.New = append(report.New, in.Path)
		case in.MTime > recorded.ModTime:
			log.Infof("incremental changed file: %s", in.Path)
			report.Changed = append(report.Changed, in.Path)
		default:
			report.Unchanged = append(report.Unchanged, in.Path)
		}
	}

	report.Impossible = exhaustedPatchSpaces(m)
	for _, name := range report.Impossible {
		log.Warnf("incremental link impossible: %s patch space exhausted", name)
	}
	return report
}

// exhaustedPatchSpaces reports every section whose reserved patch window
// has no room left, in which case the driver must fall back to a full
// link rather than attempt to splice new content in (§4.8, §4.11).
func exhaustedPatchSpaces(m *Model) []string {
	var out []string
	if m.Sidecar != nil {
		for name, ps := range m.Sidecar.PatchSpaces {
			if ps.PatchSpace == 0 {
				out = append(out, name)
			}
		}
	}
	if m.Symtab != nil && m.Symtab.StringPoolPatch.PatchSpace == 0 {
		out = append(out, "__string_pool")
	}
	return out
}
