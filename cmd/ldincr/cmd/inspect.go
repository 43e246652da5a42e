package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/apex/log"
	gomacho "github.com/blacktop/go-macho"
	"github.com/blacktop/ld-incr/internal/utils"
	"github.com/blacktop/ld-incr/pkg/incremental"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	inspectCmd.Flags().Bool("full", false, "print segment/section boundaries and dyld-info tuples in addition to the sidecar summary")
	inspectCmd.Flags().Bool("dump", false, "hex dump each patch-space window (implies --full)")
}

var inspectCmd = &cobra.Command{
	Use:     "inspect <path>",
	Aliases: []string{"i"},
	Short:   "Report whether a Mach-O image carries an incremental sidecar, and decode it if so",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color.NoColor = !Color
		full, _ := cmd.Flags().GetBool("full")
		dump, _ := cmd.Flags().GetBool("dump")

		core, err := incremental.OpenCore(args[0])
		if _, missing := err.(*incremental.SidecarMissing); missing {
			fmt.Printf("%s: %s\n", args[0], color.YellowString("no incremental sidecar (LC_INCREMENTAL absent)"))
			return nil
		}
		if err != nil {
			return err
		}
		defer core.Close()

		fmt.Printf("%s: %s\n", args[0], color.GreenString("incremental sidecar present"))
		printStructuralSummary(args[0])
		printSidecarSummary(core)
		if full || dump {
			printBoundaries(core)
		}
		if dump {
			printPatchWindows(core)
		}
		return nil
	},
}

// printStructuralSummary prints an ordinary Mach-O structural view
// (segments, dylibs, symbol count) via the vendored go-macho reader, as
// a companion to the incremental-specific report the rest of this
// command produces. go-macho has no notion of the incremental sidecar;
// it just parses the image the same way any other consumer would.
func printStructuralSummary(path string) {
	mf, err := gomacho.Open(path)
	if err != nil {
		log.Debugf("go-macho: %v", err)
		return
	}
	defer mf.Close()

	fmt.Println("\nmach-o structure (go-macho):")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  cpu:\t%v\n", mf.CPU)
	fmt.Fprintf(w, "  type:\t%v\n", mf.Type)
	fmt.Fprintf(w, "  segments:\t%d\n", len(mf.Segments()))
	if mf.Symtab != nil {
		fmt.Fprintf(w, "  symbols:\t%d\n", len(mf.Symtab.Syms))
	}
	libs := mf.ImportedLibraries()
	fmt.Fprintf(w, "  imported libraries:\t%d\n", len(libs))
	w.Flush()
}

func printSidecarSummary(core *incremental.Core) {
	m := core.Model()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "inputs:\t%d\n", len(m.Sidecar.Inputs))
	fmt.Fprintf(w, "fixups:\t%d\n", len(m.Sidecar.Fixups))
	fmt.Fprintf(w, "global symbols:\t%d\n", len(m.Sidecar.GlobalSymbols))
	fmt.Fprintf(w, "patch-space sections:\t%d\n", len(m.Sidecar.PatchSpaces))
	fmt.Fprintf(w, "stub atoms:\t%d\n", len(m.StubAtoms))
	fmt.Fprintf(w, "dylib ordinals:\t%d\n", len(m.DylibOrdinals))
	w.Flush()

	names := make([]string, 0, len(m.Sidecar.PatchSpaces))
	for n := range m.Sidecar.PatchSpaces {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) > 0 {
		fmt.Println("\npatch space:")
		pw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, n := range names {
			ps := m.Sidecar.PatchSpaces[n]
			fmt.Fprintf(pw, "  %s\toffset %d\t%s free\n", n, ps.PatchOffset, humanize.Bytes(uint64(ps.PatchSpace)))
		}
		pw.Flush()
	}
}

func printBoundaries(core *incremental.Core) {
	m := core.Model()

	segNames := make([]string, 0, len(m.Segments))
	for n := range m.Segments {
		segNames = append(segNames, n)
	}
	sort.Strings(segNames)
	fmt.Println("\nsegments:")
	sw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, n := range segNames {
		s := m.Segments[n]
		fmt.Fprintf(sw, "  %s\t0x%x\t%s\n", n, s.Start, humanize.Bytes(s.Size))
	}
	sw.Flush()

	fmt.Printf("\nrebases: %d, binds: %d, weak binds: %d, lazy binds: %d\n",
		len(m.Rebases), len(m.Bindings), len(m.WeakBindings), len(m.LazyBindings))

	if len(m.StubAtoms) > 0 {
		fmt.Println("\nstub atoms:")
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, a := range m.StubAtoms {
			fmt.Fprintf(tw, "  0x%x\t%s\t%s\n", a.Address, a.SectionName, a.SymbolName)
		}
		tw.Flush()
	}

	log.Debugf("cpu=%s pointer-size=%d", m.Config.Cpu, m.Config.PointerSize)
}

// printPatchWindows hex dumps the unused tail of every patch-space
// section, so a reviewer can eyeball whether it's still zero-filled
// scratch or already holds a spliced-in atom.
func printPatchWindows(core *incremental.Core) {
	m := core.Model()
	if m.Sidecar == nil {
		return
	}
	names := make([]string, 0, len(m.Sidecar.PatchSpaces))
	for n := range m.Sidecar.PatchSpaces {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		data, vaddr, err := core.PatchWindowBytes(n)
		if err != nil || len(data) == 0 {
			continue
		}
		fmt.Printf("\n%s patch window (0x%x, %s):\n", n, vaddr, humanize.Bytes(uint64(len(data))))
		fmt.Print(utils.HexDump(data, vaddr))
	}
}
