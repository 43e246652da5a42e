package cmd

import (
	"fmt"
	"strings"

	"github.com/blacktop/ld-incr/internal/utils"
	"github.com/blacktop/ld-incr/pkg/incremental"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:     "check <path> <input[:mtime]>...",
	Aliases: []string{"c"},
	Short:   "Run the validity arbiter against a supplied input list and print the resulting patch report",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		color.NoColor = !Color

		specs, err := parseInputSpecs(args[1:])
		if err != nil {
			return err
		}

		core, err := incremental.OpenCore(args[0])
		if _, missing := err.(*incremental.SidecarMissing); missing {
			fmt.Println(color.YellowString("no incremental sidecar: every input treated as new"))
		} else if err != nil {
			return err
		}
		if core != nil {
			defer core.Close()
		}

		report := incremental.Arbitrate(core.Model(), specs)
		printPatchReport(report)
		return nil
	},
}

// parseInputSpecs parses "path" or "path:mtime" operands, per the CLI's
// "path[:mtime]" convention. mtime accepts either decimal or 0x-prefixed
// hex. Duplicate operands collapse to a single spec.
func parseInputSpecs(args []string) ([]incremental.InputSpec, error) {
	args = utils.Unique(args)
	specs := make([]incremental.InputSpec, 0, len(args))
	for _, a := range args {
		path := a
		var mtime uint64
		if idx := strings.LastIndex(a, ":"); idx >= 0 {
			path = a[:idx]
			v, err := utils.ConvertStrToInt(a[idx+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid mtime in %q: %w", a, err)
			}
			mtime = v
		}
		specs = append(specs, incremental.InputSpec{Path: path, MTime: mtime})
	}
	return specs, nil
}

func printPatchReport(r incremental.PatchReport) {
	printSet := func(label string, colorFn func(string, ...interface{}) string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Println(colorFn(label))
		for _, it := range items {
			fmt.Println("  " + it)
		}
	}
	printSet("unchanged:", color.GreenString, r.Unchanged)
	printSet("changed:", color.YellowString, r.Changed)
	printSet("new:", color.CyanString, r.New)
	printSet("impossible (patch space exhausted):", color.RedString, r.Impossible)

	if r.SuppressEntryPoint {
		fmt.Println(color.HiBlackString("entry point already present, suppress regeneration"))
	}
	if len(r.Impossible) > 0 {
		fmt.Println(color.RedString("verdict: incremental link impossible, fall back to full link"))
	}
}
