/*
Copyright © 2018-2023 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"encoding/hex"
	"fmt"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/blacktop/ld-incr/pkg/incremental"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var patchYes bool

func init() {
	patchCmd.Flags().BoolVarP(&patchYes, "yes", "y", false, "skip the overwrite confirmation")
}

// patchCmd exercises the write side of the facade directly: splice hex
// bytes into a section's patch window in place. A previously-patched
// window (PatchOffset > 0) means this run would build on top of, and
// partially overwrite the layout of, an earlier incremental patch, so
// the tool confirms before proceeding.
var patchCmd = &cobra.Command{
	Use:   "patch <path> <section> <hex-bytes>",
	Short: "Splice raw bytes into a section's patch-space window in place",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		color.NoColor = !Color
		path, section, hexBytes := args[0], args[1], args[2]

		data, err := hex.DecodeString(hexBytes)
		if err != nil {
			return fmt.Errorf("invalid hex payload: %w", err)
		}

		r, err := incremental.Open(path)
		if r != nil {
			defer r.Close()
		}
		if err != nil {
			return err
		}
		if r.Model.Sidecar == nil {
			return &incremental.SidecarMissing{}
		}

		ps, ok := r.Model.Sidecar.PatchSpaces[section]
		if !ok {
			return &incremental.IncrementalImpossible{Section: section}
		}

		if !patchYes && ps.PatchOffset > 0 {
			cont := false
			prompt := &survey.Confirm{
				Message: fmt.Sprintf("%s already carries %d bytes of prior incremental output; overwrite the remaining patch window in place?", section, ps.PatchOffset),
			}
			if err := survey.AskOne(prompt, &cont); err != nil {
				return err
			}
			if !cont {
				fmt.Println(color.YellowString("aborted"))
				return nil
			}
		}

		p := incremental.NewPatcher(r.Model, r.File())
		p.MarkDecided()
		off, err := p.WriteAtom(section, data)
		if err != nil {
			return err
		}
		if err := p.Close(); err != nil {
			return err
		}

		fmt.Printf("%s: wrote %d bytes to %s at file offset 0x%x\n", path, len(data), section, off)
		return nil
	},
}
