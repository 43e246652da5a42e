package incremental

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func modelWithInputs(inputs map[string]uint64) *Model {
	sc := &Sidecar{InputsMap: make(map[string]*InputEntry), PatchSpaces: make(map[string]PatchSpace)}
	for path, mtime := range inputs {
		sc.InputsMap[path] = &InputEntry{Path: path, ModTime: mtime}
	}
	return &Model{Sidecar: sc}
}

func TestArbitrateUnchangedChangedNew(t *testing.T) {
	m := modelWithInputs(map[string]uint64{
		"a.o": 100,
		"b.o": 100,
	})
	report := Arbitrate(m, []InputSpec{
		{Path: "a.o", MTime: 100},
		{Path: "b.o", MTime: 200},
		{Path: "c.o", MTime: 50},
	})
	assert.ElementsMatch(t, []string{"a.o"}, report.Unchanged)
	assert.ElementsMatch(t, []string{"b.o"}, report.Changed)
	assert.ElementsMatch(t, []string{"c.o"}, report.New)
}

func TestArbitrateNoSidecarTreatsEverythingAsNew(t *testing.T) {
	m := &Model{}
	report := Arbitrate(m, []InputSpec{{Path: "a.o", MTime: 1}})
	assert.Equal(t, []string{"a.o"}, report.New)
	assert.Empty(t, report.Unchanged)
}

func TestArbitrateReportsExhaustedPatchSpace(t *testing.T) {
	m := modelWithInputs(map[string]uint64{"a.o": 100})
	m.Sidecar.PatchSpaces["__rebase"] = PatchSpace{SectName: "__rebase", PatchSpace: 0}
	report := Arbitrate(m, []InputSpec{{Path: "a.o", MTime: 100}})
	assert.Contains(t, report.Impossible, "__rebase")
}
