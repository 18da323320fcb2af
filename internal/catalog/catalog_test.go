package catalog

import (
	"testing"

	"github.com/questline-app/questline/internal/domain"
)

func TestLoadEmbedded(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load embedded catalog: %v", err)
	}

	if len(cat.Steps()) == 0 {
		t.Fatal("Expected at least one step")
	}

	for _, h := range domain.AllHelpers {
		info := cat.Helper(h)
		if info.DisplayName == "" {
			t.Errorf("Helper %s has no display name", h)
		}
		if info.Question == "" {
			t.Errorf("Helper %s has no clarifying question", h)
		}
	}
}

func TestStepLookup(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	step, ok := cat.Step("spark-of-an-idea")
	if !ok {
		t.Fatal("Expected step spark-of-an-idea to exist")
	}
	if step.Helper != domain.HelperMuse {
		t.Errorf("Expected helper muse, got %s", step.Helper)
	}
	if step.Level != 1 {
		t.Errorf("Expected level 1, got %d", step.Level)
	}

	if _, ok := cat.Step("no-such-step"); ok {
		t.Error("Expected lookup of unknown step to fail")
	}
}

func TestStepForHelperLevel(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	step, ok := cat.StepForHelperLevel(domain.HelperArchitect, 2)
	if !ok {
		t.Fatal("Expected architect to own a step at level 2")
	}
	if step.ID != "laying-foundations" {
		t.Errorf("Expected laying-foundations, got %s", step.ID)
	}

	if _, ok := cat.StepForHelperLevel(domain.HelperMuse, 3); ok {
		t.Error("Expected muse to own no step at level 3")
	}
}

func TestDefaultXPFill(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	for _, step := range cat.Steps() {
		for _, task := range step.Tasks {
			if task.XP <= 0 {
				t.Errorf("Task %s in step %s has non-positive XP %d", task.ID, step.ID, task.XP)
			}
		}
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "missing helper",
			yaml: `
helpers:
  muse: {display_name: Muse}
steps:
  - id: s1
    level: 1
    helper: muse
    tasks: [{id: t1}]
`,
		},
		{
			name: "empty task list",
			yaml: `
helpers:
  muse: {display_name: Muse}
  architect: {display_name: Architect}
  forge: {display_name: Forge}
  herald: {display_name: Herald}
  steward: {display_name: Steward}
  sage: {display_name: Sage}
steps:
  - id: s1
    level: 1
    helper: muse
    tasks: []
`,
		},
		{
			name: "duplicate step id",
			yaml: `
helpers:
  muse: {display_name: Muse}
  architect: {display_name: Architect}
  forge: {display_name: Forge}
  herald: {display_name: Herald}
  steward: {display_name: Steward}
  sage: {display_name: Sage}
steps:
  - id: s1
    level: 1
    helper: muse
    tasks: [{id: t1}]
  - id: s1
    level: 2
    helper: architect
    tasks: [{id: t2}]
`,
		},
		{
			name: "unknown helper on step",
			yaml: `
helpers:
  muse: {display_name: Muse}
  architect: {display_name: Architect}
  forge: {display_name: Forge}
  herald: {display_name: Herald}
  steward: {display_name: Steward}
  sage: {display_name: Sage}
steps:
  - id: s1
    level: 1
    helper: wizard
    tasks: [{id: t1}]
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parse([]byte(tc.yaml)); err == nil {
				t.Error("Expected parse to fail")
			}
		})
	}
}

func TestTaskTitle(t *testing.T) {
	cases := map[string]string{
		"define-problem":    "Define Problem",
		"pick-tech-stack":   "Pick Tech Stack",
		"single":            "Single",
		"define-north-star": "Define North Star",
	}
	for id, want := range cases {
		if got := TaskTitle(id); got != want {
			t.Errorf("TaskTitle(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestTaskGoalFallback(t *testing.T) {
	if TaskGoal("define-problem") == "" {
		t.Error("Expected a goal for define-problem")
	}
	if got := TaskGoal("not-a-real-task"); got != "Complete this task to progress" {
		t.Errorf("Expected fallback goal, got %q", got)
	}
}
