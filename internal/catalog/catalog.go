// Package catalog loads the static journey catalog: which helper owns each
// step, the tasks it carries, and the seed prompts used to open a journey.
// The catalog is loaded once at startup and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/questline-app/questline/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Task is a single catalog task within a step.
type Task struct {
	ID       string `yaml:"id"`
	Required bool   `yaml:"required"`
	XP       int    `yaml:"xp"`
}

// Step binds a helper to a task set and seed prompt ("orb" in the UI).
type Step struct {
	ID           string        `yaml:"id"`
	Level        int           `yaml:"level"`
	Helper       domain.Helper `yaml:"helper"`
	Seed         string        `yaml:"seed"`
	CallToAction string        `yaml:"call_to_action"`
	Tasks        []Task        `yaml:"tasks"`
}

// HelperInfo is the static per-helper metadata.
type HelperInfo struct {
	DisplayName string          `yaml:"display_name"`
	Relevance   []domain.Helper `yaml:"relevance"`
	Question    string          `yaml:"question"`
}

type catalogFile struct {
	Helpers map[domain.Helper]HelperInfo `yaml:"helpers"`
	Steps   []Step                       `yaml:"steps"`
}

// Catalog is the immutable, indexed journey catalog.
type Catalog struct {
	helpers   map[domain.Helper]HelperInfo
	steps     []Step
	stepIndex map[string]int // step id -> index into steps
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		helpers:   f.Helpers,
		steps:     f.Steps,
		stepIndex: make(map[string]int, len(f.Steps)),
	}

	for _, h := range domain.AllHelpers {
		if _, ok := c.helpers[h]; !ok {
			return nil, fmt.Errorf("catalog missing helper %q", h)
		}
	}
	for i := range c.steps {
		s := &c.steps[i]
		if _, err := domain.ParseHelper(string(s.Helper)); err != nil {
			return nil, fmt.Errorf("step %q: %w", s.ID, err)
		}
		if len(s.Tasks) == 0 {
			return nil, fmt.Errorf("step %q has no tasks", s.ID)
		}
		if _, dup := c.stepIndex[s.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q", s.ID)
		}
		for j := range s.Tasks {
			if s.Tasks[j].XP == 0 {
				s.Tasks[j].XP = domain.DefaultTaskXP
			}
		}
		c.stepIndex[s.ID] = i
	}

	return c, nil
}

// Step resolves a step by identifier.
func (c *Catalog) Step(id string) (*Step, bool) {
	i, ok := c.stepIndex[id]
	if !ok {
		return nil, false
	}
	return &c.steps[i], true
}

// Steps enumerates all steps across all levels in catalog order.
func (c *Catalog) Steps() []Step {
	return c.steps
}

// StepForHelperLevel returns the step a helper owns at a level, if any.
func (c *Catalog) StepForHelperLevel(helper domain.Helper, level int) (*Step, bool) {
	for i := range c.steps {
		if c.steps[i].Helper == helper && c.steps[i].Level == level {
			return &c.steps[i], true
		}
	}
	return nil, false
}

// Helper returns static metadata for a helper.
func (c *Catalog) Helper(h domain.Helper) HelperInfo {
	return c.helpers[h]
}

// Relevance lists the prior helpers whose insights h is allowed to read.
func (c *Catalog) Relevance(h domain.Helper) []domain.Helper {
	return c.helpers[h].Relevance
}

// TaskTitle resolves a kebab-case task id into a human-readable title.
func TaskTitle(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
