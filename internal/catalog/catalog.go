// Package catalog loads and indexes the static scenario content. The
// graph is validated once at load time; after that every lookup is a
// plain map read with no failure modes beyond not-found.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/Gkfit2025/Burns/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var scenariosYAML []byte

// Catalog is the immutable set of scenarios, indexed by id. Step lookups
// are per-scenario since step ids are only unique within one scenario.
type Catalog struct {
	scenarios []models.Scenario
	byID      map[string]*models.Scenario
	steps     map[string]map[string]*models.Step // scenario id -> step id -> step
}

// Load parses the embedded content. A malformed graph (dangling
// next_step, unknown initial_step, out-of-range complexity) is a fatal
// configuration error.
func Load() (*Catalog, error) {
	return Parse(scenariosYAML)
}

// Parse builds a catalog from raw YAML. Split out from Load so tests can
// feed hand-built content.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Scenarios []models.Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scenario content: %w", err)
	}
	if len(doc.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario content is empty")
	}

	c := &Catalog{
		scenarios: doc.Scenarios,
		byID:      make(map[string]*models.Scenario, len(doc.Scenarios)),
		steps:     make(map[string]map[string]*models.Step, len(doc.Scenarios)),
	}
	for i := range c.scenarios {
		sc := &c.scenarios[i]
		if sc.ID == "" {
			return nil, fmt.Errorf("scenario %d has no id", i)
		}
		if _, dup := c.byID[sc.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario id %q", sc.ID)
		}
		if sc.Complexity < 1 || sc.Complexity > 10 {
			return nil, fmt.Errorf("scenario %q: complexity %d out of range 1-10", sc.ID, sc.Complexity)
		}
		steps := make(map[string]*models.Step, len(sc.Steps))
		for j := range sc.Steps {
			st := &sc.Steps[j]
			if st.ID == "" {
				return nil, fmt.Errorf("scenario %q: step %d has no id", sc.ID, j)
			}
			if _, dup := steps[st.ID]; dup {
				return nil, fmt.Errorf("scenario %q: duplicate step id %q", sc.ID, st.ID)
			}
			steps[st.ID] = st
		}
		c.byID[sc.ID] = sc
		c.steps[sc.ID] = steps

		if err := validate(sc, steps); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validate(sc *models.Scenario, steps map[string]*models.Step) error {
	if _, ok := steps[sc.InitialStep]; !ok {
		return fmt.Errorf("scenario %q: initial step %q does not exist", sc.ID, sc.InitialStep)
	}
	for _, st := range sc.Steps {
		if len(st.Decisions) == 0 {
			return fmt.Errorf("scenario %q: step %q has no decisions", sc.ID, st.ID)
		}
		seen := make(map[string]bool, len(st.Decisions))
		for _, d := range st.Decisions {
			if d.ID == "" {
				return fmt.Errorf("scenario %q: step %q has a decision with no id", sc.ID, st.ID)
			}
			if seen[d.ID] {
				return fmt.Errorf("scenario %q: step %q: duplicate decision id %q", sc.ID, st.ID, d.ID)
			}
			seen[d.ID] = true
			o := d.Outcome
			if o.IsGameOver {
				continue
			}
			if o.NextStep == "" {
				return fmt.Errorf("scenario %q: step %q decision %q: non-terminal outcome has no next step", sc.ID, st.ID, d.ID)
			}
			if _, ok := steps[o.NextStep]; !ok {
				return fmt.Errorf("scenario %q: step %q decision %q: next step %q does not exist", sc.ID, st.ID, d.ID, o.NextStep)
			}
		}
	}
	return nil
}

// List returns the scenarios in authoring order. Callers must not
// mutate the returned slice.
func (c *Catalog) List() []models.Scenario {
	return c.scenarios
}

// Get looks up a scenario by id.
func (c *Catalog) Get(id string) (*models.Scenario, bool) {
	sc, ok := c.byID[id]
	return sc, ok
}

// Step looks up a step within a scenario.
func (c *Catalog) Step(scenarioID, stepID string) (*models.Step, bool) {
	steps, ok := c.steps[scenarioID]
	if !ok {
		return nil, false
	}
	st, ok := steps[stepID]
	return st, ok
}
