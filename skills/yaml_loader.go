package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleetforge/orchestrator/validation"
)

// skillFile is the on-disk YAML shape for one skill pack file. It mirrors
// Skill field-for-field but keeps yaml tags separate from the in-memory
// type so the wire format can evolve independently.
type skillFile struct {
	ID               string      `yaml:"id"`
	Category         string      `yaml:"category"`
	Tags             []string    `yaml:"tags"`
	Priority         string      `yaml:"priority"`
	TokenBudget      int         `yaml:"token_budget"`
	Instructions     string      `yaml:"instructions"`
	Examples         []yamlExample `yaml:"examples"`
	Requires         []string    `yaml:"requires"`
	Conflicts        []string    `yaml:"conflicts"`
	ApplicableAgents []string    `yaml:"applicable_agents"`
	Conditions       yamlConditions `yaml:"conditions"`
}

type yamlExample struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type yamlConditions struct {
	Languages    []string `yaml:"languages"`
	Frameworks   []string `yaml:"frameworks"`
	ProjectTypes []string `yaml:"project_types"`
}

var validPriorities = []string{
	string(PriorityCritical), string(PriorityHigh), string(PriorityMedium), string(PriorityLow),
}

// LoadDirectory reads every *.yaml/*.yml file under dir, parses it as a
// skill definition, and registers it on reg. A missing directory is not
// an error (a deployment may simply not ship a skill pack); a malformed
// file is skipped with its error returned in the aggregate, so one bad
// file doesn't block the rest of the pack from loading — grounded on the
// workflow router's "log and continue" directory scan.
func LoadDirectory(reg *Registry, dir string) []error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []error{fmt.Errorf("skills.LoadDirectory: %w", err)}
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, name)
		if err := loadFile(reg, path); err != nil {
			errs = append(errs, fmt.Errorf("skills.LoadDirectory: %s: %w", path, err))
		}
	}
	return errs
}

func loadFile(reg *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw skillFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	skill, err := toSkill(raw)
	if err != nil {
		return err
	}
	return reg.Register(skill)
}

func toSkill(raw skillFile) (Skill, error) {
	if raw.ID == "" {
		return Skill{}, fmt.Errorf("skill is missing an id")
	}

	priority := Priority(validation.LenientEnum(raw.Priority, validPriorities, string(PriorityMedium)))

	examples := make([]Example, 0, len(raw.Examples))
	for _, e := range raw.Examples {
		examples = append(examples, Example{Title: e.Title, Body: e.Body})
	}

	return Skill{
		ID:           raw.ID,
		Category:     raw.Category,
		Tags:         raw.Tags,
		Priority:     priority,
		TokenBudget:  raw.TokenBudget,
		Instructions: raw.Instructions,
		Examples:     examples,
		Requires:     raw.Requires,
		Conflicts:    raw.Conflicts,
		ApplicableAgents: raw.ApplicableAgents,
		Conditions: Conditions{
			Languages:    raw.Conditions.Languages,
			Frameworks:   raw.Conditions.Frameworks,
			ProjectTypes: raw.Conditions.ProjectTypes,
		},
	}, nil
}
