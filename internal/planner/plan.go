package planner

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const PlanVersion = "1.0"

// Plan is the ordered scene list produced for a query
type Plan struct {
	Version   string    `yaml:"version"`
	Query     string    `yaml:"query"`
	Model     string    `yaml:"model,omitempty"`
	Scenes    []string  `yaml:"scenes"`
	CreatedAt time.Time `yaml:"created_at"`
}

// WritePlan writes a plan to a YAML file
func WritePlan(plan *Plan, path string) error {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadPlan reads a plan from a YAML file. A plan without scenes is rejected.
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, err
	}

	scenes, err := cleanScenes(plan.Scenes, ParseOptions{})
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	plan.Scenes = scenes

	return &plan, nil
}
