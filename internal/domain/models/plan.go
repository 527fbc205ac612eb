package models

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Plan is an ordered release of deploy and upgrade steps
type Plan struct {
	Steps []PlanStep `yaml:"steps"`
}

// PlanStep is either a deploy (Deploy set) or an upgrade (Upgrade set)
type PlanStep struct {
	// Deploy is the contract to deploy behind a new proxy
	Deploy string `yaml:"deploy,omitempty"`
	// Upgrade is the proxy to upgrade, by name or address
	Upgrade string `yaml:"upgrade,omitempty"`
	// To is the new implementation of an upgrade
	To     string   `yaml:"to,omitempty"`
	Name   string   `yaml:"name,omitempty"`
	Method string   `yaml:"method,omitempty"`
	Args   []string `yaml:"args,omitempty"`
}

// IsDeploy reports whether the step deploys a new proxy
func (s PlanStep) IsDeploy() bool { return s.Deploy != "" }

// Describe returns a one line summary of the step
func (s PlanStep) Describe() string {
	if s.IsDeploy() {
		name := s.Name
		if name == "" {
			name = s.Deploy
		}
		return fmt.Sprintf("deploy %s as %s", s.Deploy, name)
	}
	return fmt.Sprintf("upgrade %s to %s", s.Upgrade, s.To)
}

// ParsePlan decodes and checks a YAML release plan
func ParsePlan(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var plan Plan
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if len(plan.Steps) == 0 {
		return nil, errors.New("plan has no steps")
	}

	for i, step := range plan.Steps {
		switch {
		case step.Deploy != "" && step.Upgrade != "":
			return nil, fmt.Errorf("step %d: deploy and upgrade are exclusive", i+1)
		case step.Deploy == "" && step.Upgrade == "":
			return nil, fmt.Errorf("step %d: needs deploy or upgrade", i+1)
		case step.Upgrade != "" && step.To == "":
			return nil, fmt.Errorf("step %d: upgrade of %s needs a target contract (to)", i+1, step.Upgrade)
		case step.Deploy != "" && step.To != "":
			return nil, fmt.Errorf("step %d: to is only valid for upgrades", i+1)
		}
	}
	return &plan, nil
}
