package renamer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var ErrInvalidPlan = errors.New("invalid plan file")

// MarshalPlan encodes a plan as YAML.
func MarshalPlan(plan *Plan) ([]byte, error) {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	return data, nil
}

// ParsePlan decodes a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if plan.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidPlan)
	}
	for i, op := range plan.Operations {
		if op == nil || op.Source.Path == "" {
			return nil, fmt.Errorf("%w: operation %d has no source", ErrInvalidPlan, i)
		}
		if op.Status == StatusPlanned && op.Target == "" {
			return nil, fmt.Errorf("%w: operation %d is planned without a target", ErrInvalidPlan, i)
		}
	}
	return &plan, nil
}

// SavePlan writes a plan to path, replacing any previous file atomically.
func SavePlan(path string, plan *Plan) error {
	data, err := MarshalPlan(plan)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".plan-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create plan file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save plan file: %w", err)
	}
	return nil
}

// LoadPlan reads a plan saved with SavePlan.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return ParsePlan(data)
}
