package director

import (
	"os"

	"gopkg.in/yaml.v3"
)

// EncodePlan renders a plan as YAML
func EncodePlan(plan *Plan) ([]byte, error) {
	return yaml.Marshal(plan)
}

// WritePlan writes a plan to a YAML file
func WritePlan(plan *Plan, path string) error {
	data, err := EncodePlan(plan)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadPlan reads a plan from a YAML file
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, err
	}

	return &plan, nil
}
