package util

import (
	"fmt"
	"os"

	"github.com/ipc2023-classical/planner1/pkg/plan"
	"github.com/ipc2023-classical/planner1/pkg/sas"
)

func ReadTask(path string) (*sas.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening task file (%s): %w", path, err)
	}
	defer f.Close()

	task, err := sas.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing task file (%s): %w", path, err)
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task file (%s): %w", path, err)
	}
	return task, nil
}

func ReadPlan(path string) (*plan.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening plan file (%s): %w", path, err)
	}
	defer f.Close()

	p, err := plan.Read(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing plan file (%s): %w", path, err)
	}
	return p, nil
}

// WriteFile replaces the file at path with data. A path of "-" writes to
// standard output.
func WriteFile(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}
