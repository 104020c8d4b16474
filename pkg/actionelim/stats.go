package actionelim

import (
	"io"

	"github.com/goccy/go-yaml"
)

// Stats summarises one compilation.
type Stats struct {
	PlanLength      int `yaml:"plan-length"`
	UniqueOperators int `yaml:"unique-operators"`
	PlanCost        int `yaml:"plan-cost"`

	Facts         int `yaml:"facts"`
	RelevantFacts int `yaml:"relevant-facts"`

	Necessary     int `yaml:"necessary"`
	Unnecessary   int `yaml:"unnecessary"`
	Macros        int `yaml:"macros"`
	DroppedAxioms int `yaml:"dropped-axioms"`

	Variables int `yaml:"variables"`
	Operators int `yaml:"operators"`
}

// WriteReport writes the stats as a YAML document.
func (s Stats) WriteReport(w io.Writer) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
