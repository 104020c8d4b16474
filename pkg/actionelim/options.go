package actionelim

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Reduction selects what the compiled task minimises.
type Reduction string

const (
	// MR keeps operator costs: plans of the compiled task are cheapest
	// reductions.
	MR Reduction = "MR"
	// MLR gives every plan step unit cost: plans of the compiled task are
	// shortest reductions.
	MLR Reduction = "MLR"
)

var ErrInvalidOptions = errors.New("invalid options")

// Options configures one compilation. It is passed by value and never
// modified by the pipeline.
type Options struct {
	// Ordered keeps the plan order, so reductions are subsequences.
	Ordered bool `yaml:"subsequence"`
	// Enhanced runs the necessity analysis and drops skip operators of
	// necessary steps. It has no effect without Ordered.
	Enhanced bool `yaml:"enhanced"`
	// FixPoint tightens achiever validity and iterates the analysis.
	FixPoint bool `yaml:"fix-point"`
	// Unnecessary removes steps the analysis proves droppable.
	Unnecessary bool `yaml:"unnecessary"`
	// Macros merges runs of necessary steps.
	Macros bool `yaml:"macros"`

	Reduction      Reduction `yaml:"reduction"`
	PositionInGoal bool      `yaml:"position-in-goal"`

	// RejectAxioms fails on tasks with axioms instead of dropping them.
	RejectAxioms bool `yaml:"reject-axioms"`
}

func DefaultOptions() Options {
	return Options{Reduction: MR}
}

// LoadOptions reads options from a YAML file. Keys missing from the file
// keep their default values.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.UnmarshalWithOptions(data, &opts, yaml.Strict()); err != nil {
		return opts, fmt.Errorf("%w: %s: %v", ErrInvalidOptions, path, err)
	}
	return opts, opts.Validate()
}

// Validate checks that the options select a supported combination.
func (o Options) Validate() error {
	if o.Reduction != MR && o.Reduction != MLR {
		return fmt.Errorf("%w: reduction must be %s or %s, got %q", ErrInvalidOptions, MR, MLR, o.Reduction)
	}
	needsAnalysis := map[string]bool{
		"fix-point":   o.FixPoint,
		"unnecessary": o.Unnecessary,
		"macros":      o.Macros,
	}
	for _, name := range []string{"fix-point", "unnecessary", "macros"} {
		if needsAnalysis[name] && !(o.Ordered && o.Enhanced) {
			return fmt.Errorf("%w: %s requires subsequence and enhanced", ErrInvalidOptions, name)
		}
	}
	if o.PositionInGoal && !o.Ordered {
		return fmt.Errorf("%w: position-in-goal requires subsequence", ErrInvalidOptions)
	}
	return nil
}
