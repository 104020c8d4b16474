package sas

import (
	"errors"
	"fmt"
)

var (
	ErrFormat      = errors.New("malformed SAS+ input")
	ErrValidation  = errors.New("invalid task")
	ErrLookup      = errors.New("unknown operator")
	ErrUnsupported = errors.New("unsupported feature")
)

// FormatError reports a malformed section, keyword or number in SAS+ text.
type FormatError struct {
	Section string
	Line    int
	Msg     string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d (%s): %s", ErrFormat, e.Line, e.Section, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrFormat, e.Section, e.Msg)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ValidationError reports a violated structural invariant. Context names
// the entity that failed, e.g. "operator (pick a)" or "goal".
type ValidationError struct {
	Context string
	Msg     string
}

func (e *ValidationError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Context, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// LookupError reports a plan step naming an operator that the task does
// not define, or defines more than once.
type LookupError struct {
	Name      string
	Ambiguous bool
}

func (e *LookupError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("%s: %q is defined more than once", ErrLookup, e.Name)
	}
	return fmt.Sprintf("%s: %q", ErrLookup, e.Name)
}

func (e *LookupError) Unwrap() error { return ErrLookup }

// UnsupportedFeatureError reports input the compiler refuses to handle,
// such as conditional effects in an operator replayed from a plan.
type UnsupportedFeatureError struct {
	Feature string
	Where   string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s: %s in %s", ErrUnsupported, e.Feature, e.Where)
}

func (e *UnsupportedFeatureError) Unwrap() error { return ErrUnsupported }

func invalidf(context, format string, args ...any) error {
	return &ValidationError{Context: context, Msg: fmt.Sprintf(format, args...)}
}
