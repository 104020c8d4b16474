// Package roundtrip checks that a task file survives parsing and writing.
package roundtrip

import (
	"bytes"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// Report is the outcome of a round trip. Diff is empty when Equal is set;
// otherwise it lists removed lines with "-" and added lines with "+".
type Report struct {
	Task  *sas.Task
	Equal bool
	Diff  string
}

// Check parses text, writes the task back and compares both renderings.
// Trailing whitespace and blank lines are not significant.
func Check(text string) (*Report, error) {
	task, err := sas.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := sas.Write(&buf, task); err != nil {
		return nil, err
	}
	from, to := normalize(text), normalize(buf.String())
	report := &Report{Task: task, Equal: from == to}
	if !report.Equal {
		report.Diff = lineDiff(from, to)
	}
	return report, nil
}

func normalize(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func lineDiff(from, to string) string {
	diffCfg := diffpatch.New()
	a, b, lines := diffCfg.DiffLinesToChars(from, to)
	diffs := diffCfg.DiffCharsToLines(diffCfg.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, diff := range diffs {
		prefix := ""
		switch diff.Type {
		case diffpatch.DiffInsert:
			prefix = "+"
		case diffpatch.DiffDelete:
			prefix = "-"
		case diffpatch.DiffEqual:
			continue
		}
		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line != "" {
				out.WriteString(prefix + line)
			}
		}
	}
	return out.String()
}
