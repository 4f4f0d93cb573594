// Package validate enforces hierarchical integrity, temporal format
// correctness, and acyclicity of the precedence graph. Every check runs
// to completion and the full set of violations is returned rather than
// failing fast on the first one encountered.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jra3/scheduled/internal/apperr"
	"github.com/jra3/scheduled/internal/duration"
	"github.com/jra3/scheduled/internal/model"
)

var outlinePattern = regexp.MustCompile(`^[1-9][0-9]*(\.[1-9][0-9]*)*$`)

// Result is the full set of violations for a project. The project is
// valid iff Violations is empty.
type Result struct {
	Violations []apperr.Violation
}

func (r Result) Valid() bool { return len(r.Violations) == 0 }

// Project runs every task-level and project-level check against a
// project's tasks and predecessor links.
func Project(tasks []model.Task, preds []model.Predecessor) Result {
	var violations []apperr.Violation

	for _, t := range tasks {
		violations = append(violations, taskLevel(t)...)
	}

	violations = append(violations, outlineUniqueness(tasks)...)
	violations = append(violations, predecessorResolvability(tasks, preds)...)
	violations = append(violations, acyclicity(tasks, preds)...)

	return Result{Violations: violations}
}

func taskLevel(t model.Task) []apperr.Violation {
	var out []apperr.Violation

	if t.Name == "" {
		out = append(out, apperr.Violation{
			OutlineNumber: t.OutlineNumber, Field: "name",
			Message: "task name is required", Kind: "required_field",
		})
	}

	if !outlinePattern.MatchString(t.OutlineNumber) {
		out = append(out, apperr.Violation{
			OutlineNumber: t.OutlineNumber, Field: "outline_number",
			Message: fmt.Sprintf("outline number %q is malformed", t.OutlineNumber),
			Kind:    "malformed_outline",
		})
	} else {
		segments := strings.Count(t.OutlineNumber, ".") + 1
		if segments != t.OutlineLevel {
			out = append(out, apperr.Violation{
				OutlineNumber: t.OutlineNumber, Field: "outline_level",
				Message: fmt.Sprintf("outline level %d does not match outline number %q", t.OutlineLevel, t.OutlineNumber),
				Kind:    "outline_level_mismatch",
			})
		}
	}

	if _, err := duration.Parse(t.Duration); err != nil {
		out = append(out, apperr.Violation{
			OutlineNumber: t.OutlineNumber, Field: "duration",
			Message: fmt.Sprintf("duration %q is not a valid ISO-8601 duration", t.Duration),
			Kind:    "invalid_duration",
		})
	}

	if t.Milestone && t.Duration != "PT0H0M0S" {
		out = append(out, apperr.Violation{
			OutlineNumber: t.OutlineNumber, Field: "duration",
			Message: "milestone tasks must have zero duration",
			Kind:    "milestone_nonzero_duration",
		})
	}

	if t.Milestone && t.Summary {
		out = append(out, apperr.Violation{
			OutlineNumber: t.OutlineNumber,
			Message:       "task cannot be both a milestone and a summary",
			Kind:          "milestone_summary_conflict",
		})
	}

	if t.PercentComplete < 0 || t.PercentComplete > 100 {
		out = append(out, apperr.Violation{
			OutlineNumber: t.OutlineNumber, Field: "percent_complete",
			Message: fmt.Sprintf("percent complete %d out of range [0,100]", t.PercentComplete),
			Kind:    "percent_complete_out_of_range",
		})
	}

	return out
}

func outlineUniqueness(tasks []model.Task) []apperr.Violation {
	seen := make(map[string]int)
	for _, t := range tasks {
		seen[t.OutlineNumber]++
	}
	var out []apperr.Violation
	for outline, count := range seen {
		if count > 1 {
			out = append(out, apperr.Violation{
				OutlineNumber: outline,
				Message:       fmt.Sprintf("outline number %q is used by %d tasks", outline, count),
				Kind:          "duplicate_outline",
			})
		}
	}
	return out
}

func predecessorResolvability(tasks []model.Task, preds []model.Predecessor) []apperr.Violation {
	outlines := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		outlines[t.OutlineNumber] = true
	}
	var out []apperr.Violation
	for _, p := range preds {
		if !outlines[p.PredecessorOutline] {
			out = append(out, apperr.Violation{
				OutlineNumber: p.PredecessorOutline,
				Message:       fmt.Sprintf("predecessor outline %q does not exist in this project", p.PredecessorOutline),
				Kind:          "unresolved_predecessor",
			})
		}
	}
	return out
}

// acyclicity runs a depth-first traversal over the predecessor → successor
// graph and reports any cycle found as a single violation naming every
// outline number on the cycle, rather than a generic failure.
func acyclicity(tasks []model.Task, preds []model.Predecessor) []apperr.Violation {
	outlineByTaskID := make(map[string]string, len(tasks))
	for _, t := range tasks {
		outlineByTaskID[t.ID] = t.OutlineNumber
	}

	// edges: predecessor outline -> successor outline
	edges := make(map[string][]string)
	for _, p := range preds {
		successor := outlineByTaskID[p.TaskID]
		if successor == "" {
			continue // unresolved predecessor already reported separately
		}
		edges[p.PredecessorOutline] = append(edges[p.PredecessorOutline], successor)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var path []string

	var cycle []string
	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		path = append(path, node)
		for _, next := range edges[node] {
			switch color[next] {
			case white:
				if visit(next) {
					return true
				}
			case gray:
				// Found a back-edge into next; extract the cycle from path.
				start := indexOf(path, next)
				cycle = append([]string{}, path[start:]...)
				return true
			}
		}
		path = path[:len(path)-1]
		color[node] = black
		return false
	}

	for _, t := range tasks {
		if color[t.OutlineNumber] == white {
			if visit(t.OutlineNumber) {
				return []apperr.Violation{{
					Message: fmt.Sprintf("cycle detected among outline numbers: %s", strings.Join(cycle, " -> ")),
					Kind:    "cycle",
				}}
			}
		}
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}
