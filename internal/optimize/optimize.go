// Package optimize proposes and applies schedule-compression strategies
// against a computed critical path: reducing lag on critical links and
// shortening critical-task durations, each carrying an estimated cost
// so a caller can rank proposals before committing to one.
package optimize

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/jra3/scheduled/internal/apperr"
	"github.com/jra3/scheduled/internal/cpm"
	"github.com/jra3/scheduled/internal/duration"
	"github.com/jra3/scheduled/internal/lag"
	"github.com/jra3/scheduled/internal/model"
	"github.com/jra3/scheduled/internal/validate"
)

// Params tunes the two built-in strategies; the zero value is invalid,
// use DefaultParams or a config-loaded equivalent.
type Params struct {
	LagReductionPercent   float64
	CompressionPercent    float64
	CompressionMinHours   float64
	CompressionCostPerDay float64
}

func DefaultParams() Params {
	return Params{
		LagReductionPercent:   0.40,
		CompressionPercent:    0.20,
		CompressionMinHours:   1,
		CompressionCostPerDay: 500,
	}
}

// Kind distinguishes the two strategies so a caller can filter or label
// proposals without string-matching the description.
type Kind string

const (
	KindLagReduction Kind = "lag_reduction"
	KindCompression  Kind = "compression"
)

// Proposal is one candidate change: which task or link it touches, what
// it would become, how many days it saves off the project duration, and
// what it costs. ReducedLag/ReducedFormat are set only for KindLagReduction;
// NewDuration is set only for KindCompression.
type Proposal struct {
	Kind               Kind
	TaskOutlineNumber  string
	PredecessorOutline string
	CurrentLag         int
	CurrentLagFormat   int
	ReducedLag         int
	ReducedLagFormat   int
	CurrentDuration    string
	NewDuration        string
	DaysSaved          float64
	Cost               float64
	Description        string
}

// Propose runs both strategies concurrently over the current CPM result
// and returns every candidate ranked by days saved per dollar spent,
// most cost-effective first.
func Propose(ctx context.Context, tasks []model.Task, preds []model.Predecessor, params Params) ([]Proposal, error) {
	result, err := cpm.Compute(tasks, preds)
	if err != nil {
		return nil, err
	}

	var lagProposals, compressionProposals []Proposal
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		lagProposals = proposeLagReduction(result, preds, params)
		return nil
	})
	g.Go(func() error {
		compressionProposals = proposeCompression(tasks, result, params)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err, "generate optimization proposals")
	}

	all := append(lagProposals, compressionProposals...)
	sort.Slice(all, func(i, j int) bool {
		return costEffectiveness(all[i]) > costEffectiveness(all[j])
	})
	return all, nil
}

func costEffectiveness(p Proposal) float64 {
	if p.Cost == 0 {
		return p.DaysSaved * math.MaxFloat64 / 1e12 // free moves always sort first without dividing by zero
	}
	return p.DaysSaved / p.Cost
}

// proposeLagReduction finds critical predecessor links with positive lag
// and proposes cutting that lag by params.LagReductionPercent. Lag
// reduction is free: it costs nothing to simply schedule work closer
// together, so Cost is always zero.
func proposeLagReduction(result cpm.Result, preds []model.Predecessor, params Params) []Proposal {
	critical := make(map[string]bool, len(result.CriticalPath))
	for _, outline := range result.CriticalPath {
		critical[outline] = true
	}
	taskOutline := make(map[string]string, len(result.Tasks))
	for _, t := range result.Tasks {
		taskOutline[t.TaskID] = t.OutlineNumber
	}

	var out []Proposal
	for _, p := range preds {
		successorOutline := taskOutline[p.TaskID]
		if !critical[successorOutline] || !critical[p.PredecessorOutline] {
			continue
		}
		if p.Lag <= 0 {
			continue
		}
		lagDays := lag.ToDays(p.Lag, p.LagFormat)
		reducedDays := lagDays * (1 - params.LagReductionPercent)
		reducedLag := lag.FromDays(reducedDays, p.LagFormat)
		saved := lagDays - lag.ToDays(reducedLag, p.LagFormat)
		if saved <= 0 {
			continue
		}
		out = append(out, Proposal{
			Kind:               KindLagReduction,
			TaskOutlineNumber:  successorOutline,
			PredecessorOutline: p.PredecessorOutline,
			CurrentLag:         p.Lag,
			CurrentLagFormat:   p.LagFormat,
			ReducedLag:         reducedLag,
			ReducedLagFormat:   p.LagFormat,
			DaysSaved:          saved,
			Cost:               0,
			Description: fmt.Sprintf("reduce lag on %s->%s link from %d to %d (saves %s)",
				p.PredecessorOutline, successorOutline, p.Lag, reducedLag, humanize.FtoaWithDigits(saved, 2)+"d"),
		})
	}
	return out
}

// proposeCompression shortens the duration of every critical task by
// params.CompressionPercent, floored at params.CompressionMinHours, at a
// cost of CompressionCostPerDay per day saved, rounded up since partial
// days of crashed schedule still require a full day's added resourcing.
func proposeCompression(tasks []model.Task, result cpm.Result, params Params) []Proposal {
	critical := make(map[string]bool, len(result.CriticalPath))
	for _, outline := range result.CriticalPath {
		critical[outline] = true
	}

	var out []Proposal
	for _, t := range tasks {
		if !critical[t.OutlineNumber] || t.Milestone || t.Summary {
			continue
		}
		hours, err := duration.Parse(t.Duration)
		if err != nil {
			continue
		}
		newHours := hours * (1 - params.CompressionPercent)
		if newHours < params.CompressionMinHours {
			newHours = params.CompressionMinHours
		}
		if newHours >= hours {
			continue
		}
		savedDays := duration.ToDays(hours - newHours)
		cost := math.Ceil(savedDays) * params.CompressionCostPerDay
		out = append(out, Proposal{
			Kind:              KindCompression,
			TaskOutlineNumber: t.OutlineNumber,
			CurrentDuration:   t.Duration,
			NewDuration:       duration.Format(newHours),
			DaysSaved:         savedDays,
			Cost:              cost,
			Description: fmt.Sprintf("compress task %s from %s to %s (saves %s, costs $%s)",
				t.OutlineNumber, t.Duration, duration.Format(newHours),
				humanize.FtoaWithDigits(savedDays, 2)+"d", humanize.Commaf(cost)),
		})
	}
	return out
}

// Apply applies a single proposal's change to copies of tasks/preds and
// re-validates the result before the caller persists it. Its inputs are
// never mutated; if validation fails it returns the error instead.
func Apply(proposal Proposal, tasks []model.Task, preds []model.Predecessor) ([]model.Task, []model.Predecessor, error) {
	newTasks := make([]model.Task, len(tasks))
	copy(newTasks, tasks)
	newPreds := make([]model.Predecessor, len(preds))
	copy(newPreds, preds)

	switch proposal.Kind {
	case KindLagReduction:
		applied := false
		for i := range newPreds {
			if newPreds[i].PredecessorOutline == proposal.PredecessorOutline &&
				taskOutlineMatches(newTasks, newPreds[i].TaskID, proposal.TaskOutlineNumber) {
				newPreds[i].Lag = proposal.ReducedLag
				newPreds[i].LagFormat = proposal.ReducedLagFormat
				applied = true
			}
		}
		if !applied {
			return nil, nil, apperr.NotFound("predecessor link %s->%s not found",
				proposal.PredecessorOutline, proposal.TaskOutlineNumber)
		}
	case KindCompression:
		applied := false
		for i := range newTasks {
			if newTasks[i].OutlineNumber == proposal.TaskOutlineNumber {
				newTasks[i].Duration = proposal.NewDuration
				applied = true
			}
		}
		if !applied {
			return nil, nil, apperr.NotFound("task %s not found", proposal.TaskOutlineNumber)
		}
	default:
		return nil, nil, apperr.Internal(nil, "unknown proposal kind %q", proposal.Kind)
	}

	result := validate.Project(newTasks, newPreds)
	if !result.Valid() {
		return nil, nil, apperr.Validation(result.Violations)
	}
	return newTasks, newPreds, nil
}

func taskOutlineMatches(tasks []model.Task, taskID, outline string) bool {
	for _, t := range tasks {
		if t.ID == taskID {
			return t.OutlineNumber == outline
		}
	}
	return false
}
