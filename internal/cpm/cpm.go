// Package cpm computes Critical Path Method analytics over a task
// network: forward pass early dates, backward pass late dates, total
// float, and the critical flag. It assumes the project has already
// been validated as acyclic; Compute still re-detects a cycle
// defensively and reports it rather than looping forever.
package cpm

import (
	"math"
	"sort"

	"github.com/jra3/scheduled/internal/apperr"
	"github.com/jra3/scheduled/internal/duration"
	"github.com/jra3/scheduled/internal/lag"
	"github.com/jra3/scheduled/internal/model"
)

// criticalTolerance absorbs floating point drift from repeated day/hour
// conversions; a total float under this many days still counts as
// critical.
const criticalTolerance = 0.01

// TaskResult is the computed schedule position of one task, in days
// relative to the project's start.
type TaskResult struct {
	TaskID        string
	OutlineNumber string
	EarlyStart    float64
	EarlyFinish   float64
	LateStart     float64
	LateFinish    float64
	TotalFloat    float64
	Critical      bool
}

// Result is the full network analysis: per-task dates plus the set of
// critical tasks' outline numbers in outline order.
type Result struct {
	Tasks        []TaskResult
	CriticalPath []string
	ProjectDays  float64
}

type edge struct {
	predecessorID string
	linkType      model.LinkType
	lagDays       float64
}

// Compute runs the forward and backward pass over tasks linked by preds.
// Durations are read in hours-of-work (duration.Parse format) and
// converted to days; lag is converted from its native unit via
// internal/lag before being applied to the formulas.
func Compute(tasks []model.Task, preds []model.Predecessor) (Result, error) {
	durationDays := make(map[string]float64, len(tasks))
	outlineOf := make(map[string]string, len(tasks))
	outlineToID := make(map[string]string, len(tasks))
	order := make([]string, 0, len(tasks))

	for _, t := range tasks {
		if t.Summary {
			// Summary tasks aggregate their children's duration and are not
			// part of the network: including one would double-count work
			// already represented by its leaf descendants.
			continue
		}
		hours, err := duration.Parse(t.Duration)
		if err != nil {
			return Result{}, apperr.Parse(err, "task %s has unparsable duration", t.OutlineNumber)
		}
		durationDays[t.ID] = duration.ToDays(hours)
		outlineOf[t.ID] = t.OutlineNumber
		outlineToID[t.OutlineNumber] = t.ID
		order = append(order, t.ID)
	}

	predecessorsOf := make(map[string][]edge)
	successorsOf := make(map[string][]string)
	for _, p := range preds {
		if _, ok := durationDays[p.TaskID]; !ok {
			continue // successor is a summary task or not in the network
		}
		predID, ok := outlineToID[p.PredecessorOutline]
		if !ok {
			continue // unresolved link; validation reports this separately
		}
		lagDays := lag.ToDays(p.Lag, p.LagFormat)
		predecessorsOf[p.TaskID] = append(predecessorsOf[p.TaskID], edge{
			predecessorID: predID,
			linkType:      p.Type,
			lagDays:       lagDays,
		})
		successorsOf[predID] = append(successorsOf[predID], p.TaskID)
	}

	sequence, err := topoSort(order, predecessorsOf)
	if err != nil {
		return Result{}, err
	}

	earlyStart := make(map[string]float64, len(tasks))
	earlyFinish := make(map[string]float64, len(tasks))

	for _, id := range sequence {
		esFloor, efFloor := 0.0, math.Inf(-1)
		for _, e := range predecessorsOf[id] {
			predES, predEF := earlyStart[e.predecessorID], earlyFinish[e.predecessorID]
			switch e.linkType {
			case model.LinkFS:
				esFloor = math.Max(esFloor, predEF+e.lagDays)
			case model.LinkSS:
				esFloor = math.Max(esFloor, predES+e.lagDays)
			case model.LinkFF:
				efFloor = math.Max(efFloor, predEF+e.lagDays)
			case model.LinkSF:
				efFloor = math.Max(efFloor, predES+e.lagDays)
			}
		}
		es := esFloor
		if d := efFloor - durationDays[id]; d > es {
			es = d
		}
		earlyStart[id] = es
		earlyFinish[id] = es + durationDays[id]
	}

	projectDays := 0.0
	for _, id := range sequence {
		projectDays = math.Max(projectDays, earlyFinish[id])
	}

	lateStart := make(map[string]float64, len(tasks))
	lateFinish := make(map[string]float64, len(tasks))

	for i := len(sequence) - 1; i >= 0; i-- {
		id := sequence[i]
		successors := successorsOf[id]
		// Every task's late finish is capped at the project duration, not
		// just graph sinks: a task can both determine project duration and
		// still carry a successor constraint that would otherwise push its
		// late finish past the end of the project.
		lfCeil, lsCeil := projectDays, math.Inf(1)
		for _, succID := range successors {
			for _, e := range predecessorsOf[succID] {
				if e.predecessorID != id {
					continue
				}
				succLS, succLF := lateStart[succID], lateFinish[succID]
				switch e.linkType {
				case model.LinkFS:
					lfCeil = math.Min(lfCeil, succLS-e.lagDays)
				case model.LinkFF:
					lfCeil = math.Min(lfCeil, succLF-e.lagDays)
				case model.LinkSS:
					lsCeil = math.Min(lsCeil, succLS-e.lagDays)
				case model.LinkSF:
					lsCeil = math.Min(lsCeil, succLF-e.lagDays)
				}
			}
		}
		ls := lsCeil
		if d := lfCeil - durationDays[id]; d < ls {
			ls = d
		}
		lateStart[id] = ls
		lateFinish[id] = ls + durationDays[id]
	}

	results := make([]TaskResult, 0, len(tasks))
	var critical []string
	for _, id := range sequence {
		float := lateStart[id] - earlyStart[id]
		isCritical := float <= criticalTolerance
		results = append(results, TaskResult{
			TaskID:        id,
			OutlineNumber: outlineOf[id],
			EarlyStart:    earlyStart[id],
			EarlyFinish:   earlyFinish[id],
			LateStart:     lateStart[id],
			LateFinish:    lateFinish[id],
			TotalFloat:    float,
			Critical:      isCritical,
		})
		if isCritical {
			critical = append(critical, outlineOf[id])
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return compareOutline(results[i].OutlineNumber, results[j].OutlineNumber) < 0
	})
	sort.Slice(critical, func(i, j int) bool {
		return compareOutline(critical[i], critical[j]) < 0
	})

	return Result{Tasks: results, CriticalPath: critical, ProjectDays: projectDays}, nil
}

func topoSort(nodes []string, predecessorsOf map[string][]edge) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	order := make([]string, 0, len(nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, e := range predecessorsOf[id] {
			switch color[e.predecessorID] {
			case white:
				if err := visit(e.predecessorID); err != nil {
					return err
				}
			case gray:
				return apperr.Validation([]apperr.Violation{{
					Message: "cycle detected while ordering the task network",
					Kind:    "cycle",
				}})
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range nodes {
		if color[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func compareOutline(a, b string) int {
	as, bs := splitOutline(a), splitOutline(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			if as[i] < bs[i] {
				return -1
			}
			return 1
		}
	}
	return len(as) - len(bs)
}

func splitOutline(s string) []int {
	var segments []int
	cur := 0
	has := false
	for _, r := range s {
		if r == '.' {
			segments = append(segments, cur)
			cur = 0
			has = false
			continue
		}
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			has = true
		}
	}
	if has || len(segments) == 0 {
		segments = append(segments, cur)
	}
	return segments
}
