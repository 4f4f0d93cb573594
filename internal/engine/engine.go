// Package engine is the single entry point used by cmd/scheduled: it
// owns the store, the active-project selector, and wires ingest/export,
// validation, CPM, and optimization into one request surface that never
// leaks store or codec types across the boundary.
package engine

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jra3/scheduled/internal/apperr"
	"github.com/jra3/scheduled/internal/cpm"
	"github.com/jra3/scheduled/internal/model"
	"github.com/jra3/scheduled/internal/optimize"
	"github.com/jra3/scheduled/internal/store"
	"github.com/jra3/scheduled/internal/validate"
	"github.com/jra3/scheduled/internal/xmlcodec"
)

// Engine is the facade over the store and domain packages.
type Engine struct {
	store          *store.Store
	optimizeParams optimize.Params
}

// New wraps an already-open store. Callers needing the default on-disk
// store should use Open.
func New(s *store.Store, params optimize.Params) *Engine {
	return &Engine{store: s, optimizeParams: params}
}

// Open opens the store at path (or the default path if empty) and
// returns a ready Engine.
func Open(path string, params optimize.Params) (*Engine, error) {
	if path == "" {
		path = store.DefaultDBPath()
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return New(s, params), nil
}

func (e *Engine) Close() error {
	return e.store.Close()
}

// ListProjects returns every project known to the store, most recently
// updated first.
func (e *Engine) ListProjects(ctx context.Context) ([]model.Project, error) {
	return e.store.ListProjects(ctx)
}

// GetActiveProject returns the project currently selected as active.
func (e *Engine) GetActiveProject(ctx context.Context) (model.Project, error) {
	return e.store.GetActiveProject(ctx)
}

// CreateProject registers an empty project and makes it active.
func (e *Engine) CreateProject(ctx context.Context, name string) (model.Project, error) {
	now := store.Now()
	p := model.Project{
		ID:         uuid.New().String(),
		Name:       name,
		StartDate:  now,
		StatusDate: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		return store.InsertProject(ctx, tx, p)
	}); err != nil {
		return model.Project{}, err
	}
	if err := e.SwitchProject(ctx, p.ID); err != nil {
		return model.Project{}, err
	}
	log.Printf("[engine] created project %s (%q)", p.ID, p.Name)
	return p, nil
}

// SwitchProject makes id the active project.
func (e *Engine) SwitchProject(ctx context.Context, id string) error {
	return e.store.WithStoreTx(ctx, func(tx *sql.Tx) error {
		if _, err := store.GetProjectTx(ctx, tx, id); err != nil {
			return err
		}
		return store.SetActiveProject(ctx, tx, id)
	})
}

// DeleteProject removes a project and, if it was active, promotes the
// most recently updated remaining project to active.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	return e.store.WithStoreTx(ctx, func(tx *sql.Tx) error {
		active, err := store.GetProjectTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := store.DeleteProject(ctx, tx, id); err != nil {
			return err
		}
		if !active.Active {
			return nil
		}
		nextID, err := store.MostRecentlyUpdatedProject(ctx, tx)
		if err != nil {
			return err
		}
		if nextID == "" {
			return nil
		}
		return store.SetActiveProject(ctx, tx, nextID)
	})
}

// IngestResult reports what Ingest parsed and persisted.
type IngestResult struct {
	Project   model.Project
	TaskCount int
	PredCount int
}

// IngestXML parses a schedule document and persists it as a new
// project, running validation first and refusing to persist a project
// that fails it.
func (e *Engine) IngestXML(ctx context.Context, name string, r io.Reader) (IngestResult, error) {
	parsed, err := xmlcodec.Parse(r)
	if err != nil {
		return IngestResult{}, err
	}

	result := validate.Project(parsed.Tasks, parsed.Predecessors)
	if !result.Valid() {
		return IngestResult{}, apperr.Validation(result.Violations)
	}

	now := store.Now()
	projectID := uuid.New().String()
	parsed.Project.ID = projectID
	parsed.Project.CreatedAt = now
	parsed.Project.UpdatedAt = now
	if name != "" {
		parsed.Project.Name = name
	}

	// xmlcodec stashes the successor's outline number in TaskID at parse
	// time since no store ID exists yet; resolve it to a real ID now.
	taskIDByOutline := make(map[string]string, len(parsed.Tasks))
	for i := range parsed.Tasks {
		id := uuid.New().String()
		taskIDByOutline[parsed.Tasks[i].OutlineNumber] = id
		parsed.Tasks[i].ID = id
		parsed.Tasks[i].ProjectID = projectID
	}
	for i := range parsed.Predecessors {
		parsed.Predecessors[i].TaskID = taskIDByOutline[parsed.Predecessors[i].TaskID]
		parsed.Predecessors[i].ProjectID = projectID
	}

	err = e.store.WithProjectTx(ctx, projectID, func(tx *sql.Tx) error {
		if err := store.InsertProject(ctx, tx, parsed.Project); err != nil {
			return err
		}
		for _, t := range parsed.Tasks {
			if err := store.InsertTask(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, p := range parsed.Predecessors {
			if err := store.InsertPredecessor(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}

	if err := e.SwitchProject(ctx, projectID); err != nil {
		return IngestResult{}, err
	}

	log.Printf("[engine] ingested project %s: %d tasks, %d predecessor links",
		projectID, len(parsed.Tasks), len(parsed.Predecessors))

	return IngestResult{
		Project:   parsed.Project,
		TaskCount: len(parsed.Tasks),
		PredCount: len(parsed.Predecessors),
	}, nil
}

// ExportXML renders the active or given project back to its source XML
// template, splicing in the current task and predecessor state.
func (e *Engine) ExportXML(ctx context.Context, projectID string) ([]byte, error) {
	p, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return xmlcodec.Render(p.XMLTemplate, p, tasks, preds)
}

func (e *Engine) loadProject(ctx context.Context, projectID string) (model.Project, []model.Task, []model.Predecessor, error) {
	if projectID == "" {
		p, err := e.store.GetActiveProject(ctx)
		if err != nil {
			return model.Project{}, nil, nil, err
		}
		projectID = p.ID
	}
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, nil, nil, err
	}
	tasks, err := e.store.ListTasks(ctx, projectID)
	if err != nil {
		return model.Project{}, nil, nil, err
	}
	preds, err := e.store.ListPredecessorsForProject(ctx, projectID)
	if err != nil {
		return model.Project{}, nil, nil, err
	}
	return p, tasks, preds, nil
}

// ListTasks returns every task of a project, ordered by outline number
// compared as text (so "10" sorts before "2").
func (e *Engine) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	_, tasks, _, err := e.loadProject(ctx, projectID)
	return tasks, err
}

// Validate runs structural, format, and acyclicity checks over a
// project's current task set.
func (e *Engine) Validate(ctx context.Context, projectID string) (validate.Result, error) {
	_, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return validate.Result{}, err
	}
	return validate.Project(tasks, preds), nil
}

// ComputeCPM runs the critical path analysis over a project's current
// task network.
func (e *Engine) ComputeCPM(ctx context.Context, projectID string) (cpm.Result, error) {
	_, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return cpm.Result{}, err
	}
	return cpm.Compute(tasks, preds)
}

// OptimizeProposal returns ranked optimization candidates for a project
// without applying any of them.
func (e *Engine) OptimizeProposal(ctx context.Context, projectID string) ([]optimize.Proposal, error) {
	_, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return optimize.Propose(ctx, tasks, preds, e.optimizeParams)
}

// OptimizeApply applies a single proposal to a project, persisting the
// change only if the resulting schedule still validates.
func (e *Engine) OptimizeApply(ctx context.Context, projectID string, proposal optimize.Proposal) error {
	p, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	newTasks, newPreds, err := optimize.Apply(proposal, tasks, preds)
	if err != nil {
		return err
	}

	return e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		switch proposal.Kind {
		case optimize.KindCompression:
			for _, t := range newTasks {
				if t.OutlineNumber == proposal.TaskOutlineNumber {
					if err := store.UpdateTask(ctx, tx, t); err != nil {
						return err
					}
				}
			}
		case optimize.KindLagReduction:
			outlineByTaskID := make(map[string]string, len(newTasks))
			for _, t := range newTasks {
				outlineByTaskID[t.ID] = t.OutlineNumber
			}
			for _, pr := range newPreds {
				if pr.PredecessorOutline == proposal.PredecessorOutline &&
					outlineByTaskID[pr.TaskID] == proposal.TaskOutlineNumber {
					if err := store.UpdatePredecessorLag(ctx, tx, pr.TaskID, pr.PredecessorOutline, pr.Type, pr.Lag, pr.LagFormat); err != nil {
						return err
					}
				}
			}
		}
		p.UpdatedAt = store.Now()
		return store.UpdateProject(ctx, tx, p)
	})
}

// ReEncodeTemplate regenerates a project's stored XML template from its
// current task state; used after an ingest-adjacent bulk edit so later
// exports reflect the edit even if the in-memory task list came from a
// source other than the original template's own <Tasks> block.
func (e *Engine) ReEncodeTemplate(ctx context.Context, projectID string) error {
	p, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	rendered, err := xmlcodec.Render(p.XMLTemplate, p, tasks, preds)
	if err != nil {
		return err
	}
	p.XMLTemplate = bytes.TrimSpace(rendered)
	p.UpdatedAt = store.Now()
	return e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		return store.UpdateProject(ctx, tx, p)
	})
}

// Metadata is the project-level summary surfaced by GetMetadata, separate
// from the full Project record so callers don't need the retained XML
// template just to read a name or task count.
type Metadata struct {
	Name       string
	StartDate  time.Time
	StatusDate time.Time
	TaskCount  int
}

// GetMetadata returns a project's name, dates, and task count.
func (e *Engine) GetMetadata(ctx context.Context, projectID string) (Metadata, error) {
	p, tasks, _, err := e.loadProject(ctx, projectID)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Name: p.Name, StartDate: p.StartDate, StatusDate: p.StatusDate, TaskCount: len(tasks)}, nil
}

// MetadataUpdate carries the subset of project metadata fields to change;
// a nil field is left untouched.
type MetadataUpdate struct {
	Name       *string
	StartDate  *time.Time
	StatusDate *time.Time
}

// UpdateMetadata changes a project's name and/or dates.
func (e *Engine) UpdateMetadata(ctx context.Context, projectID string, patch MetadataUpdate) (Metadata, error) {
	p, tasks, _, err := e.loadProject(ctx, projectID)
	if err != nil {
		return Metadata{}, err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.StartDate != nil {
		p.StartDate = *patch.StartDate
	}
	if patch.StatusDate != nil {
		p.StatusDate = *patch.StatusDate
	}
	if strings.TrimSpace(p.Name) == "" {
		return Metadata{}, apperr.Validation([]apperr.Violation{
			{Field: "name", Message: "project name must not be empty", Kind: "required"},
		})
	}

	p.UpdatedAt = store.Now()
	if err := e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		return store.UpdateProject(ctx, tx, p)
	}); err != nil {
		return Metadata{}, err
	}
	return Metadata{Name: p.Name, StartDate: p.StartDate, StatusDate: p.StatusDate, TaskCount: len(tasks)}, nil
}

// GetTask looks up a single task of a project by its outline number.
func (e *Engine) GetTask(ctx context.Context, projectID, outline string) (model.Task, error) {
	if projectID == "" {
		p, err := e.store.GetActiveProject(ctx)
		if err != nil {
			return model.Task{}, err
		}
		projectID = p.ID
	}
	return e.store.GetTaskByOutline(ctx, projectID, outline)
}

// TaskInput is the full field set of a newly created task.
type TaskInput struct {
	UID             string
	Name            string
	OutlineNumber   string
	Duration        string
	Value           *string
	Milestone       bool
	Summary         bool
	PercentComplete int
	Start           *time.Time
	Finish          *time.Time
	ActualStart     *time.Time
	ActualFinish    *time.Time
	ActualDuration  *string
	CreateDate      *time.Time
}

// CreateTask inserts a task at the given outline position, shifting any
// sibling already occupying that position (and its descendants) up by
// one to make room, then re-validates the whole project before
// persisting either the new task or the renumbered siblings.
func (e *Engine) CreateTask(ctx context.Context, projectID string, input TaskInput) (model.Task, error) {
	p, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return model.Task{}, err
	}

	shifted := renumberForInsert(tasks, preds, input.OutlineNumber)

	newTask := model.Task{
		ID:              uuid.New().String(),
		ProjectID:       p.ID,
		UID:             input.UID,
		Name:            input.Name,
		OutlineNumber:   input.OutlineNumber,
		OutlineLevel:    outlineLevel(input.OutlineNumber),
		Duration:        input.Duration,
		Value:           input.Value,
		Milestone:       input.Milestone,
		Summary:         input.Summary,
		PercentComplete: input.PercentComplete,
		Start:           input.Start,
		Finish:          input.Finish,
		ActualStart:     input.ActualStart,
		ActualFinish:    input.ActualFinish,
		ActualDuration:  input.ActualDuration,
		CreateDate:      input.CreateDate,
	}
	tasks = append(tasks, newTask)

	result := validate.Project(tasks, preds)
	if !result.Valid() {
		return model.Task{}, apperr.Validation(result.Violations)
	}

	tasksByID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		tasksByID[t.ID] = t
	}

	err = e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		for _, id := range shifted {
			if err := store.UpdateTask(ctx, tx, tasksByID[id]); err != nil {
				return err
			}
		}
		if err := store.InsertTask(ctx, tx, newTask); err != nil {
			return err
		}
		if len(shifted) > 0 {
			if err := store.ReplaceProjectPredecessors(ctx, tx, p.ID, preds); err != nil {
				return err
			}
		}
		p.UpdatedAt = store.Now()
		return store.UpdateProject(ctx, tx, p)
	})
	if err != nil {
		return model.Task{}, err
	}
	log.Printf("[engine] created task %s (%s) in project %s", newTask.ID, newTask.OutlineNumber, p.ID)
	return newTask, nil
}

// TaskUpdate carries the subset of task fields to change; a nil field is
// left untouched. Changing OutlineNumber moves the task to that exact
// position without shifting other siblings — callers that need a
// make-room insert should use CreateTask; renumbering on update is
// reserved for the structural create/delete paths.
type TaskUpdate struct {
	Name            *string
	OutlineNumber   *string
	Duration        *string
	Value           *string
	Milestone       *bool
	Summary         *bool
	PercentComplete *int
	Start           *time.Time
	Finish          *time.Time
	ActualStart     *time.Time
	ActualFinish    *time.Time
	ActualDuration  *string
	CreateDate      *time.Time
}

// UpdateTask applies patch to a task and persists it if the result still
// validates.
func (e *Engine) UpdateTask(ctx context.Context, projectID, taskID string, patch TaskUpdate) (model.Task, error) {
	p, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return model.Task{}, err
	}

	idx := -1
	for i, t := range tasks {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return model.Task{}, apperr.NotFound("task %s not found", taskID)
	}

	updated := tasks[idx]
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.OutlineNumber != nil {
		updated.OutlineNumber = *patch.OutlineNumber
		updated.OutlineLevel = outlineLevel(*patch.OutlineNumber)
	}
	if patch.Duration != nil {
		updated.Duration = *patch.Duration
	}
	if patch.Value != nil {
		updated.Value = patch.Value
	}
	if patch.Milestone != nil {
		updated.Milestone = *patch.Milestone
	}
	if patch.Summary != nil {
		updated.Summary = *patch.Summary
	}
	if patch.PercentComplete != nil {
		updated.PercentComplete = *patch.PercentComplete
	}
	if patch.Start != nil {
		updated.Start = patch.Start
	}
	if patch.Finish != nil {
		updated.Finish = patch.Finish
	}
	if patch.ActualStart != nil {
		updated.ActualStart = patch.ActualStart
	}
	if patch.ActualFinish != nil {
		updated.ActualFinish = patch.ActualFinish
	}
	if patch.ActualDuration != nil {
		updated.ActualDuration = patch.ActualDuration
	}
	if patch.CreateDate != nil {
		updated.CreateDate = patch.CreateDate
	}
	tasks[idx] = updated

	result := validate.Project(tasks, preds)
	if !result.Valid() {
		return model.Task{}, apperr.Validation(result.Violations)
	}

	err = e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		if err := store.UpdateTask(ctx, tx, updated); err != nil {
			return err
		}
		p.UpdatedAt = store.Now()
		return store.UpdateProject(ctx, tx, p)
	})
	if err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes a task, cascading the deletion to every predecessor
// link that refers to it by outline number (invariant 10), then closes
// the resulting gap by shifting any later sibling (and its descendants)
// down by one.
func (e *Engine) DeleteTask(ctx context.Context, projectID, taskID string) error {
	p, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	idx := -1
	for i, t := range tasks {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return apperr.NotFound("task %s not found", taskID)
	}
	deletedOutline := tasks[idx].OutlineNumber

	remaining := make([]model.Task, 0, len(tasks)-1)
	remaining = append(remaining, tasks[:idx]...)
	remaining = append(remaining, tasks[idx+1:]...)

	remainingPreds := make([]model.Predecessor, 0, len(preds))
	for _, pr := range preds {
		if pr.TaskID == taskID || pr.PredecessorOutline == deletedOutline {
			continue
		}
		remainingPreds = append(remainingPreds, pr)
	}

	shifted := renumberForDelete(remaining, remainingPreds, deletedOutline)

	result := validate.Project(remaining, remainingPreds)
	if !result.Valid() {
		return apperr.Validation(result.Violations)
	}

	remainingByID := make(map[string]model.Task, len(remaining))
	for _, t := range remaining {
		remainingByID[t.ID] = t
	}

	return e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		if err := store.DeleteTask(ctx, tx, p.ID, taskID, deletedOutline); err != nil {
			return err
		}
		for _, id := range shifted {
			if err := store.UpdateTask(ctx, tx, remainingByID[id]); err != nil {
				return err
			}
		}
		if err := store.ReplaceProjectPredecessors(ctx, tx, p.ID, remainingPreds); err != nil {
			return err
		}
		p.UpdatedAt = store.Now()
		return store.UpdateProject(ctx, tx, p)
	})
}

// PredecessorInput is one predecessor link to attach to a task.
type PredecessorInput struct {
	PredecessorOutline string
	Type               model.LinkType
	Lag                int
	LagFormat          int
}

// ReplaceTaskPredecessors replaces a task's entire predecessor-link set
// in one transaction, re-validating the project before committing.
func (e *Engine) ReplaceTaskPredecessors(ctx context.Context, projectID, taskID string, links []PredecessorInput) ([]model.Predecessor, error) {
	p, tasks, preds, err := e.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, t := range tasks {
		if t.ID == taskID {
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.NotFound("task %s not found", taskID)
	}

	kept := make([]model.Predecessor, 0, len(preds))
	for _, pr := range preds {
		if pr.TaskID != taskID {
			kept = append(kept, pr)
		}
	}
	newLinks := make([]model.Predecessor, 0, len(links))
	for _, l := range links {
		newLinks = append(newLinks, model.Predecessor{
			TaskID:             taskID,
			ProjectID:          p.ID,
			PredecessorOutline: l.PredecessorOutline,
			Type:               l.Type,
			Lag:                l.Lag,
			LagFormat:          l.LagFormat,
		})
	}
	merged := append(kept, newLinks...)

	result := validate.Project(tasks, merged)
	if !result.Valid() {
		return nil, apperr.Validation(result.Violations)
	}

	err = e.store.WithProjectTx(ctx, p.ID, func(tx *sql.Tx) error {
		if err := store.DeletePredecessorsForTask(ctx, tx, taskID); err != nil {
			return err
		}
		for _, l := range newLinks {
			if err := store.InsertPredecessor(ctx, tx, l); err != nil {
				return err
			}
		}
		p.UpdatedAt = store.Now()
		return store.UpdateProject(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return newLinks, nil
}

// renumberForInsert shifts every sibling of newOutline's parent whose
// segment is >= newOutline's own segment up by one, carrying their
// descendants (and any predecessor back-reference to them) along with
// the same shift, to make room for a task about to be inserted there.
// Siblings are processed from the highest segment down so no shift ever
// collides with one not yet applied. It returns the changed task IDs in
// the order they were shifted, safe to persist in that same order.
func renumberForInsert(tasks []model.Task, preds []model.Predecessor, newOutline string) []string {
	parent := parentPrefix(newOutline)
	level := outlineLevel(newOutline)
	fromSeg := lastSegment(newOutline)

	segs := siblingSegments(tasks, parent, level, func(seg int) bool { return seg >= fromSeg })
	sort.Sort(sort.Reverse(sort.IntSlice(segs)))

	var ordered []string
	seen := make(map[string]bool)
	for _, seg := range segs {
		old := withParentAndSeg(parent, seg)
		shiftedTo := withParentAndSeg(parent, seg+1)
		for _, id := range applyOutlineShift(tasks, preds, old, shiftedTo) {
			if !seen[id] {
				seen[id] = true
				ordered = append(ordered, id)
			}
		}
	}
	return ordered
}

// renumberForDelete shifts every sibling of deletedOutline's parent whose
// segment is greater than deletedOutline's own segment down by one,
// closing the gap left by the removed task. Siblings are processed from
// the lowest segment up so each shift lands on the slot the previous
// shift just vacated.
func renumberForDelete(tasks []model.Task, preds []model.Predecessor, deletedOutline string) []string {
	parent := parentPrefix(deletedOutline)
	level := outlineLevel(deletedOutline)
	deletedSeg := lastSegment(deletedOutline)

	segs := siblingSegments(tasks, parent, level, func(seg int) bool { return seg > deletedSeg })
	sort.Ints(segs)

	var ordered []string
	seen := make(map[string]bool)
	for _, seg := range segs {
		old := withParentAndSeg(parent, seg)
		shiftedTo := withParentAndSeg(parent, seg-1)
		for _, id := range applyOutlineShift(tasks, preds, old, shiftedTo) {
			if !seen[id] {
				seen[id] = true
				ordered = append(ordered, id)
			}
		}
	}
	return ordered
}

func siblingSegments(tasks []model.Task, parent string, level int, include func(seg int) bool) []int {
	seen := make(map[int]bool)
	var segs []int
	for _, t := range tasks {
		if parentPrefix(t.OutlineNumber) != parent || outlineLevel(t.OutlineNumber) != level {
			continue
		}
		seg := lastSegment(t.OutlineNumber)
		if include(seg) && !seen[seg] {
			seen[seg] = true
			segs = append(segs, seg)
		}
	}
	return segs
}

// applyOutlineShift renames old to shiftedTo on every task outline equal
// to or nested under old, and on every predecessor back-reference
// pointing at one of those outlines, mutating tasks and preds in place.
// It returns the IDs of the tasks it changed.
func applyOutlineShift(tasks []model.Task, preds []model.Predecessor, old, shiftedTo string) []string {
	var changed []string
	for i := range tasks {
		if remapped, ok := remapOutlinePrefix(tasks[i].OutlineNumber, old, shiftedTo); ok {
			tasks[i].OutlineNumber = remapped
			changed = append(changed, tasks[i].ID)
		}
	}
	for i := range preds {
		if remapped, ok := remapOutlinePrefix(preds[i].PredecessorOutline, old, shiftedTo); ok {
			preds[i].PredecessorOutline = remapped
		}
	}
	return changed
}

func remapOutlinePrefix(outline, old, shiftedTo string) (string, bool) {
	if outline == old {
		return shiftedTo, true
	}
	if strings.HasPrefix(outline, old+".") {
		return shiftedTo + outline[len(old):], true
	}
	return outline, false
}

func parentPrefix(outline string) string {
	idx := strings.LastIndex(outline, ".")
	if idx < 0 {
		return ""
	}
	return outline[:idx]
}

func lastSegment(outline string) int {
	seg := outline
	if idx := strings.LastIndex(outline, "."); idx >= 0 {
		seg = outline[idx+1:]
	}
	n, _ := strconv.Atoi(seg)
	return n
}

func outlineLevel(outline string) int {
	if outline == "" {
		return 0
	}
	return strings.Count(outline, ".") + 1
}

func withParentAndSeg(parent string, seg int) string {
	if parent == "" {
		return strconv.Itoa(seg)
	}
	return parent + "." + strconv.Itoa(seg)
}
