// Package model defines the statically typed record for Task, Project,
// and Predecessor link, replacing the untyped records the source project
// schedules relied on.
package model

import "time"

// LinkType is the precedence relation encoded on a PredecessorLink.
type LinkType int

const (
	LinkFF LinkType = 0 // finish-to-finish
	LinkFS LinkType = 1 // finish-to-start
	LinkSF LinkType = 2 // start-to-finish
	LinkSS LinkType = 3 // start-to-start
)

func (t LinkType) String() string {
	switch t {
	case LinkFF:
		return "FF"
	case LinkFS:
		return "FS"
	case LinkSF:
		return "SF"
	case LinkSS:
		return "SS"
	default:
		return "unknown"
	}
}

// Project is one schedule: identity, metadata, and the original XML
// document retained verbatim so export can splice into it faithfully.
type Project struct {
	ID          string
	Name        string
	StartDate   time.Time
	StatusDate  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Active      bool
	XMLTemplate []byte
}

// Task is a single row in the outline hierarchy of a project.
type Task struct {
	ID              string
	ProjectID       string
	UID             string
	Name            string
	OutlineNumber   string
	OutlineLevel    int
	Duration        string // canonical ISO-8601 PT<H>H<M>M<S>S
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

// Predecessor is a successor-side edge: TaskID is the successor, and
// PredecessorOutline is the textual back-reference to the predecessor,
// resolved by (project_id, outline_number) lookup rather than a pointer.
type Predecessor struct {
	ID                 string
	TaskID             string
	ProjectID          string
	PredecessorOutline string
	Type               LinkType
	Lag                int
	LagFormat          int
}

// Key uniquely identifies a predecessor link within its task.
func (p Predecessor) Key() [2]any {
	return [2]any{p.PredecessorOutline, p.Type}
}
