package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jra3/scheduled/internal/apperr"
	"github.com/jra3/scheduled/internal/model"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, so read queries can run
// directly against the pool (concurrent with other reads) while writes
// run against the transaction handed to WithProjectTx/WithStoreTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListProjects returns every project, most-recently-updated first.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	return listProjects(ctx, s.db)
}

func listProjects(ctx context.Context, q dbtx) ([]model.Project, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, start_date, status_date, created_at, updated_at, is_active, xml_template
		FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, apperr.Internal(err, "list projects")
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row interface{ Scan(...any) error }) (model.Project, error) {
	var p model.Project
	var start, status sql.NullTime
	var active int
	var tpl sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &start, &status, &p.CreatedAt, &p.UpdatedAt, &active, &tpl); err != nil {
		if err == sql.ErrNoRows {
			return model.Project{}, err
		}
		return model.Project{}, apperr.Internal(err, "scan project")
	}
	p.StartDate = start.Time
	p.StatusDate = status.Time
	p.Active = active != 0
	if tpl.Valid {
		p.XMLTemplate = []byte(tpl.String)
	}
	return p, nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	return getProject(ctx, s.db, id)
}

func getProject(ctx context.Context, q dbtx, id string) (model.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, start_date, status_date, created_at, updated_at, is_active, xml_template
		FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Project{}, apperr.NotFound("project %s not found", id)
		}
		return model.Project{}, wrapNoRows(err, "get project %s", id)
	}
	return p, nil
}

// GetProjectTx fetches a project within an open transaction, used by
// callers that need to read-then-write a project atomically.
func GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (model.Project, error) {
	return getProject(ctx, tx, id)
}

// GetActiveProject returns the single project currently flagged active,
// or a NotFound error if the store has no projects.
func (s *Store) GetActiveProject(ctx context.Context) (model.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, start_date, status_date, created_at, updated_at, is_active, xml_template
		FROM projects WHERE is_active = 1`)
	p, err := scanProject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Project{}, apperr.NotFound("no active project")
		}
		return model.Project{}, apperr.Internal(err, "get active project")
	}
	return p, nil
}

// InsertProject inserts a new project row within tx.
func InsertProject(ctx context.Context, tx *sql.Tx, p model.Project) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, start_date, status_date, created_at, updated_at, is_active, xml_template)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, nullableTime(p.StartDate), nullableTime(p.StatusDate), p.CreatedAt, p.UpdatedAt, boolInt(p.Active), p.XMLTemplate)
	if err != nil {
		return apperr.Internal(err, "insert project %s", p.ID)
	}
	return nil
}

// UpdateProject updates the mutable fields of a project within tx.
func UpdateProject(ctx context.Context, tx *sql.Tx, p model.Project) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE projects SET name = ?, start_date = ?, status_date = ?, updated_at = ?, xml_template = ?
		WHERE id = ?`,
		p.Name, nullableTime(p.StartDate), nullableTime(p.StatusDate), p.UpdatedAt, p.XMLTemplate, p.ID)
	if err != nil {
		return apperr.Internal(err, "update project %s", p.ID)
	}
	return requireAffected(res, "project %s not found", p.ID)
}

// DeleteProject deletes a project; cascading FKs remove its tasks and
// predecessors.
func DeleteProject(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return apperr.Internal(err, "delete project %s", id)
	}
	return requireAffected(res, "project %s not found", id)
}

// SetActiveProject clears every active flag and sets it on id, atomically
// within tx (caller is expected to hold the whole-store lock).
func SetActiveProject(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET is_active = 0`); err != nil {
		return apperr.Internal(err, "clear active project flag")
	}
	res, err := tx.ExecContext(ctx, `UPDATE projects SET is_active = 1 WHERE id = ?`, id)
	if err != nil {
		return apperr.Internal(err, "set active project %s", id)
	}
	return requireAffected(res, "project %s not found", id)
}

// MostRecentlyUpdatedProject returns the id of the project with the
// latest updated_at, used to pick the new active project after the
// active one is deleted. Returns "" if the store has no projects.
func MostRecentlyUpdatedProject(ctx context.Context, tx *sql.Tx) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM projects ORDER BY updated_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperr.Internal(err, "find most recently updated project")
	}
	return id, nil
}

// ==========================================================================
// Tasks
// ==========================================================================

// ListTasks returns every task for a project. Every query on tasks
// predicates on project_id so cross-project reads cannot leak; the
// predecessor queries keyed by task_id (ListPredecessorsForTask,
// DeletePredecessorsForTask, UpdatePredecessorLag) do not filter on
// project_id.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelectSQL+` WHERE project_id = ? ORDER BY outline_number`, projectID)
	if err != nil {
		return nil, apperr.Internal(err, "list tasks for project %s", projectID)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// GetTask fetches a single task scoped to a project.
func (s *Store) GetTask(ctx context.Context, projectID, taskID string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelectSQL+` WHERE project_id = ? AND id = ?`, projectID, taskID)
	return scanTask(row)
}

// GetTaskByOutline fetches a task by its outline number within a project.
func (s *Store) GetTaskByOutline(ctx context.Context, projectID, outline string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelectSQL+` WHERE project_id = ? AND outline_number = ?`, projectID, outline)
	return scanTask(row)
}

const taskSelectSQL = `
	SELECT id, project_id, uid, name, outline_number, outline_level, duration, value,
	       milestone, summary, percent_complete, start_date, finish_date,
	       actual_start, actual_finish, actual_duration, create_date
	FROM tasks`

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var out []model.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row *sql.Row) (model.Task, error) {
	t, err := scanTaskRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Task{}, apperr.NotFound("task not found")
		}
		return model.Task{}, apperr.Internal(err, "scan task")
	}
	return t, nil
}

func scanTaskRow(row interface{ Scan(...any) error }) (model.Task, error) {
	var t model.Task
	var value, actualDuration sql.NullString
	var start, finish, actualStart, actualFinish, createDate sql.NullTime
	var milestone, summary int
	err := row.Scan(&t.ID, &t.ProjectID, &t.UID, &t.Name, &t.OutlineNumber, &t.OutlineLevel,
		&t.Duration, &value, &milestone, &summary, &t.PercentComplete,
		&start, &finish, &actualStart, &actualFinish, &actualDuration, &createDate)
	if err != nil {
		return model.Task{}, err
	}
	t.Milestone = milestone != 0
	t.Summary = summary != 0
	if value.Valid {
		v := value.String
		t.Value = &v
	}
	if actualDuration.Valid {
		v := actualDuration.String
		t.ActualDuration = &v
	}
	t.Start = nullTimePtr(start)
	t.Finish = nullTimePtr(finish)
	t.ActualStart = nullTimePtr(actualStart)
	t.ActualFinish = nullTimePtr(actualFinish)
	t.CreateDate = nullTimePtr(createDate)
	return t, nil
}

// InsertTask inserts a new task row within tx.
func InsertTask(ctx context.Context, tx *sql.Tx, t model.Task) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, uid, name, outline_number, outline_level, duration, value,
			milestone, summary, percent_complete, start_date, finish_date, actual_start, actual_finish,
			actual_duration, create_date)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.UID, t.Name, t.OutlineNumber, t.OutlineLevel, t.Duration, nullableString(t.Value),
		boolInt(t.Milestone), boolInt(t.Summary), t.PercentComplete,
		nullableTimePtr(t.Start), nullableTimePtr(t.Finish), nullableTimePtr(t.ActualStart),
		nullableTimePtr(t.ActualFinish), nullableString(t.ActualDuration), nullableTimePtr(t.CreateDate))
	if err != nil {
		return apperr.Internal(err, "insert task %s", t.ID)
	}
	return nil
}

// UpdateTask updates every mutable field of a task within tx.
func UpdateTask(ctx context.Context, tx *sql.Tx, t model.Task) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET name=?, outline_number=?, outline_level=?, duration=?, value=?,
			milestone=?, summary=?, percent_complete=?, start_date=?, finish_date=?,
			actual_start=?, actual_finish=?, actual_duration=?, create_date=?
		WHERE id = ? AND project_id = ?`,
		t.Name, t.OutlineNumber, t.OutlineLevel, t.Duration, nullableString(t.Value),
		boolInt(t.Milestone), boolInt(t.Summary), t.PercentComplete,
		nullableTimePtr(t.Start), nullableTimePtr(t.Finish), nullableTimePtr(t.ActualStart),
		nullableTimePtr(t.ActualFinish), nullableString(t.ActualDuration), nullableTimePtr(t.CreateDate),
		t.ID, t.ProjectID)
	if err != nil {
		return apperr.Internal(err, "update task %s", t.ID)
	}
	return requireAffected(res, "task %s not found", t.ID)
}

// DeleteTask deletes a task and, per invariant 10, every predecessor link
// that refers to it by outline number — including back-references held
// on other tasks' predecessor lists — within the same transaction.
func DeleteTask(ctx context.Context, tx *sql.Tx, projectID, taskID, outlineNumber string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID)
	if err != nil {
		return apperr.Internal(err, "delete task %s", taskID)
	}
	if err := requireAffected(res, "task %s not found", taskID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM predecessors WHERE project_id = ? AND outline_number = ?`,
		projectID, outlineNumber); err != nil {
		return apperr.Internal(err, "delete predecessor back-references to %s", outlineNumber)
	}
	return nil
}

// ==========================================================================
// Predecessors
// ==========================================================================

const predSelectSQL = `SELECT id, task_id, project_id, outline_number, type, lag, lag_format FROM predecessors`

// ListPredecessorsForProject returns every predecessor link in a project.
func (s *Store) ListPredecessorsForProject(ctx context.Context, projectID string) ([]model.Predecessor, error) {
	rows, err := s.db.QueryContext(ctx, predSelectSQL+` WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, apperr.Internal(err, "list predecessors for project %s", projectID)
	}
	defer rows.Close()
	return scanPreds(rows)
}

// ListPredecessorsForTask returns the predecessor links of a single task.
func (s *Store) ListPredecessorsForTask(ctx context.Context, taskID string) ([]model.Predecessor, error) {
	rows, err := s.db.QueryContext(ctx, predSelectSQL+` WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "list predecessors for task %s", taskID)
	}
	defer rows.Close()
	return scanPreds(rows)
}

func scanPreds(rows *sql.Rows) ([]model.Predecessor, error) {
	var out []model.Predecessor
	for rows.Next() {
		var p model.Predecessor
		var linkType int
		var id int64
		if err := rows.Scan(&id, &p.TaskID, &p.ProjectID, &p.PredecessorOutline, &linkType, &p.Lag, &p.LagFormat); err != nil {
			return nil, apperr.Internal(err, "scan predecessor")
		}
		p.ID = fmt.Sprintf("%d", id)
		p.Type = model.LinkType(linkType)
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertPredecessor inserts a new predecessor link within tx.
func InsertPredecessor(ctx context.Context, tx *sql.Tx, p model.Predecessor) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO predecessors (task_id, project_id, outline_number, type, lag, lag_format)
		VALUES (?,?,?,?,?,?)`,
		p.TaskID, p.ProjectID, p.PredecessorOutline, int(p.Type), p.Lag, p.LagFormat)
	if err != nil {
		return apperr.Internal(err, "insert predecessor on task %s", p.TaskID)
	}
	return nil
}

// DeletePredecessorsForTask removes every predecessor link owned by a
// task (used before re-inserting an updated set on task update).
func DeletePredecessorsForTask(ctx context.Context, tx *sql.Tx, taskID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM predecessors WHERE task_id = ?`, taskID); err != nil {
		return apperr.Internal(err, "delete predecessors for task %s", taskID)
	}
	return nil
}

// ReplaceProjectPredecessors replaces every predecessor link of a project
// with preds in a single pass, used by structural task edits (create,
// delete) whose outline-number renumbering can retarget an arbitrary
// number of back-references at once — simpler and safer than updating
// each affected row's outline_number individually under the project's
// unique (project_id, outline_number) task index.
func ReplaceProjectPredecessors(ctx context.Context, tx *sql.Tx, projectID string, preds []model.Predecessor) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM predecessors WHERE project_id = ?`, projectID); err != nil {
		return apperr.Internal(err, "clear predecessors for project %s", projectID)
	}
	for _, p := range preds {
		if err := InsertPredecessor(ctx, tx, p); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePredecessorLag updates only the lag/lag_format of a specific link,
// used by the optimizer's lag-reduction strategy apply step.
func UpdatePredecessorLag(ctx context.Context, tx *sql.Tx, taskID, predOutline string, linkType model.LinkType, newLag, newFormat int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE predecessors SET lag = ?, lag_format = ?
		WHERE task_id = ? AND outline_number = ? AND type = ?`,
		newLag, newFormat, taskID, predOutline, int(linkType))
	if err != nil {
		return apperr.Internal(err, "update predecessor lag on task %s", taskID)
	}
	return requireAffected(res, "predecessor link not found on task %s", taskID)
}

// ==========================================================================
// helpers
// ==========================================================================

func requireAffected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err, "check rows affected")
	}
	if n == 0 {
		return apperr.NotFound(fmt.Sprintf(format, args...))
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
