package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sravan-boop/taskflow/pkg/models"
)

func nullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	return TimeFromUnix(&n.Int64)
}

func nullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func (s *sqliteStore) SeedDemo(ctx context.Context) error {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		return nil
	}
	p, err := s.CreateProject(ctx, "Getting started")
	if err != nil {
		return err
	}
	for _, name := range []string{"To do", "Doing", "Done"} {
		if _, err := s.CreateSection(ctx, p.ProjectID, name); err != nil {
			return err
		}
	}
	return nil
}

// --- Projects ---

func (s *sqliteStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT
  p.project_id, p.name, p.created_at,
  (SELECT COUNT(*) FROM task_projects tp WHERE tp.project_id = p.project_id) AS task_count,
  (SELECT COUNT(*) FROM automation_rules r WHERE r.project_id = p.project_id) AS rule_count
FROM projects p
ORDER BY p.created_at ASC, p.rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Project
	for rows.Next() {
		var p Project
		var createdAt int64
		if err := rows.Scan(&p.ProjectID, &p.Name, &createdAt, &p.TaskCount, &p.RuleCount); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	var createdAt int64
	err := s.DB.QueryRowContext(ctx, `SELECT project_id, name, created_at FROM projects WHERE project_id = ?`, projectID).
		Scan(&p.ProjectID, &p.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func (s *sqliteStore) CreateProject(ctx context.Context, name string) (Project, error) {
	if strings.TrimSpace(name) == "" {
		return Project{}, errors.New("project name required")
	}
	id := NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO projects(project_id, name, created_at) VALUES(?, ?, ?)`, id, name, now); err != nil {
		return Project{}, err
	}
	return Project{ProjectID: id, Name: name, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

func (s *sqliteStore) DeleteProject(ctx context.Context, projectID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM projects WHERE project_id = ?`, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return nil
}

// --- Sections ---

func (s *sqliteStore) ListSections(ctx context.Context, projectID string) ([]Section, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT section_id, project_id, name, position, created_at FROM sections WHERE project_id = ? ORDER BY position ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Section
	for rows.Next() {
		var sec Section
		var createdAt int64
		if err := rows.Scan(&sec.SectionID, &sec.ProjectID, &sec.Name, &sec.Position, &createdAt); err != nil {
			return nil, err
		}
		sec.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateSection(ctx context.Context, projectID, name string) (Section, error) {
	if strings.TrimSpace(name) == "" {
		return Section{}, errors.New("section name required")
	}
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return Section{}, err
	}
	if p == nil {
		return Section{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	var pos int
	if err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(position)+1, 0) FROM sections WHERE project_id = ?`, projectID).Scan(&pos); err != nil {
		return Section{}, err
	}
	id := NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO sections(section_id, project_id, name, position, created_at) VALUES(?, ?, ?, ?, ?)`, id, projectID, name, pos, now); err != nil {
		return Section{}, err
	}
	return Section{SectionID: id, ProjectID: projectID, Name: name, Position: pos, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

// --- Users ---

func (s *sqliteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT user_id, display_name, created_at FROM users ORDER BY display_name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []User
	for rows.Next() {
		var u User
		var createdAt int64
		if err := rows.Scan(&u.UserID, &u.DisplayName, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateUser(ctx context.Context, displayName string) (User, error) {
	if strings.TrimSpace(displayName) == "" {
		return User{}, errors.New("display name required")
	}
	id := NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO users(user_id, display_name, created_at) VALUES(?, ?, ?)`, id, displayName, now); err != nil {
		return User{}, err
	}
	return User{UserID: id, DisplayName: displayName, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

// --- Custom fields ---

func (s *sqliteStore) ListCustomFields(ctx context.Context, projectID string) ([]CustomField, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT field_id, project_id, name, field_type, created_at FROM custom_fields WHERE project_id = ? ORDER BY created_at ASC, rowid ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []CustomField
	for rows.Next() {
		var f CustomField
		var createdAt int64
		if err := rows.Scan(&f.FieldID, &f.ProjectID, &f.Name, &f.FieldType, &createdAt); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateCustomField(ctx context.Context, projectID, name, fieldType string) (CustomField, error) {
	if strings.TrimSpace(name) == "" {
		return CustomField{}, errors.New("field name required")
	}
	if fieldType == "" {
		fieldType = models.FieldTypeText
	}
	id := NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO custom_fields(field_id, project_id, name, field_type, created_at) VALUES(?, ?, ?, ?, ?)`, id, projectID, name, fieldType, now); err != nil {
		return CustomField{}, err
	}
	return CustomField{FieldID: id, ProjectID: projectID, Name: name, FieldType: fieldType, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

// --- Tasks ---

// scanTaskRow scans one row selected with taskColumns.
func scanTaskRow(row interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		t            Task
		assigneeID   sql.NullString
		assigneeName sql.NullString
		dueDate      sql.NullInt64
		startDate    sql.NullInt64
		completedAt  sql.NullInt64
		recurrence   sql.NullString
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(&t.TaskID, &t.Title, &t.Status, &assigneeID, &assigneeName, &dueDate, &startDate, &completedAt, &t.IsRecurring, &recurrence, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.AssigneeID = nullString(assigneeID)
	t.AssigneeName = nullString(assigneeName)
	t.DueDate = nullTime(dueDate)
	t.StartDate = nullTime(startDate)
	t.CompletedAt = nullTime(completedAt)
	rec, err := DecodeRecurrence(nullString(recurrence))
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	t.Recurrence = rec
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}

func (s *sqliteStore) CreateTask(ctx context.Context, nt NewTask) (string, error) {
	if strings.TrimSpace(nt.Title) == "" {
		return "", errors.New("title required")
	}
	status := nt.Status
	if status == "" {
		status = models.StatusTodo
	}
	rec, err := EncodeRecurrence(nt.Recurrence)
	if err != nil {
		return "", err
	}
	id := NewID()
	now := time.Now().UTC().Unix()
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO tasks(task_id, title, status, assignee_id, due_date, start_date, is_recurring, recurrence, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nt.Title, status, nt.AssigneeID, UnixOrNil(nt.DueDate), UnixOrNil(nt.StartDate), nt.IsRecurring, rec, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetTask loads a task with its assignee name, placements and custom-field values. Returns nil, nil if not found.
func (s *sqliteStore) GetTask(ctx context.Context, taskID string) (*Task, error) {
	task, err := scanTaskRow(s.stmtGetTask.QueryRowContext(ctx, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	prow, err := s.stmtListPlacements.QueryContext(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = prow.Close() }()
	for prow.Next() {
		var p Placement
		var sectionID, sectionName sql.NullString
		if err := prow.Scan(&p.ProjectID, &sectionID, &sectionName); err != nil {
			return nil, err
		}
		p.SectionID = nullString(sectionID)
		p.SectionName = nullString(sectionName)
		task.Placements = append(task.Placements, p)
	}
	if err := prow.Err(); err != nil {
		return nil, err
	}

	frow, err := s.stmtListFieldValues.QueryContext(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = frow.Close() }()
	for frow.Next() {
		v := FieldValue{TaskID: taskID}
		var text sql.NullString
		var num sql.NullFloat64
		var updatedAt int64
		if err := frow.Scan(&v.FieldID, &v.FieldName, &text, &num, &updatedAt); err != nil {
			return nil, err
		}
		v.TextValue = nullString(text)
		if num.Valid {
			n := num.Float64
			v.NumberValue = &n
		}
		v.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		task.FieldValues = append(task.FieldValues, v)
	}
	return task, frow.Err()
}

func (s *sqliteStore) ListProjectTasks(ctx context.Context, projectID string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = models.DefaultTaskListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+taskColumns+` `+taskFrom+`
JOIN task_projects tp ON tp.task_id = t.task_id
WHERE tp.project_id = ?
ORDER BY t.created_at DESC, t.rowid DESC
LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Task
	for rows.Next() {
		task, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()
	return out, s.attachProjectPlacements(ctx, projectID, out)
}

// attachProjectPlacements sets each task's Placements to its placement in projectID.
func (s *sqliteStore) attachProjectPlacements(ctx context.Context, projectID string, list []Task) error {
	if len(list) == 0 {
		return nil
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT tp.task_id, tp.section_id, sc.name FROM task_projects tp LEFT JOIN sections sc ON sc.section_id = tp.section_id WHERE tp.project_id = ?`, projectID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	byTask := make(map[string]Placement)
	for rows.Next() {
		var taskID string
		var sectionID, sectionName sql.NullString
		if err := rows.Scan(&taskID, &sectionID, &sectionName); err != nil {
			return err
		}
		pl := Placement{ProjectID: projectID}
		if sectionID.Valid {
			pl.SectionID = &sectionID.String
		}
		if sectionName.Valid {
			pl.SectionName = &sectionName.String
		}
		byTask[taskID] = pl
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range list {
		if pl, ok := byTask[list[i].TaskID]; ok {
			list[i].Placements = []Placement{pl}
		}
	}
	return nil
}

func (s *sqliteStore) AddTaskToProject(ctx context.Context, taskID, projectID string, sectionID *string) error {
	if sectionID != nil && *sectionID != "" {
		if err := s.sectionInProject(ctx, *sectionID, projectID); err != nil {
			return err
		}
	} else {
		sectionID = nil
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO task_projects(task_id, project_id, section_id, added_at) VALUES(?, ?, ?, ?)
ON CONFLICT(task_id, project_id) DO UPDATE SET section_id = excluded.section_id`,
		taskID, projectID, sectionID, time.Now().UTC().Unix())
	return err
}

func (s *sqliteStore) sectionInProject(ctx context.Context, sectionID, projectID string) error {
	var one int
	err := s.stmtGetSectionInProj.QueryRowContext(ctx, sectionID, projectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("section %s in project %s: %w", sectionID, projectID, ErrNotFound)
	}
	return err
}

// MoveTaskToSection retargets the task's section within projectID. It returns moved=false when the
// task is not placed in the project, whatever the section. Otherwise it fails if the section does
// not belong to the project.
func (s *sqliteStore) MoveTaskToSection(ctx context.Context, taskID, projectID, sectionID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM task_projects WHERE task_id = ? AND project_id = ?`, taskID, projectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.sectionInProject(ctx, sectionID, projectID); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE task_projects SET section_id = ? WHERE task_id = ? AND project_id = ?`, sectionID, taskID, projectID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		_, _ = s.DB.ExecContext(ctx, `UPDATE tasks SET updated_at = ? WHERE task_id = ?`, time.Now().UTC().Unix(), taskID)
	}
	return n > 0, nil
}

func (s *sqliteStore) execTaskUpdate(ctx context.Context, taskID, q string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) CompleteTask(ctx context.Context, taskID string, at time.Time) error {
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET status = ?, completed_at = ?, updated_at = ? WHERE task_id = ?`,
		models.StatusDone, at.UTC().Unix(), time.Now().UTC().Unix(), taskID)
}

func (s *sqliteStore) SetTaskStatus(ctx context.Context, taskID, status string) error {
	if status == "" {
		return errors.New("status required")
	}
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET status = ?, updated_at = ? WHERE task_id = ?`, status, time.Now().UTC().Unix(), taskID)
}

// SetTaskAssignee stores assigneeID verbatim. Pass nil to unassign.
func (s *sqliteStore) SetTaskAssignee(ctx context.Context, taskID string, assigneeID *string) error {
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET assignee_id = ?, updated_at = ? WHERE task_id = ?`, assigneeID, time.Now().UTC().Unix(), taskID)
}

// SetTaskDueDate sets or clears the due date and re-arms the due-soon announcement.
func (s *sqliteStore) SetTaskDueDate(ctx context.Context, taskID string, due *time.Time) error {
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET due_date = ?, due_soon_notified_at = NULL, updated_at = ? WHERE task_id = ?`,
		UnixOrNil(due), time.Now().UTC().Unix(), taskID)
}

func (s *sqliteStore) fieldExists(ctx context.Context, fieldID string) error {
	var one int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM custom_fields WHERE field_id = ?`, fieldID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("custom field %s: %w", fieldID, ErrNotFound)
	}
	return err
}

// UpsertFieldText writes the text slot of a custom-field value, leaving the number slot untouched.
func (s *sqliteStore) UpsertFieldText(ctx context.Context, taskID, fieldID, value string) error {
	if err := s.fieldExists(ctx, fieldID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO custom_field_values(task_id, field_id, text_value, updated_at) VALUES(?, ?, ?, ?)
ON CONFLICT(task_id, field_id) DO UPDATE SET text_value = excluded.text_value, updated_at = excluded.updated_at`,
		taskID, fieldID, value, time.Now().UTC().Unix())
	return err
}

func (s *sqliteStore) UpsertFieldNumber(ctx context.Context, taskID, fieldID string, value float64) error {
	if err := s.fieldExists(ctx, fieldID); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO custom_field_values(task_id, field_id, number_value, updated_at) VALUES(?, ?, ?, ?)
ON CONFLICT(task_id, field_id) DO UPDATE SET number_value = excluded.number_value, updated_at = excluded.updated_at`,
		taskID, fieldID, value, time.Now().UTC().Unix())
	return err
}

// ListTasksDueBetween returns incomplete tasks due in [from, to] that have not been announced as due soon.
func (s *sqliteStore) ListTasksDueBetween(ctx context.Context, from, to time.Time, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = models.DefaultTaskListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+taskColumns+` `+taskFrom+`
WHERE t.status != ? AND t.due_date IS NOT NULL AND t.due_date BETWEEN ? AND ? AND t.due_soon_notified_at IS NULL
ORDER BY t.due_date ASC
LIMIT ?`, models.StatusDone, from.UTC().Unix(), to.UTC().Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Task
	for rows.Next() {
		task, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

// MarkDueSoonNotified stamps the announcement; returns false if another scanner already did.
func (s *sqliteStore) MarkDueSoonNotified(ctx context.Context, taskID string, at time.Time) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `UPDATE tasks SET due_soon_notified_at = ? WHERE task_id = ? AND due_soon_notified_at IS NULL`, at.UTC().Unix(), taskID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// --- Comments ---

func (s *sqliteStore) CreateTaskComment(ctx context.Context, taskID, authorID, body string) (string, error) {
	if body == "" {
		return "", errors.New("comment body required")
	}
	id := NewID()
	_, err := s.DB.ExecContext(ctx, `INSERT INTO task_comments(comment_id, task_id, author_id, body, created_at) VALUES(?, ?, ?, ?, ?)`,
		id, taskID, authorID, body, time.Now().UTC().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *sqliteStore) ListTaskComments(ctx context.Context, taskID string) ([]TaskComment, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT comment_id, task_id, author_id, body, created_at FROM task_comments WHERE task_id = ? ORDER BY created_at ASC, rowid ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []TaskComment
	for rows.Next() {
		var c TaskComment
		var createdAt int64
		if err := rows.Scan(&c.CommentID, &c.TaskID, &c.AuthorID, &c.Body, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Automation rules ---

func scanRuleRow(row interface{ Scan(dest ...any) error }) (*Rule, error) {
	var (
		r         Rule
		triggerCf sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&r.RuleID, &r.ProjectID, &r.Name, &r.TriggerType, &triggerCf, &r.Conditions, &r.Actions, &r.IsActive, &r.CreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.TriggerConfig = nullString(triggerCf)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	r.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &r, nil
}

func normalizeRule(r *Rule) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("rule name required")
	}
	if r.TriggerType == "" {
		return errors.New("rule trigger required")
	}
	if strings.TrimSpace(r.Conditions) == "" {
		r.Conditions = `{"logic":"AND","conditions":[]}`
	}
	if strings.TrimSpace(r.Actions) == "" {
		r.Actions = `[]`
	}
	return nil
}

func (s *sqliteStore) CreateRule(ctx context.Context, r Rule) (string, error) {
	if err := normalizeRule(&r); err != nil {
		return "", err
	}
	id := NewID()
	now := time.Now().UTC().Unix()
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO automation_rules(rule_id, project_id, name, trigger_type, trigger_config, conditions, actions, is_active, created_by, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.ProjectID, r.Name, r.TriggerType, r.TriggerConfig, r.Conditions, r.Actions, r.IsActive, r.CreatedBy, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *sqliteStore) GetRule(ctx context.Context, ruleID string) (*Rule, error) {
	r, err := scanRuleRow(s.DB.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE rule_id = ?`, ruleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (s *sqliteStore) listRules(rows *sql.Rows) ([]Rule, error) {
	defer func() { _ = rows.Close() }()
	var out []Rule
	for rows.Next() {
		r, err := scanRuleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListRules(ctx context.Context, projectID string) ([]Rule, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE project_id = ? ORDER BY created_at ASC, rowid ASC`, projectID)
	if err != nil {
		return nil, err
	}
	return s.listRules(rows)
}

// ListActiveRules returns the project's active rules in creation order.
func (s *sqliteStore) ListActiveRules(ctx context.Context, projectID string) ([]Rule, error) {
	rows, err := s.stmtListActiveRules.QueryContext(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.listRules(rows)
}

func (s *sqliteStore) UpdateRule(ctx context.Context, r Rule) error {
	if err := normalizeRule(&r); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `
UPDATE automation_rules
SET name = ?, trigger_type = ?, trigger_config = ?, conditions = ?, actions = ?, is_active = ?, updated_at = ?
WHERE rule_id = ?`,
		r.Name, r.TriggerType, r.TriggerConfig, r.Conditions, r.Actions, r.IsActive, time.Now().UTC().Unix(), r.RuleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", r.RuleID, ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE automation_rules SET is_active = ?, updated_at = ? WHERE rule_id = ?`, active, time.Now().UTC().Unix(), ruleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) DeleteRule(ctx context.Context, ruleID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM automation_rules WHERE rule_id = ?`, ruleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, ErrNotFound)
	}
	return nil
}

// --- Rule execution log ---

func (s *sqliteStore) CreateRuleExecution(ctx context.Context, e RuleExecution) error {
	if e.ExecutionID == "" {
		e.ExecutionID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.stmtCreateExecution.ExecContext(ctx, e.ExecutionID, e.RuleID, e.TaskID, e.Status, e.Message, e.CreatedAt.UTC().Unix())
	return err
}

// ListRuleExecutions returns the newest executions for a rule first.
func (s *sqliteStore) ListRuleExecutions(ctx context.Context, ruleID string, limit int) ([]RuleExecution, error) {
	if limit <= 0 {
		limit = models.DefaultExecutionListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT execution_id, rule_id, task_id, status, message, created_at FROM rule_executions WHERE rule_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []RuleExecution
	for rows.Next() {
		var e RuleExecution
		var msg sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ExecutionID, &e.RuleID, &e.TaskID, &e.Status, &msg, &createdAt); err != nil {
			return nil, err
		}
		e.Message = nullString(msg)
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
