package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

const taskColumns = `t.task_id, t.title, t.status, t.assignee_id, u.display_name, t.due_date, t.start_date, t.completed_at, t.is_recurring, t.recurrence, t.created_at, t.updated_at`

const taskFrom = `FROM tasks t LEFT JOIN users u ON u.user_id = t.assignee_id`

const ruleColumns = `rule_id, project_id, name, trigger_type, trigger_config, conditions, actions, is_active, created_by, created_at, updated_at`

func unix(v int64) time.Time { return time.Unix(v, 0).UTC() }

func (s *Store) SeedDemo(ctx context.Context) error {
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

func (s *Store) ListProjects(ctx context.Context) ([]store.Project, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT
  p.project_id, p.name, p.created_at,
  (SELECT COUNT(*) FROM task_projects tp WHERE tp.project_id = p.project_id),
  (SELECT COUNT(*) FROM automation_rules r WHERE r.project_id = p.project_id)
FROM projects p
ORDER BY p.created_at ASC, p.project_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Project
	for rows.Next() {
		var p store.Project
		var createdAt int64
		if err := rows.Scan(&p.ProjectID, &p.Name, &createdAt, &p.TaskCount, &p.RuleCount); err != nil {
			return nil, err
		}
		p.CreatedAt = unix(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, projectID string) (*store.Project, error) {
	var p store.Project
	var createdAt int64
	err := s.Pool.QueryRow(ctx, `SELECT project_id, name, created_at FROM projects WHERE project_id = $1`, projectID).Scan(&p.ProjectID, &p.Name, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.CreatedAt = unix(createdAt)
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, name string) (store.Project, error) {
	if strings.TrimSpace(name) == "" {
		return store.Project{}, errors.New("project name required")
	}
	id := store.NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.Pool.Exec(ctx, `INSERT INTO projects(project_id, name, created_at) VALUES($1, $2, $3)`, id, name, now); err != nil {
		return store.Project{}, err
	}
	return store.Project{ProjectID: id, Name: name, CreatedAt: unix(now)}, nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM projects WHERE project_id = $1`, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", projectID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSections(ctx context.Context, projectID string) ([]store.Section, error) {
	rows, err := s.Pool.Query(ctx, `SELECT section_id, project_id, name, position, created_at FROM sections WHERE project_id = $1 ORDER BY position ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Section
	for rows.Next() {
		var sec store.Section
		var createdAt int64
		if err := rows.Scan(&sec.SectionID, &sec.ProjectID, &sec.Name, &sec.Position, &createdAt); err != nil {
			return nil, err
		}
		sec.CreatedAt = unix(createdAt)
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) CreateSection(ctx context.Context, projectID, name string) (store.Section, error) {
	if strings.TrimSpace(name) == "" {
		return store.Section{}, errors.New("section name required")
	}
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return store.Section{}, err
	}
	if p == nil {
		return store.Section{}, fmt.Errorf("project %s: %w", projectID, store.ErrNotFound)
	}
	var pos int
	if err := s.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(position)+1, 0) FROM sections WHERE project_id = $1`, projectID).Scan(&pos); err != nil {
		return store.Section{}, err
	}
	id := store.NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.Pool.Exec(ctx, `INSERT INTO sections(section_id, project_id, name, position, created_at) VALUES($1, $2, $3, $4, $5)`, id, projectID, name, pos, now); err != nil {
		return store.Section{}, err
	}
	return store.Section{SectionID: id, ProjectID: projectID, Name: name, Position: pos, CreatedAt: unix(now)}, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	rows, err := s.Pool.Query(ctx, `SELECT user_id, display_name, created_at FROM users ORDER BY display_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.User
	for rows.Next() {
		var u store.User
		var createdAt int64
		if err := rows.Scan(&u.UserID, &u.DisplayName, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = unix(createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, displayName string) (store.User, error) {
	if strings.TrimSpace(displayName) == "" {
		return store.User{}, errors.New("display name required")
	}
	id := store.NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.Pool.Exec(ctx, `INSERT INTO users(user_id, display_name, created_at) VALUES($1, $2, $3)`, id, displayName, now); err != nil {
		return store.User{}, err
	}
	return store.User{UserID: id, DisplayName: displayName, CreatedAt: unix(now)}, nil
}

func (s *Store) ListCustomFields(ctx context.Context, projectID string) ([]store.CustomField, error) {
	rows, err := s.Pool.Query(ctx, `SELECT field_id, project_id, name, field_type, created_at FROM custom_fields WHERE project_id = $1 ORDER BY created_at ASC, field_id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.CustomField
	for rows.Next() {
		var f store.CustomField
		var createdAt int64
		if err := rows.Scan(&f.FieldID, &f.ProjectID, &f.Name, &f.FieldType, &createdAt); err != nil {
			return nil, err
		}
		f.CreatedAt = unix(createdAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CreateCustomField(ctx context.Context, projectID, name, fieldType string) (store.CustomField, error) {
	if strings.TrimSpace(name) == "" {
		return store.CustomField{}, errors.New("field name required")
	}
	if fieldType == "" {
		fieldType = models.FieldTypeText
	}
	id := store.NewID()
	now := time.Now().UTC().Unix()
	if _, err := s.Pool.Exec(ctx, `INSERT INTO custom_fields(field_id, project_id, name, field_type, created_at) VALUES($1, $2, $3, $4, $5)`, id, projectID, name, fieldType, now); err != nil {
		return store.CustomField{}, err
	}
	return store.CustomField{FieldID: id, ProjectID: projectID, Name: name, FieldType: fieldType, CreatedAt: unix(now)}, nil
}

func scanTask(row pgx.Row) (*store.Task, error) {
	var (
		t                               store.Task
		dueDate, startDate, completedAt *int64
		recurrence                      *string
		createdAt, updatedAt            int64
	)
	if err := row.Scan(&t.TaskID, &t.Title, &t.Status, &t.AssigneeID, &t.AssigneeName, &dueDate, &startDate, &completedAt, &t.IsRecurring, &recurrence, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.DueDate = store.TimeFromUnix(dueDate)
	t.StartDate = store.TimeFromUnix(startDate)
	t.CompletedAt = store.TimeFromUnix(completedAt)
	rec, err := store.DecodeRecurrence(recurrence)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	t.Recurrence = rec
	t.CreatedAt = unix(createdAt)
	t.UpdatedAt = unix(updatedAt)
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, nt store.NewTask) (string, error) {
	if strings.TrimSpace(nt.Title) == "" {
		return "", errors.New("title required")
	}
	status := nt.Status
	if status == "" {
		status = models.StatusTodo
	}
	rec, err := store.EncodeRecurrence(nt.Recurrence)
	if err != nil {
		return "", err
	}
	id := store.NewID()
	now := time.Now().UTC().Unix()
	_, err = s.Pool.Exec(ctx, `
INSERT INTO tasks(task_id, title, status, assignee_id, due_date, start_date, is_recurring, recurrence, created_at, updated_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, nt.Title, status, nt.AssigneeID, store.UnixOrNil(nt.DueDate), store.UnixOrNil(nt.StartDate), nt.IsRecurring, rec, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetTask loads a task with its assignee name, placements and custom-field values. Returns nil, nil if not found.
func (s *Store) GetTask(ctx context.Context, taskID string) (*store.Task, error) {
	task, err := scanTask(s.Pool.QueryRow(ctx, `SELECT `+taskColumns+` `+taskFrom+` WHERE t.task_id = $1`, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	prow, err := s.Pool.Query(ctx, `
SELECT tp.project_id, tp.section_id, sc.name
FROM task_projects tp LEFT JOIN sections sc ON sc.section_id = tp.section_id
WHERE tp.task_id = $1
ORDER BY tp.added_at ASC, tp.seq ASC`, taskID)
	if err != nil {
		return nil, err
	}
	for prow.Next() {
		var p store.Placement
		if err := prow.Scan(&p.ProjectID, &p.SectionID, &p.SectionName); err != nil {
			prow.Close()
			return nil, err
		}
		task.Placements = append(task.Placements, p)
	}
	prow.Close()
	if err := prow.Err(); err != nil {
		return nil, err
	}

	frow, err := s.Pool.Query(ctx, `
SELECT v.field_id, f.name, v.text_value, v.number_value, v.updated_at
FROM custom_field_values v JOIN custom_fields f ON f.field_id = v.field_id
WHERE v.task_id = $1
ORDER BY f.name ASC, v.field_id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer frow.Close()
	for frow.Next() {
		v := store.FieldValue{TaskID: taskID}
		var updatedAt int64
		if err := frow.Scan(&v.FieldID, &v.FieldName, &v.TextValue, &v.NumberValue, &updatedAt); err != nil {
			return nil, err
		}
		v.UpdatedAt = unix(updatedAt)
		task.FieldValues = append(task.FieldValues, v)
	}
	return task, frow.Err()
}

func (s *Store) queryTasks(ctx context.Context, q string, args ...any) ([]store.Task, error) {
	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) ListProjectTasks(ctx context.Context, projectID string, limit int) ([]store.Task, error) {
	if limit <= 0 {
		limit = models.DefaultTaskListLimit
	}
	list, err := s.queryTasks(ctx, `SELECT `+taskColumns+` `+taskFrom+`
JOIN task_projects tp ON tp.task_id = t.task_id
WHERE tp.project_id = $1
ORDER BY t.created_at DESC, tp.seq DESC
LIMIT $2`, projectID, limit)
	if err != nil || len(list) == 0 {
		return list, err
	}

	rows, err := s.Pool.Query(ctx, `
SELECT tp.task_id, tp.section_id, sc.name
FROM task_projects tp LEFT JOIN sections sc ON sc.section_id = tp.section_id
WHERE tp.project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byTask := make(map[string]store.Placement)
	for rows.Next() {
		var taskID string
		p := store.Placement{ProjectID: projectID}
		if err := rows.Scan(&taskID, &p.SectionID, &p.SectionName); err != nil {
			return nil, err
		}
		byTask[taskID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		if p, ok := byTask[list[i].TaskID]; ok {
			list[i].Placements = []store.Placement{p}
		}
	}
	return list, nil
}

func (s *Store) sectionInProject(ctx context.Context, sectionID, projectID string) error {
	var one int
	err := s.Pool.QueryRow(ctx, `SELECT 1 FROM sections WHERE section_id = $1 AND project_id = $2`, sectionID, projectID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("section %s in project %s: %w", sectionID, projectID, store.ErrNotFound)
	}
	return err
}

func (s *Store) AddTaskToProject(ctx context.Context, taskID, projectID string, sectionID *string) error {
	if sectionID != nil && *sectionID != "" {
		if err := s.sectionInProject(ctx, *sectionID, projectID); err != nil {
			return err
		}
	} else {
		sectionID = nil
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO task_projects(task_id, project_id, section_id, added_at) VALUES($1, $2, $3, $4)
ON CONFLICT (task_id, project_id) DO UPDATE SET section_id = EXCLUDED.section_id`,
		taskID, projectID, sectionID, time.Now().UTC().Unix())
	return err
}

func (s *Store) MoveTaskToSection(ctx context.Context, taskID, projectID, sectionID string) (bool, error) {
	var one int
	err := s.Pool.QueryRow(ctx, `SELECT 1 FROM task_projects WHERE task_id = $1 AND project_id = $2`, taskID, projectID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.sectionInProject(ctx, sectionID, projectID); err != nil {
		return false, err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE task_projects SET section_id = $1 WHERE task_id = $2 AND project_id = $3`, sectionID, taskID, projectID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		_, _ = s.Pool.Exec(ctx, `UPDATE tasks SET updated_at = $1 WHERE task_id = $2`, time.Now().UTC().Unix(), taskID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) execTaskUpdate(ctx context.Context, taskID, q string, args ...any) error {
	tag, err := s.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CompleteTask(ctx context.Context, taskID string, at time.Time) error {
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET status = $1, completed_at = $2, updated_at = $3 WHERE task_id = $4`,
		models.StatusDone, at.UTC().Unix(), time.Now().UTC().Unix(), taskID)
}

func (s *Store) SetTaskStatus(ctx context.Context, taskID, status string) error {
	if status == "" {
		return errors.New("status required")
	}
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET status = $1, updated_at = $2 WHERE task_id = $3`, status, time.Now().UTC().Unix(), taskID)
}

func (s *Store) SetTaskAssignee(ctx context.Context, taskID string, assigneeID *string) error {
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET assignee_id = $1, updated_at = $2 WHERE task_id = $3`, assigneeID, time.Now().UTC().Unix(), taskID)
}

func (s *Store) SetTaskDueDate(ctx context.Context, taskID string, due *time.Time) error {
	return s.execTaskUpdate(ctx, taskID, `UPDATE tasks SET due_date = $1, due_soon_notified_at = NULL, updated_at = $2 WHERE task_id = $3`,
		store.UnixOrNil(due), time.Now().UTC().Unix(), taskID)
}

func (s *Store) fieldExists(ctx context.Context, fieldID string) error {
	var one int
	err := s.Pool.QueryRow(ctx, `SELECT 1 FROM custom_fields WHERE field_id = $1`, fieldID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("custom field %s: %w", fieldID, store.ErrNotFound)
	}
	return err
}

func (s *Store) UpsertFieldText(ctx context.Context, taskID, fieldID, value string) error {
	if err := s.fieldExists(ctx, fieldID); err != nil {
		return err
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO custom_field_values(task_id, field_id, text_value, updated_at) VALUES($1, $2, $3, $4)
ON CONFLICT (task_id, field_id) DO UPDATE SET text_value = EXCLUDED.text_value, updated_at = EXCLUDED.updated_at`,
		taskID, fieldID, value, time.Now().UTC().Unix())
	return err
}

func (s *Store) UpsertFieldNumber(ctx context.Context, taskID, fieldID string, value float64) error {
	if err := s.fieldExists(ctx, fieldID); err != nil {
		return err
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO custom_field_values(task_id, field_id, number_value, updated_at) VALUES($1, $2, $3, $4)
ON CONFLICT (task_id, field_id) DO UPDATE SET number_value = EXCLUDED.number_value, updated_at = EXCLUDED.updated_at`,
		taskID, fieldID, value, time.Now().UTC().Unix())
	return err
}

func (s *Store) ListTasksDueBetween(ctx context.Context, from, to time.Time, limit int) ([]store.Task, error) {
	if limit <= 0 {
		limit = models.DefaultTaskListLimit
	}
	return s.queryTasks(ctx, `SELECT `+taskColumns+` `+taskFrom+`
WHERE t.status <> $1 AND t.due_date IS NOT NULL AND t.due_date BETWEEN $2 AND $3 AND t.due_soon_notified_at IS NULL
ORDER BY t.due_date ASC
LIMIT $4`, models.StatusDone, from.UTC().Unix(), to.UTC().Unix(), limit)
}

func (s *Store) MarkDueSoonNotified(ctx context.Context, taskID string, at time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE tasks SET due_soon_notified_at = $1 WHERE task_id = $2 AND due_soon_notified_at IS NULL`, at.UTC().Unix(), taskID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CreateTaskComment(ctx context.Context, taskID, authorID, body string) (string, error) {
	if body == "" {
		return "", errors.New("comment body required")
	}
	id := store.NewID()
	_, err := s.Pool.Exec(ctx, `INSERT INTO task_comments(comment_id, task_id, author_id, body, created_at) VALUES($1, $2, $3, $4, $5)`,
		id, taskID, authorID, body, time.Now().UTC().Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListTaskComments(ctx context.Context, taskID string) ([]store.TaskComment, error) {
	rows, err := s.Pool.Query(ctx, `SELECT comment_id, task_id, author_id, body, created_at FROM task_comments WHERE task_id = $1 ORDER BY created_at ASC, seq ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.TaskComment
	for rows.Next() {
		var c store.TaskComment
		var createdAt int64
		if err := rows.Scan(&c.CommentID, &c.TaskID, &c.AuthorID, &c.Body, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = unix(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanRule(row pgx.Row) (*store.Rule, error) {
	var r store.Rule
	var createdAt, updatedAt int64
	if err := row.Scan(&r.RuleID, &r.ProjectID, &r.Name, &r.TriggerType, &r.TriggerConfig, &r.Conditions, &r.Actions, &r.IsActive, &r.CreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = unix(createdAt)
	r.UpdatedAt = unix(updatedAt)
	return &r, nil
}

func (s *Store) queryRules(ctx context.Context, q string, args ...any) ([]store.Rule, error) {
	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func normalizeRule(r *store.Rule) error {
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

func (s *Store) CreateRule(ctx context.Context, r store.Rule) (string, error) {
	if err := normalizeRule(&r); err != nil {
		return "", err
	}
	id := store.NewID()
	now := time.Now().UTC().Unix()
	_, err := s.Pool.Exec(ctx, `
INSERT INTO automation_rules(rule_id, project_id, name, trigger_type, trigger_config, conditions, actions, is_active, created_by, created_at, updated_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, r.ProjectID, r.Name, r.TriggerType, r.TriggerConfig, r.Conditions, r.Actions, r.IsActive, r.CreatedBy, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetRule(ctx context.Context, ruleID string) (*store.Rule, error) {
	r, err := scanRule(s.Pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE rule_id = $1`, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (s *Store) ListRules(ctx context.Context, projectID string) ([]store.Rule, error) {
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE project_id = $1 ORDER BY created_at ASC, seq ASC`, projectID)
}

func (s *Store) ListActiveRules(ctx context.Context, projectID string) ([]store.Rule, error) {
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE project_id = $1 AND is_active ORDER BY created_at ASC, seq ASC`, projectID)
}

func (s *Store) UpdateRule(ctx context.Context, r store.Rule) error {
	if err := normalizeRule(&r); err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `
UPDATE automation_rules
SET name = $1, trigger_type = $2, trigger_config = $3, conditions = $4, actions = $5, is_active = $6, updated_at = $7
WHERE rule_id = $8`,
		r.Name, r.TriggerType, r.TriggerConfig, r.Conditions, r.Actions, r.IsActive, time.Now().UTC().Unix(), r.RuleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", r.RuleID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE automation_rules SET is_active = $1, updated_at = $2 WHERE rule_id = $3`, active, time.Now().UTC().Unix(), ruleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM automation_rules WHERE rule_id = $1`, ruleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateRuleExecution(ctx context.Context, e store.RuleExecution) error {
	if e.ExecutionID == "" {
		e.ExecutionID = store.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO rule_executions(execution_id, rule_id, task_id, status, message, created_at) VALUES($1, $2, $3, $4, $5, $6)`,
		e.ExecutionID, e.RuleID, e.TaskID, e.Status, e.Message, e.CreatedAt.UTC().Unix())
	return err
}

func (s *Store) ListRuleExecutions(ctx context.Context, ruleID string, limit int) ([]store.RuleExecution, error) {
	if limit <= 0 {
		limit = models.DefaultExecutionListLimit
	}
	rows, err := s.Pool.Query(ctx, `SELECT execution_id, rule_id, task_id, status, message, created_at FROM rule_executions WHERE rule_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2`, ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.RuleExecution
	for rows.Next() {
		var e store.RuleExecution
		var createdAt int64
		if err := rows.Scan(&e.ExecutionID, &e.RuleID, &e.TaskID, &e.Status, &e.Message, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = unix(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
