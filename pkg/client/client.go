// Package client provides a Go SDK for the taskflow HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sravan-boop/taskflow/pkg/models"
)

// Client calls the taskflow HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://127.0.0.1:4317"
	APIKey     string       // optional; sent as X-API-Key
	ActorID    string       // optional; sent as X-Actor-ID and used for rule-added comments
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL. APIKey is optional.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

// APIError is a non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	e, ok := err.(*APIError)
	return ok && e.StatusCode == http.StatusNotFound
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	if c.ActorID != "" {
		req.Header.Set("X-Actor-ID", c.ActorID)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errBody.Error}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	resp, err := c.do(ctx, method, path, "application/json", rd)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return path + "?limit=" + strconv.Itoa(limit)
}

// Health returns the /health response.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return &out, err
}

// ListUsers returns all users.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.doJSON(ctx, http.MethodGet, "/users", nil, &out)
	return out, err
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, displayName string) (*models.User, error) {
	var out models.User
	err := c.doJSON(ctx, http.MethodPost, "/users", models.CreateUserRequest{DisplayName: displayName}, &out)
	return &out, err
}

// ListProjects returns all projects with task and rule counts.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := c.doJSON(ctx, http.MethodGet, "/projects", nil, &out)
	return out, err
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	var out models.Project
	err := c.doJSON(ctx, http.MethodPost, "/projects", models.CreateProjectRequest{Name: name}, &out)
	return &out, err
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var out models.Project
	err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID), nil, &out)
	return &out, err
}

// DeleteProject deletes a project with its sections, fields, rules and placements.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/projects/"+url.PathEscape(projectID), nil, nil)
}

// ListSections returns a project's sections in position order.
func (c *Client) ListSections(ctx context.Context, projectID string) ([]models.Section, error) {
	var out []models.Section
	err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/sections", nil, &out)
	return out, err
}

// CreateSection appends a section to a project.
func (c *Client) CreateSection(ctx context.Context, projectID, name string) (*models.Section, error) {
	var out models.Section
	err := c.doJSON(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/sections", models.CreateSectionRequest{Name: name}, &out)
	return &out, err
}

// ListFields returns a project's custom fields.
func (c *Client) ListFields(ctx context.Context, projectID string) ([]models.CustomField, error) {
	var out []models.CustomField
	err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/fields", nil, &out)
	return out, err
}

// CreateField creates a custom field. An empty fieldType means text.
func (c *Client) CreateField(ctx context.Context, projectID, name, fieldType string) (*models.CustomField, error) {
	var out models.CustomField
	err := c.doJSON(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/fields", models.CreateFieldRequest{Name: name, FieldType: fieldType}, &out)
	return &out, err
}

// ListTasks returns up to limit tasks of a project, newest first. limit <= 0 uses the server default.
func (c *Client) ListTasks(ctx context.Context, projectID string, limit int) ([]models.Task, error) {
	var out []models.Task
	err := c.doJSON(ctx, http.MethodGet, withLimit("/projects/"+url.PathEscape(projectID)+"/tasks", limit), nil, &out)
	return out, err
}

// CreateTask creates a task in projectID. TASK_ADDED rules run after the call returns.
func (c *Client) CreateTask(ctx context.Context, projectID string, req models.CreateTaskRequest) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/tasks", req, &out)
	return &out, err
}

// GetTask returns a task with placements and field values.
func (c *Client) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &out)
	return &out, err
}

// UpdateTask changes status, assignee or due date.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID), req, &out)
	return &out, err
}

// MoveTask moves a task to another section of a project it is placed in.
func (c *Client) MoveTask(ctx context.Context, taskID, projectID, sectionID string) error {
	return c.doJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/move", models.MoveTaskRequest{ProjectID: projectID, SectionID: sectionID}, nil)
}

// CompleteTask completes a task and reports its next occurrence, if one was spawned.
func (c *Client) CompleteTask(ctx context.Context, taskID string) (*models.CompleteTaskResponse, error) {
	var out models.CompleteTaskResponse
	err := c.doJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/complete", nil, &out)
	return &out, err
}

// ListComments returns a task's comments, oldest first.
func (c *Client) ListComments(ctx context.Context, taskID string) ([]models.TaskComment, error) {
	var out []models.TaskComment
	err := c.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID)+"/comments", nil, &out)
	return out, err
}

// AddComment posts a comment as the client's actor.
func (c *Client) AddComment(ctx context.Context, taskID, body string) (string, error) {
	var out models.IDResponse
	err := c.doJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/comments", models.CreateCommentRequest{Body: body}, &out)
	return out.ID, err
}

// SetFieldText sets a custom field's text slot.
func (c *Client) SetFieldText(ctx context.Context, taskID, fieldID, value string) error {
	return c.doJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID)+"/fields/"+url.PathEscape(fieldID), models.SetFieldRequest{Text: &value}, nil)
}

// SetFieldNumber sets a custom field's number slot.
func (c *Client) SetFieldNumber(ctx context.Context, taskID, fieldID string, value float64) error {
	return c.doJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID)+"/fields/"+url.PathEscape(fieldID), models.SetFieldRequest{Number: &value}, nil)
}

// ListRules returns a project's rules in creation order.
func (c *Client) ListRules(ctx context.Context, projectID string) ([]models.Rule, error) {
	var out []models.Rule
	err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/rules", nil, &out)
	return out, err
}

// CreateRule creates a rule in projectID.
func (c *Client) CreateRule(ctx context.Context, projectID string, rule models.Rule) (*models.Rule, error) {
	var out models.Rule
	err := c.doJSON(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/rules", rule, &out)
	return &out, err
}

// ImportRules creates every rule in a YAML rule file.
func (c *Client) ImportRules(ctx context.Context, projectID string, yamlDoc io.Reader) ([]string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/rules/import", "application/yaml", yamlDoc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	var out models.ImportRulesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.RuleIDs, nil
}

// ExportRules returns a project's rules as a YAML rule file.
func (c *Client) ExportRules(ctx context.Context, projectID string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/rules/export", "", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// GetRule returns one rule.
func (c *Client) GetRule(ctx context.Context, ruleID string) (*models.Rule, error) {
	var out models.Rule
	err := c.doJSON(ctx, http.MethodGet, "/rules/"+url.PathEscape(ruleID), nil, &out)
	return &out, err
}

// UpdateRule replaces a rule's name, trigger, conditions, actions and active flag.
func (c *Client) UpdateRule(ctx context.Context, ruleID string, rule models.Rule) (*models.Rule, error) {
	var out models.Rule
	err := c.doJSON(ctx, http.MethodPut, "/rules/"+url.PathEscape(ruleID), rule, &out)
	return &out, err
}

// SetRuleActive enables or disables a rule.
func (c *Client) SetRuleActive(ctx context.Context, ruleID string, active bool) (*models.Rule, error) {
	var out models.Rule
	err := c.doJSON(ctx, http.MethodPut, "/rules/"+url.PathEscape(ruleID)+"/active", models.SetRuleActiveRequest{Active: active}, &out)
	return &out, err
}

// DeleteRule deletes a rule and its execution log.
func (c *Client) DeleteRule(ctx context.Context, ruleID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/rules/"+url.PathEscape(ruleID), nil, nil)
}

// ListExecutions returns a rule's newest execution-log rows first.
func (c *Client) ListExecutions(ctx context.Context, ruleID string, limit int) ([]models.RuleExecution, error) {
	var out []models.RuleExecution
	err := c.doJSON(ctx, http.MethodGet, withLimit("/rules/"+url.PathEscape(ruleID)+"/executions", limit), nil, &out)
	return out, err
}
