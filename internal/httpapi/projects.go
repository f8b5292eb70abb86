package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sravan-boop/taskflow/pkg/models"
)

func (a *App) registerProjectRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users", a.handleListUsers)
	mux.HandleFunc("POST /users", a.handleCreateUser)
	mux.HandleFunc("GET /projects", a.handleListProjects)
	mux.HandleFunc("POST /projects", a.handleCreateProject)
	mux.HandleFunc("GET /projects/{project}", a.handleGetProject)
	mux.HandleFunc("DELETE /projects/{project}", a.handleDeleteProject)
	mux.HandleFunc("GET /projects/{project}/sections", a.handleListSections)
	mux.HandleFunc("POST /projects/{project}/sections", a.handleCreateSection)
	mux.HandleFunc("GET /projects/{project}/fields", a.handleListFields)
	mux.HandleFunc("POST /projects/{project}/fields", a.handleCreateField)
}

// requireProject writes a 404 and returns false when the {project} path value is unknown.
func (a *App) requireProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("project")
	p, err := a.Store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	if p == nil {
		writeJSONError(w, http.StatusNotFound, "project not found")
		return "", false
	}
	return id, true
}

func (a *App) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, userToAPI(u))
	}
	writeJSON(w, out)
}

func (a *App) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body models.CreateUserRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.DisplayName) == "" {
		writeJSONError(w, http.StatusBadRequest, "display_name required")
		return
	}
	u, err := a.Store.CreateUser(r.Context(), body.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, userToAPI(u))
}

func (a *App) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectToAPI(p))
	}
	writeJSON(w, out)
}

func (a *App) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body models.CreateProjectRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name required")
		return
	}
	p, err := a.Store.CreateProject(r.Context(), body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	a.Hub.Publish(models.StreamEvent{Type: models.EventProjectUpdate, Action: "project_created", ProjectIDs: []string{p.ProjectID}})
	writeJSONStatus(w, http.StatusCreated, projectToAPI(p))
}

func (a *App) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.Store.GetProject(r.Context(), r.PathValue("project"))
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeJSONError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, projectToAPI(*p))
}

func (a *App) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("project")
	if err := a.Store.DeleteProject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	a.Hub.Publish(models.StreamEvent{Type: models.EventProjectUpdate, Action: "project_deleted", ProjectIDs: []string{id}})
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleListSections(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	sections, err := a.Store.ListSections(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.Section, 0, len(sections))
	for _, s := range sections {
		out = append(out, sectionToAPI(s))
	}
	writeJSON(w, out)
}

func (a *App) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var body models.CreateSectionRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name required")
		return
	}
	s, err := a.Store.CreateSection(r.Context(), r.PathValue("project"), body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sectionToAPI(s))
}

func (a *App) handleListFields(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	fields, err := a.Store.ListCustomFields(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.CustomField, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldToAPI(f))
	}
	writeJSON(w, out)
}

func validFieldType(t string) bool {
	switch t {
	case models.FieldTypeText, models.FieldTypeNumber, models.FieldTypeDate, models.FieldTypeSelect:
		return true
	}
	return false
}

func (a *App) handleCreateField(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	var body models.CreateFieldRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name required")
		return
	}
	if body.FieldType == "" {
		body.FieldType = models.FieldTypeText
	}
	if !validFieldType(body.FieldType) {
		writeError(w, fmt.Errorf("%w: unknown field type %q", errBadRequest, body.FieldType))
		return
	}
	f, err := a.Store.CreateCustomField(r.Context(), projectID, body.Name, body.FieldType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, fieldToAPI(f))
}

