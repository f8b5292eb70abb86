package httpapi

import (
	"net/http"

	"github.com/sravan-boop/taskflow/internal/tasks"
	"github.com/sravan-boop/taskflow/pkg/models"
)

func (a *App) registerTaskRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /projects/{project}/tasks", a.handleListTasks)
	mux.HandleFunc("POST /projects/{project}/tasks", a.handleCreateTask)
	mux.HandleFunc("GET /tasks/{task}", a.handleGetTask)
	mux.HandleFunc("PATCH /tasks/{task}", a.handleUpdateTask)
	mux.HandleFunc("POST /tasks/{task}/move", a.handleMoveTask)
	mux.HandleFunc("POST /tasks/{task}/complete", a.handleCompleteTask)
	mux.HandleFunc("GET /tasks/{task}/comments", a.handleListComments)
	mux.HandleFunc("POST /tasks/{task}/comments", a.handleCreateComment)
	mux.HandleFunc("PUT /tasks/{task}/fields/{field}", a.handleSetField)
}

func (a *App) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	list, err := a.Store.ListProjectTasks(r.Context(), projectID, queryLimit(r, models.DefaultTaskListLimit))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.Task, 0, len(list))
	for _, t := range list {
		out = append(out, taskToAPI(t))
	}
	writeJSON(w, out)
}

func (a *App) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body models.CreateTaskRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	t, err := a.Tasks.CreateTask(r.Context(), actor(r), tasks.CreateInput{
		Title:        body.Title,
		Status:       body.Status,
		AssigneeID:   body.AssigneeID,
		DueDate:      body.DueDate,
		StartDate:    body.StartDate,
		Recurrence:   recurrenceFromAPI(body.Recurrence),
		ProjectID:    r.PathValue("project"),
		SectionID:    body.SectionID,
		AlsoProjects: body.AlsoProject,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, taskToAPI(*t))
}

func (a *App) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := a.Store.GetTask(r.Context(), r.PathValue("task"))
	if err != nil {
		writeError(w, err)
		return
	}
	if t == nil {
		writeJSONError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, taskToAPI(*t))
}

func (a *App) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body models.UpdateTaskRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	t, err := a.Tasks.UpdateTask(r.Context(), r.PathValue("task"), tasks.UpdateInput{
		Status:       body.Status,
		AssigneeID:   body.AssigneeID,
		DueDate:      body.DueDate,
		ClearDueDate: body.ClearDueDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, taskToAPI(*t))
}

func (a *App) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	var body models.MoveTaskRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	taskID := r.PathValue("task")
	if err := a.Tasks.MoveTask(r.Context(), actor(r), taskID, body.ProjectID, body.SectionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task")
	next, err := a.Tasks.CompleteTask(r.Context(), actor(r), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := models.CompleteTaskResponse{TaskID: taskID}
	if next != "" {
		resp.NextOccurrence = &next
	}
	writeJSON(w, resp)
}

func (a *App) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := a.Store.ListTaskComments(r.Context(), r.PathValue("task"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.TaskComment, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentToAPI(c))
	}
	writeJSON(w, out)
}

func (a *App) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var body models.CreateCommentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	id, err := a.Tasks.AddComment(r.Context(), actor(r), r.PathValue("task"), body.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, models.IDResponse{ID: id})
}

func (a *App) handleSetField(w http.ResponseWriter, r *http.Request) {
	var body models.SetFieldRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	err := a.Tasks.SetFieldValue(r.Context(), actor(r), r.PathValue("task"), r.PathValue("field"), body.Text, body.Number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}
