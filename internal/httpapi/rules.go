package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/sravan-boop/taskflow/internal/automation"
	"github.com/sravan-boop/taskflow/pkg/models"
)

func (a *App) registerRuleRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /projects/{project}/rules", a.handleListRules)
	mux.HandleFunc("POST /projects/{project}/rules", a.handleCreateRule)
	mux.HandleFunc("POST /projects/{project}/rules/import", a.handleImportRules)
	mux.HandleFunc("GET /projects/{project}/rules/export", a.handleExportRules)
	mux.HandleFunc("GET /rules/{rule}", a.handleGetRule)
	mux.HandleFunc("PUT /rules/{rule}", a.handleUpdateRule)
	mux.HandleFunc("DELETE /rules/{rule}", a.handleDeleteRule)
	mux.HandleFunc("PUT /rules/{rule}/active", a.handleSetRuleActive)
	mux.HandleFunc("GET /rules/{rule}/executions", a.handleListExecutions)
}

func (a *App) handleListRules(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	rules, err := a.Store.ListRules(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.Rule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleToAPI(rule))
	}
	writeJSON(w, out)
}

func (a *App) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	var body ruleRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	rule, err := ruleFromAPI(projectID, actor(r), body)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := a.Store.CreateRule(r.Context(), rule)
	if err != nil {
		writeError(w, err)
		return
	}
	a.writeRule(w, r, id, http.StatusCreated)
}

// handleImportRules creates every rule of a YAML rule file, all or nothing on validation.
func (a *App) handleImportRules(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	rs, err := automation.LoadRuleSet(r.Body)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	resp := models.ImportRulesResponse{RuleIDs: []string{}}
	for _, spec := range rs.Rules {
		rule, err := spec.ToRule(projectID, actor(r))
		if err != nil {
			writeError(w, err)
			return
		}
		id, err := a.Store.CreateRule(r.Context(), rule)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.RuleIDs = append(resp.RuleIDs, id)
	}
	writeJSONStatus(w, http.StatusCreated, resp)
}

func (a *App) handleExportRules(w http.ResponseWriter, r *http.Request) {
	projectID, ok := a.requireProject(w, r)
	if !ok {
		return
	}
	rules, err := a.Store.ListRules(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	rs := &automation.RuleSet{}
	for _, rule := range rules {
		spec, err := automation.SpecFromRule(rule)
		if err != nil {
			writeError(w, fmt.Errorf("rule %s: %w", rule.RuleID, err))
			return
		}
		rs.Rules = append(rs.Rules, spec)
	}
	var buf bytes.Buffer
	if err := automation.WriteRuleSet(&buf, rs); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(buf.Bytes())
}

func (a *App) writeRule(w http.ResponseWriter, r *http.Request, ruleID string, code int) {
	rule, err := a.Store.GetRule(r.Context(), ruleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rule == nil {
		writeJSONError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSONStatus(w, code, ruleToAPI(*rule))
}

func (a *App) handleGetRule(w http.ResponseWriter, r *http.Request) {
	a.writeRule(w, r, r.PathValue("rule"), http.StatusOK)
}

func (a *App) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := r.PathValue("rule")
	existing, err := a.Store.GetRule(r.Context(), ruleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeJSONError(w, http.StatusNotFound, "rule not found")
		return
	}
	var body ruleRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.IsActive == nil {
		body.IsActive = &existing.IsActive
	}
	rule, err := ruleFromAPI(existing.ProjectID, existing.CreatedBy, body)
	if err != nil {
		writeError(w, err)
		return
	}
	rule.RuleID = ruleID
	if err := a.Store.UpdateRule(r.Context(), rule); err != nil {
		writeError(w, err)
		return
	}
	a.writeRule(w, r, ruleID, http.StatusOK)
}

func (a *App) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.DeleteRule(r.Context(), r.PathValue("rule")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleSetRuleActive(w http.ResponseWriter, r *http.Request) {
	var body models.SetRuleActiveRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ruleID := r.PathValue("rule")
	if err := a.Store.SetRuleActive(r.Context(), ruleID, body.Active); err != nil {
		writeError(w, err)
		return
	}
	a.writeRule(w, r, ruleID, http.StatusOK)
}

func (a *App) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	ruleID := r.PathValue("rule")
	rule, err := a.Store.GetRule(r.Context(), ruleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rule == nil {
		writeJSONError(w, http.StatusNotFound, "rule not found")
		return
	}
	execs, err := a.Store.ListRuleExecutions(r.Context(), ruleID, queryLimit(r, models.DefaultExecutionListLimit))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]models.RuleExecution, 0, len(execs))
	for _, e := range execs {
		out = append(out, executionToAPI(e))
	}
	writeJSON(w, out)
}
