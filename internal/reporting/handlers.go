package reporting

import (
	"encoding/json"
	"fmt"

	"terminal-coder/internal/core"
	"terminal-coder/internal/store"
)

// ToolError is returned when a request fails precondition validation rather
// than hitting an unexpected internal error. Handlers report it as
// {"error": "..."} instead of an RPC-level error so a misbehaving worker
// script gets the same shape back either way.
type ToolError struct {
	msg string
}

func (e *ToolError) Error() string { return e.msg }

func toolErrorf(format string, args ...interface{}) *ToolError {
	return &ToolError{msg: fmt.Sprintf(format, args...)}
}

// openRepo opens a fresh Store handle for a single request. Handlers always
// pair this with a deferred Close - the Reporting Channel never holds a
// Store open across requests, since a worker process may be the one that
// deletes and recreates the project directory underneath it.
func (s *Server) openRepo() (*store.Store, error) {
	return store.Open(s.dbPath)
}

// projectIDForTask resolves the project a task belongs to via its phase -
// Task only carries a PhaseID, so every handler that emits an Event (which
// is keyed by project) looks the phase up first.
func projectIDForTask(repo *store.Store, task core.Task) (string, error) {
	phase, err := repo.GetPhase(task.PhaseID)
	if err != nil {
		return "", err
	}
	return phase.ProjectID, nil
}

type progressParams struct {
	TaskID          string `json:"task_id"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	PercentComplete *int   `json:"percent_complete,omitempty"`
}

func (s *Server) reportProgress(raw json.RawMessage) (interface{}, error) {
	var p progressParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	repo, err := s.openRepo()
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	task, err := repo.GetTask(p.TaskID)
	if err != nil {
		return nil, err
	}
	if task.Status != core.TaskStatusRunning {
		return nil, toolErrorf("task %s is not running (status: %s)", p.TaskID, task.Status)
	}
	projectID, err := projectIDForTask(repo, task)
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"status":           p.Status,
		"message":          p.Message,
		"percent_complete": p.PercentComplete,
	})
	if err != nil {
		return nil, err
	}

	if _, err := repo.CreateEvent(core.Event{
		ProjectID:  projectID,
		EntityType: "task",
		EntityID:   p.TaskID,
		EventType:  core.EventTypeStatusChanged,
		NewValue:   p.Status,
		Metadata:   string(metadata),
	}); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"message": "progress reported: " + p.Message,
	}, nil
}

type completionParams struct {
	TaskID       string   `json:"task_id"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed,omitempty"`
	TestResults  string   `json:"test_results,omitempty"`
}

func (s *Server) reportCompletion(raw json.RawMessage) (interface{}, error) {
	var p completionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	repo, err := s.openRepo()
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	task, err := repo.GetTask(p.TaskID)
	if err != nil {
		return nil, err
	}
	if task.Status != core.TaskStatusRunning {
		return nil, toolErrorf("task %s is not running (status: %s)", p.TaskID, task.Status)
	}
	projectID, err := projectIDForTask(repo, task)
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"summary":       p.Summary,
		"files_changed": p.FilesChanged,
		"test_results":  p.TestResults,
	})
	if err != nil {
		return nil, err
	}

	if err := repo.UpdateTaskStatus(p.TaskID, core.TaskStatusCompleted); err != nil {
		return nil, err
	}
	if _, err := repo.CreateEvent(core.Event{
		ProjectID:  projectID,
		EntityType: "task",
		EntityID:   p.TaskID,
		EventType:  core.EventTypeStatusChanged,
		OldValue:   string(core.TaskStatusRunning),
		NewValue:   string(core.TaskStatusCompleted),
		Metadata:   string(metadata),
	}); err != nil {
		return nil, err
	}

	summary := p.Summary
	if len(summary) > 100 {
		summary = summary[:100]
	}
	return map[string]interface{}{
		"success": true,
		"message": "task completed: " + summary,
	}, nil
}

type failureParams struct {
	TaskID         string   `json:"task_id"`
	ErrorType      string   `json:"error_type"`
	ErrorMessage   string   `json:"error_message"`
	AttemptedFixes []string `json:"attempted_fixes,omitempty"`
}

func (s *Server) reportFailure(raw json.RawMessage) (interface{}, error) {
	var p failureParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	repo, err := s.openRepo()
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	task, err := repo.GetTask(p.TaskID)
	if err != nil {
		return nil, err
	}
	if task.Status != core.TaskStatusRunning {
		return nil, toolErrorf("task %s is not running (status: %s)", p.TaskID, task.Status)
	}
	projectID, err := projectIDForTask(repo, task)
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"error_type":      p.ErrorType,
		"error_message":   p.ErrorMessage,
		"attempted_fixes": p.AttemptedFixes,
	})
	if err != nil {
		return nil, err
	}

	errMsg := p.ErrorMessage
	if len(errMsg) > 2000 {
		errMsg = errMsg[:2000]
	}
	if err := repo.UpdateTaskError(p.TaskID, errMsg); err != nil {
		return nil, err
	}
	if _, err := repo.CreateEvent(core.Event{
		ProjectID:  projectID,
		EntityType: "task",
		EntityID:   p.TaskID,
		EventType:  core.EventTypeError,
		NewValue:   p.ErrorType,
		Metadata:   string(metadata),
	}); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"message": "failure reported: " + p.ErrorType,
	}, nil
}

type reviewParams struct {
	TaskID   string   `json:"task_id"`
	Verdict  string   `json:"verdict"`
	Findings []string `json:"findings"`
	Summary  string   `json:"summary"`
}

func (s *Server) reportReview(raw json.RawMessage) (interface{}, error) {
	var p reviewParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	repo, err := s.openRepo()
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	task, err := repo.GetTask(p.TaskID)
	if err != nil {
		return nil, err
	}
	if task.TaskType != core.TaskTypeReview && task.TaskType != core.TaskTypeSecurityReview {
		return nil, toolErrorf("task %s is not a review task (type: %s)", p.TaskID, task.TaskType)
	}
	projectID, err := projectIDForTask(repo, task)
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"verdict":  p.Verdict,
		"findings": p.Findings,
		"summary":  p.Summary,
	})
	if err != nil {
		return nil, err
	}

	eventType := core.EventTypeStatusChanged
	if p.Verdict == "critical_issues" {
		eventType = core.EventTypeError
	}

	if _, err := repo.CreateEvent(core.Event{
		ProjectID:  projectID,
		EntityType: "task",
		EntityID:   p.TaskID,
		EventType:  eventType,
		NewValue:   p.Verdict,
		Metadata:   string(metadata),
	}); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"message": "review submitted: " + p.Verdict,
	}, nil
}

type getContextParams struct {
	TaskID  string   `json:"task_id"`
	Include []string `json:"include,omitempty"`
}

func (s *Server) getContext(raw json.RawMessage) (interface{}, error) {
	var p getContextParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	repo, err := s.openRepo()
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	task, err := repo.GetTask(p.TaskID)
	if err != nil {
		return nil, err
	}
	projectID, err := projectIDForTask(repo, task)
	if err != nil {
		return nil, err
	}

	includeAll := len(p.Include) == 0
	includes := make(map[string]bool, len(p.Include))
	for _, name := range p.Include {
		includes[name] = true
	}

	context := map[string]interface{}{}

	if includeAll || includes["completed_tasks"] {
		tasks, err := repo.GetTasksByStatus(projectID, core.TaskStatusCompleted)
		if err != nil {
			return nil, err
		}
		completed := make([]map[string]interface{}, 0, len(tasks))
		for _, t := range tasks {
			completed = append(completed, map[string]interface{}{
				"id":   t.ID,
				"name": t.Name,
				"type": string(t.TaskType),
			})
		}
		context["completed_tasks"] = completed
	}

	if includeAll || includes["current_phase"] {
		phases, err := repo.GetPhasesByProject(projectID)
		if err != nil {
			return nil, err
		}
		for _, phase := range phases {
			if phase.ID == task.PhaseID {
				context["current_phase"] = map[string]interface{}{
					"name":     phase.Name,
					"sequence": phase.Sequence,
					"status":   string(phase.Status),
				}
				break
			}
		}
	}

	if includeAll || includes["review_findings"] {
		events, err := repo.GetEventsByEntity("task", p.TaskID)
		if err != nil {
			return nil, err
		}
		findings := []interface{}{}
		for _, evt := range events {
			if evt.Metadata == "" {
				continue
			}
			var meta struct {
				Findings []interface{} `json:"findings"`
			}
			if err := json.Unmarshal([]byte(evt.Metadata), &meta); err != nil {
				continue
			}
			findings = append(findings, meta.Findings...)
		}
		context["review_findings"] = findings
	}

	return context, nil
}

type humanInputParams struct {
	TaskID   string   `json:"task_id"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Context  string   `json:"context,omitempty"`
}

func (s *Server) requestHumanInput(raw json.RawMessage) (interface{}, error) {
	var p humanInputParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	repo, err := s.openRepo()
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	task, err := repo.GetTask(p.TaskID)
	if err != nil {
		return nil, err
	}
	projectID, err := projectIDForTask(repo, task)
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"question": p.Question,
		"options":  p.Options,
		"context":  p.Context,
	})
	if err != nil {
		return nil, err
	}

	if _, err := repo.CreateEvent(core.Event{
		ProjectID:  projectID,
		EntityType: "task",
		EntityID:   p.TaskID,
		EventType:  core.EventTypeHumanInputRequested,
		Metadata:   string(metadata),
	}); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"message": "human input requested; check the dashboard for a response",
	}, nil
}
