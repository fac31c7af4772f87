// Package plan parses and persists the structured output of the upstream
// planning session: a JSON document describing phases, tasks, dependency
// names, and a generated CLAUDE.md. Generating that output is opaque
// upstream (a worker CLI invocation); this package only parses and stores
// what comes back, ported from
// original_source/src/tc/planning/plan_parser.py and plan_cmd.py.
package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"terminal-coder/internal/core"
)

// Task is one planned unit of work before it becomes a core.Task row -
// dependencies are still referenced by name, not by the ID a row gets once
// persisted.
type Task struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	TaskType            string   `json:"task_type"`
	DependsOn           []string `json:"depends_on"`
	AcceptanceCriteria  []string `json:"acceptance_criteria"`
	RelevantFiles       []string `json:"relevant_files"`
}

// Phase is one planned phase with its ordered tasks.
type Phase struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tasks       []Task `json:"tasks"`
}

// Result is the full decomposition of a PRD into phases and tasks, plus an
// optional CLAUDE.md to write alongside it.
type Result struct {
	ProjectName string  `json:"project_name"`
	ClaudeMD    string  `json:"claude_md"`
	Phases      []Phase `json:"phases"`
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// Parse extracts a JSON object from raw planning output (which may wrap it
// in a markdown code fence) and unmarshals it into a Result.
func Parse(raw string) (Result, error) {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return Result{}, fmt.Errorf("parse planning output: %w", err)
	}
	if result.ProjectName == "" {
		result.ProjectName = "unnamed"
	}
	return result, nil
}

func extractJSON(raw string) (string, error) {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in planning output")
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unclosed JSON object in planning output")
}

// Store is the subset of *store.Store Persist needs.
type Store interface {
	CreatePhase(p core.Phase) (core.Phase, error)
	CreateTask(t core.Task) (core.Task, error)
	AddTaskDependency(taskID, dependsOnID string) error
	CreateEvent(evt core.Event) (core.Event, error)
}

var validTaskTypes = map[core.TaskType]bool{
	core.TaskTypeCoding:         true,
	core.TaskTypeReview:         true,
	core.TaskTypeSecurityReview: true,
	core.TaskTypeDeployment:     true,
	core.TaskTypeVerification:   true,
	core.TaskTypePlanning:       true,
}

// Persist inserts every phase and task from result into the store under
// projectID, resolving depends_on names to task IDs in a second pass (a
// task may depend on one declared later in the same document).
func Persist(s Store, projectID string, result Result) error {
	taskIDByName := make(map[string]string)

	for phaseSeq, phase := range result.Phases {
		phaseRow, err := s.CreatePhase(core.Phase{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Name:      phase.Name,
			Sequence:  phaseSeq + 1,
			Status:    core.PhaseStatusPending,
		})
		if err != nil {
			return fmt.Errorf("create phase %q: %w", phase.Name, err)
		}

		for taskSeq, task := range phase.Tasks {
			taskType := core.TaskType(task.TaskType)
			if !validTaskTypes[taskType] {
				taskType = core.TaskTypeCoding
			}
			taskRow, err := s.CreateTask(core.Task{
				ID:          uuid.NewString(),
				PhaseID:     phaseRow.ID,
				Name:        task.Name,
				Description: task.Description,
				Sequence:    taskSeq + 1,
				Status:      core.TaskStatusPending,
				TaskType:    taskType,
				MaxRetries:  core.GlobalMaxRetries,
			})
			if err != nil {
				return fmt.Errorf("create task %q: %w", task.Name, err)
			}
			taskIDByName[task.Name] = taskRow.ID
		}
	}

	for _, phase := range result.Phases {
		for _, task := range phase.Tasks {
			taskID, ok := taskIDByName[task.Name]
			if !ok {
				continue
			}
			for _, depName := range task.DependsOn {
				depID, ok := taskIDByName[depName]
				if !ok {
					continue
				}
				if err := s.AddTaskDependency(taskID, depID); err != nil {
					return fmt.Errorf("add dependency %s -> %s: %w", task.Name, depName, err)
				}
			}
		}
	}

	_, err := s.CreateEvent(core.Event{
		ProjectID:  projectID,
		EntityType: "project",
		EntityID:   projectID,
		EventType:  core.EventTypeStatusChanged,
		OldValue:   string(core.ProjectStatusPlanning),
		NewValue:   string(core.ProjectStatusPlanned),
	})
	return err
}
