// Package brief renders the Markdown briefs piped into a worker's stdin
// when it is spawned: one template per task kind (coding, review, security
// review, deployment) plus a standalone planning brief for the initial PRD
// breakdown. Ported from the teacher's text-templating approach to static
// document generation, using the standard library's text/template and
// embed.FS since no templating library appears anywhere in the example
// corpus for this kind of static document composition.
package brief

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"terminal-coder/internal/core"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Store is the subset of *store.Store the Renderer needs to gather context
// for a brief: the task's phase and project, sibling tasks already
// completed in the same phase, and the dependency chain back to a review
// or security-review task's source coding task.
type Store interface {
	GetTask(id string) (core.Task, error)
	GetPhase(id string) (core.Phase, error)
	GetProject(id string) (core.Project, error)
	GetTasksByPhase(phaseID string) ([]core.Task, error)
	GetPhasesByProject(projectID string) ([]core.Phase, error)
	GetTaskDependencies(taskID string) ([]string, error)
}

// FilesChanged resolves the files a completed coding task touched, for
// review and security-review briefs. Implemented by *review.Coordinator.
type FilesChanged interface {
	GetFilesChanged(task core.Task) ([]string, error)
}

// Renderer renders task briefs from the embedded template set.
type Renderer struct {
	store Store
	files FilesChanged
	tmpl  *template.Template
}

// New parses the embedded templates and constructs a Renderer.
func New(store Store, files FilesChanged) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing brief templates: %w", err)
	}
	return &Renderer{store: store, files: files, tmpl: tmpl}, nil
}

// RenderTaskBrief renders the brief appropriate to task.TaskType. This is
// the Engine's sole entry point (engine.BriefProvider) - which template to
// use, and what context to gather for it, is this package's concern, not
// the orchestration loop's.
func (r *Renderer) RenderTaskBrief(task core.Task, retryContext string) (string, error) {
	switch task.TaskType {
	case core.TaskTypeReview:
		return r.renderReviewBrief(task, retryContext)
	case core.TaskTypeSecurityReview:
		return r.renderSecurityBrief(task, retryContext)
	case core.TaskTypeDeployment, core.TaskTypeVerification:
		return r.renderDeployBrief(task, retryContext)
	default:
		return r.renderCodingBrief(task, retryContext)
	}
}

type codingBriefData struct {
	Task               core.Task
	Phase              core.Phase
	TotalPhases        int
	ProjectOverview    string
	RetryContext       string
	CompletedTasks     []core.Task
	ReviewFindings     []string
	AcceptanceCriteria []string
	RelevantFiles      []string
}

func (r *Renderer) renderCodingBrief(task core.Task, retryContext string) (string, error) {
	phase, err := r.store.GetPhase(task.PhaseID)
	if err != nil {
		return "", err
	}
	project, err := r.store.GetProject(phase.ProjectID)
	if err != nil {
		return "", err
	}
	phases, err := r.store.GetPhasesByProject(phase.ProjectID)
	if err != nil {
		return "", err
	}
	siblings, err := r.store.GetTasksByPhase(task.PhaseID)
	if err != nil {
		return "", err
	}

	var completed []core.Task
	for _, t := range siblings {
		if t.ID != task.ID && t.Status == core.TaskStatusCompleted {
			completed = append(completed, t)
		}
	}

	findings, err := r.reviewFindings(task)
	if err != nil {
		return "", err
	}

	data := codingBriefData{
		Task:            task,
		Phase:           phase,
		TotalPhases:     len(phases),
		ProjectOverview: project.Name,
		RetryContext:    retryContext,
		CompletedTasks:  completed,
		ReviewFindings:  findings,
	}
	return r.execute("task_brief.md.tmpl", data)
}

// reviewFindings walks task's dependency chain for a prior review task that
// requested changes, so a retried or follow-up coding brief surfaces what
// the reviewer flagged instead of just the raw retry stderr.
func (r *Renderer) reviewFindings(task core.Task) ([]string, error) {
	deps, err := r.store.GetTaskDependencies(task.ID)
	if err != nil {
		return nil, err
	}
	var findings []string
	for _, depID := range deps {
		dep, err := r.store.GetTask(depID)
		if err != nil {
			continue
		}
		if dep.TaskType == core.TaskTypeReview || dep.TaskType == core.TaskTypeSecurityReview {
			if dep.ErrorContext != "" {
				findings = append(findings, dep.ErrorContext)
			}
		}
	}
	return findings, nil
}

type reviewBriefData struct {
	Task         core.Task
	SourceTask   core.Task
	FilesChanged []string
}

func (r *Renderer) sourceTask(task core.Task) (core.Task, error) {
	deps, err := r.store.GetTaskDependencies(task.ID)
	if err != nil {
		return core.Task{}, err
	}
	if len(deps) == 0 {
		return core.Task{}, fmt.Errorf("task %s has no source task dependency", task.ID)
	}
	return r.store.GetTask(deps[0])
}

func (r *Renderer) renderReviewBrief(task core.Task, _ string) (string, error) {
	source, err := r.sourceTask(task)
	if err != nil {
		return "", err
	}
	files, err := r.files.GetFilesChanged(source)
	if err != nil {
		return "", err
	}
	return r.execute("review_brief.md.tmpl", reviewBriefData{
		Task:         task,
		SourceTask:   source,
		FilesChanged: files,
	})
}

func (r *Renderer) renderSecurityBrief(task core.Task, _ string) (string, error) {
	source, err := r.sourceTask(task)
	if err != nil {
		return "", err
	}
	files, err := r.files.GetFilesChanged(source)
	if err != nil {
		return "", err
	}
	return r.execute("security_brief.md.tmpl", reviewBriefData{
		Task:         task,
		SourceTask:   source,
		FilesChanged: files,
	})
}

type deployBriefData struct {
	Task              core.Task
	Phase             core.Phase
	DeploymentSteps   []string
	VerificationSteps []string
}

func (r *Renderer) renderDeployBrief(task core.Task, _ string) (string, error) {
	phase, err := r.store.GetPhase(task.PhaseID)
	if err != nil {
		return "", err
	}
	return r.execute("deploy_brief.md.tmpl", deployBriefData{
		Task:  task,
		Phase: phase,
	})
}

type planningBriefData struct {
	PRDContent string
}

// RenderPlanningBrief renders the initial PRD-breakdown brief. Not part of
// engine.BriefProvider - `tc plan` calls this directly before any Task
// rows exist to dispatch through the Engine.
func (r *Renderer) RenderPlanningBrief(prdContent string) (string, error) {
	return r.execute("planning_brief.md.tmpl", planningBriefData{PRDContent: prdContent})
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
