package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"terminal-coder/internal/core"
)

const samplePlanJSON = `Here is the plan:
` + "```json" + `
{
  "project_name": "widget-service",
  "claude_md": "# widget-service\n",
  "phases": [
    {
      "name": "Setup",
      "description": "Scaffolding",
      "tasks": [
        {"name": "init-repo", "description": "init", "task_type": "coding", "depends_on": [], "acceptance_criteria": [], "relevant_files": []},
        {"name": "add-ci", "description": "ci", "task_type": "coding", "depends_on": ["init-repo"], "acceptance_criteria": [], "relevant_files": []}
      ]
    }
  ]
}
` + "```" + `
`

func TestParseFencedJSON(t *testing.T) {
	result, err := Parse(samplePlanJSON)
	require.NoError(t, err)
	require.Equal(t, "widget-service", result.ProjectName)
	require.Len(t, result.Phases, 1)
	require.Len(t, result.Phases[0].Tasks, 2)
}

func TestParseBareJSON(t *testing.T) {
	raw := `{"project_name": "bare", "phases": []}`
	result, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "bare", result.ProjectName)
	require.Empty(t, result.Phases)
}

func TestParseMissingJSON(t *testing.T) {
	_, err := Parse("no json here")
	require.Error(t, err)
}

func TestParseDefaultsProjectName(t *testing.T) {
	result, err := Parse(`{"phases": []}`)
	require.NoError(t, err)
	require.Equal(t, "unnamed", result.ProjectName)
}

type fakeStore struct {
	phases []core.Phase
	tasks  []core.Task
	deps   [][2]string
	events []core.Event
}

func (f *fakeStore) CreatePhase(p core.Phase) (core.Phase, error) {
	if p.ID == "" {
		p.ID = "phase-gen"
	}
	f.phases = append(f.phases, p)
	return p, nil
}

func (f *fakeStore) CreateTask(t core.Task) (core.Task, error) {
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeStore) AddTaskDependency(taskID, dependsOnID string) error {
	f.deps = append(f.deps, [2]string{taskID, dependsOnID})
	return nil
}

func (f *fakeStore) CreateEvent(evt core.Event) (core.Event, error) {
	f.events = append(f.events, evt)
	return evt, nil
}

func TestPersistResolvesDependencies(t *testing.T) {
	result, err := Parse(samplePlanJSON)
	require.NoError(t, err)

	store := &fakeStore{}
	require.NoError(t, Persist(store, "proj-1", result))

	require.Len(t, store.phases, 1)
	require.Len(t, store.tasks, 2)
	require.Len(t, store.deps, 1)
	require.Len(t, store.events, 1)

	var initID, ciID string
	for _, task := range store.tasks {
		switch task.Name {
		case "init-repo":
			initID = task.ID
		case "add-ci":
			ciID = task.ID
		}
	}
	require.Equal(t, [2]string{ciID, initID}, store.deps[0])
}

func TestPersistDefaultsUnknownTaskType(t *testing.T) {
	result := Result{
		Phases: []Phase{
			{Name: "p1", Tasks: []Task{{Name: "t1", TaskType: "not-a-real-type"}}},
		},
	}
	store := &fakeStore{}
	require.NoError(t, Persist(store, "proj-1", result))
	require.Equal(t, core.TaskTypeCoding, store.tasks[0].TaskType)
}
