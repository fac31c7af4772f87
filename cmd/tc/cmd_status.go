package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"terminal-coder/internal/core"
	"terminal-coder/internal/store"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project status with a phase/task summary",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true)
	statusDimStyle    = lipgloss.NewStyle().Faint(true)
)

type statusTaskJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

type statusPhaseJSON struct {
	Sequence int              `json:"sequence"`
	Name     string           `json:"name"`
	Status   string           `json:"status"`
	Tasks    []statusTaskJSON `json:"tasks"`
}

type statusOutput struct {
	Project struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Status     string `json:"status"`
		ProjectDir string `json:"project_dir"`
	} `json:"project"`
	Phases []statusPhaseJSON `json:"phases"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project, err := db.GetSoleProject()
	if err != nil {
		return fmt.Errorf("no project found - run `tc init` first: %w", err)
	}

	phases, err := db.GetPhasesByProject(project.ID)
	if err != nil {
		return fmt.Errorf("list phases: %w", err)
	}

	if statusJSON {
		return printStatusJSON(db, project, phases)
	}

	fmt.Printf("\n%s  status: %s\n", statusHeaderStyle.Render(project.Name), project.Status)
	fmt.Printf("  dir: %s\n\n", project.ProjectDir)

	if len(phases) == 0 {
		fmt.Println(statusDimStyle.Render("No phases yet. Run `tc plan` to decompose the PRD."))
		return nil
	}

	headers := []string{"Seq", "Phase", "Status", "Pending", "Running", "Done", "Failed"}
	var rows [][]string
	for _, phase := range phases {
		tasks, err := db.GetTasksByPhase(phase.ID)
		if err != nil {
			return fmt.Errorf("list tasks for phase %s: %w", phase.Name, err)
		}
		pending, running, done, failed := countTaskStatuses(tasks)
		rows = append(rows, []string{
			fmt.Sprintf("%d", phase.Sequence),
			phase.Name,
			string(phase.Status),
			fmt.Sprintf("%d", pending),
			fmt.Sprintf("%d", running),
			fmt.Sprintf("%d", done),
			fmt.Sprintf("%d", failed),
		})
	}
	fmt.Print(renderTable(headers, rows))
	return nil
}

func countTaskStatuses(tasks []core.Task) (pending, running, done, failed int) {
	for _, t := range tasks {
		switch t.Status {
		case core.TaskStatusPending, core.TaskStatusQueued:
			pending++
		case core.TaskStatusRunning, core.TaskStatusRetrying:
			running++
		case core.TaskStatusCompleted:
			done++
		case core.TaskStatusFailed, core.TaskStatusPaused:
			failed++
		}
	}
	return
}

func printStatusJSON(db *store.Store, project core.Project, phases []core.Phase) error {
	var out statusOutput
	out.Project.ID = project.ID
	out.Project.Name = project.Name
	out.Project.Status = string(project.Status)
	out.Project.ProjectDir = project.ProjectDir

	for _, phase := range phases {
		tasks, err := db.GetTasksByPhase(phase.ID)
		if err != nil {
			return fmt.Errorf("list tasks for phase %s: %w", phase.Name, err)
		}
		pj := statusPhaseJSON{Sequence: phase.Sequence, Name: phase.Name, Status: string(phase.Status)}
		for _, t := range tasks {
			pj.Tasks = append(pj.Tasks, statusTaskJSON{ID: t.ID, Name: t.Name, Type: string(t.TaskType), Status: string(t.Status)})
		}
		out.Phases = append(out.Phases, pj)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// renderTable draws a minimal fixed-width table, column widths computed from
// the widest cell in each column plus two spaces of padding on the right.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, style lipgloss.Style) {
		for i, cell := range cells {
			sb.WriteString(style.Width(widths[i] + 2).Render(cell))
		}
		sb.WriteString("\n")
	}
	writeRow(headers, statusHeaderStyle)
	for _, row := range rows {
		writeRow(row, lipgloss.NewStyle())
	}
	return sb.String()
}
