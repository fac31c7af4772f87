package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"terminal-coder/internal/brief"
	"terminal-coder/internal/core"
	"terminal-coder/internal/plan"
	"terminal-coder/internal/store"
)

var replan bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Decompose the PRD into phases and tasks",
	Long: `Renders a planning brief from the project's PRD, spawns a worker CLI
session to decompose it into structured JSON, and persists the resulting
phases and tasks. Generating the decomposition happens in an opaque
upstream worker invocation; this command only parses and stores its
output.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&replan, "replan", false, "Re-run planning, overwriting the existing plan")
}

func runPlan(cmd *cobra.Command, args []string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project, err := db.GetSoleProject()
	if err != nil {
		return fmt.Errorf("no project found - run `tc init` first: %w", err)
	}
	if project.Status == core.ProjectStatusPlanned && !replan {
		return fmt.Errorf("project already planned - pass --replan to re-run")
	}

	prdContent, err := os.ReadFile(project.PRDPath)
	if err != nil {
		return fmt.Errorf("read PRD: %w", err)
	}

	if err := db.UpdateProjectStatus(project.ID, core.ProjectStatusPlanning); err != nil {
		return err
	}

	renderer, err := brief.New(db, nil)
	if err != nil {
		return fmt.Errorf("build brief renderer: %w", err)
	}
	prompt, err := renderer.RenderPlanningBrief(string(prdContent))
	if err != nil {
		_ = db.UpdateProjectStatus(project.ID, core.ProjectStatusFailed)
		return fmt.Errorf("render planning brief: %w", err)
	}

	fmt.Println("Running planning session...")
	rawOutput, err := invokePlanner(prompt, projectDir)
	if err != nil {
		_ = db.UpdateProjectStatus(project.ID, core.ProjectStatusFailed)
		return fmt.Errorf("planning session failed: %w", err)
	}

	result, err := plan.Parse(rawOutput)
	if err != nil {
		_ = db.UpdateProjectStatus(project.ID, core.ProjectStatusFailed)
		return fmt.Errorf("parse planning output: %w", err)
	}

	if err := plan.Persist(db, project.ID, result); err != nil {
		_ = db.UpdateProjectStatus(project.ID, core.ProjectStatusFailed)
		return fmt.Errorf("persist plan: %w", err)
	}

	if result.ClaudeMD != "" {
		if err := os.WriteFile(filepath.Join(projectDir, "CLAUDE.md"), []byte(result.ClaudeMD), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not write CLAUDE.md: %v\n", err)
		} else {
			fmt.Println("Wrote CLAUDE.md")
		}
	}

	planJSONPath := filepath.Join(paths.PlansDir, "plan.json")
	planBytes, err := json.MarshalIndent(result, "", "  ")
	if err == nil {
		_ = os.WriteFile(planJSONPath, planBytes, 0644)
	}

	if err := db.UpdateProjectStatus(project.ID, core.ProjectStatusPlanned); err != nil {
		return err
	}

	totalTasks := 0
	for _, p := range result.Phases {
		totalTasks += len(p.Tasks)
	}
	fmt.Println("\nPlanning complete!")
	fmt.Printf("  Phases: %d\n", len(result.Phases))
	fmt.Printf("  Tasks:  %d\n", totalTasks)
	fmt.Printf("  Plan saved: %s\n", planJSONPath)
	fmt.Printf("\nNext: tc run -C %s\n", projectDir)
	return nil
}

// invokePlanner spawns the worker CLI with prompt on stdin and returns its
// stdout, ported from original_source/src/tc/planning/planner.py's
// subprocess invocation.
func invokePlanner(prompt, projectDir string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "claude", "-p", "--output-format", "text")
	cmd.Dir = projectDir
	cmd.Stdin = bytes.NewBufferString(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			msg := stderr.String()
			if len(msg) > 500 {
				msg = msg[:500]
			}
			return "", fmt.Errorf("claude exited with code %d: %s", exitErr.ExitCode(), msg)
		}
		return "", fmt.Errorf("invoke claude: %w", err)
	}
	return stdout.String(), nil
}
