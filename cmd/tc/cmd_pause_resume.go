package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"terminal-coder/internal/core"
	"terminal-coder/internal/store"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause a running project",
	Long: `Flips the project's status to Paused. A running tc run process
observes this on its next tick - pausing and resuming happen through the
database, not an in-process call, since the CLI and the Engine are
separate processes.`,
	RunE: runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused project",
	RunE:  runResume,
}

func runPause(cmd *cobra.Command, args []string) error {
	return setProjectStatus(core.ProjectStatusPaused, "paused")
}

func runResume(cmd *cobra.Command, args []string) error {
	return setProjectStatus(core.ProjectStatusRunning, "resumed")
}

func setProjectStatus(status core.ProjectStatus, verb string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project, err := db.GetSoleProject()
	if err != nil {
		return fmt.Errorf("no project found - run `tc init` first: %w", err)
	}

	if err := db.UpdateProjectStatus(project.ID, status); err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	fmt.Printf("Project %q %s\n", project.Name, verb)
	return nil
}
