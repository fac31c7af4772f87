package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"terminal-coder/internal/core"
	"terminal-coder/internal/store"
)

var (
	resetTaskID string
	resetPhase  int
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a task or phase back to pending",
	Long: `Clears a task's retry count, error context, and timestamps and puts
it back to Pending, discarding its prior session attempts. --phase does the
same for every task in a phase. Exactly one of --task or --phase is
required.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetTaskID, "task", "", "Task ID to reset")
	resetCmd.Flags().IntVar(&resetPhase, "phase", 0, "Phase sequence number to reset")
}

func runReset(cmd *cobra.Command, args []string) error {
	if resetTaskID == "" && resetPhase == 0 {
		return fmt.Errorf("specify --task or --phase to reset")
	}
	if resetTaskID != "" && resetPhase != 0 {
		return fmt.Errorf("specify only one of --task or --phase")
	}

	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project, err := db.GetSoleProject()
	if err != nil {
		return fmt.Errorf("no project found - run `tc init` first: %w", err)
	}

	if resetTaskID != "" {
		return resetTask(db, resetTaskID)
	}

	phases, err := db.GetPhasesByProject(project.ID)
	if err != nil {
		return fmt.Errorf("list phases: %w", err)
	}
	var target *core.Phase
	for i := range phases {
		if phases[i].Sequence == resetPhase {
			target = &phases[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("phase %d not found", resetPhase)
	}

	tasks, err := db.GetTasksByPhase(target.ID)
	if err != nil {
		return fmt.Errorf("list tasks for phase: %w", err)
	}

	if err := db.ResetPhase(target.ID); err != nil {
		return fmt.Errorf("reset phase: %w", err)
	}
	for _, t := range tasks {
		if err := db.ResetTask(t.ID); err != nil {
			return fmt.Errorf("reset task %s: %w", t.ID, err)
		}
		if err := db.DeleteSessionsByTask(t.ID); err != nil {
			return fmt.Errorf("delete sessions for task %s: %w", t.ID, err)
		}
	}

	fmt.Printf("Phase %q (%d tasks) reset to pending\n", target.Name, len(tasks))
	return nil
}

func resetTask(db *store.Store, taskID string) error {
	task, err := db.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("get task %s: %w", taskID, err)
	}

	if err := db.ResetTask(task.ID); err != nil {
		return fmt.Errorf("reset task: %w", err)
	}
	if err := db.DeleteSessionsByTask(task.ID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}

	fmt.Printf("Task %q reset to pending\n", task.Name)
	return nil
}
