package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"terminal-coder/internal/core"
	"terminal-coder/internal/store"
)

var retryTaskID string

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-queue a failed or paused task",
	Long: `Moves a Failed or Paused task back to Queued. The scheduler dispatches
Queued review and security-review tasks on a later tick; coding,
deployment and verification tasks are only picked up from Pending, so a
requeued task of those kinds is not dispatched again by this command.
Retrying a task in any other status is rejected.`,
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().StringVar(&retryTaskID, "task", "", "Task ID to retry (required)")
	retryCmd.MarkFlagRequired("task")
}

func runRetry(cmd *cobra.Command, args []string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	task, err := db.GetTask(retryTaskID)
	if err != nil {
		return fmt.Errorf("get task %s: %w", retryTaskID, err)
	}

	if task.Status != core.TaskStatusFailed && task.Status != core.TaskStatusPaused {
		return fmt.Errorf("task status is %q, can only retry failed/paused tasks", task.Status)
	}

	if err := db.RequeueTask(task.ID); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	fmt.Printf("Task %q queued for retry\n", task.Name)
	return nil
}
