package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"terminal-coder/internal/core"
	"terminal-coder/internal/store"
)

var (
	eventsTaskID string
	eventsLimit  int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show event history for the project or a single task",
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsTaskID, "task", "", "Filter by task ID")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Number of events to show")
}

func runEvents(cmd *cobra.Command, args []string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	var events []core.Event
	if eventsTaskID != "" {
		events, err = db.GetEventsByEntity("task", eventsTaskID)
		if err != nil {
			return fmt.Errorf("get events for task %s: %w", eventsTaskID, err)
		}
	} else {
		project, err := db.GetSoleProject()
		if err != nil {
			return fmt.Errorf("no project found - run `tc init` first: %w", err)
		}
		events, err = db.GetEventsByProject(project.ID)
		if err != nil {
			return fmt.Errorf("get events: %w", err)
		}
	}

	if len(events) == 0 {
		fmt.Println(statusDimStyle.Render("No events found."))
		return nil
	}

	if eventsLimit > 0 && len(events) > eventsLimit {
		events = events[len(events)-eventsLimit:]
	}

	headers := []string{"Time", "Type", "Entity", "Details"}
	var rows [][]string
	for _, evt := range events {
		details := evt.NewValue
		if evt.OldValue != "" && evt.NewValue != "" {
			details = evt.OldValue + " -> " + evt.NewValue
		}
		entity := evt.EntityType + "/" + shortID(evt.EntityID)
		rows = append(rows, []string{
			evt.CreatedAt.Format("15:04:05"),
			string(evt.EventType),
			entity,
			details,
		})
	}
	fmt.Print(renderTable(headers, rows))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
