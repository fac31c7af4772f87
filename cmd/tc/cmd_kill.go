package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"terminal-coder/internal/core"
	"terminal-coder/internal/session"
	"terminal-coder/internal/store"
)

var (
	killSessionID string
	killForce     bool
)

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Kill one active session, or all active sessions",
	RunE:  runKill,
}

func init() {
	killCmd.Flags().StringVar(&killSessionID, "session", "", "Session ID to kill (default: all active sessions)")
	killCmd.Flags().BoolVar(&killForce, "force", false, "Force-kill instead of attempting a graceful stop")
}

func runKill(cmd *cobra.Command, args []string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project, err := db.GetSoleProject()
	if err != nil {
		return fmt.Errorf("no project found - run `tc init` first: %w", err)
	}

	tmux := session.NewTmuxMultiplexer(project.Name)
	sessions := session.NewManager(tmux, db, session.DefaultConfig())

	ctx := context.Background()

	var targets []core.Session
	if killSessionID != "" {
		sess, err := db.GetSession(killSessionID)
		if err != nil {
			return fmt.Errorf("get session %s: %w", killSessionID, err)
		}
		targets = []core.Session{sess}
	} else {
		active, err := db.GetActiveSessions()
		if err != nil {
			return fmt.Errorf("list active sessions: %w", err)
		}
		targets = active
	}

	if len(targets) == 0 {
		fmt.Println("no active sessions to kill")
		return nil
	}

	for _, sess := range targets {
		if err := sessions.KillByRecord(ctx, sess, killForce); err != nil {
			return fmt.Errorf("kill session %s: %w", sess.ID, err)
		}
		fmt.Printf("killed session %s\n", sess.ID)
	}
	return nil
}
