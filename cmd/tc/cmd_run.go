package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"terminal-coder/internal/brief"
	"terminal-coder/internal/config"
	"terminal-coder/internal/core"
	"terminal-coder/internal/engine"
	"terminal-coder/internal/reporting"
	"terminal-coder/internal/review"
	"terminal-coder/internal/session"
	"terminal-coder/internal/store"
)

var headless bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestration engine until completion or interruption",
	Long: `Builds the Engine, Session Manager, Scheduler, Review Coordinator,
and Reporting Channel, and drives ticks until every task completes, a
deadlock is detected, or the process receives SIGINT/SIGTERM.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run without interactive console output (attach a console event logger instead)")
}

func runRun(cmd *cobra.Command, args []string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project, err := db.GetSoleProject()
	if err != nil {
		return fmt.Errorf("no project found - run `tc init` first: %w", err)
	}
	if project.Status != core.ProjectStatusPlanned && project.Status != core.ProjectStatusRunning && project.Status != core.ProjectStatusPaused {
		return fmt.Errorf("project status is %q - run `tc plan` first", project.Status)
	}

	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reportingServer := reporting.NewServer(cfg.Reporting.ListenAddr, paths.DBPath)
	if err := reportingServer.Start(); err != nil {
		return fmt.Errorf("start reporting channel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulKillWait())
		defer cancel()
		_ = reportingServer.Shutdown(shutdownCtx)
	}()

	tmux := session.NewTmuxMultiplexer(project.Name)
	sessionCfg := session.DefaultConfig()
	sessionCfg.ProjectDir = projectDir
	sessionCfg.ProjectName = project.Name
	sessionCfg.LogsDir = paths.LogsDir
	sessionCfg.PollInterval = cfg.PollInterval()
	sessionCfg.GracefulKillWait = cfg.GracefulKillWait()
	sessions := session.NewManager(tmux, db, sessionCfg)

	scheduler := core.NewScheduler(db)
	reviews := review.NewCoordinator(db)
	retries := core.NewRetryPolicy()

	briefRenderer, err := brief.New(db, reviews)
	if err != nil {
		return fmt.Errorf("build brief renderer: %w", err)
	}

	eventBus := core.NewEventBus()
	if headless {
		eventBus.Subscribe(func(evt core.Event) {
			fmt.Printf("[%s] %s %s: %s\n", evt.EventType, evt.EntityType, evt.EntityID, evt.Metadata)
		})
	}

	e := engine.New(db, sessions, scheduler, reviews, retries, briefRenderer, eventBus, engine.Config{
		ProjectID:    project.ID,
		ProjectDir:   projectDir,
		PollInterval: cfg.PollInterval(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Println("\nreceived interrupt, stopping engine after current tick...")
		e.Stop()
	}()

	fmt.Printf("Running project %q (%s)\n", project.Name, project.ID)
	if err := e.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("engine stopped: %w", err)
	}
	fmt.Println("Engine finished.")
	return nil
}
