package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"terminal-coder/internal/bootstrap"
	"terminal-coder/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run bootstrap checks (tool prerequisites, credentials, env vars)",
	Long: `Parses bootstrap.md and runs every prerequisite check concurrently,
persisting each result to the database. Exits non-zero if any check fails.`,
	RunE: runVerify,
}

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func runVerify(cmd *cobra.Command, args []string) error {
	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project, err := db.GetSoleProject()
	if err != nil {
		return fmt.Errorf("no project found - run `tc init` first: %w", err)
	}

	bootstrapPath := project.BootstrapPath
	if bootstrapPath == "" {
		fmt.Println("no bootstrap.md supplied for this project, running builtin checks only")
		tmp, err := os.CreateTemp("", "tc-bootstrap-*.md")
		if err != nil {
			return fmt.Errorf("create placeholder bootstrap file: %w", err)
		}
		tmp.Close()
		defer os.Remove(tmp.Name())
		bootstrapPath = tmp.Name()
	}

	v := bootstrap.NewVerifier(db, projectDir)
	report, err := v.Verify(context.Background(), project.ID, bootstrapPath)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	for _, r := range report.Results {
		mark := passStyle.Render("PASS")
		if !r.Passed {
			mark = failStyle.Render("FAIL")
		}
		fmt.Printf("  [%s] %-24s %s\n", mark, r.Name, string(r.CheckType))
		if !r.Passed && r.Stderr != "" {
			fmt.Printf("         %s\n", r.Stderr)
		}
	}
	fmt.Printf("\n%d/%d checks passed\n", report.Passed, report.Total)

	if report.Failed > 0 {
		os.Exit(1)
	}
	return nil
}
