package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"terminal-coder/internal/config"
	"terminal-coder/internal/core"
	"terminal-coder/internal/reporting"
	"terminal-coder/internal/store"
)

var (
	initPRDPath       string
	initBootstrapPath string
	initProjectName   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new project under .tc/",
	Long: `Creates the .tc/ state directory, copies the PRD (and bootstrap.md,
if supplied) into the project, writes the integration config the worker's
assistant tooling reads to find the Reporting Channel, and creates the
Project row.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPRDPath, "prd", "", "Path to the PRD/requirements document (required)")
	initCmd.Flags().StringVar(&initBootstrapPath, "bootstrap", "", "Path to bootstrap.md (optional)")
	initCmd.Flags().StringVar(&initProjectName, "name", "", "Project name (default: directory name)")
	initCmd.MarkFlagRequired("prd")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	name := initProjectName
	if name == "" {
		name = filepath.Base(projectDir)
	}

	prdDest := filepath.Join(paths.PlansDir, "prd.md")
	if err := copyFile(initPRDPath, prdDest); err != nil {
		return fmt.Errorf("copy PRD: %w", err)
	}

	bootstrapDest := ""
	if initBootstrapPath != "" {
		bootstrapDest = filepath.Join(projectDir, "bootstrap.md")
		if err := copyFile(initBootstrapPath, bootstrapDest); err != nil {
			return fmt.Errorf("copy bootstrap.md: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(paths.ConfigPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	if err := reporting.WriteIntegrationConfig(projectDir, cfg.Reporting.ListenAddr); err != nil {
		return fmt.Errorf("write integration config: %w", err)
	}

	db, err := store.Open(paths.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	project := core.Project{
		ID:            uuid.NewString(),
		Name:          name,
		ProjectDir:    projectDir,
		PRDPath:       prdDest,
		BootstrapPath: bootstrapDest,
		Status:        core.ProjectStatusInitialized,
	}
	project, err = db.CreateProject(project)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	fmt.Printf("Initialized project %q (%s) at %s\n", project.Name, project.ID, projectDir)
	fmt.Printf("  PRD:       %s\n", prdDest)
	if bootstrapDest != "" {
		fmt.Printf("  Bootstrap: %s\n", bootstrapDest)
	}
	fmt.Printf("  Database:  %s\n", paths.DBPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
