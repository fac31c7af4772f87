package bootstrap

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"terminal-coder/internal/core"
)

const defaultCheckTimeout = 30 * time.Second

// Store is the subset of *store.Store the Verifier needs.
type Store interface {
	CreateBootstrapCheck(c core.BootstrapCheck) (core.BootstrapCheck, error)
}

// VerificationReport summarizes a full bootstrap verification run.
type VerificationReport struct {
	Total   int
	Passed  int
	Failed  int
	Results []CheckResult
}

// Verifier orchestrates bootstrap verification: parse bootstrap.md, run
// every check, persist each result.
type Verifier struct {
	store      Store
	projectDir string
}

// NewVerifier builds a Verifier bound to a Store and a project directory.
func NewVerifier(store Store, projectDir string) *Verifier {
	return &Verifier{store: store, projectDir: projectDir}
}

// Verify parses bootstrapPath and runs every check concurrently via
// errgroup - an improvement over the original's sequential loop, justified
// because each check is an independent shell invocation with no shared
// state between them beyond the final report.
func (v *Verifier) Verify(ctx context.Context, projectID, bootstrapPath string) (VerificationReport, error) {
	checks, err := ParseBootstrap(bootstrapPath)
	if err != nil {
		return VerificationReport{}, err
	}

	results := make([]CheckResult, len(checks))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	for i, check := range checks {
		i, check := i, check
		g.Go(func() error {
			result := RunCheck(gctx, check, v.projectDir, defaultCheckTimeout)
			results[i] = result

			mu.Lock()
			defer mu.Unlock()
			_, err := v.store.CreateBootstrapCheck(core.BootstrapCheck{
				ProjectID: projectID,
				Name:      result.Name,
				CheckType: string(result.CheckType),
				Passed:    result.Passed,
				Stdout:    result.Stdout,
				Stderr:    result.Stderr,
				ExitCode:  result.ExitCode,
			})
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return VerificationReport{}, err
	}

	report := VerificationReport{Total: len(results), Results: results}
	for _, r := range results {
		if r.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report, nil
}
