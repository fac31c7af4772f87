package deploy

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	run("commit", "--allow-empty", "-q", "-m", "init")
	return dir
}

func TestVerifyGitPushCleanRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := initGitRepo(t)
	v := NewVerifier(dir)
	require.NoError(t, v.VerifyGitPush(context.Background(), "origin"))
}

func TestVerifyGitPushNotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	v := NewVerifier(t.TempDir())
	require.Error(t, v.VerifyGitPush(context.Background(), "origin"))
}

func TestVerifyGiteaDeploymentUnreachable(t *testing.T) {
	if _, err := exec.LookPath("curl"); err != nil {
		t.Skip("curl not installed")
	}
	v := NewVerifier(t.TempDir())
	status := v.VerifyGiteaDeployment(context.Background(), "http://127.0.0.1:1", "owner/repo", "main")
	require.False(t, status.Success)
}

func TestVerifyAWSDeploymentMissingCLI(t *testing.T) {
	if _, err := exec.LookPath("aws"); err == nil {
		t.Skip("aws CLI is installed, behavior differs")
	}
	v := NewVerifier(t.TempDir())
	status := v.VerifyAWSDeployment(context.Background(), "my-service", "us-east-1")
	require.False(t, status.Success)
	require.Contains(t, status.Message, "not installed")
}
