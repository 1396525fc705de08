package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// writeTestConfig writes a sqlite-backed config file into a temp dir and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`platform: discord
approver_id: approver-1
discord:
  bot_token: test-token
database:
  driver: sqlite
  path: %s
`, filepath.Join(dir, "test.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// execCmd runs the root command with args and returns its combined output.
func execCmd(t *testing.T, in string, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if in != "" {
		cmd.SetIn(strings.NewReader(in))
	}
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("reportflow %s: %v\n%s", strings.Join(args, " "), err, buf.String())
	}
	return buf.String()
}

// execCmdErr runs the root command expecting an error.
func execCmdErr(t *testing.T, in string, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if in != "" {
		cmd.SetIn(strings.NewReader(in))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		t.Fatalf("reportflow %s succeeded, want error", strings.Join(args, " "))
	}
	return err
}

func TestVersionCmd(t *testing.T) {
	out := execCmd(t, "", "version")
	if !strings.Contains(out, "reportflow dev") {
		t.Errorf("expected output to contain 'reportflow dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out := execCmd(t, "", "version")
	if !strings.Contains(out, "reportflow 1.0.0") {
		t.Errorf("expected output to contain 'reportflow 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out := execCmd(t, "", "--help")
	if !strings.Contains(out, "Reportflow") {
		t.Errorf("expected help output to contain 'Reportflow', got: %s", out)
	}
	for _, sub := range []string{"serve", "db", "admin", "export", "sheets", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestExecuteSuccess(t *testing.T) {
	code := execute(newVersionCmd())
	if code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
}

func TestExecuteError(t *testing.T) {
	cmd := &cobra.Command{
		Use:           "failing",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("intentional error")
		},
	}
	code := execute(cmd)
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}
