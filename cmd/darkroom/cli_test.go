package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig drops a minimal TOML config pointing at temp directories
// and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	watch := filepath.Join(base, "incoming")
	if err := os.MkdirAll(watch, 0o755); err != nil {
		t.Fatalf("mkdir watch: %v", err)
	}
	content := fmt.Sprintf("[paths]\nwatch_dir = %q\nlog_dir = %q\n",
		watch, filepath.Join(base, "logs"))
	path := filepath.Join(base, "darkroom.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Errorf("output missing confirmation: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Error("second init without --overwrite should fail")
	}
}

func TestConfigPathResolvesExplicitFile(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(out, cfgPath) {
		t.Errorf("output = %q, want it to contain %s", out, cfgPath)
	}
}

func TestConfigShowListsSettings(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"max_photos", "patient_id_prefix", "incoming"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSessionsEmptyJournal(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "No sessions recorded yet.") {
		t.Errorf("output = %q, want empty journal notice", out)
	}
}

func TestErrorsEmptyJournal(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "errors")
	if err != nil {
		t.Fatalf("errors: %v", err)
	}
	if !strings.Contains(out, "No file errors recorded.") {
		t.Errorf("output = %q, want empty journal notice", out)
	}
}

func TestStatusReportsNotRunning(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Errorf("output = %q, want daemon not running", out)
	}
	if !strings.Contains(out, "Sessions") {
		t.Errorf("output = %q, want session totals", out)
	}
}
