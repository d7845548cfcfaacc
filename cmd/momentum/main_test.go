package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maloquacious/momentum/internal/config"
	"github.com/maloquacious/momentum/internal/store"
)

func writeConfig(t *testing.T, dir, dbPath string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	data := "[database]\npath = \"" + dbPath + "\"\n\n[logging]\nlevel = \"error\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "momentum ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPlaceholderCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, filepath.Join(dir, "app.db"))

	for _, name := range []string{"backup", "migrate"} {
		t.Run(name, func(t *testing.T) {
			if err := execute(context.Background(), name, "--config", cfgPath); err != nil {
				t.Errorf("%s error = %v", name, err)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "app.db")); !os.IsNotExist(err) {
		t.Errorf("placeholder commands must not create the database, stat err = %v", err)
	}
}

func TestRunMissingConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvConfigPath, "")

	err := execute(context.Background(), "run", "--config", "missing.toml")
	if err == nil {
		t.Fatal("expected error for missing configuration")
	}
	// falls back to /etc/momentum/config.toml, which is absent on test hosts
	if _, statErr := os.Stat(config.SystemConfigPath); os.IsNotExist(statErr) && !errors.Is(err, config.ErrNotFound) {
		t.Errorf("run error = %v, want ErrNotFound", err)
	}
}

func TestRunBootstrapFailure(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	if err := os.Mkdir(dbPath, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := writeConfig(t, dir, dbPath)

	err := execute(context.Background(), "run", "--config", cfgPath)
	if !errors.Is(err, store.ErrFilesystem) {
		t.Errorf("run error = %v, want ErrFilesystem", err)
	}
}
