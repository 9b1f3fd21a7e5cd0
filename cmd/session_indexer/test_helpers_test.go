package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-indexer/internal/config"
	"github.com/jonathan/session-indexer/internal/types"
)

var seedRecords = []types.RawRecord{
	{ExternalID: "rec-1", Filename: "GamePlan_A_Jenny_Arshiya_2024-09-15"},
	{ExternalID: "rec-2", Title: "Kelvin & Aarnav Week 4 (2024-03-15)"},
	{ExternalID: "rec-3", Filename: "Jenny_Arshiya_Week3_2024-10-01"},
}

// runCLI executes the root command in-process and captures its output.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// memoryConfig writes a config for a memory store seeded with seedRecords.
func memoryConfig(t *testing.T) string {
	t.Helper()
	t.Setenv(config.ConfigPathEnvVar, "")
	dir := t.TempDir()

	seed, err := json.Marshal(seedRecords)
	require.NoError(t, err)
	seedPath := filepath.Join(dir, "seed.json")
	writeFile(t, seedPath, string(seed))

	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`
log:
  level: error
store:
  driver: memory
  seed_file: %s
reindex:
  batch_size: 2
`, seedPath))
	return cfgPath
}

// sqliteConfig writes a config for an empty SQLite store in a temp dir.
func sqliteConfig(t *testing.T) string {
	t.Helper()
	t.Setenv(config.ConfigPathEnvVar, "")
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`
log:
  level: error
store:
  driver: sqlite
  sqlite_path: %s
`, filepath.Join(dir, "sessions.db")))
	return cfgPath
}
