package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WritesAlertsFileAndReportsCount(t *testing.T) {
	root := t.TempDir()
	docDir := filepath.Join(root, "iccat", "2026", "1", "v1")
	require.NoError(t, os.MkdirAll(docDir, 0o755))

	meta := map[string]any{
		"document_type":   "circular_letters",
		"title":           "Mandatory reporting notice",
		"published_date":  "2026-02-10",
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "metadata.json"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "extracted.txt"), []byte("Members shall submit reports by 12/03/2026."), 0o644))

	outPath := filepath.Join(t.TempDir(), "alerts.json")
	err = run(CLI{StorageRoot: root, Output: outPath, Days: 0})
	require.NoError(t, err)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var payload alertsPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Len(t, payload.Alerts, 1)
	assert.Equal(t, "REPORTING_DEADLINE", payload.Alerts[0].AlertType)
}

func TestRun_EmptyStorageRootWritesEmptyArray(t *testing.T) {
	root := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "alerts.json")

	err := run(CLI{StorageRoot: root, Output: outPath, Days: 0})
	require.NoError(t, err)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alerts":[]}`, string(raw))
}
