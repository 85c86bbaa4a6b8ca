package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-web-agent/internal/config"
)

func TestNewJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "run.log")
	log, err := New(config.LogConfig{Level: "warn", Format: "json"}, out)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("llm decision failed")
	_ = log.Sync()

	raw, err := os.ReadFile(out)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "llm decision failed", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "console"})
	assert.Error(t, err)
}
