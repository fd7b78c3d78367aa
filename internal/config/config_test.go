package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
server_url: ws://localhost:3000/socket
world_id: shadowfell
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:3000/socket", cfg.ServerURL)
	assert.Equal(t, "shadowfell", cfg.WorldID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Contains(t, cfg.DocumentTypes, "Item")
	assert.Contains(t, cfg.PassThrough, "RollTable")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server_url: ws://file:3000/socket
world_id: from-file
kafka_brokers: [filehost:9092]
`)
	t.Setenv("WORLD_ID", "from-env")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.WorldID)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "ws://file:3000/socket", cfg.ServerURL)
}

func TestLoadRejectsIncomplete(t *testing.T) {
	path := writeConfig(t, `world_id: lonely`)
	_, err := Load(path)
	assert.Error(t, err)
}
