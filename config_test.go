package gjinverse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gjinverse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
addr: "0.0.0.0:9000"
size: 4
tolerance: 1e-9
conn:
  pongWait: 30s
  pingPeriod: 20s
worker:
  delayBeforeReconnecting: 250ms
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", c.Addr)
	assert.Equal(t, 4, c.Size)
	assert.Equal(t, 1e-9, c.Tolerance)
	assert.Equal(t, 30*time.Second, c.Conn.PongWait)
	assert.Equal(t, 20*time.Second, c.Conn.PingPeriod)
	assert.Equal(t, 250*time.Millisecond, c.Worker.DelayBeforeReconnecting)

	// Keys missing from the file keep their defaults.
	assert.Equal(t, 2, c.Precision)
	assert.Equal(t, DefaultConnConfig().WriteWait, c.Conn.WriteWait)
	assert.Equal(t, DefaultWorkerConfig().MaxMessageSize, c.Worker.MaxMessageSize)
}

func TestLoadConfigInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "size", content: "size: 0\n"},
		{name: "precision", content: "precision: -1\n"},
		{name: "tolerance", content: "tolerance: -0.1\n"},
		{name: "ping", content: "conn:\n  pongWait: 1s\n  pingPeriod: 2s\n"},
		{name: "syntax", content: "size: [\n"},
		{name: "connSendChannel", content: "conn:\n  sendChannelLength: 0\n"},
		{name: "connMaxMessage", content: "conn:\n  maxMessageSize: 0\n"},
		{name: "workerSendChannel", content: "worker:\n  sendChannelLength: 0\n"},
		{name: "workerMaxMessage", content: "worker:\n  maxMessageSize: -1\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfigValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
