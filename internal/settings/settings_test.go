package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, root, body string) {
	t.Helper()
	path := filepath.Join(root, File)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_File(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
tracker: redis
events: REDIS
step_timeout: 90s
redis:
  addr: cache:6379
`)

	s, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, TrackerRedis, s.Tracker)
	assert.Equal(t, EventsRedis, s.Events)
	assert.Equal(t, 90*time.Second, s.StepTimeout)
	assert.Equal(t, "cache:6379", s.Redis.Addr)
	assert.Equal(t, "flowspec:", s.Redis.Prefix, "unset nested keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "tracker: redis\n")
	t.Setenv("FLOWSPEC_TRACKER", "memory")
	t.Setenv("FLOWSPEC_REDIS_ADDR", "other:6380")

	s, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, TrackerMemory, s.Tracker)
	assert.Equal(t, "other:6380", s.Redis.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"tracker", "tracker: jira\n", "unknown tracker"},
		{"events", "events: kafka\n", "unknown events sink"},
		{"timeout", "step_timeout: -1s\n", "must not be negative"},
		{"yaml", "tracker: [\n", "failed to read settings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeSettings(t, root, tt.body)
			_, err := Load(root)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/p", "tools.yaml"), ResolvePath("/p", "tools.yaml"))
	assert.Equal(t, "/etc/tools.yaml", ResolvePath("/p", "/etc/tools.yaml"))
	assert.Equal(t, "", ResolvePath("/p", ""))
}
