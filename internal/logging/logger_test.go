package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogging(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = Setup(Config{Stderr: "never"})
		_ = Close()
	})
}

func TestNewLogger_CachesPerComponent(t *testing.T) {
	resetLogging(t)

	a := NewLogger("test-component")
	b := NewLogger("test-component")
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Equal(t, "test-component", a.Data["component"])
	assert.NotSame(t, a, NewLogger("other-component"))
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	resetLogging(t)
	t.Setenv(LevelEnv, "")

	path := filepath.Join(t.TempDir(), "logs", "sheetsync.log")
	require.NoError(t, Setup(Config{Level: "debug", Format: "json", File: path, Stderr: "never"}))

	logger := NewLogger("json-component")
	logger.WithField("document_id", 7).Debug("persisting document")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line))
	assert.Equal(t, "persisting document", line["msg"])
	assert.Equal(t, "json-component", line["component"])
	assert.Equal(t, "debug", line["level"])
	assert.EqualValues(t, 7, line["document_id"])
}

func TestSetup_ReconfiguresExistingLoggers(t *testing.T) {
	resetLogging(t)
	t.Setenv(LevelEnv, "")

	logger := NewLogger("reconfigured")
	require.NoError(t, Setup(Config{Level: "error", Stderr: "never"}))
	assert.Equal(t, logrus.ErrorLevel, logger.Logger.GetLevel())

	require.NoError(t, Setup(Config{Level: "debug", Stderr: "never"}))
	assert.Equal(t, logrus.DebugLevel, logger.Logger.GetLevel())
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
		env  string
		want logrus.Level
	}{
		{"default", "", "", logrus.InfoLevel},
		{"configured", "warn", "", logrus.WarnLevel},
		{"env wins", "warn", "debug", logrus.DebugLevel},
		{"invalid falls back", "loud", "", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(LevelEnv, tt.env)
			if got := levelFor(Config{Level: tt.cfg}); got != tt.want {
				t.Fatalf("levelFor(%q) with env %q = %v, want %v", tt.cfg, tt.env, got, tt.want)
			}
		})
	}
}

func TestSetup_BadFilePath(t *testing.T) {
	resetLogging(t)

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := Setup(Config{File: filepath.Join(blocker, "nested", "log"), Stderr: "never"})
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "logs", "a.log"), expandPath("~/logs/a.log"))
	assert.Equal(t, "/var/log/a.log", expandPath("/var/log/a.log"))
	assert.Equal(t, "", expandPath(""))
}
