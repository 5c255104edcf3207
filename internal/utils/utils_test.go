package utils

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrylevesque/csms/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "csms.log")
	rf, err := NewRotatingFile(path)
	require.NoError(t, err)
	defer rf.Close()

	day := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	rf.now = func() time.Time { return day }
	rf.day = "2026-05-01"

	_, err = rf.Write([]byte("first\n"))
	require.NoError(t, err)

	day = day.Add(2 * time.Minute)
	_, err = rf.Write([]byte("second\n"))
	require.NoError(t, err)

	old, err := os.ReadFile(path + ".2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(old))

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(cur))
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, closer, err := NewLogger(config.LogConfig{Level: "debug", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)
	log.Info().Str("k", "v").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNewLoggerUnknownOutput(t *testing.T) {
	_, _, err := NewLogger(config.LogConfig{Output: "syslog"})
	require.Error(t, err)
}

func TestCustomError(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(http.StatusBadGateway, "upstream failed", base)
	assert.ErrorIs(t, err, base)

	code, msg := StatusOf(err)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "upstream failed", msg)

	code, _ = StatusOf(base)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Code: 404, Message: nope", New(404, "nope").Error())
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/abs/x", ResolvePath("/abs/x"))
	assert.Equal(t, "", ResolvePath(""))
	assert.True(t, filepath.IsAbs(ResolvePath("rel/x")) || GetProjectRoot() == ".")
}
