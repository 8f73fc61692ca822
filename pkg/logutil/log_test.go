package logutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pingcap/log"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/sendtask/pkg/config"
)

func TestInitLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.NewConfig()
	require.NoError(t, InitLogger(cfg, &buf))

	log.L().Info("hidden by default")
	log.L().Warn("shown by default")
	_ = log.Sync()

	require.NotContains(t, buf.String(), "hidden by default")
	require.Contains(t, buf.String(), "shown by default")

	buf.Reset()
	cfg.LogLevel = "debug"
	require.NoError(t, InitLogger(cfg, &buf))
	log.L().Debug("debug line")
	require.Contains(t, buf.String(), "debug line")
}

func TestInitLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "send-task.log")
	cfg := config.NewConfig()
	cfg.LogFile = path
	require.NoError(t, InitLogger(cfg, &bytes.Buffer{}))

	log.L().Warn("to file")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
}

func TestInitLoggerBadLevel(t *testing.T) {
	cfg := config.NewConfig()
	cfg.LogLevel = "chatty"
	err := InitLogger(cfg, &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ErrInitLogger")
}
