package logutil

import (
	"io"

	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanfei1991/sendtask/pkg/config"
	derrors "github.com/hanfei1991/sendtask/pkg/errors"
)

// InitLogger initializes the global logger from cfg. Without a log file
// the logger writes to w, normally stderr; stdout belongs to the recipe.
func InitLogger(cfg config.Config, w io.Writer) error {
	logCfg := &log.Config{
		Level: cfg.LogLevel,
		File: log.FileLogConfig{
			Filename: cfg.LogFile,
		},
	}

	var (
		logger *zap.Logger
		props  *log.ZapProperties
		err    error
	)
	if cfg.LogFile != "" {
		logger, props, err = log.InitLogger(logCfg)
	} else {
		ws := zapcore.AddSync(w)
		logger, props, err = log.InitLoggerWithWriteSyncer(logCfg, ws, ws)
	}
	if err != nil {
		return derrors.Wrap(derrors.ErrInitLogger, err)
	}
	log.ReplaceGlobals(logger, props)
	return nil
}
