package logger

import (
	"gdsync/internal/config"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is a no-op logger until Init runs.
var Log = zap.NewNop()

// Init writes JSON logs to ~/.gdsync/gdsync.log so they never interleave with
// the progress display. In debug mode everything goes to stderr instead.
func Init(debug bool) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{logPath()}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	l, err := cfg.Build()
	if err != nil {
		return
	}

	Log = l
}

func Sync() {
	_ = Log.Sync()
}

func logPath() string {
	dir, err := config.Dir()
	if err != nil {
		return "stderr"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "stderr"
	}

	return filepath.Join(dir, "gdsync.log")
}
