package cli

import (
	"io"
	"os"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/natefinch/lumberjack"
)

// SetupLogging creates and configures a logger with the specified level.
// When logFile is set, output is also written to that file, rotated by size.
// The returned function closes the log file.
func SetupLogging(level, logFile string) (logger.ILogger, func()) {
	var out io.Writer = os.Stderr
	closeFn := func() {}

	if logFile != "" {
		file := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 3,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, file)
		closeFn = func() { _ = file.Close() }
	}

	log := logger.NewConsoleLogger(out)

	switch strings.ToLower(level) {
	case "trace":
		log.SetLevel(logger.LevelTrace)
	case "debug":
		log.SetLevel(logger.LevelDebug)
	case "warn", "warning":
		log.SetLevel(logger.LevelWarning)
	case "error":
		log.SetLevel(logger.LevelError)
	default:
		log.SetLevel(logger.LevelInfo)
	}

	logger.SetDefaultLogger(log)
	logger.SetCtxFallbackLogger(log)

	return log, closeFn
}
