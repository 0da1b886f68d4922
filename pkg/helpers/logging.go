package helpers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const logFile = "romshim.log"

// InitLogging configures the global logger with a rotated file under dir
// and a console writer on stderr. Debug enables debug-level output.
func InitLogging(dir string, debug bool) error {
	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return err
	}

	logWriters := []io.Writer{
		&lumberjack.Logger{
			Filename:   filepath.Join(dir, logFile),
			MaxSize:    1,
			MaxBackups: 2,
		},
		zerolog.ConsoleWriter{Out: os.Stderr},
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log.Logger = log.Output(io.MultiWriter(logWriters...)).
		Level(level).
		With().Timestamp().Caller().Logger()

	return nil
}
