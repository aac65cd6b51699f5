package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a level name to a slog level. Unknown names give
// INFO along with an error.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %s, using INFO", levelStr)
	}
}

// NewLogger creates a text logger writing to w and, when LogFile is set,
// to that file too. The returned closer releases the file.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, io.Closer, error) {
	var closer io.Closer = io.NopCloser(nil)

	if c.LogFile != "" {
		logFile, err := os.OpenFile(c.LogFile,
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, nil, err
		}

		w = io.MultiWriter(w, logFile)
		closer = logFile
	}

	level, err := ParseLevel(c.LogLevel)

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	if err != nil {
		logger.Warn(err.Error())
	}

	return logger, closer, nil
}
