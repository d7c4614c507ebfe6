package logger

import (
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

var stdoutLogFormat = logging.MustStringFormatter(
	`%{color:reset}%{color}%{time:15:04:05.000} [%{module}] [%{shortfunc}] [%{level}] %{message}`,
)

var fileLogFormat = logging.MustStringFormatter(
	`%{time:2006-01-02 15:04:05.000} [%{module}] [%{shortfunc}] [%{level}] %{message}`,
)

// Setup installs the process-wide backends. When path is non-empty logs are
// also written to a size-rotated file. The returned closer flushes that file.
func Setup(level, path string) (io.Closer, error) {
	lvl, err := logging.LogLevel(strings.ToUpper(level))
	if err != nil {
		return nil, err
	}

	backends := []logging.Backend{
		logging.NewBackendFormatter(logging.NewLogBackend(os.Stdout, "", 0), stdoutLogFormat),
	}

	var closer io.Closer = nopCloser{}
	if path != "" {
		w := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		}
		backends = append(backends, logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), fileLogFormat))
		closer = w
	}

	leveled := logging.AddModuleLevel(logging.MultiLogger(backends...))
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
