package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a charmbracelet logger at the given level. With a
// filename the output is appended to that file, since the TUI owns the
// terminal; the returned closer releases it.
func SetupLogger(level, filename string) (*log.Logger, io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var out io.WriteCloser = nopCloser{os.Stderr}
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	return logger, out, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
