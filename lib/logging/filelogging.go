package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/ziflex/lecho/v3"
)

// NewLogger builds the process logger. With an empty path it logs to STDOUT;
// otherwise it appends to a per-start log file derived from the path, so
// restarts never clobber an earlier run's log.
func NewLogger(logFilePath string) (*lecho.Logger, error) {
	var output io.Writer = os.Stdout
	if logFilePath != "" {
		file, err := os.OpenFile(timestampedPath(logFilePath), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
	}
	return lecho.New(
		output,
		lecho.WithLevel(log.DEBUG),
		lecho.WithTimestamp(),
	), nil
}

// timestampedPath inserts the start time before the file extension, e.g.
// sparkgate.log becomes sparkgate-20260829T101500.log.
func timestampedPath(path string) string {
	stamp := time.Now().Format("20060102T150405")
	extension := filepath.Ext(path)
	if extension == "" {
		return path + "-" + stamp
	}
	return strings.TrimSuffix(path, extension) + "-" + stamp + extension
}
