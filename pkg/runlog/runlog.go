// Package runlog builds the per-run structured logger: one log file per
// vendor run, named {vendorCode}_{timestamp}.log, mirrored to the console.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// New opens a run-scoped logger writing to logsDir. The returned closer
// owns the log file; callers close it when the run ends.
func New(vendorCode, logsDir string) (*logrus.Entry, io.Closer, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create logs directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.log", vendorCode, time.Now().Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open run log: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableColors:   true,
	})
	logger.SetOutput(io.MultiWriter(os.Stdout, f))

	return logger.WithField("vendor", vendorCode), f, nil
}

// Discard returns a logger that drops everything. Used by tests and by
// components constructed without a run context.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
