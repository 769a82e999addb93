// Package spool mirrors accepted log records to local NDJSON files
// with daily rotation. The spool is purely additive: shipping never
// waits on it and a spool failure never blocks a submission.
package spool

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phpnexus/cwh/internal/metrics"
)

// Writer handles file persistence with daily rotation.
type Writer struct {
	baseDir    string
	filePrefix string
	file       *os.File
	curDay     string
	mu         sync.Mutex
}

// New creates a spool writer for the given directory with the
// specified file prefix.
func New(baseDir, filePrefix string) (*Writer, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	return &Writer{
		baseDir:    baseDir,
		filePrefix: filePrefix,
	}, nil
}

// Write appends a record to the current day's file, rotating if the
// UTC day has changed. A trailing newline is added.
func (w *Writer) Write(record []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := time.Now().UTC().Format("2006-01-02")

	if day != w.curDay {
		if w.file != nil {
			if err := w.file.Close(); err != nil {
				return err
			}
			metrics.SpoolFileRotations.Add(1)
		}

		var err error
		w.file, err = w.openDayFile(day)
		if err != nil {
			return err
		}

		w.curDay = day
	}

	n, err := w.file.Write(append(record, '\n'))
	if err == nil {
		metrics.SpoolWrites.Add(1)
		metrics.SpoolBytesWritten.Add(int64(n))
		slog.Debug("spooled record", "bytes", n)
	}
	return err
}

// Close syncs and closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			_ = w.file.Close()
			return err
		}
		return w.file.Close()
	}
	return nil
}

// CurrentFile returns the path to the current day's file, or the empty
// string before the first write.
func (w *Writer) CurrentFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.curDay == "" {
		return ""
	}
	return filepath.Join(w.baseDir, w.filePrefix+"-"+w.curDay+".ndjson")
}

func (w *Writer) openDayFile(day string) (*os.File, error) {
	path := filepath.Join(w.baseDir, w.filePrefix+"-"+day+".ndjson")
	// #nosec G304 -- baseDir and filePrefix are set during Writer construction from config.
	// The day parameter is generated from time.Now() and used for daily rotation.
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
