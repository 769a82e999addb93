// Package source provides the line inputs for the CLI: newline-delimited
// records from an io.Reader (stdin, a finite file) or a followed file
// that keeps growing.
package source

import (
	"bufio"
	"context"
	"io"

	"github.com/hpcloud/tail"
)

// LineFunc consumes one record. The slice is only valid for the
// duration of the call for reader-based sources, so implementations
// must not retain it; the shipper copies during chunk splitting.
type LineFunc func(line []byte) error

// Lines reads newline-delimited records from r and passes each one to
// fn. Empty lines are skipped. Reading stops at the first fn error,
// which is returned. Lines longer than maxLineBytes fail the scan.
func Lines(r io.Reader, maxLineBytes int, fn LineFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Follow tails path, starting at its end, and passes each appended line
// to fn. It keeps following across rotations until ctx is cancelled or
// fn returns an error.
func Follow(ctx context.Context, path string, fn LineFunc) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				return line.Err
			}
			if line.Text == "" {
				continue
			}
			if err := fn([]byte(line.Text)); err != nil {
				_ = t.Stop()
				return err
			}
		}
	}
}
