package pdfio

import (
	"context"
	"os"
	"time"
)

// IsStable reports whether the file's size stays constant over checks
// samples taken interval apart. It is used to skip files still being
// written into the source directory. The wait is bounded by
// checks * interval and aborts early when ctx is cancelled.
func IsStable(ctx context.Context, path string, checks int, interval time.Duration) bool {
	if checks < 1 {
		checks = 1
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	size := info.Size()
	for i := 0; i < checks; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
		info, err = os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() != size {
			return false
		}
	}
	return true
}
