package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const dateLayout = "2006-01-02"

// WeekRange returns the Monday and Sunday of the week containing now, or of
// the following week when next is set.
func WeekRange(now time.Time, next bool) (start, end string) {
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	if next {
		monday = monday.AddDate(0, 0, 7)
	}
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(dateLayout), sunday.Format(dateLayout)
}

// WriteSummary saves summary under dir as
// "<weekStart>_created-<YYYY-MM-DD-HHMMSS>.md". An existing file is never
// replaced; a numeric suffix is added instead.
func WriteSummary(dir, weekStart, summary string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("orchestrator: creating output dir: %w", err)
	}

	base := weekStart + "_created-" + now.Format("2006-01-02-150405")
	for n := 1; ; n++ {
		name := base + ".md"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.md", base, n)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("orchestrator: creating summary file: %w", err)
		}
		if _, err := f.WriteString(summary); err != nil {
			f.Close()
			return "", fmt.Errorf("orchestrator: writing summary: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("orchestrator: closing summary: %w", err)
		}
		return path, nil
	}
}
