package monitor

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ChangeLog appends human-readable change records to a log file.
type ChangeLog struct {
	path string
}

// NewChangeLog creates a ChangeLog writing to path. The file is created on
// the first record.
func NewChangeLog(path string) *ChangeLog {
	return &ChangeLog{path: path}
}

// Record appends one timestamped entry. The content block is written only
// when content is non-empty.
func (l *ChangeLog) Record(kind EventKind, filename, content string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening change log: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] File %s: %s\n", time.Now().Format("2006-01-02 15:04:05"), kind, filename)
	if content != "" {
		b.WriteString("Content:\n")
		b.WriteString(content)
		b.WriteString("\n" + strings.Repeat("-", 50) + "\n")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing change log: %w", err)
	}
	return nil
}
