package monitor

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading change log: %v", err)
	}
	return string(data)
}

func TestChangeLog_RecordWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.log")
	l := NewChangeLog(path)

	if err := l.Record(EventNew, "a.txt", "line one\nline two\n"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got := readLog(t, path)
	header := regexp.MustCompile(`^\n\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] File new: a\.txt\n`)
	if !header.MatchString(got) {
		t.Errorf("log header malformed: %q", got)
	}
	wantBlock := "Content:\nline one\nline two\n\n" + strings.Repeat("-", 50) + "\n"
	if !strings.Contains(got, wantBlock) {
		t.Errorf("log missing content block, got %q", got)
	}
}

func TestChangeLog_RecordWithoutContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.log")
	l := NewChangeLog(path)

	if err := l.Record(EventDeleted, "gone.txt", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got := readLog(t, path)
	if !strings.Contains(got, "File deleted: gone.txt") {
		t.Errorf("log missing header, got %q", got)
	}
	if strings.Contains(got, "Content:") {
		t.Errorf("log has content block for empty content: %q", got)
	}
}

func TestChangeLog_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.log")
	l := NewChangeLog(path)

	if err := l.Record(EventNew, "a.txt", "x"); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := l.Record(EventModified, "a.txt", "y"); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	got := readLog(t, path)
	first := strings.Index(got, "File new: a.txt")
	second := strings.Index(got, "File modified: a.txt")
	if first == -1 || second == -1 || second < first {
		t.Errorf("records out of order or missing: %q", got)
	}
}
