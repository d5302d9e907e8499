package monitor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/zeebo/xxh3"

	"github.com/kalambet/papersift/internal/storage"
)

// snapshotFile fingerprints one directory entry and extracts its text. The
// hash covers the raw bytes, so binary changes are detected even when text
// extraction fails. A file whose read fails is still snapshotted, with empty
// content and the empty-input hash: a transient read error must not look like
// a deletion, and the file is not re-detected while it stays unreadable. Only
// stat failures skip the file.
func (m *Monitor) snapshotFile(entry os.DirEntry) (storage.FileSnapshot, error) {
	info, err := entry.Info()
	if err != nil {
		return storage.FileSnapshot{}, fmt.Errorf("stat %s: %w", entry.Name(), err)
	}

	path := filepath.Join(m.dir, entry.Name())
	content := ""
	raw, err := m.readFile(path)
	if err != nil {
		m.logger.Warn("reading file failed", "file", entry.Name(), "error", err)
		raw = nil
	} else {
		content = ExtractContent(path, raw)
	}

	return storage.FileSnapshot{
		Filename: entry.Name(),
		Hash:     fmt.Sprintf("%x", xxh3.Hash(raw)),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
		Content:  content,
	}, nil
}

// ExtractContent turns raw file bytes into text. PDFs go through the pdf
// reader, everything else must be valid UTF-8. Undecodable files yield empty
// content rather than an error.
func ExtractContent(path string, raw []byte) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := pdfText(path)
		if err != nil {
			return ""
		}
		return text
	}
	if !utf8.Valid(raw) {
		return ""
	}
	return string(raw)
}

// pdfText extracts the plain text of a PDF. The reader panics on some
// malformed files, so the recover keeps scan passes alive.
func pdfText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", err
	}
	return buf.String(), nil
}
