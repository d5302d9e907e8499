package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Collection names for classified sources.
const (
	CollectionRelevant    = "relevant"
	CollectionNonRelevant = "non_relevant"
)

// FileSnapshot is the recorded state of one watched file. Content holds the
// full text at snapshot time so a later deletion can still be classified.
type FileSnapshot struct {
	Filename string
	Hash     string
	ModTime  time.Time
	Size     int64
	Content  string
}

// SourceEntry is one classified result: either paragraphs taken directly from
// a watched file (SourceURL empty) or the cleaned text fetched from a Source
// URL found in that file.
type SourceEntry struct {
	ID         string
	Collection string
	Filename   string
	SourceURL  string
	Paragraphs []string
	AddedAt    time.Time
}

// Stats summarizes the store contents.
type Stats struct {
	Snapshots   int
	Relevant    int
	NonRelevant int
}
