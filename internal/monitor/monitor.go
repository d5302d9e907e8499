package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/kalambet/papersift/internal/storage"
)

// EventKind labels a detected file change.
type EventKind string

const (
	EventNew      EventKind = "new"
	EventModified EventKind = "modified"
	EventDeleted  EventKind = "deleted"
)

// ChangeEvent describes one detected change, carrying the file content at
// detection time. Deleted files carry their last known content.
type ChangeEvent struct {
	Filename string
	Kind     EventKind
	Content  string
}

// Analyzer classifies changed file content.
type Analyzer interface {
	ProcessDocument(ctx context.Context, filename, content string) (bool, error)
}

// SnapshotStore persists the directory state between runs.
type SnapshotStore interface {
	ListSnapshots() ([]storage.FileSnapshot, error)
	ReplaceSnapshots(snaps []storage.FileSnapshot) error
}

const defaultInterval = 5 * time.Second

// Monitor polls a flat directory and pushes change events through the
// analyzer. State lives in memory and is persisted wholesale after each poll.
type Monitor struct {
	dir       string
	interval  time.Duration
	store     SnapshotStore
	analyzer  Analyzer
	changeLog *ChangeLog
	logger    *slog.Logger
	readFile  func(string) ([]byte, error)
	state     map[string]storage.FileSnapshot
}

// New creates a Monitor and seeds its state: persisted snapshots are loaded,
// then refreshed from disk without emitting events, so files that appeared or
// changed while the monitor was down are absorbed silently. Files deleted
// while down stay in the state and are reported by the first poll. An
// interval of zero or less falls back to 5 seconds.
func New(dir string, interval time.Duration, store SnapshotStore, analyzer Analyzer, changeLog *ChangeLog) (*Monitor, error) {
	if interval <= 0 {
		interval = defaultInterval
	}
	m := &Monitor{
		dir:       dir,
		interval:  interval,
		store:     store,
		analyzer:  analyzer,
		changeLog: changeLog,
		logger:    slog.Default(),
		readFile:  os.ReadFile,
	}

	snaps, err := store.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}
	m.state = make(map[string]storage.FileSnapshot, len(snaps))
	for _, s := range snaps {
		m.state[s.Filename] = s
	}

	current, err := m.scan()
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	for name, snap := range current {
		m.state[name] = snap
	}
	if err := m.persistState(); err != nil {
		return nil, err
	}

	return m, nil
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("monitoring directory", "dir", m.dir, "interval", m.interval)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := m.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.interval):
		}
	}
}

// Poll diffs the directory against the last known state, dispatches one event
// per changed file, then replaces and persists the state. When dispatch fails
// the old state is kept, so the next poll sees the same changes again; the
// store's dedup makes redoing them harmless.
func (m *Monitor) Poll(ctx context.Context) error {
	current, err := m.scan()
	if err != nil {
		return fmt.Errorf("scanning %s: %w", m.dir, err)
	}

	for _, ev := range diff(m.state, current) {
		if err := m.handleChange(ctx, ev); err != nil {
			return err
		}
	}

	m.state = current
	return m.persistState()
}

// diff orders events as new and modified files in name order, then deletions
// in name order.
func diff(prev, current map[string]storage.FileSnapshot) []ChangeEvent {
	var events []ChangeEvent
	for _, name := range sortedKeys(current) {
		snap := current[name]
		old, known := prev[name]
		switch {
		case !known:
			events = append(events, ChangeEvent{Filename: name, Kind: EventNew, Content: snap.Content})
		case old.Hash != snap.Hash:
			events = append(events, ChangeEvent{Filename: name, Kind: EventModified, Content: snap.Content})
		}
	}
	for _, name := range sortedKeys(prev) {
		if _, ok := current[name]; !ok {
			events = append(events, ChangeEvent{Filename: name, Kind: EventDeleted, Content: prev[name].Content})
		}
	}
	return events
}

func (m *Monitor) handleChange(ctx context.Context, ev ChangeEvent) error {
	m.logger.Info("file changed", "file", ev.Filename, "kind", ev.Kind)
	if err := m.changeLog.Record(ev.Kind, ev.Filename, ev.Content); err != nil {
		m.logger.Warn("recording change failed", "file", ev.Filename, "error", err)
	}
	if _, err := m.analyzer.ProcessDocument(ctx, ev.Filename, ev.Content); err != nil {
		return fmt.Errorf("classifying %s: %w", ev.Filename, err)
	}
	return nil
}

// scan snapshots every regular file in the watched directory, flat.
func (m *Monitor) scan() (map[string]storage.FileSnapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	snaps := make(map[string]storage.FileSnapshot, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		snap, err := m.snapshotFile(entry)
		if err != nil {
			m.logger.Warn("snapshotting file failed", "file", entry.Name(), "error", err)
			continue
		}
		snaps[entry.Name()] = snap
	}
	return snaps, nil
}

func (m *Monitor) persistState() error {
	snaps := make([]storage.FileSnapshot, 0, len(m.state))
	for _, name := range sortedKeys(m.state) {
		snaps = append(snaps, m.state[name])
	}
	if err := m.store.ReplaceSnapshots(snaps); err != nil {
		return fmt.Errorf("persisting snapshots: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]storage.FileSnapshot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
