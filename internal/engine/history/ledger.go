package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrLedgerCorrupt is returned by Open when the history file exists but
// cannot be decoded.
var ErrLedgerCorrupt = errors.New("history ledger is corrupt")

// Ledger is the list of generated codes, held in memory and mirrored to a
// JSON file after every mutation. The in-memory slice is authoritative for
// reads.
type Ledger struct {
	path    string
	mu      sync.Mutex
	entries []Entry
}

// Open loads the ledger stored at path. A missing or empty file yields an
// empty ledger.
func Open(path string) (*Ledger, error) {
	l := &Ledger{path: path, entries: []Entry{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("reading history %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return l, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLedgerCorrupt, path, err)
	}
	if entries != nil {
		l.entries = entries
	}

	return l, nil
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}

// Append adds e at the end of the ledger and persists the whole list. On a
// persist failure the ledger is left as it was.
func (l *Ledger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]Entry, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	next = append(next, e)

	if err := l.persist(next); err != nil {
		return err
	}
	l.entries = next
	return nil
}

// Clear empties the ledger and persists an empty list.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.persist([]Entry{}); err != nil {
		return err
	}
	l.entries = []Entry{}
	return nil
}

// All returns a copy of the entries, oldest first.
func (l *Ledger) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// persist writes entries to a temp file next to the ledger and renames it
// into place, so readers never observe a half-written file.
func (l *Ledger) persist(entries []Entry) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("creating history temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing history: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing history: %w", err)
	}
	return nil
}
