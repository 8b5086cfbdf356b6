package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Locked serialises access to an underlying Store. Every write goes through
// Update, which re-reads the persisted mapping before saving, so concurrent
// subtasks and concurrent runs in one process never drop each other's entries.
// Writers in other processes are not coordinated.
type Locked struct {
	mu    sync.Mutex
	inner Store
}

func NewLocked(inner Store) *Locked { return &Locked{inner: inner} }

func (l *Locked) Load(ctx context.Context) (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Load(ctx)
}

func (l *Locked) Save(ctx context.Context, snap *Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Save(ctx, snap)
}

// Updater applies fn to the latest persisted snapshot and saves the result as
// one step. Runs sharing a store use it so their entries do not overwrite
// each other.
type Updater interface {
	Update(ctx context.Context, fn func(*Snapshot)) error
}

func (l *Locked) Update(ctx context.Context, fn func(*Snapshot)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap, err := l.inner.Load(ctx)
	if err != nil {
		return err
	}
	fn(snap)
	return l.inner.Save(ctx, snap)
}

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open builds the Store for a backend name. The returned close func is never nil.
func Open(backend, path string) (Store, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		return NewFileStore(path), noop, nil
	case BackendSQLite:
		if path == "" || path == DefaultPath {
			path = "persistent_memory.db"
		}
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("memory: unknown backend %q", backend)
	}
}
