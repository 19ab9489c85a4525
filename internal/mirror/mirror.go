// Package mirror keeps a local, continuously-updated copy of one owner's
// note collection. It is the in-process analogue of a remote live query
// listener: a single subscription per mirror, full-replace snapshots, and no
// write access for anyone else — mutations reach the snapshot only through
// the store's change feed.
package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"noteflow/internal/store"
)

// Source is the narrow boundary the mirror needs from the document store:
// the owner-scoped list query and the change-feed subscription. Tests swap
// in scripted implementations.
type Source interface {
	NotesByOwner(ctx context.Context, ownerID string) ([]store.Note, error)
	Watch(ownerID string) (<-chan struct{}, func())
}

const reloadTimeout = 10 * time.Second

type Mirror struct {
	source  Source
	ownerID string
	log     *slog.Logger

	mu      sync.Mutex
	notes   []store.Note
	loading bool
	closed  bool

	cancel    func()
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New opens the subscription for ownerID and starts syncing. The first
// snapshot is loaded asynchronously; Loading reports true until it lands.
func New(source Source, ownerID string, log *slog.Logger) *Mirror {
	if log == nil {
		log = slog.Default()
	}
	m := &Mirror{
		source:  source,
		ownerID: ownerID,
		log:     log,
		loading: true,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	ch, cancel := source.Watch(ownerID)
	m.cancel = cancel
	go m.run(ch)
	return m
}

func (m *Mirror) run(ch <-chan struct{}) {
	defer close(m.done)
	m.reload()
	for {
		select {
		case <-m.stop:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			m.reload()
		}
	}
}

// reload replaces the snapshot wholesale with the store's current state.
// A failed reload keeps the last-known snapshot; a reload that completes
// after Close is discarded.
func (m *Mirror) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	notes, err := m.source.NotesByOwner(ctx, m.ownerID)
	if err != nil {
		m.log.Warn("mirror reload failed", "owner", m.ownerID, "err", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.notes = notes
	m.loading = false
}

// Close cancels the subscription and freezes the snapshot. It is idempotent
// and safe to call while a reload is in flight.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.stop)
		m.cancel()
		<-m.done
	})
}

// Loading reports whether the first snapshot is still outstanding.
func (m *Mirror) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Snapshot returns a copy of the mirrored collection, newest first.
func (m *Mirror) Snapshot() []store.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Note, len(m.notes))
	copy(out, m.notes)
	return out
}

// Favorites projects the favorite-flagged notes in snapshot order.
func (m *Mirror) Favorites() []store.Note {
	return Favorites(m.Snapshot())
}

// Stats projects the aggregate counts for the current snapshot.
func (m *Mirror) Stats(now time.Time) Stats {
	return ComputeStats(m.Snapshot(), now)
}
