package store

import "sync"

// feed fans change notifications out to per-owner watchers. Sends are
// non-blocking against a one-slot buffer, so a burst of writes coalesces into
// a single pending notification and a slow consumer never stalls a mutation.
type feed struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

func newFeed() *feed {
	return &feed{watchers: make(map[string]map[chan struct{}]struct{})}
}

func (f *feed) watch(owner string) (chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{}, 1)
	if _, ok := f.watchers[owner]; !ok {
		f.watchers[owner] = make(map[chan struct{}]struct{})
	}
	f.watchers[owner][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if chans, ok := f.watchers[owner]; ok {
				delete(chans, ch)
				if len(chans) == 0 {
					delete(f.watchers, owner)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (f *feed) notify(owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.watchers[owner] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *feed) count(owner string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers[owner])
}

// Watch subscribes to change notifications for one owner's collection. The
// channel is closed by the returned cancel func, which is idempotent.
func (s *Store) Watch(ownerID string) (<-chan struct{}, func()) {
	return s.feed.watch(ownerID)
}

// WatcherCount reports the number of live subscriptions for an owner.
func (s *Store) WatcherCount(ownerID string) int {
	return s.feed.count(ownerID)
}
