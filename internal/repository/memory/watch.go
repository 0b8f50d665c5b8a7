package memory

import "context"

// tagWatch is one WatchTags subscription. Changes are queued on ch and
// delivered by the watching goroutine, in commit order.
type tagWatch struct {
	ch   chan string
	done chan struct{}
}

// WatchTags reports every trip added or deleted after the subscription is live
func (s *Store) WatchTags(ctx context.Context, subscribed func(), onChange func(tripID string)) error {
	w := &tagWatch{
		ch:   make(chan string, 64),
		done: make(chan struct{}),
	}

	s.watchMu.Lock()
	s.watchers[w] = struct{}{}
	s.watchMu.Unlock()

	defer func() {
		s.watchMu.Lock()
		delete(s.watchers, w)
		s.watchMu.Unlock()
		close(w.done)
	}()

	subscribed()

	for {
		select {
		case <-ctx.Done():
			return nil
		case tripID := <-w.ch:
			onChange(tripID)
		}
	}
}

// tagsChanged queues tripID for every watcher. It must be called without s.mu
// held, since a watcher may be reading the store while the queue is full.
func (s *Store) tagsChanged(tripID string) {
	s.watchMu.Lock()
	watchers := make([]*tagWatch, 0, len(s.watchers))
	for w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.watchMu.Unlock()

	for _, w := range watchers {
		select {
		case w.ch <- tripID:
		case <-w.done:
		}
	}
}
