package progress

import (
	"context"
	"sync"
	"time"
)

// Broker fans run events out to subscribers.
// Subscribe replays the events already published for the run, then follows new ones.
// The channel is closed after the final event or when ctx is done.
// History returns the retained events of a run without waiting for new ones.
type Broker interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, runID string) (<-chan Event, error)
	History(ctx context.Context, runID string) ([]Event, error)
}

// subscriberBuffer holds every event of one run, so publishers never block.
const subscriberBuffer = 64

type subscriber struct {
	ch   chan Event
	done chan struct{}
}

func (s *subscriber) close() {
	close(s.ch)
	close(s.done)
}

// MemoryBroker is a single-process Broker. Finished runs are forgotten after Retention.
type MemoryBroker struct {
	Retention time.Duration

	mu      sync.Mutex
	history map[string][]Event
	subs    map[string]map[*subscriber]struct{}
}

func NewMemoryBroker(retention time.Duration) *MemoryBroker {
	return &MemoryBroker{
		Retention: retention,
		history:   map[string][]Event{},
		subs:      map[string]map[*subscriber]struct{}{},
	}
}

func (b *MemoryBroker) Publish(_ context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history[e.RunID] = append(b.history[e.RunID], e)
	for s := range b.subs[e.RunID] {
		select {
		case s.ch <- e:
		default:
		}
		if e.Final() {
			s.close()
		}
	}
	if e.Final() {
		delete(b.subs, e.RunID)
		if b.Retention > 0 {
			runID := e.RunID
			time.AfterFunc(b.Retention, func() { b.forget(runID) })
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, runID string) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &subscriber{ch: make(chan Event, subscriberBuffer), done: make(chan struct{})}
	past := b.history[runID]
	for _, e := range past {
		s.ch <- e
	}
	if len(past) > 0 && past[len(past)-1].Final() {
		close(s.ch)
		return s.ch, nil
	}

	if b.subs[runID] == nil {
		b.subs[runID] = map[*subscriber]struct{}{}
	}
	b.subs[runID][s] = struct{}{}
	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(runID, s)
		case <-s.done:
		}
	}()
	return s.ch, nil
}

func (b *MemoryBroker) History(_ context.Context, runID string) ([]Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.history[runID]...), nil
}

func (b *MemoryBroker) unsubscribe(runID string, s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[runID][s]; ok {
		delete(b.subs[runID], s)
		s.close()
	}
}

func (b *MemoryBroker) forget(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.history, runID)
}
