// Package pending broadcasts the live unsynced-event count to any number of
// subscribers (control API websocket, status endpoint, logs).
package pending

import "sync"

// Feed fans the latest pending count out to subscribers. Subscribers that
// fall behind only ever miss intermediate values: the channel is drained to
// a single slot before each send, so the freshest count always lands.
type Feed struct {
	mu   sync.Mutex
	last int
	subs map[chan int]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan int]struct{})}
}

// Subscribe registers a new listener. The current count is delivered
// immediately so consumers never start blind. Callers must Unsubscribe when
// done; the channel is closed then.
func (f *Feed) Subscribe() chan int {
	ch := make(chan int, 1)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	ch <- f.last
	f.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel. Safe to call once per
// subscription.
func (f *Feed) Unsubscribe(ch chan int) {
	f.mu.Lock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
	f.mu.Unlock()
}

// Publish records the new count and pushes it to every subscriber,
// overwriting any undelivered previous value.
func (f *Feed) Publish(count int) {
	f.mu.Lock()
	f.last = count
	for ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- count
	}
	f.mu.Unlock()
}

// Last returns the most recently published count.
func (f *Feed) Last() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
