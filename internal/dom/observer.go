package dom

import (
	"sync"

	"golang.org/x/net/html"
)

// Observer receives batches of inserted nodes for one target subtree.
type Observer struct {
	doc    *Document
	target *html.Node
	fn     func(added []*html.Node)

	mu       sync.Mutex
	pending  []*html.Node
	inFlight bool

	wake     chan struct{}
	done     chan struct{}
	idle     chan struct{}
	stopOnce sync.Once
}

func (o *Observer) enqueue(batch []*html.Node) {
	o.mu.Lock()
	o.pending = append(o.pending, batch...)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Observer) loop() {
	defer close(o.idle)
	for {
		select {
		case <-o.done:
			return
		case <-o.wake:
			o.mu.Lock()
			batch := o.pending
			o.pending = nil
			o.inFlight = len(batch) > 0
			o.mu.Unlock()

			if len(batch) > 0 {
				o.fn(batch)
			}

			o.mu.Lock()
			o.inFlight = false
			o.mu.Unlock()
		}
	}
}

// Pending reports whether records are queued or being delivered.
func (o *Observer) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending) > 0 || o.inFlight
}

// Disconnect stops delivery. Queued records are dropped.
func (o *Observer) Disconnect() {
	o.stopOnce.Do(func() {
		o.doc.unobserve(o)
		close(o.done)
		<-o.idle
	})
}
