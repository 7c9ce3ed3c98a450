package broadcast

import (
	"errors"
	"sync"

	pokerv1 "scrumtools/backend/api/poker/v1"
)

// ErrSlowConsumer is reported by a subscriber the hub dropped because its queue was full.
var ErrSlowConsumer = errors.New("broadcast: subscriber queue overflow")

// ErrBackplaneLost is reported by subscribers of a room whose backplane subscription failed. Events
// may have been missed, so the connection must resync.
var ErrBackplaneLost = errors.New("broadcast: backplane subscription lost")

// ErrClosed is reported by a subscriber that was removed normally.
var ErrClosed = errors.New("broadcast: subscriber closed")

// Subscriber is one connection's outbound queue. Events are delivered in publish order per room.
// The queue channel is never closed; consumers stop when Done is closed.
type Subscriber struct {
	id    string
	queue chan *pokerv1.Event
	done  chan struct{}
	once  sync.Once
	err   error

	rooms map[string]struct{} // guarded by Hub.mu
}

func newSubscriber(id string, buffer int) *Subscriber {
	return &Subscriber{
		id:    id,
		queue: make(chan *pokerv1.Event, buffer),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
}

// ID identifies the subscriber; the WebSocket handler uses it as the connection id.
func (s *Subscriber) ID() string {
	return s.id
}

// Events returns the queue to drain.
func (s *Subscriber) Events() <-chan *pokerv1.Event {
	return s.queue
}

// Done is closed once the subscriber has been dropped or removed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Err reports why Done was closed. It is nil while the subscriber is live.
func (s *Subscriber) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Send enqueues an event for this subscriber only, without blocking.
// A full queue closes the subscriber with ErrSlowConsumer and Send reports false.
func (s *Subscriber) Send(ev *pokerv1.Event) bool {
	if s.enqueue(ev) {
		return true
	}
	s.close(ErrSlowConsumer)
	return false
}

func (s *Subscriber) enqueue(ev *pokerv1.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}
