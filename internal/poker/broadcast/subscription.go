package broadcast

import (
	"context"
	"log"
	"sync"

	pokerv1 "scrumtools/backend/api/poker/v1"
)

type roomSub struct {
	cancel context.CancelFunc
	ready  chan struct{}
}

// roomSubscriptions keeps one backplane consumer per room that has local subscribers.
// ensure and release never block, so the hub can call them while holding its lock.
type roomSubscriptions struct {
	ctx       context.Context
	cancel    context.CancelFunc
	backplane Backplane
	receive   func(teamID string, payload []byte)
	// lost is called when a room's subscription ends with an error. The hub drops the room's
	// subscribers, which releases the subscription; the next Join starts a fresh one.
	lost func(teamID string)

	mu    sync.Mutex
	rooms map[string]*roomSub
	wg    sync.WaitGroup
}

func newRoomSubscriptions(b Backplane, receive func(string, []byte), lost func(string)) *roomSubscriptions {
	ctx, cancel := context.WithCancel(context.Background())
	return &roomSubscriptions{
		ctx:       ctx,
		cancel:    cancel,
		backplane: b,
		receive:   receive,
		lost:      lost,
		rooms:     make(map[string]*roomSub),
	}
}

// ensure starts the room's consumer if needed and returns a channel closed once it is subscribed.
func (r *roomSubscriptions) ensure(teamID string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rs, exists := r.rooms[teamID]; exists {
		return rs.ready
	}
	subCtx, subCancel := context.WithCancel(r.ctx)
	rs := &roomSub{cancel: subCancel, ready: make(chan struct{})}
	r.rooms[teamID] = rs
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consume(subCtx, teamID, rs)
	}()
	return rs.ready
}

func (r *roomSubscriptions) release(teamID string) {
	r.mu.Lock()
	rs, exists := r.rooms[teamID]
	if exists {
		delete(r.rooms, teamID)
	}
	r.mu.Unlock()
	if exists {
		rs.cancel()
	}
}

func (r *roomSubscriptions) stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *roomSubscriptions) consume(ctx context.Context, teamID string, rs *roomSub) {
	topic := pokerv1.Topic(teamID)
	var once sync.Once
	err := r.backplane.Consume(ctx, topic, func() {
		once.Do(func() { close(rs.ready) })
	}, func(payload []byte) {
		r.receive(teamID, payload)
	})
	if ctx.Err() != nil {
		return
	}
	log.Printf("broadcast: backplane subscription %s ended: %v", topic, err)
	r.mu.Lock()
	if r.rooms[teamID] == rs {
		delete(r.rooms, teamID)
	}
	r.mu.Unlock()
	rs.cancel()
	r.lost(teamID)
}
