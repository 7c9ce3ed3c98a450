// Package broadcast fans session and roster events out to every connection in a team room.
package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	pokerv1 "scrumtools/backend/api/poker/v1"
)

const (
	defaultBufferSize = 64
	outboxSize        = 1024
)

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber queue length.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithBackplane routes publishes through b so every instance sharing it delivers to its own rooms.
func WithBackplane(b Backplane) Option {
	return func(h *Hub) {
		h.backplane = b
	}
}

type outboxItem struct {
	teamID  string
	ev      *pokerv1.Event
	payload []byte
}

// Hub holds the rooms of this instance. Publish never blocks: each subscriber has a bounded queue and
// a subscriber that falls behind is dropped so it can reconnect and resync.
type Hub struct {
	mu         sync.Mutex
	rooms      map[string]map[*Subscriber]struct{}
	bufferSize int

	backplane Backplane
	outbox    chan outboxItem
	subs      *roomSubscriptions
}

// NewHub returns a hub. Without a backplane, Publish delivers locally and Run only waits for ctx.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:      make(map[string]map[*Subscriber]struct{}),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.backplane != nil {
		h.outbox = make(chan outboxItem, outboxSize)
		h.subs = newRoomSubscriptions(h.backplane, h.receive, func(teamID string) {
			h.dropRoom(teamID, ErrBackplaneLost)
		})
	}
	return h
}

// NewSubscriber creates a queue that belongs to no room yet.
func (h *Hub) NewSubscriber() *Subscriber {
	return newSubscriber(uuid.NewString(), h.bufferSize)
}

// Join adds sub to teamID's room. Joining twice is a no-op. With a backplane it returns once the room's
// subscription is confirmed, so everything published after Join returns reaches sub. If ctx ends first
// sub leaves the room again; if sub is dropped meanwhile its error is returned.
func (h *Hub) Join(ctx context.Context, teamID string, sub *Subscriber) error {
	h.mu.Lock()
	room, ok := h.rooms[teamID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[teamID] = room
	}
	var ready <-chan struct{}
	if h.subs != nil {
		ready = h.subs.ensure(teamID)
	}
	room[sub] = struct{}{}
	sub.rooms[teamID] = struct{}{}
	h.mu.Unlock()

	if ready == nil {
		return nil
	}
	select {
	case <-ready:
		return nil
	case <-sub.Done():
		return sub.Err()
	case <-ctx.Done():
		h.Leave(teamID, sub)
		return ctx.Err()
	}
}

// Leave removes sub from teamID's room.
func (h *Hub) Leave(teamID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(teamID, sub)
}

// Remove takes sub out of every room and closes it.
func (h *Hub) Remove(sub *Subscriber) {
	h.mu.Lock()
	for teamID := range sub.rooms {
		h.leaveLocked(teamID, sub)
	}
	h.mu.Unlock()
	sub.close(ErrClosed)
}

// Subscribers returns how many subscribers teamID's room has on this instance.
func (h *Hub) Subscribers(teamID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[teamID])
}

// Publish hands ev to every subscriber of teamID. With a backplane the event is queued on the outbox;
// when the outbox is full it is delivered locally instead.
func (h *Hub) Publish(ctx context.Context, teamID string, ev *pokerv1.Event) {
	if ev == nil {
		return
	}
	if h.backplane == nil {
		h.deliver(teamID, ev)
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("broadcast: marshal event %s: %v", ev.Type, err)
		h.deliver(teamID, ev)
		return
	}
	select {
	case h.outbox <- outboxItem{teamID: teamID, ev: ev, payload: payload}:
	default:
		log.Printf("broadcast: outbox full, delivering %s for team %s locally", ev.Type, teamID)
		h.deliver(teamID, ev)
	}
}

// Run drains the outbox into the backplane until ctx is cancelled, then stops the room subscriptions.
func (h *Hub) Run(ctx context.Context) error {
	if h.backplane == nil {
		<-ctx.Done()
		return nil
	}
	defer h.subs.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-h.outbox:
			if err := h.backplane.Publish(ctx, pokerv1.Topic(item.teamID), item.payload); err != nil {
				log.Printf("broadcast: backplane publish for team %s failed, delivering locally: %v", item.teamID, err)
				h.deliver(item.teamID, item.ev)
			}
		}
	}
}

func (h *Hub) receive(teamID string, payload []byte) {
	var ev pokerv1.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("broadcast: drop malformed backplane message for team %s: %v", teamID, err)
		return
	}
	h.deliver(teamID, &ev)
}

func (h *Hub) deliver(teamID string, ev *pokerv1.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[teamID] {
		if sub.enqueue(ev) {
			continue
		}
		for room := range sub.rooms {
			h.leaveLocked(room, sub)
		}
		sub.close(ErrSlowConsumer)
		log.Printf("broadcast: dropped subscriber %s from team %s: queue full", sub.id, teamID)
	}
}

// dropRoom closes every subscriber of teamID with err so their connections reconnect and resync.
func (h *Hub) dropRoom(teamID string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[teamID] {
		for room := range sub.rooms {
			h.leaveLocked(room, sub)
		}
		sub.close(err)
		log.Printf("broadcast: dropped subscriber %s from team %s: %v", sub.id, teamID, err)
	}
}

func (h *Hub) leaveLocked(teamID string, sub *Subscriber) {
	delete(sub.rooms, teamID)
	room, ok := h.rooms[teamID]
	if !ok {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, teamID)
		if h.subs != nil {
			h.subs.release(teamID)
		}
	}
}
