package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/broadcast"
	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/gateway"
	"scrumtools/backend/internal/poker/presence"
	"scrumtools/backend/internal/poker/projection"
	"scrumtools/backend/internal/server/interceptors"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
	wsWriteTimeout         = 10 * time.Second
)

var errOriginNotAllowed = errors.New("websocket origin not allowed")

// WSHandler serves the team room broadcast channel. Each connection gets one reader (this handler)
// and one writer goroutine draining its hub subscriber.
type WSHandler struct {
	gw       *gateway.Gateway
	hub      *broadcast.Hub
	presence *presence.Tracker
	tokens   interceptors.TokenValidator
	origins  []string
}

// NewWSHandler returns the /ws handler. An empty origins list, or "*", accepts any Origin.
func NewWSHandler(gw *gateway.Gateway, hub *broadcast.Hub, tracker *presence.Tracker, tokens interceptors.TokenValidator, origins []string) *WSHandler {
	return &WSHandler{gw: gw, hub: hub, presence: tracker, tokens: tokens, origins: origins}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := interceptors.Authenticate(h.tokens, accessToken(r))
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	ctx := interceptors.WithIdentity(r.Context(), id)
	ctx = interceptors.WithClientIP(ctx, requestIP(r))

	srv := websocket.Server{
		Handshake: h.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			h.serveConn(ctx, conn, id)
		},
	}
	srv.ServeHTTP(w, r.WithContext(ctx))
}

func accessToken(r *http.Request) string {
	if tok := interceptors.BearerToken(r.Header.Get("Authorization")); tok != "" {
		return tok
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return interceptors.HostOnly(r.RemoteAddr)
}

// checkOrigin replaces the default handshake check. Non-browser clients send no Origin and are accepted.
func (h *WSHandler) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	raw := r.Header.Get("Origin")
	if raw == "" {
		return nil
	}
	origin, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	cfg.Origin = origin
	if allowAnyOrigin(h.origins) {
		return nil
	}
	for _, o := range h.origins {
		if strings.EqualFold(strings.TrimRight(o, "/"), raw) {
			return nil
		}
	}
	return errOriginNotAllowed
}

func allowAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

type wsConn struct {
	h    *WSHandler
	conn *websocket.Conn
	sub  *broadcast.Subscriber
	id   domain.Identity
	room string
}

func (h *WSHandler) serveConn(ctx context.Context, conn *websocket.Conn, id domain.Identity) {
	conn.MaxPayloadBytes = maxFramePayloadBytes
	c := &wsConn{h: h, conn: conn, sub: h.hub.NewSubscriber(), id: id}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()
	defer func() {
		if c.room != "" {
			h.presence.Disconnect(ctx, c.room, c.sub.ID())
		}
		h.hub.Remove(c.sub)
		<-writerDone
		_ = conn.Close()
	}()
	c.readLoop(ctx)
}

// writeLoop drains the subscriber until it is closed, flushing whatever was queued before closing.
func (c *wsConn) writeLoop() {
	defer func() { _ = c.conn.Close() }()
	for {
		select {
		case ev := <-c.sub.Events():
			if err := c.write(ev); err != nil {
				return
			}
		case <-c.sub.Done():
			if err := c.sub.Err(); !errors.Is(err, broadcast.ErrClosed) {
				log.Printf("poker: ws %s dropped: %v", c.sub.ID(), err)
			}
			for {
				select {
				case ev := <-c.sub.Events():
					if err := c.write(ev); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *wsConn) write(ev *pokerv1.Event) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return websocket.JSON.Send(c.conn, ev)
}

func (c *wsConn) readLoop(ctx context.Context) {
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var data []byte
		err := websocket.Message.Receive(c.conn, &data)
		var frame pokerv1.Frame
		if err == nil {
			err = json.Unmarshal(data, &frame)
		}
		if err != nil {
			if isClosed(err) {
				return
			}
			decodeErrors++
			msg := "invalid frame payload"
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				msg = "frame too large"
			}
			c.sendError("", pokerv1.ReasonInvalidArgument, msg)
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			c.sendError(frame.CommandID, pokerv1.ReasonRateLimited, "rate limit exceeded")
			return
		}

		c.handle(ctx, frame)
	}
}

// isClosed reports read errors that mean the peer or the writer already closed the socket.
func isClosed(err error) bool {
	var netErr net.Error
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) || errors.As(err, &netErr)
}

func (c *wsConn) handle(ctx context.Context, frame pokerv1.Frame) {
	switch frame.Type {
	case pokerv1.FrameJoinRoom:
		c.join(ctx, frame)
	case pokerv1.FrameLeaveRoom:
		c.leaveAll(ctx)
	case pokerv1.FrameStartVoting, pokerv1.FrameCastVote, pokerv1.FrameRevealVotes, pokerv1.FrameCompleteSession:
		c.command(ctx, frame)
	default:
		c.sendError(frame.CommandID, pokerv1.ReasonInvalidArgument, "unsupported frame type")
	}
}

func (c *wsConn) join(ctx context.Context, frame pokerv1.Frame) {
	teamID := strings.TrimSpace(frame.TeamID)
	if teamID == "" {
		c.sendError(frame.CommandID, pokerv1.ReasonInvalidArgument, "teamId is required")
		return
	}
	if c.room != teamID {
		c.leave(ctx)
	}

	// Join returns once the room's subscription is live, so the snapshot read below misses nothing
	c.room = teamID
	if err := c.h.hub.Join(ctx, teamID, c.sub); err != nil {
		log.Printf("poker: ws %s join %s: %v", c.sub.ID(), teamID, err)
		c.room = ""
		return
	}
	roster := c.h.presence.Join(ctx, teamID, c.id, c.sub.ID())

	active, err := c.h.gw.ActiveSession(ctx, teamID)
	if err != nil {
		c.sendError(frame.CommandID, gateway.Reason(err), err.Error())
	} else if active != nil {
		ev := projection.NewEvent(pokerv1.EventSessionUpdated, teamID)
		ev.SessionID = active.ID
		ev.Session = projection.Session(active, c.id.ID)
		c.sub.Send(ev)
	}
	c.sub.Send(presence.StatusEvent(teamID, roster))
}

// leaveAll is an explicit leave: the identity drops out of the roster together with its other tabs.
func (c *wsConn) leaveAll(ctx context.Context) {
	if c.room == "" {
		return
	}
	c.h.presence.Leave(ctx, c.room, c.id)
	c.h.hub.Leave(c.room, c.sub)
	c.room = ""
}

func (c *wsConn) leave(ctx context.Context) {
	if c.room == "" {
		return
	}
	c.h.presence.Disconnect(ctx, c.room, c.sub.ID())
	c.h.hub.Leave(c.room, c.sub)
	c.room = ""
}

func (c *wsConn) command(ctx context.Context, frame pokerv1.Frame) {
	if strings.TrimSpace(frame.SessionID) == "" {
		c.sendError(frame.CommandID, pokerv1.ReasonInvalidArgument, "sessionId is required")
		return
	}
	ctx = interceptors.WithCommandID(ctx, frame.CommandID)
	var err error
	switch frame.Type {
	case pokerv1.FrameStartVoting:
		_, err = c.h.gw.StartVoting(ctx, frame.SessionID)
	case pokerv1.FrameCastVote:
		_, err = c.h.gw.CastVote(ctx, frame.SessionID, frame.VoteValue)
	case pokerv1.FrameRevealVotes:
		_, err = c.h.gw.RevealVotes(ctx, frame.SessionID)
	case pokerv1.FrameCompleteSession:
		_, err = c.h.gw.CompleteSession(ctx, frame.SessionID, frame.FinalEstimate)
	}
	if err != nil {
		c.sendError(frame.CommandID, gateway.Reason(err), err.Error())
	}
}

// sendError queues an ERROR for this connection only.
func (c *wsConn) sendError(commandID, code, msg string) {
	teamID := c.room
	if code == pokerv1.ReasonInternal {
		log.Printf("poker: ws %s: %s", c.sub.ID(), msg)
		msg = "internal error"
	}
	c.sub.Send(projection.ErrorEvent(teamID, commandID, code, msg))
}
