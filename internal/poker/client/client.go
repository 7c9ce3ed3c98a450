// Package client is the Go client for a planning-poker team room. It issues commands over the gRPC
// command channel, mirrors them over the WebSocket broadcast channel and keeps a reconciled local view
// of the room from both.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/net/websocket"
	"google.golang.org/grpc/metadata"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/handler"
)

const (
	defaultCommandTimeout = 10 * time.Second
	defaultSeenTTL        = 5 * time.Minute
	wsWriteTimeout        = 5 * time.Second
)

// Config is everything a client needs; nothing is read from the environment.
type Config struct {
	Token    string
	UserID   string
	UserName string
	TeamID   string
	// WSURL is the broadcast endpoint, e.g. ws://localhost:8080/ws.
	WSURL string
	// Origin sent on the WebSocket handshake. Defaults to WSURL with an http scheme.
	Origin string
	// CommandTimeout bounds each command round trip. Defaults to 10s.
	CommandTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBackOff replaces the reconnect schedule. newBackOff is called once per Run.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// WithIDGenerator replaces the command id source.
func WithIDGenerator(newID func() string) Option {
	return func(c *Client) { c.newID = newID }
}

// Client is one user's connection to one team room. Commands may be called from any goroutine;
// Run owns the broadcast connection.
type Client struct {
	cfg        Config
	rpc        pokerv1.PokerServiceClient
	newID      func() string
	newBackOff func() backoff.BackOff

	ready     chan struct{}
	readyOnce sync.Once
	changes   chan struct{}

	// seen holds event ids already applied and ids of commands this client issued.
	seen *ttlcache.Cache[string, struct{}]

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu   sync.Mutex
	view view
}

// New returns a client using rpc for commands. Call Run to connect the broadcast channel.
func New(cfg Config, rpc pokerv1.PokerServiceClient, opts ...Option) (*Client, error) {
	switch {
	case rpc == nil:
		return nil, errors.New("client: command channel is required")
	case strings.TrimSpace(cfg.TeamID) == "":
		return nil, errors.New("client: team id is required")
	case strings.TrimSpace(cfg.WSURL) == "":
		return nil, errors.New("client: websocket url is required")
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	if cfg.Origin == "" {
		cfg.Origin = "http" + strings.TrimPrefix(cfg.WSURL, "ws")
	}
	c := &Client{
		cfg:     cfg,
		rpc:     rpc,
		newID:   uuid.NewString,
		ready:   make(chan struct{}),
		changes: make(chan struct{}, 1),
		seen: ttlcache.New(
			ttlcache.WithTTL[string, struct{}](defaultSeenTTL),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ready is closed once the broadcast connection has been established and the room resynced.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Changes receives a signal whenever the local view changes. Signals coalesce.
func (c *Client) Changes() <-chan struct{} {
	return c.changes
}

// Session returns a copy of the local session, or nil.
func (c *Client) Session() *pokerv1.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneSession(c.view.session)
}

// Participants returns the last roster received.
func (c *Client) Participants() []pokerv1.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pokerv1.Participant(nil), c.view.roster...)
}

// Run keeps the broadcast connection up until ctx is cancelled, reconnecting with backoff. It returns
// nil on cancellation and an error wrapping domain.ErrAuthentication when the server rejects the
// credential, in which case the caller must supply a new token and call Run again.
func (c *Client) Run(ctx context.Context) error {
	go c.seen.Start()
	defer c.seen.Stop()

	b := c.newBackOff()
	for {
		connected, err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, domain.ErrAuthentication) {
			return err
		}
		if connected {
			b.Reset()
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("%w: giving up reconnecting: %v", domain.ErrTransport, err)
		}
		log.Printf("poker client: broadcast connection lost (%v), retrying in %s", err, wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// SetToken replaces the credential used by later commands and connection attempts.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.cfg.Token = token
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Token
}

func (c *Client) connectOnce(ctx context.Context) (bool, error) {
	cfg, err := websocket.NewConfig(c.cfg.WSURL, c.cfg.Origin)
	if err != nil {
		return false, err
	}
	cfg.Header = http.Header{"Authorization": {"Bearer " + c.token()}}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		if handshakeRejected(err) {
			return false, fmt.Errorf("%w: websocket handshake rejected", domain.ErrAuthentication)
		}
		return false, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	c.setConn(conn)
	defer c.setConn(nil)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	if err := c.send(pokerv1.Frame{Type: pokerv1.FrameJoinRoom, TeamID: c.cfg.TeamID}); err != nil {
		return false, err
	}
	// the socket buffers broadcasts while the snapshot is fetched; they are applied afterwards and
	// the version check discards whatever the snapshot already covers
	if err := c.Resync(ctx); err != nil {
		return false, err
	}
	c.readyOnce.Do(func() { close(c.ready) })

	for {
		var ev pokerv1.Event
		if err := websocket.JSON.Receive(conn, &ev); err != nil {
			return true, fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		c.handleEvent(ev)
	}
}

// handshakeRejected reports a non-101 answer to the upgrade, which the server only gives for a
// missing or invalid credential or a disallowed origin.
func handshakeRejected(err error) bool {
	var dialErr *websocket.DialError
	if errors.As(err, &dialErr) {
		return dialErr.Err == websocket.ErrBadStatus
	}
	return errors.Is(err, websocket.ErrBadStatus)
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
}

func (c *Client) send(frame pokerv1.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("%w: not connected", domain.ErrTransport)
	}
	frame.UserID = c.cfg.UserID
	frame.UserName = c.cfg.UserName
	frame.Timestamp = time.Now().UTC()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := websocket.JSON.Send(c.conn, frame); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return nil
}

// Resync replaces the local session with the server's active one. When the team has no active session
// the one held locally is re-fetched, so a round that ended while disconnected shows its final state.
func (c *Client) Resync(ctx context.Context) error {
	var resp *pokerv1.GetActiveSessionResponse
	err := c.call(ctx, func(ctx context.Context) (err error) {
		resp, err = c.rpc.GetActiveSession(ctx, &pokerv1.GetActiveSessionRequest{TeamID: c.cfg.TeamID})
		return err
	})
	if err != nil {
		return err
	}
	if resp.Session != nil {
		c.update(func(v *view) bool { return v.applySession(resp.Session, c.cfg.UserID) })
		return nil
	}

	c.mu.Lock()
	var heldID string
	if c.view.session != nil {
		heldID = c.view.session.ID
	}
	c.mu.Unlock()
	if heldID == "" {
		return nil
	}
	var sess *pokerv1.Session
	err = c.call(ctx, func(ctx context.Context) (err error) {
		sess, err = c.rpc.GetSession(ctx, &pokerv1.GetSessionRequest{SessionID: heldID})
		return err
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.update(func(v *view) bool { return v.dropSession(heldID) })
		return nil
	case err != nil:
		return err
	}
	c.update(func(v *view) bool { return v.applySession(sess, c.cfg.UserID) })
	return nil
}

func (c *Client) handleEvent(ev pokerv1.Event) {
	if ev.ID != "" {
		if c.seen.Has("ev:" + ev.ID) {
			return
		}
		c.seen.Set("ev:"+ev.ID, struct{}{}, ttlcache.DefaultTTL)
	}
	switch ev.Type {
	case pokerv1.EventSessionCreated, pokerv1.EventSessionUpdated, pokerv1.EventVotingStarted,
		pokerv1.EventVotesRevealed, pokerv1.EventSessionCompleted:
		c.update(func(v *view) bool { return v.applySession(ev.Session, c.cfg.UserID) })
	case pokerv1.EventVoteCast:
		c.update(func(v *view) bool {
			changed := v.applySession(ev.Session, c.cfg.UserID)
			if ev.Vote != nil && v.applyVote(ev.SessionID, *ev.Vote, c.cfg.UserID) {
				changed = true
			}
			return changed
		})
	case pokerv1.EventConnectionStatus:
		c.update(func(v *view) bool { v.setRoster(ev.ConnectedUsers); return true })
	case pokerv1.EventError:
		// mirrored commands fail here too; their gRPC twin reports the outcome
		if ev.CommandID != "" && c.seen.Has("cmd:"+ev.CommandID) {
			return
		}
		log.Printf("poker client: server error %s: %s", ev.Code, ev.Message)
	}
}

func (c *Client) update(fn func(v *view) bool) {
	c.mu.Lock()
	changed := fn(&c.view)
	c.mu.Unlock()
	if changed {
		select {
		case c.changes <- struct{}{}:
		default:
		}
	}
}

// CreateSession opens a new round for the client's team.
func (c *Client) CreateSession(ctx context.Context, title, description string) (*pokerv1.Session, error) {
	cmdID := c.command()
	return c.sessionCommand(ctx, func(ctx context.Context) (*pokerv1.Session, error) {
		return c.rpc.CreateSession(ctx, &pokerv1.CreateSessionRequest{
			TeamID: c.cfg.TeamID, StoryTitle: title, StoryDescription: description, CommandID: cmdID,
		})
	})
}

func (c *Client) StartVoting(ctx context.Context, sessionID string) (*pokerv1.Session, error) {
	cmdID := c.command()
	c.mirror(pokerv1.Frame{Type: pokerv1.FrameStartVoting, CommandID: cmdID, SessionID: sessionID})
	return c.sessionCommand(ctx, func(ctx context.Context) (*pokerv1.Session, error) {
		return c.rpc.StartVoting(ctx, &pokerv1.StartVotingRequest{SessionID: sessionID, CommandID: cmdID})
	})
}

// CastVote records the user's card and applies it to the local view with its value.
func (c *Client) CastVote(ctx context.Context, sessionID, value string) (*pokerv1.Vote, error) {
	cmdID := c.command()
	c.mirror(pokerv1.Frame{Type: pokerv1.FrameCastVote, CommandID: cmdID, SessionID: sessionID, VoteValue: value})
	var vote *pokerv1.Vote
	err := c.call(ctx, func(ctx context.Context) (err error) {
		vote, err = c.rpc.CastVote(ctx, &pokerv1.CastVoteRequest{SessionID: sessionID, VoteValue: value, CommandID: cmdID})
		return err
	})
	if err != nil {
		return nil, err
	}
	c.update(func(v *view) bool { return v.applyVote(sessionID, *vote, c.cfg.UserID) })
	return vote, nil
}

func (c *Client) RevealVotes(ctx context.Context, sessionID string) (*pokerv1.Session, error) {
	cmdID := c.command()
	c.mirror(pokerv1.Frame{Type: pokerv1.FrameRevealVotes, CommandID: cmdID, SessionID: sessionID})
	return c.sessionCommand(ctx, func(ctx context.Context) (*pokerv1.Session, error) {
		return c.rpc.RevealVotes(ctx, &pokerv1.RevealVotesRequest{SessionID: sessionID, CommandID: cmdID})
	})
}

func (c *Client) CompleteSession(ctx context.Context, sessionID, finalEstimate string) (*pokerv1.Session, error) {
	cmdID := c.command()
	c.mirror(pokerv1.Frame{Type: pokerv1.FrameCompleteSession, CommandID: cmdID, SessionID: sessionID, FinalEstimate: finalEstimate})
	return c.sessionCommand(ctx, func(ctx context.Context) (*pokerv1.Session, error) {
		return c.rpc.CompleteSession(ctx, &pokerv1.CompleteSessionRequest{SessionID: sessionID, FinalEstimate: finalEstimate, CommandID: cmdID})
	})
}

// command allocates a command id and remembers it as ours.
func (c *Client) command() string {
	id := c.newID()
	c.seen.Set("cmd:"+id, struct{}{}, ttlcache.DefaultTTL)
	return id
}

// mirror sends the advisory copy of a command. Failures are ignored; the gRPC call is authoritative.
func (c *Client) mirror(frame pokerv1.Frame) {
	frame.TeamID = c.cfg.TeamID
	_ = c.send(frame)
}

func (c *Client) sessionCommand(ctx context.Context, do func(ctx context.Context) (*pokerv1.Session, error)) (*pokerv1.Session, error) {
	var sess *pokerv1.Session
	err := c.call(ctx, func(ctx context.Context) (err error) {
		sess, err = do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.update(func(v *view) bool { return v.applySession(sess, c.cfg.UserID) })
	return sess, nil
}

// call runs one authenticated RPC bounded by CommandTimeout. A call that times out is reported as
// domain.ErrTransport: it may or may not have been applied, and retrying with the same command id is safe.
func (c *Client) call(ctx context.Context, do func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token())
	err := do(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response within %s", domain.ErrTransport, c.cfg.CommandTimeout)
	}
	return handler.ErrorFromStatus(err)
}
