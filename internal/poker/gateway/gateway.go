// Package gateway is the single entry point for session commands from either channel.
// It authenticates, authorizes, deduplicates by command id and records audit and telemetry
// around the service call.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"scrumtools/backend/internal/audit"
	"scrumtools/backend/internal/platform/keylock"
	"scrumtools/backend/internal/policy/engine"
	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/service"
	"scrumtools/backend/internal/server/interceptors"
	"scrumtools/backend/internal/telemetry"
	telemetrydomain "scrumtools/backend/internal/telemetry/domain"
)

const (
	instrumentationName = "scrumtools/backend/internal/poker/gateway"
	defaultDedupeTTL    = 2 * time.Minute
	defaultMaxRetries   = 3
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithAuthorizer sets the policy consulted before every command. Without one, only the
// session state machine's own checks apply.
func WithAuthorizer(a engine.Authorizer) Option {
	return func(g *Gateway) { g.authz = a }
}

func WithAuditLogger(l audit.AuditLogger) Option {
	return func(g *Gateway) { g.audit = l }
}

func WithEmitter(e telemetry.EventEmitter) Option {
	return func(g *Gateway) { g.emitter = e }
}

// WithDedupeTTL sets how long a command id's result is replayed.
func WithDedupeTTL(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.dedupeTTL = d
		}
	}
}

// WithMaxRetries bounds retries of a command that lost an optimistic version race.
func WithMaxRetries(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// Gateway wraps a service.Service. It is safe for concurrent use.
type Gateway struct {
	svc        *service.Service
	authz      engine.Authorizer
	audit      audit.AuditLogger
	emitter    telemetry.EventEmitter
	dedupeTTL  time.Duration
	maxRetries int

	results  *ttlcache.Cache[string, service.Result]
	cmdLocks *keylock.Mutex
	tracer   trace.Tracer
	commands metric.Int64Counter
}

// New returns a Gateway over svc. Call Start to run cache expiry and Stop on shutdown.
func New(svc *service.Service, opts ...Option) *Gateway {
	g := &Gateway{
		svc:        svc,
		dedupeTTL:  defaultDedupeTTL,
		maxRetries: defaultMaxRetries,
		cmdLocks:   keylock.New(),
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.results = ttlcache.New(
		ttlcache.WithTTL[string, service.Result](g.dedupeTTL),
		ttlcache.WithDisableTouchOnHit[string, service.Result](),
	)
	counter, err := otel.Meter(instrumentationName).Int64Counter("poker.commands",
		metric.WithDescription("Session commands handled, by command and outcome."))
	if err != nil {
		log.Printf("gateway: commands counter: %v", err)
	}
	g.commands = counter
	return g
}

// Start runs the dedupe cache expiry loop until Stop.
func (g *Gateway) Start() {
	g.results.Start()
}

func (g *Gateway) Stop() {
	g.results.Stop()
}

// Scale is the deck new sessions use.
func (g *Gateway) Scale() domain.Scale {
	return g.svc.Scale()
}

// CreateSession opens a new round for teamID.
func (g *Gateway) CreateSession(ctx context.Context, teamID, title, description string) (service.Result, error) {
	return g.run(ctx, service.OpCreateSession, target{teamID: teamID}, func(ctx context.Context, p domain.Identity) (service.Result, error) {
		return g.svc.Create(ctx, teamID, title, description, p)
	})
}

func (g *Gateway) StartVoting(ctx context.Context, sessionID string) (service.Result, error) {
	return g.run(ctx, service.OpStartVoting, target{sessionID: sessionID}, func(ctx context.Context, p domain.Identity) (service.Result, error) {
		return g.svc.StartVoting(ctx, sessionID, p)
	})
}

func (g *Gateway) CastVote(ctx context.Context, sessionID, value string) (service.Result, error) {
	return g.run(ctx, service.OpCastVote, target{sessionID: sessionID}, func(ctx context.Context, p domain.Identity) (service.Result, error) {
		return g.svc.CastVote(ctx, sessionID, p, value)
	})
}

func (g *Gateway) RevealVotes(ctx context.Context, sessionID string) (service.Result, error) {
	return g.run(ctx, service.OpRevealVotes, target{sessionID: sessionID}, func(ctx context.Context, p domain.Identity) (service.Result, error) {
		return g.svc.Reveal(ctx, sessionID, p)
	})
}

func (g *Gateway) CompleteSession(ctx context.Context, sessionID, finalEstimate string) (service.Result, error) {
	return g.run(ctx, service.OpCompleteSession, target{sessionID: sessionID}, func(ctx context.Context, p domain.Identity) (service.Result, error) {
		return g.svc.Complete(ctx, sessionID, p, finalEstimate)
	})
}

// Session returns one session for an authenticated caller.
func (g *Gateway) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	if _, ok := interceptors.GetIdentity(ctx); !ok {
		return nil, domain.ErrAuthentication
	}
	return g.svc.Get(ctx, sessionID)
}

// ActiveSession returns the team's active session or nil.
func (g *Gateway) ActiveSession(ctx context.Context, teamID string) (*domain.Session, error) {
	if _, ok := interceptors.GetIdentity(ctx); !ok {
		return nil, domain.ErrAuthentication
	}
	return g.svc.Active(ctx, teamID)
}

// TeamSessions lists the team's sessions newest first.
func (g *Gateway) TeamSessions(ctx context.Context, teamID string, limit int) ([]*domain.Session, error) {
	if _, ok := interceptors.GetIdentity(ctx); !ok {
		return nil, domain.ErrAuthentication
	}
	return g.svc.List(ctx, teamID, limit)
}

type target struct {
	teamID    string
	sessionID string
}

type command func(ctx context.Context, principal domain.Identity) (service.Result, error)

func (g *Gateway) run(ctx context.Context, op service.Op, t target, apply command) (service.Result, error) {
	ctx, span := g.tracer.Start(ctx, "poker."+string(op), trace.WithAttributes(
		attribute.String("poker.team_id", t.teamID),
		attribute.String("poker.session_id", t.sessionID),
	))
	defer span.End()

	res, replayed, err := g.execute(ctx, op, t, apply)
	span.SetAttributes(attribute.Bool("poker.replayed", replayed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, Reason(err))
	}
	if g.commands != nil {
		g.commands.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", string(op)),
			attribute.String("outcome", outcome(err, replayed)),
		))
	}
	return res, err
}

func (g *Gateway) execute(ctx context.Context, op service.Op, t target, apply command) (service.Result, bool, error) {
	principal, ok := interceptors.GetIdentity(ctx)
	if !ok {
		return service.Result{}, false, domain.ErrAuthentication
	}

	cmdID := interceptors.GetCommandID(ctx)
	key := ""
	if cmdID != "" {
		key = principal.ID + "/" + string(op) + "/" + cmdID
		unlock := g.cmdLocks.Lock(key)
		defer unlock()
		if item := g.results.Get(key); item != nil {
			return item.Value(), true, nil
		}
	}

	if err := g.authorize(ctx, op, principal, t); err != nil {
		return service.Result{}, false, err
	}

	var (
		res service.Result
		err error
	)
	for attempt := 0; ; attempt++ {
		res, err = apply(ctx, principal)
		if !errors.Is(err, domain.ErrVersionConflict) || attempt >= g.maxRetries {
			break
		}
	}
	if err != nil {
		return service.Result{}, false, err
	}
	if key != "" {
		g.results.Set(key, res, ttlcache.DefaultTTL)
	}
	g.record(ctx, principal, cmdID, res)
	return res, false, nil
}

// authorize evaluates the policy before the team lock is taken, so the session facts it sees may be
// stale by the time the command runs. The service checks creator and status again under the lock;
// the policy can only narrow what the state machine allows.
func (g *Gateway) authorize(ctx context.Context, op service.Op, principal domain.Identity, t target) error {
	if g.authz == nil {
		return nil
	}
	in := engine.Input{Action: string(op), PrincipalID: principal.ID, TeamID: t.teamID}
	if t.sessionID != "" {
		sess, err := g.svc.Get(ctx, t.sessionID)
		if err != nil {
			return err
		}
		in.TeamID = sess.TeamID
		in.Session = &engine.SessionFacts{
			ID:        sess.ID,
			TeamID:    sess.TeamID,
			CreatedBy: sess.CreatedBy.ID,
			Status:    string(sess.Status),
		}
	}
	allowed, err := g.authz.Authorize(ctx, in)
	if err != nil {
		log.Printf("gateway: policy evaluation for %s failed: %v", op, err)
		return fmt.Errorf("%w: policy unavailable", domain.ErrAuthorization)
	}
	if !allowed {
		return fmt.Errorf("%w: %s denied for %s", domain.ErrAuthorization, op, principal.ID)
	}
	return nil
}

type recordMetadata struct {
	CommandID    string `json:"commandId,omitempty"`
	Status       string `json:"status"`
	Version      int64  `json:"version"`
	Changed      bool   `json:"changed"`
	SupersededID string `json:"supersededId,omitempty"`
}

// record writes the audit entry and emits telemetry for an applied command.
func (g *Gateway) record(ctx context.Context, principal domain.Identity, cmdID string, res service.Result) {
	if res.Session == nil {
		return
	}
	meta := recordMetadata{
		CommandID: cmdID,
		Status:    string(res.Session.Status),
		Version:   res.Session.Version,
		Changed:   res.Changed,
	}
	if res.Superseded != nil {
		meta.SupersededID = res.Superseded.ID
	}
	metaJSON, _ := json.Marshal(meta)
	if g.audit != nil {
		g.audit.LogEvent(ctx, res.Session.TeamID, principal.ID, string(res.Op), res.Session.ID, string(metaJSON))
	}
	telemetry.EmitAsync(g.emitter, ctx, &telemetrydomain.Event{
		TeamID:    res.Session.TeamID,
		UserID:    principal.ID,
		SessionID: res.Session.ID,
		EventType: string(res.Op),
		Source:    telemetrydomain.SourceGateway,
		Metadata:  metaJSON,
	})
}

func outcome(err error, replayed bool) string {
	switch {
	case err == nil && replayed:
		return "replayed"
	case err == nil:
		return "ok"
	default:
		return Reason(err)
	}
}
