package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/policy/engine"
	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/repository"
	"scrumtools/backend/internal/poker/service"
	"scrumtools/backend/internal/server/interceptors"
)

var (
	host  = domain.Identity{ID: "u-host", Name: "Host"}
	guest = domain.Identity{ID: "u-guest", Name: "Guest"}
)

type auditEntry struct {
	teamID, userID, action, sessionID string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAudit) LogEvent(ctx context.Context, teamID, userID, action, sessionID, metadata string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{teamID, userID, action, sessionID})
}

func (f *fakeAudit) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeAuthorizer struct {
	allow bool
	err   error
	calls []engine.Input
	// during runs once, inside the first evaluation
	during func()
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, in engine.Input) (bool, error) {
	f.calls = append(f.calls, in)
	if during := f.during; during != nil {
		f.during = nil
		during()
	}
	return f.allow, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pokerv1.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, teamID string, ev *pokerv1.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	gw    *Gateway
	pub   *recordingPublisher
	audit *fakeAudit
}

func newFixture(repo repository.Repository, opts ...Option) fixture {
	if repo == nil {
		repo = repository.NewMemoryRepository()
	}
	pub := &recordingPublisher{}
	a := &fakeAudit{}
	svc := service.New(repo, service.WithNotifier(NewSessionPublisher(pub)))
	gw := New(svc, append([]Option{WithAuditLogger(a)}, opts...)...)
	return fixture{gw: gw, pub: pub, audit: a}
}

func as(id domain.Identity) context.Context {
	return interceptors.WithIdentity(context.Background(), id)
}

func asCommand(id domain.Identity, cmdID string) context.Context {
	return interceptors.WithCommandID(as(id), cmdID)
}

func TestGateway_RequiresAuthentication(t *testing.T) {
	f := newFixture(nil)
	_, err := f.gw.CreateSession(context.Background(), "team-1", "Login page", "")
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("CreateSession = %v, want ErrAuthentication", err)
	}
	if _, err := f.gw.ActiveSession(context.Background(), "team-1"); !errors.Is(err, domain.ErrAuthentication) {
		t.Errorf("ActiveSession = %v, want ErrAuthentication", err)
	}
	if len(f.pub.types()) != 0 || f.audit.count() != 0 {
		t.Error("unauthenticated command must not publish or audit")
	}
}

func TestGateway_FullRoundPublishesAndAudits(t *testing.T) {
	f := newFixture(nil)
	res, err := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	id := res.Session.ID
	steps := []func() error{
		func() error { _, err := f.gw.StartVoting(as(host), id); return err },
		func() error { _, err := f.gw.CastVote(as(guest), id, "5"); return err },
		func() error { _, err := f.gw.CastVote(as(host), id, "8"); return err },
		func() error { _, err := f.gw.RevealVotes(as(host), id); return err },
		func() error { _, err := f.gw.CompleteSession(as(host), id, "8"); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	want := []string{
		pokerv1.EventSessionCreated, pokerv1.EventVotingStarted, pokerv1.EventVoteCast,
		pokerv1.EventVoteCast, pokerv1.EventVotesRevealed, pokerv1.EventSessionCompleted,
	}
	got := f.pub.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if f.audit.count() != len(want) {
		t.Errorf("audit entries = %d, want %d", f.audit.count(), len(want))
	}
}

func TestGateway_FailureNotBroadcast(t *testing.T) {
	f := newFixture(nil)
	res, _ := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	before := len(f.pub.types())
	_, err := f.gw.StartVoting(as(guest), res.Session.ID)
	if !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("StartVoting by guest = %v, want ErrAuthorization", err)
	}
	if _, err := f.gw.CastVote(as(guest), res.Session.ID, "5"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("CastVote while waiting = %v, want ErrInvalidState", err)
	}
	if len(f.pub.types()) != before {
		t.Errorf("failed commands published events: %v", f.pub.types()[before:])
	}
	if f.audit.count() != 1 {
		t.Errorf("audit entries = %d, want 1", f.audit.count())
	}
}

func TestGateway_CommandIDReplaysResult(t *testing.T) {
	f := newFixture(nil)
	first, err := f.gw.CreateSession(asCommand(host, "cmd-1"), "team-1", "Login page", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := f.gw.CreateSession(asCommand(host, "cmd-1"), "team-1", "Login page", "")
	if err != nil {
		t.Fatalf("replayed CreateSession = %v, want first result", err)
	}
	if second.Session.ID != first.Session.ID {
		t.Errorf("replay id = %s, want %s", second.Session.ID, first.Session.ID)
	}
	if n := len(f.pub.types()); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
	if f.audit.count() != 1 {
		t.Errorf("audit entries = %d, want 1", f.audit.count())
	}
	// another principal with the same command id is a different command
	if _, err := f.gw.CreateSession(asCommand(guest, "cmd-1"), "team-1", "Other", ""); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("guest create = %v, want ErrConflict", err)
	}
}

func TestGateway_ConcurrentMirroredCommandAppliesOnce(t *testing.T) {
	f := newFixture(nil)
	res, _ := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	if _, err := f.gw.StartVoting(as(host), res.Session.ID); err != nil {
		t.Fatalf("StartVoting: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.gw.CastVote(asCommand(guest, "vote-1"), res.Session.ID, "5"); err != nil {
				t.Errorf("CastVote: %v", err)
			}
		}()
	}
	wg.Wait()
	votes := 0
	for _, typ := range f.pub.types() {
		if typ == pokerv1.EventVoteCast {
			votes++
		}
	}
	if votes != 1 {
		t.Errorf("VOTE_CAST events = %d, want 1", votes)
	}
}

func TestGateway_PolicyDenies(t *testing.T) {
	authz := &fakeAuthorizer{allow: false}
	f := newFixture(nil, WithAuthorizer(authz))
	_, err := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	if !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("CreateSession = %v, want ErrAuthorization", err)
	}
	if len(authz.calls) != 1 || authz.calls[0].Action != engine.ActionCreateSession || authz.calls[0].TeamID != "team-1" {
		t.Errorf("authorizer calls = %+v", authz.calls)
	}
}

func TestGateway_PolicyErrorDenies(t *testing.T) {
	f := newFixture(nil, WithAuthorizer(&fakeAuthorizer{allow: true, err: errors.New("boom")}))
	if _, err := f.gw.CreateSession(as(host), "team-1", "Login page", ""); !errors.Is(err, domain.ErrAuthorization) {
		t.Errorf("CreateSession = %v, want ErrAuthorization", err)
	}
}

func TestGateway_PolicySeesSessionFacts(t *testing.T) {
	authz := &fakeAuthorizer{allow: true}
	f := newFixture(nil, WithAuthorizer(authz))
	res, _ := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	if _, err := f.gw.StartVoting(as(host), res.Session.ID); err != nil {
		t.Fatalf("StartVoting: %v", err)
	}
	in := authz.calls[1]
	if in.Session == nil || in.Session.CreatedBy != host.ID || in.TeamID != "team-1" || in.Session.Status != string(domain.StatusWaiting) {
		t.Errorf("input = %+v session = %+v", in, in.Session)
	}
	if _, err := f.gw.StartVoting(as(host), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("StartVoting(missing) = %v, want ErrNotFound", err)
	}
}

func TestGateway_StaleSessionFactsRecheckedUnderLock(t *testing.T) {
	authz := &fakeAuthorizer{allow: true}
	f := newFixture(nil, WithAuthorizer(authz))
	res, err := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	authz.during = func() {
		if _, err := f.gw.StartVoting(as(host), res.Session.ID); err != nil {
			t.Errorf("concurrent StartVoting: %v", err)
		}
	}
	// the policy is shown WAITING, but voting starts before this command takes the team lock
	_, err = f.gw.StartVoting(as(host), res.Session.ID)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("StartVoting = %v, want ErrInvalidTransition", err)
	}
	if got := authz.calls[1].Session.Status; got != string(domain.StatusWaiting) {
		t.Errorf("policy saw %s, want the pre-lock WAITING facts", got)
	}

	if _, err := f.gw.RevealVotes(as(guest), res.Session.ID); !errors.Is(err, domain.ErrAuthorization) {
		t.Errorf("RevealVotes by guest with permissive policy = %v, want ErrAuthorization", err)
	}
}

func TestGateway_DefaultOPAPolicy(t *testing.T) {
	opa, err := engine.NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	f := newFixture(nil, WithAuthorizer(opa))
	res, err := f.gw.CreateSession(as(guest), "team-1", "Login page", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := f.gw.StartVoting(as(host), res.Session.ID); !errors.Is(err, domain.ErrAuthorization) {
		t.Errorf("StartVoting by non-creator = %v, want ErrAuthorization", err)
	}
	if _, err := f.gw.StartVoting(as(guest), res.Session.ID); err != nil {
		t.Errorf("StartVoting by creator: %v", err)
	}
}

// flakyRepo loses the first optimistic update race.
type flakyRepo struct {
	*repository.MemoryRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyRepo) Update(ctx context.Context, s *domain.Session, prevVersion int64) error {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return domain.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.MemoryRepository.Update(ctx, s, prevVersion)
}

func TestGateway_RetriesVersionConflict(t *testing.T) {
	repo := &flakyRepo{MemoryRepository: repository.NewMemoryRepository(), failures: 2}
	f := newFixture(repo)
	res, _ := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	out, err := f.gw.StartVoting(as(host), res.Session.ID)
	if err != nil {
		t.Fatalf("StartVoting after conflicts: %v", err)
	}
	if out.Session.Status != domain.StatusVoting {
		t.Errorf("status = %s, want VOTING", out.Session.Status)
	}
}

func TestGateway_RetriesExhausted(t *testing.T) {
	repo := &flakyRepo{MemoryRepository: repository.NewMemoryRepository(), failures: 10}
	f := newFixture(repo, WithMaxRetries(1))
	res, _ := f.gw.CreateSession(as(host), "team-1", "Login page", "")
	if _, err := f.gw.StartVoting(as(host), res.Session.ID); !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("StartVoting = %v, want ErrVersionConflict", err)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrAuthentication, pokerv1.ReasonAuthentication},
		{domain.ErrAuthorization, pokerv1.ReasonAuthorization},
		{domain.ErrInvalidState, pokerv1.ReasonInvalidState},
		{domain.ErrInvalidTransition, pokerv1.ReasonInvalidTransition},
		{domain.ErrInvalidValue, pokerv1.ReasonInvalidValue},
		{domain.ErrConflict, pokerv1.ReasonConflict},
		{domain.ErrNotFound, pokerv1.ReasonNotFound},
		{errors.New("disk on fire"), pokerv1.ReasonInternal},
	}
	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
	if !errors.Is(ErrorForReason(pokerv1.ReasonInvalidValue), domain.ErrInvalidValue) {
		t.Error("ErrorForReason(INVALID_VALUE) should be ErrInvalidValue")
	}
	if ErrorForReason("nope") != nil {
		t.Error("unknown reason should map to nil")
	}
}
