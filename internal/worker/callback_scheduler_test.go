package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/starline/queue-callback/internal/ami"
	"github.com/starline/queue-callback/internal/domain"
	"github.com/starline/queue-callback/internal/ratelimiter"
	"github.com/starline/queue-callback/internal/repository"
)

// fakeManager records originate requests and lets tests flip liveness.
type fakeManager struct {
	live         bool
	originateErr error
	requests     []ami.OriginateRequest
}

func (f *fakeManager) Events() <-chan ami.Event { return nil }

func (f *fakeManager) QueueStatus(context.Context) (*ami.QueueStatusDump, error) {
	return &ami.QueueStatusDump{}, nil
}

func (f *fakeManager) Originate(_ context.Context, req ami.OriginateRequest) error {
	f.requests = append(f.requests, req)
	return f.originateErr
}

func (f *fakeManager) Live() bool { return f.live }

var testRouting = Routing{
	Trunk:    "trunk-out",
	Context:  "queue-callback",
	Exten:    "s",
	Priority: 1,
	CallerID: "CallCenter <5550000>",
	Timeout:  30 * time.Second,
}

func newScheduler(repo repository.QueueRepository, mgr ami.Manager, limit int, hooks SchedulerHooks) *CallbackScheduler {
	return NewCallbackScheduler(
		repo, mgr, []string{"Dev"}, testRouting,
		limit, time.Minute, ratelimiter.New(100), zap.NewNop(), hooks,
	)
}

func addCallback(t *testing.T, repo *repository.MockQueueRepository, uid, number string) {
	t.Helper()
	ctx := context.Background()
	err := repo.InsertEntry(ctx, &domain.QueueEntry{UID: uid, QueueName: "Dev", CallerID: number})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.ToggleCallback(ctx, uid, number, ""); err != nil {
		t.Fatal(err)
	}
}

func TestScheduler_OriginatesOldestAndIncrements(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	mgr := &fakeManager{live: true}
	cs := newScheduler(repo, mgr, 3, SchedulerHooks{})
	ctx := context.Background()

	addCallback(t, repo, "600.1", "5550601")
	addCallback(t, repo, "600.2", "5550602")

	cs.tick(ctx)

	if len(mgr.requests) != 1 {
		t.Fatalf("one origination per queue per tick, got %d", len(mgr.requests))
	}
	req := mgr.requests[0]
	if req.Channel != "SIP/5550601@trunk-out" {
		t.Fatalf("oldest entry must be dialed first, got channel %q", req.Channel)
	}
	if req.Context != "queue-callback" || req.Exten != "s" || req.Priority != 1 {
		t.Fatalf("unexpected routing: %+v", req)
	}
	if req.Variables["callbackUID"] != "600.1" || req.Variables["queueName"] != "Dev" {
		t.Fatalf("unexpected channel variables: %v", req.Variables)
	}

	e, err := repo.GetEntry(ctx, "600.1")
	if err != nil {
		t.Fatal(err)
	}
	if e.AttemptCount != 1 {
		t.Fatalf("attempt counter should be 1, got %d", e.AttemptCount)
	}
	if e2, _ := repo.GetEntry(ctx, "600.2"); e2.AttemptCount != 0 {
		t.Fatal("the younger entry must not be touched this tick")
	}
}

func TestScheduler_RecordVariablesAttached(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	mgr := &fakeManager{live: true}
	cs := newScheduler(repo, mgr, 3, SchedulerHooks{})

	addCallback(t, repo, "601.1", "5550611")
	ticket, dnid := "T-4711", "8005551000"
	repo.SetRecord("601.1", &ticket, &dnid)

	cs.tick(context.Background())

	if len(mgr.requests) != 1 {
		t.Fatalf("expected one origination, got %d", len(mgr.requests))
	}
	vars := mgr.requests[0].Variables
	if vars["itemID"] != "T-4711" || vars["callbackDNID"] != "8005551000" {
		t.Fatalf("record variables missing: %v", vars)
	}
}

func TestScheduler_LimitReachedRemovesWithoutDialing(t *testing.T) {
	var exhausted []string
	repo := repository.NewMockQueueRepository()
	mgr := &fakeManager{live: true}
	cs := newScheduler(repo, mgr, 3, SchedulerHooks{
		OnExhausted: func(queue string) { exhausted = append(exhausted, queue) },
	})
	ctx := context.Background()

	addCallback(t, repo, "602.1", "5550621")
	for i := 0; i < 3; i++ {
		if err := repo.IncrementAttempts(ctx, "602.1"); err != nil {
			t.Fatal(err)
		}
	}

	cs.tick(ctx)

	if len(mgr.requests) != 0 {
		t.Fatal("exhausted entries must not be dialed")
	}
	if _, err := repo.GetEntry(ctx, "602.1"); err != domain.ErrNotFound {
		t.Fatal("exhausted entry must be removed")
	}
	if len(exhausted) != 1 || exhausted[0] != "Dev" {
		t.Fatalf("exhausted hook: %v", exhausted)
	}
}

func TestScheduler_FailedOriginateStillCounts(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	mgr := &fakeManager{live: true, originateErr: errors.New("trunk congested")}
	cs := newScheduler(repo, mgr, 3, SchedulerHooks{})
	ctx := context.Background()

	addCallback(t, repo, "603.1", "5550631")
	cs.tick(ctx)

	e, err := repo.GetEntry(ctx, "603.1")
	if err != nil {
		t.Fatal(err)
	}
	if e.AttemptCount != 1 {
		t.Fatalf("failed originations still consume an attempt, got count %d", e.AttemptCount)
	}
}

func TestScheduler_IdleWhenManagerDown(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	mgr := &fakeManager{live: false}
	cs := newScheduler(repo, mgr, 3, SchedulerHooks{})
	ctx := context.Background()

	addCallback(t, repo, "604.1", "5550641")
	cs.tick(ctx)

	if len(mgr.requests) != 0 {
		t.Fatal("nothing may be dialed while the manager link is down")
	}
	if e, _ := repo.GetEntry(ctx, "604.1"); e.AttemptCount != 0 {
		t.Fatal("attempts must not be consumed while the manager link is down")
	}
}

func TestScheduler_NoCandidateIsQuiet(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	mgr := &fakeManager{live: true}
	cs := newScheduler(repo, mgr, 3, SchedulerHooks{})

	cs.tick(context.Background())
	if len(mgr.requests) != 0 {
		t.Fatal("empty queue must not originate")
	}
}

// Full lifecycle: with limit 3 a callback is dialed on three consecutive
// ticks, then the fourth tick removes it without dialing.
func TestScheduler_RetryLifecycle(t *testing.T) {
	var originated, exhausted int
	repo := repository.NewMockQueueRepository()
	mgr := &fakeManager{live: true, originateErr: errors.New("no answer")}
	cs := newScheduler(repo, mgr, 3, SchedulerHooks{
		OnOriginated: func(string) { originated++ },
		OnExhausted:  func(string) { exhausted++ },
	})
	ctx := context.Background()

	addCallback(t, repo, "605.1", "5550651")

	for i := 0; i < 4; i++ {
		cs.tick(ctx)
	}

	if originated != 3 {
		t.Fatalf("expected 3 dial attempts, got %d", originated)
	}
	if exhausted != 1 {
		t.Fatalf("expected 1 exhaustion, got %d", exhausted)
	}
	if len(mgr.requests) != 3 {
		t.Fatalf("expected 3 originate requests, got %d", len(mgr.requests))
	}
	if _, err := repo.GetEntry(ctx, "605.1"); err != domain.ErrNotFound {
		t.Fatal("entry must be gone after the limit is exhausted")
	}

	// A subsequent tick finds nothing to do.
	cs.tick(ctx)
	if len(mgr.requests) != 3 || exhausted != 1 {
		t.Fatal("ticks after removal must be no-ops")
	}
}
