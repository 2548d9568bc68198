package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/starline/queue-callback/internal/ami"
	"github.com/starline/queue-callback/internal/domain"
	"github.com/starline/queue-callback/internal/ratelimiter"
	"github.com/starline/queue-callback/internal/repository"
)

// Routing carries the fixed outbound-call parameters every callback leg is
// placed with. Injected from configuration at construction.
type Routing struct {
	Trunk    string
	Context  string
	Exten    string
	Priority int
	CallerID string
	Timeout  time.Duration
}

// SchedulerHooks carries the metric callbacks injected by main.
type SchedulerHooks struct {
	OnOriginated func(queue string)
	OnExhausted  func(queue string)
}

// CallbackScheduler polls each monitored queue on a fixed interval and dials
// the oldest caller who asked for a callback.
//
// Attempt accounting is deliberately decoupled from the origination result:
// at this layer a ringing-but-unanswered line is indistinguishable from a
// connected one, so the counter increments on every attempt and a hard limit
// bounds redials against unreachable numbers. Whether a human actually
// answered is decided later by an in-call verification step.
type CallbackScheduler struct {
	repo     repository.QueueRepository
	mgr      ami.Manager
	queues   []string
	routing  Routing
	limit    int
	interval time.Duration
	limiter  *ratelimiter.QueueLimiters
	logger   *zap.Logger

	onOriginated func(queue string)
	onExhausted  func(queue string)
}

func NewCallbackScheduler(
	repo repository.QueueRepository,
	mgr ami.Manager,
	queues []string,
	routing Routing,
	limit int,
	interval time.Duration,
	limiter *ratelimiter.QueueLimiters,
	logger *zap.Logger,
	hooks SchedulerHooks,
) *CallbackScheduler {
	if hooks.OnOriginated == nil {
		hooks.OnOriginated = func(string) {}
	}
	if hooks.OnExhausted == nil {
		hooks.OnExhausted = func(string) {}
	}
	return &CallbackScheduler{
		repo:         repo,
		mgr:          mgr,
		queues:       queues,
		routing:      routing,
		limit:        limit,
		interval:     interval,
		limiter:      limiter,
		logger:       logger,
		onOriginated: hooks.OnOriginated,
		onExhausted:  hooks.OnExhausted,
	}
}

// Run ticks every interval until ctx is cancelled.
func (cs *CallbackScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	cs.logger.Info("callback scheduler started",
		zap.Duration("interval", cs.interval),
		zap.Int("attempt_limit", cs.limit),
		zap.Strings("queues", cs.queues),
	)

	for {
		select {
		case <-ctx.Done():
			cs.logger.Info("callback scheduler stopping")
			return
		case <-ticker.C:
			cs.tick(ctx)
		}
	}
}

// tick processes at most one callback candidate per monitored queue. Nothing
// is dialed while the manager connection is down; the next tick after a
// reconnect picks up where this one left off.
func (cs *CallbackScheduler) tick(ctx context.Context) {
	if !cs.mgr.Live() {
		return
	}
	for _, queue := range cs.queues {
		cs.dispatch(ctx, queue)
	}
}

func (cs *CallbackScheduler) dispatch(ctx context.Context, queue string) {
	cand, err := cs.repo.NextCallback(ctx, queue)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		cs.logger.Error("callback lookup failed",
			zap.String("queue", queue), zap.Error(err))
		return
	}

	log := cs.logger.With(
		zap.String("queue", queue),
		zap.String("uid", cand.UID),
		zap.Int("attempts", cand.AttemptCount),
	)

	if cand.AttemptCount >= cs.limit {
		log.Warn("callback attempt limit reached, giving up")
		if err := cs.repo.RemoveEntry(ctx, cand.UID, true); err != nil {
			log.Error("failed to remove exhausted callback", zap.Error(err))
		}
		cs.onExhausted(queue)
		return
	}

	if err := cs.limiter.Wait(ctx, queue); err != nil {
		// ctx cancelled while waiting for a dial token, shutting down.
		return
	}

	if err := cs.mgr.Originate(ctx, cs.originateRequest(cand)); err != nil {
		// Fire-and-forget: the attempt still counts. A leg that never rings
		// and one that rings unanswered are equivalent for accounting.
		log.Warn("originate failed", zap.Error(err))
	} else {
		log.Info("callback originated")
	}
	cs.onOriginated(queue)

	if err := cs.repo.IncrementAttempts(ctx, cand.UID); err != nil {
		log.Error("failed to increment attempt counter", zap.Error(err))
	}
}

func (cs *CallbackScheduler) originateRequest(cand *domain.CallbackCandidate) ami.OriginateRequest {
	number := ""
	if cand.CallbackNumber != nil {
		number = *cand.CallbackNumber
	}
	vars := map[string]string{
		"callbackUID": cand.UID,
		"queueName":   cand.QueueName,
	}
	if cand.Ticket != nil {
		vars["itemID"] = *cand.Ticket
	}
	if cand.Room != nil {
		vars["roomNumber"] = *cand.Room
	}
	if cand.DNID != nil {
		vars["callbackDNID"] = *cand.DNID
	}
	return ami.OriginateRequest{
		Channel:   "SIP/" + number + "@" + cs.routing.Trunk,
		Context:   cs.routing.Context,
		Exten:     cs.routing.Exten,
		Priority:  cs.routing.Priority,
		CallerID:  cs.routing.CallerID,
		Timeout:   cs.routing.Timeout,
		Variables: vars,
	}
}
