package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/starline/queue-callback/internal/ami"
	"github.com/starline/queue-callback/internal/domain"
	"github.com/starline/queue-callback/internal/repository"
)

// EventHooks carries the metric callbacks injected by main.
// Nil hooks are replaced with no-ops.
type EventHooks struct {
	OnApplied func(event string)
	OnFailed  func(event string)
}

// QueueStateService translates manager events into store writes. Events for
// queues outside the monitored set are discarded before any store access.
//
// Writes are best-effort, at-most-once: a failed write is logged and the
// event dropped, never blocking later events.
type QueueStateService struct {
	repo      repository.QueueRepository
	monitored map[string]struct{}
	logger    *zap.Logger
	onApplied func(event string)
	onFailed  func(event string)
}

func NewQueueStateService(
	repo repository.QueueRepository,
	queues []string,
	logger *zap.Logger,
	hooks EventHooks,
) *QueueStateService {
	monitored := make(map[string]struct{}, len(queues))
	for _, q := range queues {
		monitored[q] = struct{}{}
	}
	if hooks.OnApplied == nil {
		hooks.OnApplied = func(string) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(string) {}
	}
	return &QueueStateService{
		repo:      repo,
		monitored: monitored,
		logger:    logger,
		onApplied: hooks.OnApplied,
		onFailed:  hooks.OnFailed,
	}
}

// Monitored reports whether queueName is in the configured monitored set.
func (s *QueueStateService) Monitored(queueName string) bool {
	_, ok := s.monitored[queueName]
	return ok
}

// Queues returns the monitored queue names.
func (s *QueueStateService) Queues() []string {
	names := make([]string, 0, len(s.monitored))
	for q := range s.monitored {
		names = append(names, q)
	}
	return names
}

// HandleEvent applies one manager event. The switch covers the entire closed
// event set; caller-abandoned and agent connect/dump/complete events are
// accepted without a state change.
func (s *QueueStateService) HandleEvent(ctx context.Context, ev ami.Event) {
	if !s.Monitored(ev.EventQueue()) {
		return
	}

	var err error
	switch e := ev.(type) {
	case ami.Join:
		err = s.repo.InsertEntry(ctx, &domain.QueueEntry{
			UID:       e.UniqueID,
			QueueName: e.Queue,
			CallerID:  e.CallerIDNum,
		})
	case ami.Leave:
		// Entries flagged for callback survive a leave: the caller is
		// expected to be re-dialed outside the live queue.
		err = s.repo.RemoveEntry(ctx, e.UniqueID, false)
	case ami.QueueCallerAbandoned:
		// Reflected in call-record status elsewhere.
	case ami.AgentConnect:
	case ami.AgentDump:
	case ami.AgentComplete:
	case ami.QueueMemberAdded:
		err = s.insertMember(ctx, e.Queue, e.MemberName, e.Location,
			e.Penalty, e.CallsTaken, e.LastCall, e.Status, e.Paused)
	case ami.QueueMemberStatus:
		err = s.repo.UpdateMemberStatus(ctx, e.Queue, e.Location,
			e.Penalty, e.CallsTaken, e.LastCall, e.Status, e.Paused)
	case ami.QueueMemberPaused:
		err = s.repo.UpdateMemberPaused(ctx, e.Queue, e.Location, e.Paused)
	case ami.QueueMemberRemoved:
		err = s.repo.RemoveMember(ctx, e.Queue, e.Location)
	}

	if err != nil {
		s.logger.Error("event dropped",
			zap.String("event", ev.EventName()),
			zap.String("queue", ev.EventQueue()),
			zap.Error(err),
		)
		s.onFailed(ev.EventName())
		return
	}
	s.onApplied(ev.EventName())
}

// Reconcile rebuilds queue state from a full-status dump: non-callback
// entries and all members are cleared, then the dump is replayed through the
// same per-record logic as live events. Callback-flagged entries survive the
// reset so pending callbacks outlive a manager reconnect.
func (s *QueueStateService) Reconcile(ctx context.Context, dump *ami.QueueStatusDump) error {
	if err := s.repo.ClearNonCallbackEntries(ctx); err != nil {
		return err
	}
	if err := s.repo.ClearAllMembers(ctx); err != nil {
		return err
	}

	for _, rec := range dump.Entries {
		if !s.Monitored(rec.Queue) {
			continue
		}
		err := s.repo.InsertEntry(ctx, &domain.QueueEntry{
			UID:       rec.UniqueID,
			QueueName: rec.Queue,
			CallerID:  rec.CallerIDNum,
		})
		if err != nil {
			s.logger.Error("reconcile: entry skipped",
				zap.String("uid", rec.UniqueID), zap.Error(err))
		}
	}

	for _, rec := range dump.Members {
		if !s.Monitored(rec.Queue) {
			continue
		}
		err := s.insertMember(ctx, rec.Queue, rec.Name, rec.Location,
			rec.Penalty, rec.CallsTaken, rec.LastCall, rec.Status, rec.Paused)
		if err != nil {
			s.logger.Error("reconcile: member skipped",
				zap.String("location", rec.Location), zap.Error(err))
		}
	}

	s.logger.Info("queue state reconciled",
		zap.Int("entries", len(dump.Entries)),
		zap.Int("members", len(dump.Members)),
	)
	return nil
}

func (s *QueueStateService) insertMember(ctx context.Context, queue, name, location string, penalty, callsTaken int, lastCall int64, status domain.DeviceStatus, paused bool) error {
	_, agent, err := domain.ParseLocation(location)
	if err != nil {
		return err
	}
	return s.repo.InsertMember(ctx, &domain.QueueMember{
		Agent:       agent,
		QueueName:   queue,
		DisplayName: name,
		Location:    location,
		Penalty:     penalty,
		CallsTaken:  callsTaken,
		LastCall:    lastCall,
		Status:      status,
		Paused:      paused,
	})
}
