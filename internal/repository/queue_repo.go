package repository

import (
	"context"

	"github.com/starline/queue-callback/internal/domain"
)

// QueueRepository defines all persistence operations for queue entries,
// queue members, and the callback blacklist. Every write is a single atomic
// statement. The pgx implementation is in pg_queue_repo.go; tests use a
// hand-written mock (mock_queue_repo.go).
type QueueRepository interface {
	// Entries.
	InsertEntry(ctx context.Context, e *domain.QueueEntry) error
	GetEntry(ctx context.Context, uid string) (*domain.QueueEntry, error)
	// RemoveEntry deletes the entry for uid. Without force, entries flagged
	// for callback survive (a queue-leave must not lose a pending callback).
	RemoveEntry(ctx context.Context, uid string, force bool) error
	// ToggleCallback flips the callback flag and sets number/room in one
	// statement. Returns domain.ErrNotFound when no entry exists for uid.
	ToggleCallback(ctx context.Context, uid, number, room string) error
	IncrementAttempts(ctx context.Context, uid string) error
	// NextCallback returns the oldest callback-flagged entry for the queue,
	// joined with its call record. domain.ErrNotFound when none is pending.
	NextCallback(ctx context.Context, queueName string) (*domain.CallbackCandidate, error)
	ListEntries(ctx context.Context, queueName string) ([]*domain.QueueEntry, error)

	// Members. Uniqueness is on (queue, location).
	InsertMember(ctx context.Context, m *domain.QueueMember) error
	UpdateMemberStatus(ctx context.Context, queueName, location string, penalty, callsTaken int, lastCall int64, status domain.DeviceStatus, paused bool) error
	UpdateMemberPaused(ctx context.Context, queueName, location string, paused bool) error
	RemoveMember(ctx context.Context, queueName, location string) error
	ListMembers(ctx context.Context, queueName string) ([]*domain.QueueMember, error)

	// Blacklist. Managed externally; read-only here.
	IsBlacklisted(ctx context.Context, number string) (bool, error)

	// Bulk resets used only during queue (re)initialization. Idempotent.
	ClearNonCallbackEntries(ctx context.Context) error
	ClearAllMembers(ctx context.Context) error
}
