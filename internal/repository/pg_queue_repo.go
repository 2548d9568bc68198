package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starline/queue-callback/internal/domain"
)

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) InsertEntry(ctx context.Context, e *domain.QueueEntry) error {
	if e.UID == "" {
		return domain.ErrMissingUniqueID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queue (uid, callback, callerid, queue_name, count, created_at)
		VALUES ($1, FALSE, $2, $3, 0, NOW())`,
		e.UID, e.CallerID, e.QueueName,
	)
	if err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) GetEntry(ctx context.Context, uid string) (*domain.QueueEntry, error) {
	if uid == "" {
		return nil, domain.ErrMissingUniqueID
	}
	row := r.pool.QueryRow(ctx, `
		SELECT uid, queue_name, callerid, callback, number, room, count, created_at
		FROM queue WHERE uid = $1`, uid)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

func (r *pgQueueRepository) RemoveEntry(ctx context.Context, uid string, force bool) error {
	if uid == "" {
		return domain.ErrMissingUniqueID
	}
	query := `DELETE FROM queue WHERE uid = $1`
	if !force {
		query += ` AND callback = FALSE`
	}
	if _, err := r.pool.Exec(ctx, query, uid); err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) ToggleCallback(ctx context.Context, uid, number, room string) error {
	if uid == "" {
		return domain.ErrMissingUniqueID
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE queue SET
			callback = NOT callback,
			number   = $1,
			room     = NULLIF($2, '')
		WHERE uid = $3`, number, room, uid)
	if err != nil {
		return fmt.Errorf("toggle callback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgQueueRepository) IncrementAttempts(ctx context.Context, uid string) error {
	if uid == "" {
		return domain.ErrMissingUniqueID
	}
	if _, err := r.pool.Exec(ctx,
		`UPDATE queue SET count = count + 1 WHERE uid = $1`, uid); err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) NextCallback(ctx context.Context, queueName string) (*domain.CallbackCandidate, error) {
	if queueName == "" {
		return nil, domain.ErrMissingQueue
	}
	row := r.pool.QueryRow(ctx, `
		SELECT q.uid, q.queue_name, q.callerid, q.callback, q.number, q.room,
		       q.count, q.created_at, r.ticket, r.caller_dnid
		FROM queue AS q
		LEFT JOIN records AS r ON r.uid = q.uid
		WHERE q.queue_name = $1 AND q.callback = TRUE
		ORDER BY q.id ASC
		LIMIT 1`, queueName)

	var c domain.CallbackCandidate
	err := row.Scan(
		&c.UID, &c.QueueName, &c.CallerID, &c.CallbackRequested,
		&c.CallbackNumber, &c.Room, &c.AttemptCount, &c.CreatedAt,
		&c.Ticket, &c.DNID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("next callback: %w", err)
	}
	return &c, nil
}

func (r *pgQueueRepository) ListEntries(ctx context.Context, queueName string) ([]*domain.QueueEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT uid, queue_name, callerid, callback, number, room, count, created_at
		FROM queue WHERE queue_name = $1 ORDER BY id ASC`, queueName)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgQueueRepository) InsertMember(ctx context.Context, m *domain.QueueMember) error {
	if m.QueueName == "" || m.Location == "" {
		return domain.ErrMissingQueue
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queue_members
			(agent, queue, name, location, penalty, calls_taken,
			 last_call, status, paused, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		ON CONFLICT (queue, location) DO UPDATE SET
			agent       = EXCLUDED.agent,
			name        = EXCLUDED.name,
			penalty     = EXCLUDED.penalty,
			calls_taken = EXCLUDED.calls_taken,
			last_call   = EXCLUDED.last_call,
			status      = EXCLUDED.status,
			paused      = EXCLUDED.paused,
			timestamp   = NOW()`,
		m.Agent, m.QueueName, m.DisplayName, m.Location, m.Penalty,
		m.CallsTaken, m.LastCall, int(m.Status), m.Paused,
	)
	if err != nil {
		return fmt.Errorf("insert queue member: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) UpdateMemberStatus(ctx context.Context, queueName, location string, penalty, callsTaken int, lastCall int64, status domain.DeviceStatus, paused bool) error {
	if queueName == "" || location == "" {
		return domain.ErrMissingQueue
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_members SET
			penalty     = $1,
			calls_taken = $2,
			last_call   = $3,
			status      = $4,
			paused      = $5,
			timestamp   = NOW()
		WHERE queue = $6 AND location = $7`,
		penalty, callsTaken, lastCall, int(status), paused, queueName, location)
	if err != nil {
		return fmt.Errorf("update member status: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) UpdateMemberPaused(ctx context.Context, queueName, location string, paused bool) error {
	if queueName == "" || location == "" {
		return domain.ErrMissingQueue
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_members SET paused = $1, timestamp = NOW()
		WHERE queue = $2 AND location = $3`, paused, queueName, location)
	if err != nil {
		return fmt.Errorf("update member paused: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) RemoveMember(ctx context.Context, queueName, location string) error {
	if queueName == "" || location == "" {
		return domain.ErrMissingQueue
	}
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM queue_members WHERE queue = $1 AND location = $2`,
		queueName, location); err != nil {
		return fmt.Errorf("remove queue member: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) ListMembers(ctx context.Context, queueName string) ([]*domain.QueueMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT agent, queue, name, location, penalty, calls_taken,
		       last_call, status, paused, timestamp
		FROM queue_members WHERE queue = $1 ORDER BY location ASC`, queueName)
	if err != nil {
		return nil, fmt.Errorf("list queue members: %w", err)
	}
	defer rows.Close()

	var members []*domain.QueueMember
	for rows.Next() {
		var m domain.QueueMember
		var status int
		if err := rows.Scan(
			&m.Agent, &m.QueueName, &m.DisplayName, &m.Location, &m.Penalty,
			&m.CallsTaken, &m.LastCall, &status, &m.Paused, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.Status = domain.DeviceStatus(status)
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *pgQueueRepository) IsBlacklisted(ctx context.Context, number string) (bool, error) {
	if number == "" {
		return false, domain.ErrMissingNumber
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM callback_blacklist WHERE number = $1)`,
		number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return exists, nil
}

func (r *pgQueueRepository) ClearNonCallbackEntries(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM queue WHERE callback = FALSE`); err != nil {
		return fmt.Errorf("clear non-callback entries: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) ClearAllMembers(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM queue_members`); err != nil {
		return fmt.Errorf("clear queue members: %w", err)
	}
	return nil
}

// scanEntry reads a single queue row from any pgx row type.
func scanEntry(row pgx.Row) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := row.Scan(
		&e.UID, &e.QueueName, &e.CallerID, &e.CallbackRequested,
		&e.CallbackNumber, &e.Room, &e.AttemptCount, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
