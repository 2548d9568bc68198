package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/starline/queue-callback/internal/agi"
	"github.com/starline/queue-callback/internal/domain"
	"github.com/starline/queue-callback/internal/repository"
)

// CallbackCommandService handles the two in-call commands exposed to the
// dialplan. Each command runs as a plain sequential function: validate, then
// mutate, then respond. The session is finished exactly once on every path.
// The commands only run inside monitored queues, so no queue filter is
// applied here.
type CallbackCommandService struct {
	repo       repository.QueueRepository
	logger     *zap.Logger
	onRejected func()
}

func NewCallbackCommandService(
	repo repository.QueueRepository,
	logger *zap.Logger,
	onRejected func(),
) *CallbackCommandService {
	if onRejected == nil {
		onRejected = func() {}
	}
	return &CallbackCommandService{repo: repo, logger: logger, onRejected: onRejected}
}

// ToggleCallback flips the callback flag for the calling session's uid.
// The callback number is the explicit "number" argument, falling back to the
// session's caller ID. A blacklisted number plays an audible rejection and
// leaves the entry untouched; toggling never creates an entry.
func (s *CallbackCommandService) ToggleCallback(ctx context.Context, sess agi.Session) error {
	uid := sess.Env("uniqueid")
	if uid == "" {
		_ = sess.Finish()
		return domain.ErrMissingUniqueID
	}

	number := sess.Arg("number")
	if number == "" {
		number = sess.Env("callerid")
	}
	if number == "" {
		_ = sess.Finish()
		return domain.ErrMissingNumber
	}

	banned, err := s.repo.IsBlacklisted(ctx, number)
	if err != nil {
		_ = sess.Finish()
		return fmt.Errorf("blacklist check: %w", err)
	}
	if banned {
		// Policy rejection, not an error: the caller hears the announcement
		// and the dialplan restarts from priority 1.
		s.logger.Info("callback number rejected",
			zap.String("uid", uid), zap.String("number", number))
		s.onRejected()
		_ = sess.SetVariable("INVALID", "1")
		_ = sess.StreamFile("privacy-incorrect")
		_ = sess.Wait(1)
		_ = sess.SetPriority(1)
		return sess.Finish()
	}

	if err := s.repo.ToggleCallback(ctx, uid, number, sess.Arg("room")); err != nil {
		_ = sess.Finish()
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("toggle for unknown session %s: %w", uid, err)
		}
		return fmt.Errorf("toggle callback: %w", err)
	}

	s.logger.Info("callback toggled",
		zap.String("uid", uid), zap.String("number", number))
	return sess.Finish()
}

// RemoveCallback force-deletes the queue entry named by the "uniqueid"
// argument, regardless of its callback flag. Used once a scheduled callback
// has been answered and the caller is back in the live queue, so the
// scheduler cannot dial them a second time. Removing an absent uid is not an
// error.
func (s *CallbackCommandService) RemoveCallback(ctx context.Context, sess agi.Session) error {
	uid := sess.Arg("uniqueid")
	if uid != "" {
		if err := s.repo.RemoveEntry(ctx, uid, true); err != nil {
			s.logger.Error("remove callback failed",
				zap.String("uid", uid), zap.Error(err))
		}
	}
	return sess.Finish()
}
