package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/handlers/slots"
	"slotmarket/internal/app/handlers/support"
	"slotmarket/internal/app/uow"
	domainslot "slotmarket/internal/domain/slot"
)

// SystemActorID marks transitions triggered by the scheduler rather than an admin.
const SystemActorID = "system:scheduler"

var ErrSchedulerNotConfigured = errors.New("schedule: scheduler missing dependencies")

// CampaignScheduler walks approved and live slots on a fixed cadence and moves
// them through the serving lifecycle once their campaign dates pass. Slots
// without dates are left to manual transitions.
type CampaignScheduler struct {
	Commands   commands.Bus
	UoWFactory uow.UoWFactory
	Interval   time.Duration
	Logger     *slog.Logger
}

func (s *CampaignScheduler) Run(ctx context.Context) error {
	if s.Commands == nil || s.UoWFactory == nil {
		return ErrSchedulerNotConfigured
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, time.Now().UTC())
		}
	}
}

func (s *CampaignScheduler) tick(ctx context.Context, now time.Time) {
	due, err := s.collectDue(ctx, now)
	if err != nil {
		s.warn("campaign scan failed", err)
		return
	}
	for _, cmd := range due {
		if _, err := s.Commands.Dispatch(ctx, cmd); err != nil {
			// a concurrent admin action may have moved the slot already
			s.warn("campaign transition failed", err, "key", cmd.Key())
		}
	}
}

func (s *CampaignScheduler) collectDue(ctx context.Context, now time.Time) ([]commands.Command, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	var due []commands.Command
	approved, err := unit.Slots().ListByState(execCtx, domainslot.StateApproved)
	if err != nil {
		return nil, err
	}
	for _, adSlot := range approved {
		if !adSlot.StartDate.IsZero() && !adSlot.StartDate.After(now) {
			due = append(due, slots.GoLiveCommand{SlotID: string(adSlot.ID), ActorID: SystemActorID})
		}
	}
	live, err := unit.Slots().ListByState(execCtx, domainslot.StateLive)
	if err != nil {
		return nil, err
	}
	for _, adSlot := range live {
		if !adSlot.EndDate.IsZero() && !adSlot.EndDate.After(now) {
			due = append(due, slots.EndSlotCommand{SlotID: string(adSlot.ID), ActorID: SystemActorID})
		}
	}
	return due, nil
}

func (s *CampaignScheduler) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return time.Minute
}

func (s *CampaignScheduler) warn(msg string, err error, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append([]any{"error", err}, args...)...)
}
