package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

// dueBuffer widens the due cutoff so a draft scheduled seconds ahead of the
// current tick is picked up now instead of one interval late.
const dueBuffer = 30 * time.Second

// forgivenessWindow is how far behind a time-of-day slot the scanner still
// treats it as due. It covers ticks that land just after the minute boundary.
const forgivenessWindow = time.Minute

// DueSlot pairs a due schedule with the wall-clock instant of the slot that
// triggered it.
type DueSlot struct {
	Schedule     *models.Schedule
	ScheduledFor time.Time // UTC
}

// Scanner finds work for a cycle: time-of-day slots that just came due and
// individually timestamped drafts whose publish instant has arrived.
type Scanner struct {
	sr     repository.ScheduleRepository
	dr     repository.DraftRepository
	maxDue int
}

func NewScanner(sr repository.ScheduleRepository, dr repository.DraftRepository, maxDue int) *Scanner {
	return &Scanner{sr: sr, dr: dr, maxDue: maxDue}
}

// DueSlots evaluates every started schedule against its own timezone and
// returns the slots matching the current or previous minute. Schedules whose
// upcoming work is already materialized as future-dated drafts are skipped so
// the two scheduling styles cannot double-post.
func (s *Scanner) DueSlots(ctx context.Context, now time.Time) ([]DueSlot, error) {
	schedules, err := s.sr.ListStarted(ctx, now)
	if err != nil {
		return nil, err
	}

	var due []DueSlot
	for _, sched := range schedules {
		if sched.EndDate != nil && sched.EndDate.Before(now) {
			continue
		}

		loc, err := time.LoadLocation(sched.Timezone)
		if err != nil {
			slog.Warn("invalid schedule timezone, falling back to UTC", "schedule_id", sched.ID, "timezone", sched.Timezone)
			loc = time.UTC
		}

		local := now.In(loc)

		// A one-shot schedule fires on its start day only.
		if sched.Recurrence == models.RecurrenceOnce && local.Format("2006-01-02") != sched.StartDate.Format("2006-01-02") {
			continue
		}

		cur := local.Format("15:04")
		prev := local.Add(-forgivenessWindow).Format("15:04")

		var slot string
		for _, t := range sched.Times {
			if t == cur || t == prev {
				slot = t
				break
			}
		}
		if slot == "" {
			continue
		}

		pending, err := s.dr.HasPendingAfter(ctx, sched.ID, now.Add(dueBuffer))
		if err != nil {
			return nil, err
		}
		if pending {
			continue
		}

		due = append(due, DueSlot{Schedule: sched, ScheduledFor: slotInstant(local, slot, loc)})
	}
	return due, nil
}

// DueDrafts returns pending drafts whose publish instant falls within the
// current tick, oldest first and capped per cycle.
func (s *Scanner) DueDrafts(ctx context.Context, now time.Time) ([]*models.Draft, error) {
	return s.dr.ListDue(ctx, now.Add(dueBuffer), s.maxDue)
}

// slotInstant anchors an "HH:MM" slot on the local calendar day and converts
// it to UTC. When the forgiveness window matched across midnight the slot
// belongs to the previous day.
func slotInstant(local time.Time, slot string, loc *time.Location) time.Time {
	t, _ := time.Parse("15:04", slot)
	day := local
	if local.Format("15:04") == "00:00" && slot != "00:00" {
		day = local.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc).UTC()
}
