package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

const (
	defaultPostIntervalMin = 120 // seconds
	defaultPostIntervalMax = 300
)

// Worker runs scheduler cycles on a fixed interval. One cycle is one
// database transaction: either all of its status changes and log rows land,
// or none do. Cycles never overlap.
type Worker struct {
	db      *sql.DB
	cfg     config.Config
	scanner *Scanner
	mat     *Materializer
	exec    *Executor
	sr      repository.ScheduleRepository
	pl      repository.PostLogRepository
	sleep   func(time.Duration)
	rng     *rand.Rand
	now     func() time.Time
}

func NewWorker(
	db *sql.DB,
	cfg config.Config,
	scanner *Scanner,
	mat *Materializer,
	exec *Executor,
	sr repository.ScheduleRepository,
	pl repository.PostLogRepository,
) *Worker {
	return &Worker{
		db:      db,
		cfg:     cfg,
		scanner: scanner,
		mat:     mat,
		exec:    exec,
		sr:      sr,
		pl:      pl,
		sleep:   time.Sleep,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// Run ticks until the context is cancelled. Transient cycle errors are
// tolerated up to the consecutive-failure threshold, then Run returns the
// last error so the process can exit non-zero and get restarted.
func (w *Worker) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.SchedulerInterval) * time.Second
	slog.Info("scheduler worker started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		if err := w.RunCycle(ctx, w.now().UTC()); err != nil {
			failures++
			slog.Error("scheduler cycle failed", "error", err, "consecutive_failures", failures)
			if failures >= w.cfg.MaxConsecutiveFailures {
				return fmt.Errorf("scheduler aborting after %d consecutive failures: %w", failures, err)
			}
		} else {
			failures = 0
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle materializes and executes everything due at now inside a single
// transaction.
func (w *Worker) RunCycle(ctx context.Context, now time.Time) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Transaction writes are invisible to the non-tx reads below, so track
	// drafts already handled this cycle to keep the two scheduling paths from
	// processing the same draft twice.
	done := make(map[string]bool)
	executed := 0

	slots, err := w.scanner.DueSlots(ctx, now)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		draft, err := w.mat.Materialize(ctx, tx, slot.Schedule, slot.ScheduledFor)
		if err != nil {
			return err
		}
		if draft == nil {
			continue
		}
		done[draft.ID] = true
		if draft.Status != models.DraftStatusPending {
			continue
		}

		if !slot.Schedule.AutoPost {
			if err := w.logReady(ctx, tx, draft); err != nil {
				return err
			}
			continue
		}

		if executed > 0 {
			w.sleep(w.postInterval(slot.Schedule))
		}
		if err := w.exec.ExecuteDraft(ctx, tx, draft); err != nil {
			return err
		}
		executed++
	}

	drafts, err := w.scanner.DueDrafts(ctx, now)
	if err != nil {
		return err
	}
	schedules := make(map[string]*models.Schedule)
	for _, draft := range drafts {
		if done[draft.ID] || draft.Status != models.DraftStatusPending {
			continue
		}

		var sched *models.Schedule
		if draft.ScheduleID != nil {
			sched, err = w.cachedSchedule(ctx, schedules, *draft.ScheduleID)
			if err != nil {
				return err
			}
		}
		if sched != nil && !sched.AutoPost {
			continue
		}

		if executed > 0 {
			w.sleep(w.postInterval(sched))
		}
		if err := w.exec.ExecuteDraft(ctx, tx, draft); err != nil {
			return err
		}
		executed++
	}

	return tx.Commit()
}

func (w *Worker) cachedSchedule(ctx context.Context, cache map[string]*models.Schedule, id string) (*models.Schedule, error) {
	if s, ok := cache[id]; ok {
		return s, nil
	}
	s, err := w.sr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = s
	return s, nil
}

// postInterval draws a randomized gap between consecutive posts in one cycle
// so a batch does not read as machine fire.
func (w *Worker) postInterval(s *models.Schedule) time.Duration {
	min, max := defaultPostIntervalMin, defaultPostIntervalMax
	if s != nil && s.PostIntervalMin > 0 && s.PostIntervalMax >= s.PostIntervalMin {
		min, max = s.PostIntervalMin, s.PostIntervalMax
	}
	gap := min
	if max > min {
		gap = min + w.rng.Intn(max-min+1)
	}
	return time.Duration(gap) * time.Second
}

func (w *Worker) logReady(ctx context.Context, tx *sql.Tx, draft *models.Draft) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	slog.Info("draft ready for manual posting", "draft_id", draft.ID)
	_, err = w.pl.Create(ctx, tx, &models.PostLog{
		ID:         id,
		CampaignID: draft.CampaignID,
		DraftID:    &draft.ID,
		Action:     models.PostLogActionScheduled,
		Details: map[string]any{
			"message": "draft ready for manual posting",
		},
	})
	return err
}
