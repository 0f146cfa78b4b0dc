package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

// Materializer turns a due schedule slot into a concrete pending draft. The
// (schedule_id, scheduled_for) pair is the identity of a slot, so repeated
// cycles over the same slot always resolve to the same draft row.
type Materializer struct {
	dr repository.DraftRepository
	dm repository.DraftMediaRepository
}

func NewMaterializer(dr repository.DraftRepository, dm repository.DraftMediaRepository) *Materializer {
	return &Materializer{dr: dr, dm: dm}
}

// Materialize returns the draft for the slot, creating it from the campaign's
// template when it does not exist yet. A campaign with no drafts at all yields
// (nil, nil); that slot is skipped, not failed.
func (m *Materializer) Materialize(ctx context.Context, tx *sql.Tx, schedule *models.Schedule, scheduledFor time.Time) (*models.Draft, error) {
	existing, err := m.dr.GetByScheduleAndTime(ctx, schedule.ID, scheduledFor)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	source, err := m.dr.GetTemplate(ctx, schedule.CampaignID, schedule.SelectedVariantIndex)
	if err != nil {
		return nil, err
	}
	if source == nil {
		source, err = m.dr.GetAnyByCampaign(ctx, schedule.CampaignID)
		if err != nil {
			return nil, err
		}
	}
	if source == nil {
		slog.Info("no draft source for campaign, skipping slot", "campaign_id", schedule.CampaignID, "schedule_id", schedule.ID)
		return nil, nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	draft := &models.Draft{
		ID:           id,
		CampaignID:   schedule.CampaignID,
		ScheduleID:   &schedule.ID,
		ScheduledFor: &scheduledFor,
		VariantIndex: source.VariantIndex,
		Text:         source.Text,
		CharCount:    source.CharCount,
		HashtagsUsed: source.HashtagsUsed,
		Status:       models.DraftStatusPending,
	}
	if _, err := m.dr.Create(ctx, tx, draft); err != nil {
		return nil, err
	}

	if err := m.copyMediaPlan(ctx, tx, source.ID, draft.ID); err != nil {
		return nil, err
	}

	return draft, nil
}

// copyMediaPlan duplicates the source draft's media attachments in order so
// the materialized draft posts with the same media set.
func (m *Materializer) copyMediaPlan(ctx context.Context, tx *sql.Tx, sourceID, draftID string) error {
	assocs, err := m.dm.ListByDraftID(ctx, sourceID)
	if err != nil {
		return err
	}

	for _, a := range assocs {
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		err = m.dm.Create(ctx, tx, &models.DraftMediaAsset{
			ID:           id,
			DraftID:      draftID,
			MediaAssetID: a.MediaAssetID,
			OrderIndex:   a.OrderIndex,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
