package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/ratelimit"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

// Executor drives one draft through the full publish pipeline: token,
// media, rate gate, publish, persistence, audit log. Every attempt ends in a
// terminal draft status plus exactly one post log row.
type Executor struct {
	cfg    config.Config
	dr     repository.DraftRepository
	cr     repository.CampaignRepository
	ma     repository.MediaAssetRepository
	pl     repository.PostLogRepository
	tokens service.TokenService
	media  service.MediaService
	client service.XClient
	gate   *ratelimit.Gate
	sleep  func(time.Duration)
	now    func() time.Time
}

func NewExecutor(
	cfg config.Config,
	dr repository.DraftRepository,
	cr repository.CampaignRepository,
	ma repository.MediaAssetRepository,
	pl repository.PostLogRepository,
	tokens service.TokenService,
	media service.MediaService,
	client service.XClient,
	gate *ratelimit.Gate,
) *Executor {
	return &Executor{
		cfg:    cfg,
		dr:     dr,
		cr:     cr,
		ma:     ma,
		pl:     pl,
		tokens: tokens,
		media:  media,
		client: client,
		gate:   gate,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// ExecuteDraft publishes one pending draft. Non-pending drafts are left
// untouched. Pipeline errors become a failed draft status, not a returned
// error; the error return is reserved for persistence failures that must
// roll back the cycle.
func (e *Executor) ExecuteDraft(ctx context.Context, tx *sql.Tx, draft *models.Draft) error {
	if draft.Status != models.DraftStatusPending {
		slog.Info("draft not pending, skipping", "draft_id", draft.ID, "status", draft.Status)
		return nil
	}

	campaign, err := e.cr.GetByID(ctx, draft.CampaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return e.fail(ctx, tx, draft, fmt.Sprintf("campaign %s not found", draft.CampaignID))
	}

	assets, err := e.ma.ListByDraftID(ctx, draft.ID)
	if err != nil {
		return err
	}

	if e.cfg.MockPosting {
		return e.executeMock(ctx, tx, draft, assets)
	}

	accessToken, err := e.tokens.EnsureValidToken(ctx, campaign.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAuth) {
			return e.fail(ctx, tx, draft, err.Error())
		}
		return err
	}

	mediaIDs, mediaErrors := e.uploadMedia(ctx, tx, accessToken, assets)
	if len(assets) > 0 && len(mediaIDs) == 0 {
		// With no media resolved the post would silently drop its attachments.
		return e.failWithMedia(ctx, tx, draft, "all media uploads failed", len(assets), mediaIDs, mediaErrors)
	}

	if d := e.gate.Pacing(); d.Verdict == ratelimit.Wait {
		slog.Info("pacing publish", "draft_id", draft.ID, "wait", d.Wait)
		e.sleep(d.Wait)
	}
	if d := e.gate.AppQuota(); d.Verdict == ratelimit.Denied {
		return e.failWithMedia(ctx, tx, draft, d.Reason, len(assets), mediaIDs, mediaErrors)
	}
	if d := e.gate.UserQuota(campaign.UserID); d.Verdict == ratelimit.Denied {
		return e.failWithMedia(ctx, tx, draft, d.Reason, len(assets), mediaIDs, mediaErrors)
	}

	postID, rl, err := e.client.PublishPost(ctx, accessToken, draft.Text, mediaIDs)
	e.gate.Observe(campaign.UserID, rl, err == nil)
	if err != nil {
		return e.failWithMedia(ctx, tx, draft, err.Error(), len(assets), mediaIDs, mediaErrors)
	}

	postedAt := e.now().UTC()
	if err := e.dr.SetPosted(ctx, tx, draft.ID, postID, postedAt); err != nil {
		return err
	}
	draft.Status = models.DraftStatusPosted
	draft.XPostID = postID
	draft.PostedAt = &postedAt

	slog.Info("draft posted", "draft_id", draft.ID, "x_post_id", postID)
	return e.log(ctx, tx, draft, models.PostLogActionPosted, map[string]any{
		"message":         "posted to x",
		"x_post_id":       postID,
		"mock":            false,
		"media_attempted": len(assets),
		"media_uploaded":  len(mediaIDs),
		"media_errors":    mediaErrors,
	})
}

// executeMock simulates the publish without touching the network or the rate
// gate. Synthetic ids make mock runs distinguishable in the audit log.
func (e *Executor) executeMock(ctx context.Context, tx *sql.Tx, draft *models.Draft, assets []*models.MediaAsset) error {
	var mediaIDs []string
	for _, a := range assets {
		id, err := e.media.EnsureUploaded(ctx, tx, "", a)
		if err != nil {
			slog.Warn("mock media upload failed", "media_asset_id", a.ID, "error", err)
			continue
		}
		mediaIDs = append(mediaIDs, id)
	}

	postID, _, err := e.client.PublishPost(ctx, "", draft.Text, mediaIDs)
	if err != nil {
		return e.fail(ctx, tx, draft, err.Error())
	}

	postedAt := e.now().UTC()
	if err := e.dr.SetPosted(ctx, tx, draft.ID, postID, postedAt); err != nil {
		return err
	}
	draft.Status = models.DraftStatusPosted
	draft.XPostID = postID
	draft.PostedAt = &postedAt

	slog.Info("draft posted (mock)", "draft_id", draft.ID, "x_post_id", postID)
	return e.log(ctx, tx, draft, models.PostLogActionPosted, map[string]any{
		"message":         "mock post simulated",
		"x_post_id":       postID,
		"mock":            true,
		"media_attempted": len(assets),
		"media_uploaded":  len(mediaIDs),
	})
}

// uploadMedia resolves each asset to a platform media id. Individual failures
// are collected rather than aborting the post; a partial media set still
// publishes.
func (e *Executor) uploadMedia(ctx context.Context, tx *sql.Tx, accessToken string, assets []*models.MediaAsset) ([]string, []string) {
	var mediaIDs []string
	var mediaErrors []string
	for _, a := range assets {
		id, err := e.media.EnsureUploaded(ctx, tx, accessToken, a)
		if err != nil {
			slog.Warn("media upload failed", "media_asset_id", a.ID, "error", err)
			mediaErrors = append(mediaErrors, fmt.Sprintf("%s: %v", a.ID, err))
			continue
		}
		mediaIDs = append(mediaIDs, id)
	}
	return mediaIDs, mediaErrors
}

func (e *Executor) fail(ctx context.Context, tx *sql.Tx, draft *models.Draft, reason string) error {
	return e.failWithMedia(ctx, tx, draft, reason, 0, nil, nil)
}

func (e *Executor) failWithMedia(ctx context.Context, tx *sql.Tx, draft *models.Draft, reason string, attempted int, mediaIDs, mediaErrors []string) error {
	if err := e.dr.SetFailed(ctx, tx, draft.ID, reason); err != nil {
		return err
	}
	draft.Status = models.DraftStatusFailed
	draft.LastError = reason

	slog.Info("draft failed", "draft_id", draft.ID, "reason", reason)
	return e.log(ctx, tx, draft, models.PostLogActionFailed, map[string]any{
		"message":         reason,
		"mock":            e.cfg.MockPosting,
		"media_attempted": attempted,
		"media_uploaded":  len(mediaIDs),
		"media_errors":    mediaErrors,
	})
}

func (e *Executor) log(ctx context.Context, tx *sql.Tx, draft *models.Draft, action string, details map[string]any) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	_, err = e.pl.Create(ctx, tx, &models.PostLog{
		ID:         id,
		CampaignID: draft.CampaignID,
		DraftID:    &draft.ID,
		Action:     action,
		Details:    details,
	})
	return err
}
