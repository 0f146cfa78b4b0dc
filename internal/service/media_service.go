package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

type MediaService interface {
	// EnsureUploaded returns the platform media reference for the asset,
	// uploading it first when no cached reference exists. The cached id is
	// persisted so later attempts never re-upload.
	EnsureUploaded(ctx context.Context, tx *sql.Tx, accessToken string, asset *models.MediaAsset) (string, error)
}

type mediaService struct {
	cfg    config.Config
	ma     repository.MediaAssetRepository
	client XClient
	r2     *R2Service // optional mirror, nil when R2 is not configured
}

func NewMediaService(cfg config.Config, ma repository.MediaAssetRepository, client XClient, r2 *R2Service) MediaService {
	return &mediaService{cfg: cfg, ma: ma, client: client, r2: r2}
}

func (s *mediaService) EnsureUploaded(ctx context.Context, tx *sql.Tx, accessToken string, asset *models.MediaAsset) (string, error) {
	if asset.XMediaID != "" {
		return asset.XMediaID, nil
	}

	path, cleanup, err := s.resolveFile(ctx, asset)
	if err != nil {
		return "", err
	}
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read media file: %w", err)
	}

	mimeType := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mimeType = kind.MIME.Value
	}

	category := MediaCategoryImage
	if asset.Type == models.MediaTypeVideo {
		category = MediaCategoryVideo
	}

	mediaID, err := s.client.UploadMedia(ctx, accessToken, data, mimeType, category)
	if err != nil {
		return "", err
	}

	// Alt text is best effort: a failure is worth a log line, not a failed
	// upload.
	if asset.AltText != "" {
		if err := s.client.AddAltText(ctx, accessToken, mediaID, asset.AltText); err != nil {
			slog.Warn("failed to attach alt text", "media_asset_id", asset.ID, "error", err)
		}
	}

	if err := s.ma.SetXMediaID(ctx, tx, asset.ID, mediaID); err != nil {
		return "", err
	}
	asset.XMediaID = mediaID

	return mediaID, nil
}

// resolveFile locates a readable copy of the asset. Preference order: the
// stored local path, the in-database backup blob, the R2 mirror. Restored
// copies land in a temp file that the returned cleanup always removes.
func (s *mediaService) resolveFile(ctx context.Context, asset *models.MediaAsset) (string, func(), error) {
	noop := func() {}

	path := asset.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.MediaDir, path)
	}
	if _, err := os.Stat(path); err == nil {
		return path, noop, nil
	}

	data, err := s.ma.GetBackup(ctx, asset.ID)
	if err != nil {
		return "", noop, err
	}

	if data == nil && s.r2 != nil && asset.StorageKey != "" {
		data, err = s.r2.Download(ctx, asset.StorageKey)
		if err != nil {
			slog.Warn("r2 restore failed", "media_asset_id", asset.ID, "error", err)
			data = nil
		}
	}

	if data == nil {
		return "", noop, fmt.Errorf("media file missing: %s (no backup available)", asset.Path)
	}

	tmp, err := os.CreateTemp("", "postpilot-media-*")
	if err != nil {
		return "", noop, fmt.Errorf("create temp media file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", noop, fmt.Errorf("write temp media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", noop, err
	}

	slog.Info("restored media from backup", "media_asset_id", asset.ID, "temp", tmp.Name())
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
