package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMediaRepo struct {
	backup      []byte
	savedID     string
	savedXMedia string
}

func (f *fakeMediaRepo) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	return nil, nil
}

func (f *fakeMediaRepo) ListByDraftID(ctx context.Context, draftID string) ([]*models.MediaAsset, error) {
	return nil, nil
}

func (f *fakeMediaRepo) SetXMediaID(ctx context.Context, tx *sql.Tx, id, xMediaID string) error {
	f.savedID = id
	f.savedXMedia = xMediaID
	return nil
}

func (f *fakeMediaRepo) GetBackup(ctx context.Context, id string) ([]byte, error) {
	return f.backup, nil
}

type stubXClient struct {
	uploadData []byte
	uploadMime string
	uploadCat  string
	uploadErr  error
	altTexts   map[string]string
}

func (s *stubXClient) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploadData = data
	s.uploadMime = mimeType
	s.uploadCat = category
	return "uploaded_1", nil
}

func (s *stubXClient) AddAltText(ctx context.Context, accessToken, mediaID, altText string) error {
	if s.altTexts == nil {
		s.altTexts = map[string]string{}
	}
	s.altTexts[mediaID] = altText
	return nil
}

func (s *stubXClient) PublishPost(ctx context.Context, accessToken, text string, mediaIDs []string) (string, *ratelimit.Snapshot, error) {
	return "", nil, nil
}

// pngHeader is enough for filetype sniffing.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestEnsureUploadedUsesCachedID(t *testing.T) {
	repo := &fakeMediaRepo{}
	client := &stubXClient{uploadErr: errors.New("must not be called")}
	svc := NewMediaService(config.Config{}, repo, client, nil)

	asset := &models.MediaAsset{ID: "m1", XMediaID: "cached_9", Path: "does-not-exist.png"}
	id, err := svc.EnsureUploaded(context.Background(), nil, "tok", asset)
	require.NoError(t, err)
	assert.Equal(t, "cached_9", id)
	assert.Empty(t, repo.savedID)
}

func TestEnsureUploadedFromLocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pic.png"), pngHeader, 0o644))

	repo := &fakeMediaRepo{}
	client := &stubXClient{}
	svc := NewMediaService(config.Config{MediaDir: dir}, repo, client, nil)

	asset := &models.MediaAsset{ID: "m1", Path: "pic.png", Type: models.MediaTypeImage, AltText: "a picture"}
	id, err := svc.EnsureUploaded(context.Background(), nil, "tok", asset)
	require.NoError(t, err)
	assert.Equal(t, "uploaded_1", id)

	assert.Equal(t, pngHeader, client.uploadData)
	assert.Equal(t, "image/png", client.uploadMime)
	assert.Equal(t, MediaCategoryImage, client.uploadCat)
	assert.Equal(t, "a picture", client.altTexts["uploaded_1"])

	// Cached for the next attempt.
	assert.Equal(t, "m1", repo.savedID)
	assert.Equal(t, "uploaded_1", repo.savedXMedia)
	assert.Equal(t, "uploaded_1", asset.XMediaID)
}

func TestEnsureUploadedRestoresFromBackup(t *testing.T) {
	repo := &fakeMediaRepo{backup: pngHeader}
	client := &stubXClient{}
	svc := NewMediaService(config.Config{MediaDir: t.TempDir()}, repo, client, nil)

	asset := &models.MediaAsset{ID: "m1", Path: "gone.png", Type: models.MediaTypeImage}
	id, err := svc.EnsureUploaded(context.Background(), nil, "tok", asset)
	require.NoError(t, err)
	assert.Equal(t, "uploaded_1", id)
	assert.Equal(t, pngHeader, client.uploadData)
}

func TestEnsureUploadedVideoCategory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("not-really-mp4"), 0o644))

	repo := &fakeMediaRepo{}
	client := &stubXClient{}
	svc := NewMediaService(config.Config{MediaDir: dir}, repo, client, nil)

	asset := &models.MediaAsset{ID: "m1", Path: "clip.mp4", Type: models.MediaTypeVideo}
	_, err := svc.EnsureUploaded(context.Background(), nil, "tok", asset)
	require.NoError(t, err)
	assert.Equal(t, MediaCategoryVideo, client.uploadCat)
}

func TestEnsureUploadedMissingEverywhere(t *testing.T) {
	repo := &fakeMediaRepo{}
	client := &stubXClient{}
	svc := NewMediaService(config.Config{MediaDir: t.TempDir()}, repo, client, nil)

	asset := &models.MediaAsset{ID: "m1", Path: "gone.png", Type: models.MediaTypeImage}
	_, err := svc.EnsureUploaded(context.Background(), nil, "tok", asset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media file missing")
	assert.Empty(t, repo.savedID)
}

func TestEnsureUploadedUploadFailureNotCached(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pic.png"), pngHeader, 0o644))

	repo := &fakeMediaRepo{}
	client := &stubXClient{uploadErr: errors.New("boom")}
	svc := NewMediaService(config.Config{MediaDir: dir}, repo, client, nil)

	asset := &models.MediaAsset{ID: "m1", Path: "pic.png", Type: models.MediaTypeImage}
	_, err := svc.EnsureUploaded(context.Background(), nil, "tok", asset)
	require.Error(t, err)
	assert.Empty(t, repo.savedID)
	assert.Empty(t, asset.XMediaID)
}
