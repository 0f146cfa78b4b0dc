package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/ratelimit"
	"github.com/postpilothq/postpilot/internal/transfer"
)

// ParseRateLimits extracts quota counters from X response headers. X reports
// an app-wide 24h budget and a per-user window budget, on error responses
// (429 included) as well as on success. Absent headers leave the
// corresponding Has* flag false.
func ParseRateLimits(h http.Header) *ratelimit.Snapshot {
	rl := &ratelimit.Snapshot{}
	if v := h.Get("x-app-limit-24hour-remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.AppRemaining = n
			rl.HasApp = true
		}
	}
	if v := h.Get("x-app-limit-24hour-reset"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			rl.AppReset = time.Unix(secs, 0).UTC()
		}
	}
	if v := h.Get("x-rate-limit-remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.UserRemaining = n
			rl.HasUser = true
		}
	}
	if v := h.Get("x-rate-limit-reset"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			rl.UserReset = time.Unix(secs, 0).UTC()
		}
	}
	return rl
}

// XClient is the publishing backend: everything that talks to the platform.
// Selected once at startup, either live or mock.
type XClient interface {
	UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error)
	AddAltText(ctx context.Context, accessToken, mediaID, altText string) error
	PublishPost(ctx context.Context, accessToken, text string, mediaIDs []string) (string, *ratelimit.Snapshot, error)
}

const (
	// tweet_image goes through the simple upload; video and anything above
	// the simple-upload limit uses the chunked protocol.
	MediaCategoryImage = "tweet_image"
	MediaCategoryVideo = "tweet_video"

	simpleUploadLimit   = 5 * 1024 * 1024
	appendChunkSize     = 4 * 1024 * 1024
	maxProcessingChecks = 20
)

type liveXClient struct {
	cfg  config.Config
	http *http.Client
}

func NewXClient(cfg config.Config) XClient {
	if cfg.MockPosting {
		return &mockXClient{}
	}
	return &liveXClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *liveXClient) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error) {
	if category == MediaCategoryVideo || len(data) > simpleUploadLimit {
		return c.uploadChunked(ctx, accessToken, data, mimeType, category)
	}
	return c.uploadSimple(ctx, accessToken, data)
}

func (c *liveXClient) uploadSimple(ctx context.Context, accessToken string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	resp, err := c.doUpload(ctx, accessToken, &body, writer.FormDataContentType())
	if err != nil {
		return "", err
	}
	return resp.MediaIDString, nil
}

func (c *liveXClient) uploadChunked(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error) {
	initResp, err := c.uploadCommand(ctx, accessToken, url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(len(data))},
		"media_type":     {mimeType},
		"media_category": {category},
	})
	if err != nil {
		return "", fmt.Errorf("media INIT: %w", err)
	}
	mediaID := initResp.MediaIDString

	for segment := 0; segment*appendChunkSize < len(data); segment++ {
		start := segment * appendChunkSize
		end := start + appendChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := c.appendChunk(ctx, accessToken, mediaID, segment, data[start:end]); err != nil {
			return "", fmt.Errorf("media APPEND segment %d: %w", segment, err)
		}
	}

	finalizeResp, err := c.uploadCommand(ctx, accessToken, url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	})
	if err != nil {
		return "", fmt.Errorf("media FINALIZE: %w", err)
	}

	if finalizeResp.ProcessingInfo != nil {
		if err := c.awaitProcessing(ctx, accessToken, mediaID, finalizeResp.ProcessingInfo); err != nil {
			return "", err
		}
	}

	return mediaID, nil
}

func (c *liveXClient) appendChunk(ctx context.Context, accessToken, mediaID string, segment int, chunk []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("command", "APPEND")
	_ = writer.WriteField("media_id", mediaID)
	_ = writer.WriteField("segment_index", strconv.Itoa(segment))
	part, err := writer.CreateFormFile("media", "chunk")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.XUploadBaseURL+"/media/upload.json", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// APPEND returns 2xx with an empty body.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload append returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// awaitProcessing polls the STATUS command until the platform reports a
// terminal state, waiting the interval the platform asks for. The loop is
// bounded by maxProcessingChecks.
func (c *liveXClient) awaitProcessing(ctx context.Context, accessToken, mediaID string, info *transfer.XProcessingInfo) error {
	for attempt := 0; attempt < maxProcessingChecks; attempt++ {
		switch info.State {
		case "succeeded":
			return nil
		case "failed":
			if info.Error != nil {
				return fmt.Errorf("media processing failed: %s", info.Error.Message)
			}
			return errors.New("media processing failed")
		}

		wait := time.Duration(info.CheckAfterSecs) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		statusResp, err := c.uploadStatus(ctx, accessToken, mediaID)
		if err != nil {
			return fmt.Errorf("media STATUS: %w", err)
		}
		if statusResp.ProcessingInfo == nil {
			return nil
		}
		info = statusResp.ProcessingInfo
	}
	return errors.New("media processing did not finish in time")
}

func (c *liveXClient) uploadStatus(ctx context.Context, accessToken, mediaID string) (*transfer.XMediaUploadResponse, error) {
	statusURL := fmt.Sprintf("%s/media/upload.json?command=STATUS&media_id=%s", c.cfg.XUploadBaseURL, url.QueryEscape(mediaID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result transfer.XMediaUploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &result, nil
}

func (c *liveXClient) uploadCommand(ctx context.Context, accessToken string, form url.Values) (*transfer.XMediaUploadResponse, error) {
	body := strings.NewReader(form.Encode())
	return c.doUpload(ctx, accessToken, body, "application/x-www-form-urlencoded")
}

func (c *liveXClient) doUpload(ctx context.Context, accessToken string, body io.Reader, contentType string) (*transfer.XMediaUploadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.XUploadBaseURL+"/media/upload.json", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result transfer.XMediaUploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}

func (c *liveXClient) AddAltText(ctx context.Context, accessToken, mediaID, altText string) error {
	payload := map[string]any{
		"media_id": mediaID,
		"alt_text": map[string]string{"text": altText},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.XUploadBaseURL+"/media/metadata/create.json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("metadata endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *liveXClient) PublishPost(ctx context.Context, accessToken, text string, mediaIDs []string) (string, *ratelimit.Snapshot, error) {
	publishReq := transfer.XPublishRequest{Text: text}
	if len(mediaIDs) > 0 {
		publishReq.Media = &transfer.XPublishMedia{MediaIDs: mediaIDs}
	}

	data, err := json.Marshal(publishReq)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.XAPIBaseURL+"/tweets", bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	// Headers carry authoritative quota state on error responses too, so the
	// limits are parsed before any status check.
	rl := ParseRateLimits(resp.Header)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", rl, err
	}

	var result transfer.XPublishResponse
	if err := json.Unmarshal(respBody, &result); err != nil && resp.StatusCode < 300 {
		return "", rl, fmt.Errorf("decode publish response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := result.Detail
		if detail == "" {
			detail = string(respBody)
		}
		return "", rl, fmt.Errorf("publish returned %d: %s", resp.StatusCode, detail)
	}
	if result.Data.ID == "" {
		return "", rl, errors.New("publish response missing post id")
	}

	slog.Info("post published", "x_post_id", result.Data.ID)
	return result.Data.ID, rl, nil
}

// mockXClient simulates the platform for sandboxed operation. No network
// calls, no quota headers.
type mockXClient struct{}

func (c *mockXClient) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	return "mock_media_" + id, nil
}

func (c *mockXClient) AddAltText(ctx context.Context, accessToken, mediaID, altText string) error {
	return nil
}

func (c *mockXClient) PublishPost(ctx context.Context, accessToken, text string, mediaIDs []string) (string, *ratelimit.Snapshot, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", nil, err
	}
	slog.Info("mock post published", "text", truncate(text, 50), "media_count", len(mediaIDs))
	return "mock_post_" + id, nil, nil
}
