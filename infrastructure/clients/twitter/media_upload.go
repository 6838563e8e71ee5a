package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

// UploadChunkSize is the APPEND segment size. The remote API accepts up to
// 5 MiB per segment and requires strictly ascending indices.
const UploadChunkSize = 5 * 1024 * 1024

// chunkCount returns ceil(total/chunk).
func chunkCount(total, chunk int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + chunk - 1) / chunk)
}

type initParams struct {
	Command       string `url:"command"`
	TotalBytes    int64  `url:"total_bytes"`
	MediaType     string `url:"media_type"`
	MediaCategory string `url:"media_category"`
}

type finalizeParams struct {
	Command string `url:"command"`
	MediaID string `url:"media_id"`
}

type statusParams struct {
	Command string `url:"command"`
	MediaID string `url:"media_id"`
}

type processingInfo struct {
	State          string `json:"state"` // pending | in_progress | succeeded | failed
	CheckAfterSecs int    `json:"check_after_secs"`
	Error          *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type mediaUploadResponse struct {
	MediaIDString  string          `json:"media_id_string"`
	ProcessingInfo *processingInfo `json:"processing_info"`
}

// UploadImage is the single-shot fast path: one multipart POST of the whole
// buffer, media id in the response.
func (c *Client) UploadImage(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	if !conn.HasOAuth1() {
		return "", fmt.Errorf("image upload: %w", model.ErrRequiresReauthorization)
	}
	endpoint := c.uploadBase + "/1.1/media/upload.json"
	resp, err := c.postMedia(ctx, conn, endpoint, data, "")
	if err != nil {
		return "", err
	}
	if resp.MediaIDString == "" {
		return "", &model.MediaUploadError{Phase: "INIT", StatusCode: http.StatusOK, Body: "missing media id in upload response"}
	}
	return resp.MediaIDString, nil
}

// UploadVideo drives the chunked state machine: INIT declares the byte size
// and MIME type, APPEND ships 5 MiB segments in strict order, FINALIZE closes
// the upload, and STATUS is polled while the platform transcodes. Any APPEND
// failure aborts the whole upload; the caller restarts from INIT.
func (c *Client) UploadVideo(ctx context.Context, conn *model.Connection, data []byte, mimeType string) (string, error) {
	if !conn.HasOAuth1() {
		return "", fmt.Errorf("video upload: %w", model.ErrRequiresReauthorization)
	}
	session := &model.UploadSession{TotalBytes: int64(len(data)), State: model.UploadStateInitiated}

	mediaID, err := c.uploadInit(ctx, conn, session.TotalBytes, mimeType)
	if err != nil {
		session.State = model.UploadStateFailed
		return "", err
	}
	session.MediaID = mediaID

	session.State = model.UploadStateAppending
	if err := c.uploadAppend(ctx, conn, session, data); err != nil {
		session.State = model.UploadStateFailed
		return "", err
	}

	session.State = model.UploadStateFinalizing
	info, err := c.uploadFinalize(ctx, conn, mediaID)
	if err != nil {
		session.State = model.UploadStateFailed
		return "", err
	}

	if info != nil && info.State != "succeeded" {
		session.State = model.UploadStateProcessing
		if err := c.pollStatus(ctx, conn, mediaID); err != nil {
			session.State = model.UploadStateFailed
			return "", err
		}
	}
	session.State = model.UploadStateReady
	return mediaID, nil
}

func (c *Client) uploadInit(ctx context.Context, conn *model.Connection, totalBytes int64, mimeType string) (string, error) {
	params, _ := query.Values(initParams{
		Command:       "INIT",
		TotalBytes:    totalBytes,
		MediaType:     mimeType,
		MediaCategory: "tweet_video",
	})
	resp, err := c.signedForm(ctx, conn, http.MethodPost, c.uploadBase+"/1.1/media/upload.json", params, "INIT")
	if err != nil {
		return "", err
	}
	if resp.MediaIDString == "" {
		return "", &model.MediaUploadError{Phase: "INIT", StatusCode: http.StatusOK, Body: "missing media id in INIT response"}
	}
	return resp.MediaIDString, nil
}

func (c *Client) uploadAppend(ctx context.Context, conn *model.Connection, session *model.UploadSession, data []byte) error {
	total := int64(len(data))
	n := chunkCount(total, UploadChunkSize)
	for i := 0; i < n; i++ {
		start := int64(i) * UploadChunkSize
		end := start + UploadChunkSize
		if end > total {
			end = total
		}
		endpoint := fmt.Sprintf("%s/1.1/media/upload.json?command=APPEND&media_id=%s&segment_index=%d",
			c.uploadBase, url.QueryEscape(session.MediaID), i)
		if _, err := c.postMedia(ctx, conn, endpoint, data[start:end], "APPEND"); err != nil {
			// No partial-segment retry: the whole upload restarts at INIT.
			return err
		}
		session.ChunkSent = i + 1
	}
	return nil
}

func (c *Client) uploadFinalize(ctx context.Context, conn *model.Connection, mediaID string) (*processingInfo, error) {
	params, _ := query.Values(finalizeParams{Command: "FINALIZE", MediaID: mediaID})
	resp, err := c.signedForm(ctx, conn, http.MethodPost, c.uploadBase+"/1.1/media/upload.json", params, "FINALIZE")
	if err != nil {
		return nil, err
	}
	return resp.ProcessingInfo, nil
}

// pollStatus waits for server-side transcoding with a fixed sleep between
// attempts and a bounded attempt count. Exceeding the bound kills the media
// id; there is no resume.
func (c *Client) pollStatus(ctx context.Context, conn *model.Connection, mediaID string) error {
	params, _ := query.Values(statusParams{Command: "STATUS", MediaID: mediaID})
	endpoint := c.uploadBase + "/1.1/media/upload.json?" + params.Encode()
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		resp, err := c.signedGet(ctx, conn, endpoint)
		if err != nil {
			return err
		}
		if resp.ProcessingInfo == nil {
			return nil
		}
		switch resp.ProcessingInfo.State {
		case "succeeded":
			return nil
		case "failed":
			reason := "unknown"
			if resp.ProcessingInfo.Error != nil {
				reason = resp.ProcessingInfo.Error.Message
			}
			return &model.MediaProcessingError{MediaID: mediaID, Reason: reason}
		}
		// pending / in_progress: sleep and poll again
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	logger.GetLogger().WithField("media_id", mediaID).Warn("media processing poll bound exhausted")
	return model.ErrMediaProcessingTimeout
}

// signedForm POSTs command parameters in the query string under an OAuth1
// signature and decodes the JSON response.
func (c *Client) signedForm(ctx context.Context, conn *model.Connection, method, endpoint string, params url.Values, phase string) (*mediaUploadResponse, error) {
	full := endpoint + "?" + params.Encode()
	header, err := c.signer.AuthorizationHeader(method, full, nil, *conn.OAuth1Token, *conn.OAuth1TokenSecret)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	return c.doMedia(req, phase)
}

func (c *Client) signedGet(ctx context.Context, conn *model.Connection, endpoint string) (*mediaUploadResponse, error) {
	header, err := c.signer.AuthorizationHeader(http.MethodGet, endpoint, nil, *conn.OAuth1Token, *conn.OAuth1TokenSecret)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	return c.doMedia(req, "STATUS")
}

// postMedia sends one multipart body (whole image, or one video segment).
// Multipart bodies are excluded from the OAuth1 signature; only the query
// string and oauth parameters are signed.
func (c *Client) postMedia(ctx context.Context, conn *model.Connection, endpoint string, data []byte, phase string) (*mediaUploadResponse, error) {
	if phase == "" {
		phase = "INIT"
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	header, err := c.signer.AuthorizationHeader(http.MethodPost, endpoint, nil, *conn.OAuth1Token, *conn.OAuth1TokenSecret)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.doMedia(req, phase)
}

func (c *Client) doMedia(req *http.Request, phase string) (*mediaUploadResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media %s request failed: %w", phase, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 403 is commonly a scope problem, 429 rate limiting; both keep the
		// raw body for diagnostics and differ for the caller's retry policy.
		return nil, &model.MediaUploadError{Phase: phase, StatusCode: resp.StatusCode, Body: string(body)}
	}
	out := &mediaUploadResponse{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("decode media %s response: %w", phase, err)
		}
	}
	return out, nil
}
