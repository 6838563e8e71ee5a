package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
)

// Client talks to the internal blob host where uploaded media is staged
// before publication. Presigned URLs it hands out are short-lived, so the
// publish path re-presigns right before fetching.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

func NewBlobStoreClient(cfg configuration.BlobStore) *Client {
	return &Client{
		host:       cfg.Host,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// PutObject stages bytes and returns the key the host assigned.
func (c *Client) PutObject(ctx context.Context, data []byte, contentType string) (string, error) {
	endpoint := fmt.Sprintf("%s/objects", c.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Api-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob store put failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("blob store put returned %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse put response: %w", err)
	}
	return out.Key, nil
}

func (c *Client) Presign(ctx context.Context, key string, ttlSeconds int) (string, error) {
	endpoint := fmt.Sprintf("%s/presign?key=%s&ttl=%s", c.host, url.QueryEscape(key), strconv.Itoa(ttlSeconds))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob store presign failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("blob store presign returned %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse presign response: %w", err)
	}
	return out.URL, nil
}

// Fetch downloads a presigned URL. Used by the publish path to move staged
// media into a platform upload.
func (c *Client) Fetch(ctx context.Context, presignedURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("blob fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("blob fetch returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

var _ repository.IBlobStore = (*Client)(nil)
