package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks to the Supabase storage HTTP API. It is safe for concurrent use;
// a nil Client falls back to a shared client with a 30s timeout.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

func NewHTTPClient(baseURL, secretKey string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, SecretKey: secretKey, Client: &http.Client{Timeout: 30 * time.Second}}
}

type supabaseSignedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign API
	Path           string `json:"path"`
}

func (c *HTTPClient) check() error {
	if c.BaseURL == "" {
		return fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	return nil
}

func (c *HTTPClient) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return defaultHTTPClient
}

// objectPath escapes bucket and key as single path segments, so '#', '?' or spaces stay in the key.
func objectPath(bucket, key string) string {
	return url.PathEscape(bucket) + "/" + url.PathEscape(key)
}

func (c *HTTPClient) authorize(req *http.Request) {
	// Same as supabase-js: apikey and Authorization Bearer carry the same key
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
}

// CreateSignedUploadURL asks storage for a one-hour upload URL for bucket/path.
func (c *HTTPClient) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s", c.base(), objectPath(bucket, path))

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"expiresIn": 3600,
		"upsert":    false,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	var data supabaseSignedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	if data.SignedURL != "" {
		return data.SignedURL, nil
	}
	if data.SignedURLSnake != "" {
		return data.SignedURLSnake, nil
	}
	if data.URL != "" {
		// Relative URL (e.g. /object/upload/sign/...?token=...)
		u := data.URL
		if u[0] != '/' {
			u = "/" + u
		}
		if !strings.HasPrefix(u, "/storage/v1") {
			u = "/storage/v1" + u
		}
		return c.base() + u, nil
	}
	return "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}

// Upload stores data at bucket/path. Existing objects are not overwritten.
func (c *HTTPClient) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s", c.base(), objectPath(bucket, path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.authorize(req)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	_, err = c.do(req)
	return err
}

// PublicURL is where a public bucket serves bucket/path.
func (c *HTTPClient) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s", c.base(), objectPath(bucket, path))
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		// Invalid Compact JWS means the anon key was sent instead of service_role
		if resp.StatusCode == 400 || resp.StatusCode == 403 {
			if strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized") {
				return nil, fmt.Errorf("supabase storage requires the service_role key, not the anon key (raw body: %s)", bodyStr)
			}
		}
		return nil, fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}
	return respBody, nil
}

// SupabaseBlobStore puts listing images into a Supabase storage bucket.
type SupabaseBlobStore struct {
	Client *HTTPClient
	Bucket string
}

func (s *SupabaseBlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := s.Client.Upload(ctx, s.Bucket, key, contentType, data); err != nil {
		return "", err
	}
	return s.Client.PublicURL(s.Bucket, key), nil
}

func (s *SupabaseBlobStore) SignUpload(ctx context.Context, key string) (string, string, error) {
	signed, err := s.Client.CreateSignedUploadURL(ctx, s.Bucket, key)
	if err != nil {
		return "", "", err
	}
	return signed, s.Client.PublicURL(s.Bucket, key), nil
}
