package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// StorageClient handles object storage operations.
type StorageClient struct {
	client *Client
}

// Upload uploads a file under the given key using the anon identity.
func (s *StorageClient) Upload(ctx context.Context, bucket, key string, data []byte, opts *UploadOptions) error {
	return s.upload(ctx, bucket, key, data, opts, "")
}

// UploadWithToken uploads a file as the token's identity so bucket
// policies apply.
func (s *StorageClient) UploadWithToken(ctx context.Context, bucket, key string, data []byte, opts *UploadOptions, accessToken string) error {
	return s.upload(ctx, bucket, key, data, opts, accessToken)
}

func (s *StorageClient) upload(ctx context.Context, bucket, key string, data []byte, opts *UploadOptions, accessToken string) error {
	urlStr := fmt.Sprintf("%s/object/%s/%s", s.client.storageURL, bucket, url.PathEscape(key))

	headers := map[string]string{}
	if opts != nil {
		if opts.ContentType != "" {
			headers["Content-Type"] = opts.ContentType
		}
		if opts.CacheControl != "" {
			headers["Cache-Control"] = opts.CacheControl
		}
		if opts.Upsert {
			headers["x-upsert"] = "true"
		}
	}
	if headers["Content-Type"] == "" {
		headers["Content-Type"] = "application/octet-stream"
	}

	var (
		respBody   []byte
		statusCode int
		err        error
	)
	if accessToken != "" {
		respBody, statusCode, err = s.client.requestWithToken(ctx, "POST", urlStr, data, headers, accessToken)
	} else {
		respBody, statusCode, err = s.client.request(ctx, "POST", urlStr, data, headers)
	}
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// Download retrieves a file.
func (s *StorageClient) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	urlStr := fmt.Sprintf("%s/object/%s/%s", s.client.storageURL, bucket, url.PathEscape(key))

	respBody, statusCode, err := s.client.request(ctx, "GET", urlStr, nil, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}
	return respBody, nil
}

// Delete removes files by key.
func (s *StorageClient) Delete(ctx context.Context, bucket string, keys []string) error {
	urlStr := fmt.Sprintf("%s/object/%s", s.client.storageURL, bucket)

	req := map[string]any{"prefixes": keys}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := s.client.requestWithServiceKey(ctx, "DELETE", urlStr, body, nil)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// GetPublicURL derives the public URL for a key in a public bucket.
func (s *StorageClient) GetPublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.client.storageURL, bucket, url.PathEscape(key))
}

// CreateSignedURL creates a time-limited URL for a key in a private bucket.
func (s *StorageClient) CreateSignedURL(ctx context.Context, bucket, key string, expiresIn int) (string, error) {
	urlStr := fmt.Sprintf("%s/object/sign/%s/%s", s.client.storageURL, bucket, url.PathEscape(key))

	req := map[string]any{"expiresIn": expiresIn}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := s.client.requestWithServiceKey(ctx, "POST", urlStr, body, nil)
	if err != nil {
		return "", err
	}
	if statusCode >= 400 {
		return "", parseError(respBody, statusCode)
	}

	var result struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return s.client.baseURL + result.SignedURL, nil
}
