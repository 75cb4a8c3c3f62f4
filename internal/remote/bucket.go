package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BucketOptions configures the object-storage bucket backend.
type BucketOptions struct {
	// Endpoint is the object store base URL, e.g. https://objects.example.com.
	Endpoint string

	// Bucket and Key locate the stored document.
	Bucket string
	Key    string

	// Token is sent as a bearer token when set.
	Token string
}

// bucketBackend stores the document as a single object in an S3-style
// store. The object's ETag is the revision token; writes use HTTP
// preconditions (If-Match / If-None-Match) so the revision check is atomic
// at the backend.
type bucketBackend struct {
	objectURL   string
	token       string
	client      *http.Client
	maxAttempts uint
}

func newBucketBackend(opts BucketOptions, client *http.Client, maxAttempts uint) (*bucketBackend, error) {
	if opts.Endpoint == "" || opts.Bucket == "" || opts.Key == "" {
		return nil, fmt.Errorf("bucket backend requires endpoint, bucket, and key")
	}
	base, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid bucket endpoint: %w", err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/" + opts.Bucket + "/" + opts.Key

	return &bucketBackend{
		objectURL:   base.String(),
		token:       opts.Token,
		client:      client,
		maxAttempts: maxAttempts,
	}, nil
}

func (b *bucketBackend) Kind() string { return KindBucket }

func (b *bucketBackend) Fetch(ctx context.Context) (*Fetched, error) {
	return withRetry(ctx, "bucket_fetch", b.maxAttempts, func() (*Fetched, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.objectURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		b.authorize(req)

		resp, err := b.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, statusError(resp.StatusCode, string(detail))
		}

		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		updatedAt := time.Now()
		if lm := resp.Header.Get("Last-Modified"); lm != "" {
			if t, err := http.ParseTime(lm); err == nil {
				updatedAt = t
			}
		}

		return &Fetched{
			Content:   content,
			Revision:  etag(resp.Header),
			UpdatedAt: updatedAt,
		}, nil
	})
}

func (b *bucketBackend) Push(ctx context.Context, content []byte, expectedRevision string) (string, error) {
	return withRetry(ctx, "bucket_push", b.maxAttempts, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.objectURL, bytes.NewReader(content))
		if err != nil {
			return "", fmt.Errorf("failed to build request: %w", err)
		}
		b.authorize(req)
		req.Header.Set("Content-Type", "application/yaml")

		if expectedRevision == "" {
			// Create-only: fail if any object already exists.
			req.Header.Set("If-None-Match", "*")
		} else {
			req.Header.Set("If-Match", `"`+expectedRevision+`"`)
		}

		resp, err := b.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusNoContent:
			return etag(resp.Header), nil
		default:
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return "", statusError(resp.StatusCode, string(detail))
		}
	})
}

func (b *bucketBackend) authorize(req *http.Request) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}

// etag returns the response ETag without surrounding quotes.
func etag(h http.Header) string {
	return strings.Trim(h.Get("ETag"), `"`)
}
