package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tabsync/tabsync/internal/logging"
)

// GistOptions configures the GitHub Gist backend.
type GistOptions struct {
	// ID is the gist identifier. Empty means no remote exists yet; the
	// first Push creates a private gist lazily.
	ID string

	// Token is the GitHub personal access token.
	Token string

	// Filename is the gist file holding the document. Defaults to config.yaml.
	Filename string

	// APIBase overrides the GitHub API base URL (tests, GHE).
	APIBase string

	// Description is used when creating the gist.
	Description string

	// OnCreate is invoked with the new gist id after lazy creation, so the
	// caller can persist it for reuse.
	OnCreate func(id string)
}

const (
	defaultGistAPI         = "https://api.github.com"
	defaultGistFilename    = "config.yaml"
	defaultGistDescription = "Tabby terminal configuration"
)

// gistBackend stores the document as a single file in a private gist.
// Revisions are gist history versions. The Gist API has no conditional
// write, so Push re-reads the current version and rejects on mismatch
// before patching; the remaining race window is bounded by the engine's
// single revision-conflict retry.
type gistBackend struct {
	opts        GistOptions
	client      *http.Client
	maxAttempts uint
}

func newGistBackend(opts GistOptions, client *http.Client, maxAttempts uint) (*gistBackend, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: gist backend requires a token", ErrUnauthorized)
	}
	if opts.Filename == "" {
		opts.Filename = defaultGistFilename
	}
	if opts.APIBase == "" {
		opts.APIBase = defaultGistAPI
	}
	if opts.Description == "" {
		opts.Description = defaultGistDescription
	}
	return &gistBackend{opts: opts, client: client, maxAttempts: maxAttempts}, nil
}

func (g *gistBackend) Kind() string { return KindGist }

// gistPayload mirrors the subset of the Gist API response we consume.
type gistPayload struct {
	ID    string `json:"id"`
	Files map[string]struct {
		Content   string `json:"content"`
		Truncated bool   `json:"truncated"`
	} `json:"files"`
	History []struct {
		Version string `json:"version"`
	} `json:"history"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *gistBackend) Fetch(ctx context.Context) (*Fetched, error) {
	if g.opts.ID == "" {
		return nil, fmt.Errorf("%w: no gist configured", ErrNotFound)
	}

	return withRetry(ctx, "gist_fetch", g.maxAttempts, func() (*Fetched, error) {
		payload, err := g.get(ctx)
		if err != nil {
			return nil, err
		}

		file, ok := payload.Files[g.opts.Filename]
		if !ok {
			return nil, fmt.Errorf("%w: gist has no file %q", ErrNotFound, g.opts.Filename)
		}
		if file.Truncated {
			return nil, fmt.Errorf("%w: gist file %q truncated by API", ErrUnavailable, g.opts.Filename)
		}

		return &Fetched{
			Content:   []byte(file.Content),
			Revision:  payload.version(),
			UpdatedAt: payload.UpdatedAt,
		}, nil
	})
}

func (g *gistBackend) Push(ctx context.Context, content []byte, expectedRevision string) (string, error) {
	return withRetry(ctx, "gist_push", g.maxAttempts, func() (string, error) {
		if g.opts.ID == "" {
			return g.create(ctx, content)
		}

		current, err := g.get(ctx)
		if err != nil {
			if errors.Is(err, ErrNotFound) && expectedRevision == "" {
				return g.create(ctx, content)
			}
			return "", err
		}
		if current.version() != expectedRevision {
			return "", fmt.Errorf("%w: expected %q, backend at %q",
				ErrRevisionConflict, expectedRevision, current.version())
		}

		return g.patch(ctx, content)
	})
}

func (g *gistBackend) get(ctx context.Context) (*gistPayload, error) {
	return g.do(ctx, http.MethodGet, g.opts.APIBase+"/gists/"+g.opts.ID, nil)
}

func (g *gistBackend) patch(ctx context.Context, content []byte) (string, error) {
	body := map[string]any{
		"files": map[string]any{
			g.opts.Filename: map[string]string{"content": string(content)},
		},
	}
	payload, err := g.do(ctx, http.MethodPatch, g.opts.APIBase+"/gists/"+g.opts.ID, body)
	if err != nil {
		return "", err
	}
	return payload.version(), nil
}

// create makes a new private gist and reports its id through OnCreate.
func (g *gistBackend) create(ctx context.Context, content []byte) (string, error) {
	body := map[string]any{
		"description": g.opts.Description,
		"public":      false,
		"files": map[string]any{
			g.opts.Filename: map[string]string{"content": string(content)},
		},
	}
	payload, err := g.do(ctx, http.MethodPost, g.opts.APIBase+"/gists", body)
	if err != nil {
		return "", err
	}

	g.opts.ID = payload.ID
	logging.Info("created remote gist", logging.Revision(payload.version()))
	if g.opts.OnCreate != nil {
		g.opts.OnCreate(payload.ID)
	}

	return payload.version(), nil
}

func (g *gistBackend) do(ctx context.Context, method, url string, body any) (*gistPayload, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+g.opts.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError(resp.StatusCode, string(detail))
	}

	var payload gistPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed gist response: %v", ErrUnavailable, err)
	}
	return &payload, nil
}

// version returns the newest history entry, the gist's revision token.
func (p *gistPayload) version() string {
	if len(p.History) == 0 {
		return ""
	}
	return p.History[0].Version
}
