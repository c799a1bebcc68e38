// Package remote talks to the pixel board backend: the HTTP endpoints for
// snapshots, writes and user state, and the websocket push channel.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gosuda/pixelboard/internal/domain"
)

const maxErrorBody = 512

// Client calls the backend HTTP API rooted at a base URL such as
// "http://localhost:8000/api". It is safe for concurrent use; overlapping
// calls do not share state.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Client. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSnapshot downloads the full board. A JSON envelope carries base64
// pixels and the board size; an octet-stream body is the raw packed payload
// with Width and Height left at zero.
func (c *Client) FetchSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	const op = "remote.Client.FetchSnapshot"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/board", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json, application/octet-stream")

	resp, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/octet-stream" {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, readErr)
		}
		return &domain.Snapshot{Pixels: data}, nil
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return &snap, nil
}

// WritePixel proposes a cell change. It never touches local state: success
// means the backend accepted the request, and the change itself arrives over
// the push channel.
func (c *Client) WritePixel(ctx context.Context, w domain.WriteRequest) error {
	const op = "remote.Client.WritePixel"

	resp, err := c.postJSON(ctx, op, "/writepixel", w)
	if err != nil {
		return err
	}
	drain(resp.Body)
	return nil
}

// UserCooldown returns how long the user must still wait before writing.
// Zero means a write is permitted now.
func (c *Client) UserCooldown(ctx context.Context, user string) (time.Duration, error) {
	const op = "remote.Client.UserCooldown"

	resp, err := c.postJSON(ctx, op, "/getuser", domain.UserStateRequest{User: user})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var seconds float64
	if err := json.NewDecoder(resp.Body).Decode(&seconds); err != nil {
		return 0, fmt.Errorf("%s: decode: %w", op, err)
	}
	if seconds <= 0 {
		return 0, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// PixelInfo looks up who last wrote the cell at (x, y).
func (c *Client) PixelInfo(ctx context.Context, x, y int) (*domain.PixelInfo, error) {
	const op = "remote.Client.PixelInfo"

	resp, err := c.postJSON(ctx, op, "/getpixel", domain.PixelQuery{X: x, Y: y})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info domain.PixelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return &info, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, op)
}

// do sends req and converts transport failures and non-2xx statuses to
// errors. On success the caller owns the body.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer drain(resp.Body)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func drain(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
