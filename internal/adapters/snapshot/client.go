// Package snapshot reads the session baseline from the HTTP snapshot
// endpoints.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/Seminar/internal/domain"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client for baseURL, e.g. "http://localhost:8080/api".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token handed out by the auth collaborator.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) FetchRoom(ctx context.Context, room domain.RoomID) (domain.Room, error) {
	var out domain.Room
	if err := c.get(ctx, "room", roomPath(room, ""), &out); err != nil {
		return domain.Room{}, err
	}
	if out.ID == "" {
		out.ID = room
	}
	return out, nil
}

func (c *Client) FetchRoster(ctx context.Context, room domain.RoomID) ([]domain.Participant, error) {
	var out struct {
		Participants []domain.Participant `json:"participants"`
	}
	if err := c.get(ctx, "roster", roomPath(room, "/participants"), &out); err != nil {
		return nil, err
	}
	return out.Participants, nil
}

func (c *Client) FetchChatTail(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	var out struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	path := roomPath(room, "/chat")
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	if err := c.get(ctx, "chat", path, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) FetchWhiteboard(ctx context.Context, room domain.RoomID) (domain.WhiteboardSnapshot, error) {
	var out domain.WhiteboardSnapshot
	if err := c.get(ctx, "whiteboard", roomPath(room, "/whiteboard"), &out); err != nil {
		return domain.WhiteboardSnapshot{}, err
	}
	return out, nil
}

func roomPath(room domain.RoomID, suffix string) string {
	return "/rooms/" + url.PathEscape(string(room)) + suffix
}

type errorResponse struct {
	Error string `json:"error"`
}

// get fetches path into dest. Every failure is a SnapshotFetchFailed.
func (c *Client) get(ctx context.Context, what, path string, dest any) error {
	op := "snapshot." + what
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return domain.NewError(domain.KindSnapshotFetchFailed, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.KindSnapshotFetchFailed, op, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewError(domain.KindSnapshotFetchFailed, op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= 400 {
		var er errorResponse
		if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
			return domain.NewError(domain.KindSnapshotFetchFailed, op, fmt.Errorf("api error (status %d): %s", resp.StatusCode, er.Error))
		}
		return domain.NewError(domain.KindSnapshotFetchFailed, op, fmt.Errorf("http error: status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return domain.NewError(domain.KindSnapshotFetchFailed, op, fmt.Errorf("unmarshal response: %w", err))
	}
	log.Debug().Str("module", "snapshot").Str("path", path).Dur("took", time.Since(start)).Msg("fetched")
	return nil
}
