// Package twitch is a minimal Helix API client: resolve a channel and list
// its archived broadcasts.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// Default endpoints.
const (
	DefaultBaseURL = "https://api.twitch.tv/helix/"
	DefaultAuthURL = "https://id.twitch.tv/oauth2/token"
)

// MaxPageSize is the largest "first" value Helix accepts.
const MaxPageSize = 100

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthURL      string
	Timeout      time.Duration // 0 means no timeout
}

// Client fetches users and videos from the Helix API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	clientID   string
	tokens     TokenSource
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource replaces the client-credentials token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient replaces the HTTP client used for API and token calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a new Helix client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		clientID:   cfg.ClientID,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = NewClientCredentialsTokenSource(cfg.AuthURL, cfg.ClientID, cfg.ClientSecret, c.httpClient)
	}

	return c, nil
}

// ResolveUser looks a channel up by login name.
func (c *Client) ResolveUser(ctx context.Context, login string) (*domain.User, error) {
	var users []userResponse
	if _, err := c.get(ctx, "users", url.Values{"login": {login}}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, &domain.NotFoundError{Kind: "channel", Name: login}
	}

	u := users[0].toDomain()
	c.logger.Debug("resolved channel", "login", login, "user_id", u.ID)
	return u, nil
}

// ListArchivedVideos returns the first page (up to MaxPageSize) of a user's
// past broadcasts, in API order. Further pages are not requested.
func (c *Client) ListArchivedVideos(ctx context.Context, userID string) ([]domain.Video, error) {
	query := url.Values{
		"user_id": {userID},
		"type":    {domain.VideoTypeArchive},
		"first":   {fmt.Sprint(MaxPageSize)},
	}

	var items []videoResponse
	page, err := c.get(ctx, "videos", query, &items)
	if err != nil {
		return nil, err
	}
	if page.Cursor != "" {
		c.logger.Debug("more videos available than one page; ignoring", "user_id", userID, "returned", len(items))
	}

	videos := make([]domain.Video, 0, len(items))
	for _, item := range items {
		videos = append(videos, item.toDomain())
	}
	return videos, nil
}

type pagination struct {
	Cursor string `json:"cursor"`
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination pagination      `json:"pagination"`
}

// get issues an authenticated GET against path and decodes the "data"
// array into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (pagination, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return pagination{}, err
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return pagination{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("twitch request", "path", path, "query", query.Encode())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pagination{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Debug("twitch error response", "path", path, "status", resp.StatusCode, "body", string(body))
		return pagination{}, &domain.APIError{Path: path, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return pagination{}, fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return pagination{}, fmt.Errorf("decode data: %w", err)
		}
	}

	return env.Pagination, nil
}
