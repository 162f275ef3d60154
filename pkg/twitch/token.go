package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// TokenSource provides bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// tokenState is either empty (no token yet) or holds the session token.
type tokenState struct {
	value string
	ok    bool
}

// ClientCredentialsTokenSource performs the OAuth2 client-credentials grant
// once and caches the app access token for the life of the process. The
// token is never refreshed and never written anywhere.
type ClientCredentialsTokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	hc           *http.Client

	mu    sync.Mutex
	state tokenState
}

// NewClientCredentialsTokenSource creates a lazy token source.
func NewClientCredentialsTokenSource(tokenURL, clientID, clientSecret string, hc *http.Client) *ClientCredentialsTokenSource {
	if tokenURL == "" {
		tokenURL = DefaultAuthURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &ClientCredentialsTokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		hc:           hc,
	}
}

// Token returns the cached token, fetching it on first use.
func (s *ClientCredentialsTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.ok {
		return s.state.value, nil
	}

	token, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.state = tokenState{value: token, ok: true}
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (s *ClientCredentialsTokenSource) fetch(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.AuthError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", &domain.AuthError{StatusCode: resp.StatusCode, Status: "token response missing access_token"}
	}

	return tr.AccessToken, nil
}
