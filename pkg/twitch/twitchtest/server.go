// Package twitchtest provides an in-process fake of the Helix endpoints used
// by package twitch.
package twitchtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Credentials accepted by the fake auth endpoint.
const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
	AccessToken  = "test-access-token"
)

// User is a channel served by the fake.
type User struct {
	ID          string
	Login       string
	DisplayName string
}

// Video is an archived broadcast served by the fake.
type Video struct {
	ID        string
	UserID    string
	UserLogin string
	UserName  string
	Title     string
	CreatedAt time.Time
	URL       string
	Duration  string
}

// Server is a fake Helix API. Zero-valued status overrides mean "behave".
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]User
	videos      map[string][]Video
	cursor      string
	tokenStatus int
	apiStatus   int
	calls       map[string]int
	lastQuery   map[string]string
}

// NewServer starts a fake Helix API. Close it when done.
func NewServer() *Server {
	s := &Server{
		users:     make(map[string]User),
		videos:    make(map[string][]Video),
		calls:     make(map[string]int),
		lastQuery: make(map[string]string),
	}

	r := chi.NewRouter()
	r.Post("/oauth2/token", s.handleToken)
	r.Route("/helix", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/users", s.handleUsers)
		r.Get("/videos", s.handleVideos)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the Helix root to configure a client with.
func (s *Server) BaseURL() string { return s.URL + "/helix/" }

// AuthURL is the token endpoint to configure a client with.
func (s *Server) AuthURL() string { return s.URL + "/oauth2/token" }

// AddUser registers a channel.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Login] = u
}

// AddVideos appends archived videos for userID.
func (s *Server) AddVideos(userID string, videos ...Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[userID] = append(s.videos[userID], videos...)
}

// SetCursor makes the videos endpoint report a next-page cursor.
func (s *Server) SetCursor(cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
}

// FailToken makes the token endpoint answer with status.
func (s *Server) FailToken(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenStatus = status
}

// FailAPI makes every Helix endpoint answer with status.
func (s *Server) FailAPI(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiStatus = status
}

// Calls returns how many requests hit endpoint ("token", "users", "videos").
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// LastQuery returns the raw query of the latest request to endpoint.
func (s *Server) LastQuery(endpoint string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery[endpoint]
}

func (s *Server) record(endpoint string, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[endpoint]++
	s.lastQuery[endpoint] = r.URL.RawQuery
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.record("token", r)

	s.mu.Lock()
	status := s.tokenStatus
	s.mu.Unlock()
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" ||
		r.PostForm.Get("client_id") != ClientID ||
		r.PostForm.Get("client_secret") != ClientSecret {
		http.Error(w, "invalid client", http.StatusForbidden)
		return
	}

	writeJSON(w, map[string]any{
		"access_token": AccessToken,
		"expires_in":   5011271,
		"token_type":   "bearer",
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-ID") != ClientID || r.Header.Get("Authorization") != "Bearer "+AccessToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		s.mu.Lock()
		status := s.apiStatus
		s.mu.Unlock()
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.record("users", r)

	s.mu.Lock()
	u, ok := s.users[r.URL.Query().Get("login")]
	s.mu.Unlock()

	data := []map[string]any{}
	if ok {
		data = append(data, map[string]any{
			"id":           u.ID,
			"login":        u.Login,
			"display_name": u.DisplayName,
			"type":         "",
		})
	}
	writeJSON(w, map[string]any{"data": data})
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	s.record("videos", r)

	q := r.URL.Query()
	if q.Get("type") != "archive" {
		http.Error(w, "unexpected type", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	videos := s.videos[q.Get("user_id")]
	cursor := s.cursor
	s.mu.Unlock()

	data := make([]map[string]any, 0, len(videos))
	for _, v := range videos {
		data = append(data, map[string]any{
			"id":         v.ID,
			"user_id":    v.UserID,
			"user_login": v.UserLogin,
			"user_name":  v.UserName,
			"title":      v.Title,
			"created_at": v.CreatedAt.UTC().Format(time.RFC3339),
			"url":        v.URL,
			"type":       "archive",
			"duration":   v.Duration,
		})
	}

	resp := map[string]any{"data": data, "pagination": map[string]any{}}
	if cursor != "" {
		resp["pagination"] = map[string]any{"cursor": cursor}
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
