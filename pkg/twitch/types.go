package twitch

import (
	"time"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// userResponse is one element of the users endpoint "data" array.
type userResponse struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	OfflineImageURL string `json:"offline_image_url"`
	ViewCount       int    `json:"view_count"`
}

func (u userResponse) toDomain() *domain.User {
	return &domain.User{
		ID:              u.ID,
		Login:           u.Login,
		DisplayName:     u.DisplayName,
		Type:            u.Type,
		BroadcasterType: u.BroadcasterType,
		Description:     u.Description,
		ProfileImageURL: u.ProfileImageURL,
		OfflineImageURL: u.OfflineImageURL,
		ViewCount:       u.ViewCount,
	}
}

// videoResponse is one element of the videos endpoint "data" array.
type videoResponse struct {
	ID           string `json:"id"`
	StreamID     string `json:"stream_id"`
	UserID       string `json:"user_id"`
	UserLogin    string `json:"user_login"`
	UserName     string `json:"user_name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CreatedAt    string `json:"created_at"`
	PublishedAt  string `json:"published_at"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Viewable     string `json:"viewable"`
	ViewCount    int    `json:"view_count"`
	Language     string `json:"language"`
	Type         string `json:"type"`
	Duration     string `json:"duration"`
}

func (v videoResponse) toDomain() domain.Video {
	// Timestamps are RFC3339; a bad value leaves the zero time.
	createdAt, _ := time.Parse(time.RFC3339, v.CreatedAt)
	publishedAt, _ := time.Parse(time.RFC3339, v.PublishedAt)

	return domain.Video{
		ID:           domain.VideoID(v.ID),
		StreamID:     v.StreamID,
		UserID:       v.UserID,
		UserLogin:    v.UserLogin,
		UserName:     v.UserName,
		Title:        v.Title,
		Description:  v.Description,
		CreatedAt:    createdAt,
		PublishedAt:  publishedAt,
		URL:          v.URL,
		ThumbnailURL: v.ThumbnailURL,
		Viewable:     v.Viewable,
		ViewCount:    v.ViewCount,
		Language:     v.Language,
		Type:         v.Type,
		Duration:     v.Duration,
	}
}
