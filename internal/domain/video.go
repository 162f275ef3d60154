package domain

import (
	"fmt"
	"time"
)

// VideoTypeArchive is the Twitch video type for past broadcasts.
const VideoTypeArchive = "archive"

// VideoID is the platform-assigned identifier of a VOD.
type VideoID string

// String returns the string representation of the VideoID.
func (id VideoID) String() string {
	return string(id)
}

// Video is an archived broadcast as returned by the platform API.
// It is a read-only snapshot; nothing in this module mutates it.
type Video struct {
	ID           VideoID
	StreamID     string
	UserID       string
	UserLogin    string
	UserName     string
	Title        string
	Description  string
	CreatedAt    time.Time
	PublishedAt  time.Time
	URL          string
	ThumbnailURL string
	Viewable     string
	ViewCount    int
	Language     string
	Type         string
	Duration     string
}

// PlayableURL returns the URL handed to the downloader.
func (v *Video) PlayableURL() string {
	if v.URL != "" {
		return v.URL
	}
	return fmt.Sprintf("https://www.twitch.tv/videos/%s", v.ID)
}

// FormatDate renders the creation date with the given time layout.
func (v *Video) FormatDate(layout string) string {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return v.CreatedAt.Local().Format(layout)
}

// FileName builds "{id} - {user} - {date}.{ext}". The result is not
// sanitized; the downloader does that before touching the filesystem.
func (v *Video) FileName(dateLayout, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return fmt.Sprintf("%s - %s - %s.%s", v.ID, v.UserName, v.FormatDate(dateLayout), ext)
}

// ParseDuration converts a Twitch duration such as "3h2m10s" into a
// time.Duration. Twitch never emits fractional or negative values, which is
// exactly what time.ParseDuration accepts.
func (v *Video) ParseDuration() (time.Duration, error) {
	d, err := time.ParseDuration(v.Duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", v.Duration, err)
	}
	return d, nil
}

// Defaults for downloaded file names.
const (
	DefaultDateLayout = "2006-01-02"
	DefaultExtension  = "mp4"
)

// Candidate is a Video offered to the operator, annotated with its
// ledger state so the selector can render it as disabled.
type Candidate struct {
	Video      Video
	Label      string
	Downloaded bool
}

// Label builds the checklist label "<title> - <date> - <duration>".
func Label(v *Video, dateLayout string) string {
	return fmt.Sprintf("%s - %s - %s", v.Title, v.FormatDate(dateLayout), v.Duration)
}
