package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrNoVideos is returned when a channel has no archived broadcasts.
	ErrNoVideos = errors.New("no VODs available for this channel")

	// ErrDownloadFailed is returned when the downloader exits non-zero.
	ErrDownloadFailed = errors.New("something went wrong while downloading a VOD")

	// ErrDownloadActive is returned when a download is started while another
	// child process is still running.
	ErrDownloadActive = errors.New("a download is already in progress")

	// ErrInterrupted is returned when the run was stopped by a signal.
	ErrInterrupted = errors.New("interrupted")

	// ErrNoSelection is returned when the selector was closed without a
	// confirmed choice.
	ErrNoSelection = errors.New("selection cancelled")
)

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s (%s)", e.Msg, e.Key)
	}
	return e.Msg
}

// AuthError is returned when the token exchange is rejected.
type AuthError struct {
	StatusCode int
	Status     string
}

func (e *AuthError) Error() string {
	return "error while authenticating with Twitch: " + e.Status
}

// APIError is returned for any non-2xx API response.
type APIError struct {
	Path       string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error while communicating with Twitch (%s): %s", e.Path, e.Status)
}

// NotFoundError reports a missing channel or a missing external binary.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case "channel":
		return fmt.Sprintf("invalid channel name: %s", e.Name)
	case "binary":
		return fmt.Sprintf("%s not found in PATH", e.Name)
	default:
		return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
	}
}

// Is makes every NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// LedgerError wraps a ledger read or write failure.
type LedgerError struct {
	Op   string
	Path string
	Err  error
}

func (e *LedgerError) Error() string {
	return e.Op + " ledger " + e.Path + ": " + e.Err.Error()
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// DownloadError wraps a spawn failure or a non-zero exit of the downloader.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	if e.URL != "" {
		return "download [" + e.URL + "]: " + e.Err.Error()
	}
	return "download: " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
