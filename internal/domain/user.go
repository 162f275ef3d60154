package domain

// User is a Twitch account as returned by the users endpoint.
type User struct {
	ID              string
	Login           string
	DisplayName     string
	Type            string
	BroadcasterType string
	Description     string
	ProfileImageURL string
	OfflineImageURL string
	ViewCount       int
}
