package app

// Phase is a step of a run.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseResolvingUser
	PhaseListingVideos
	PhaseAwaitingSelection
	PhaseDownloading
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseResolvingUser:
		return "resolving_user"
	case PhaseListingVideos:
		return "listing_videos"
	case PhaseAwaitingSelection:
		return "awaiting_selection"
	case PhaseDownloading:
		return "downloading"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
