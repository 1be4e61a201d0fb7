package addons

// Status is the lifecycle state of an installed addon. Transitions are made by the
// lifecycle engine through Registry.SetStatus.
type Status int32

const (
	StatusNotStarted Status = iota
	StatusStarting
	StatusStarted
	StatusStopping
	StatusStopped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NotStarted"
	case StatusStarting:
		return "Starting"
	case StatusStarted:
		return "Started"
	case StatusStopping:
		return "Stopping"
	case StatusStopped:
		return "Stopped"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
