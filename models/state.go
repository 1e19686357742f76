package models

// JobState tracks a job through its pipeline stages. Transitions are
// strictly forward; Completed and Failed are terminal.
type JobState int

const (
	StateAccepted JobState = iota
	StateFetching
	StateProbing
	StateNormalizing
	StateConcatenating
	StateUploading
	StateCompleted
	StateFailed
)

func (s JobState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateFetching:
		return "fetching"
	case StateProbing:
		return "probing"
	case StateNormalizing:
		return "normalizing"
	case StateConcatenating:
		return "concatenating"
	case StateUploading:
		return "uploading"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
