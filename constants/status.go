package constants

// JobStatus is the canonical status for rows in jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending        JobStatus = "pending"
	JobStatusRunning        JobStatus = "running"
	JobStatusAwaitingReview JobStatus = "awaiting_review"
	JobStatusCompleted      JobStatus = "completed" // terminal
	JobStatusFailed         JobStatus = "failed"    // terminal
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ReviewState is the state of a batch held by the review gate.
type ReviewState string

const (
	ReviewAwaiting ReviewState = "awaiting_review"
	ReviewApproved ReviewState = "approved"
	ReviewRejected ReviewState = "rejected"
)
