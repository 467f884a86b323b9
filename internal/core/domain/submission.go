package domain

import "time"

type SubmissionStatus string

const (
	StatusInitiated  SubmissionStatus = "initiated"
	StatusUploaded   SubmissionStatus = "uploaded"
	StatusProcessing SubmissionStatus = "processing"
	StatusCompleted  SubmissionStatus = "completed"
	StatusFailed     SubmissionStatus = "failed"
	StatusCancelled  SubmissionStatus = "cancelled"
)

// forwardEdges is the closed set of transitions the public update path may
// take. Anything else goes through the administrative override only.
var forwardEdges = map[SubmissionStatus][]SubmissionStatus{
	StatusInitiated:  {StatusUploaded, StatusCancelled},
	StatusUploaded:   {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
}

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusInitiated, StatusUploaded, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s SubmissionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from→to is a permitted forward edge.
func CanTransition(from, to SubmissionStatus) bool {
	for _, next := range forwardEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Submission is a unit of work tracked from creation through upload and
// processing. Version backs the compare-and-update at the store so concurrent
// status writers never lose updates.
type Submission struct {
	ID        string            `json:"id"`
	Account   SubmissionAccount `json:"account"`
	Status    SubmissionStatus  `json:"status"`
	UploadURL string            `json:"upload_url"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// OwnedBy reports whether the submission belongs to the given account.
func (s *Submission) OwnedBy(account SubmissionAccount) bool {
	return s.Account.Equal(account)
}
