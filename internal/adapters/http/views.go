package httpadapter

import (
	"time"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

// SubmissionView is the caller-facing shape of a submission. The owning
// account is deliberately absent: responses must never echo user identity.
type SubmissionView struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UploadURL string    `json:"upload_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toSubmissionView(submission *domain.Submission) SubmissionView {
	return SubmissionView{
		ID:        submission.ID,
		Status:    string(submission.Status),
		UploadURL: submission.UploadURL,
		CreatedAt: submission.CreatedAt,
		UpdatedAt: submission.UpdatedAt,
	}
}
