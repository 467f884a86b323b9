package ports

import (
	"context"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

// AccountResolver is the inbound contract for exchanging a bearer credential
// for an account. Implementations return domain.ErrUnauthorized when no
// provider resolves the credential.
type AccountResolver interface {
	Resolve(ctx context.Context, token string) (*domain.SubmissionAccount, error)
}

// DeviceAuthenticator drives the device-code approval flow for providers that
// require out-of-band user consent.
type DeviceAuthenticator interface {
	PollForToken(ctx context.Context, deviceCode string, expiresInSeconds int) (string, error)
}

// SubmissionLifecycle owns submission state transitions and the ownership
// gate. Operations never authenticate; callers pass an already resolved
// account where one is needed.
type SubmissionLifecycle interface {
	Initiate(ctx context.Context, account domain.SubmissionAccount) (*domain.Submission, error)
	MarkUploaded(ctx context.Context, submissionID string) (*domain.Submission, error)
	GetStatus(ctx context.Context, submissionID string) (domain.SubmissionStatus, error)
	MarkStatus(ctx context.Context, submissionID string, status domain.SubmissionStatus) (*domain.Submission, error)
	CheckAccess(ctx context.Context, account domain.SubmissionAccount, submissionID string) (bool, error)
}

// SubmissionProcessor is the inbound contract for asynchronous post-upload
// processing.
type SubmissionProcessor interface {
	ProcessByID(ctx context.Context, submissionID string) error
}
