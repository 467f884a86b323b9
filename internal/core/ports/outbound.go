package ports

import (
	"context"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

// TokenVerifier maps an opaque bearer token to an account at one identity
// provider. A nil account without error means the provider did not recognize
// the credential; errors mean the provider could not be consulted. Either way
// the resolver moves on to the next verifier.
type TokenVerifier interface {
	Provider() domain.AccountProvider
	VerifyToken(ctx context.Context, token string) (*domain.SubmissionAccount, error)
}

// AccountCache is an optional token→account cache consulted by the resolver.
// Entry lifetime is the cache's own policy.
type AccountCache interface {
	Get(token string) (*domain.SubmissionAccount, bool)
	Set(token string, account domain.SubmissionAccount)
}

// SubmissionRepository persists and reads submission records. UpdateStatus is
// a compare-and-update on (id, version): it returns the updated record, or
// domain.ErrStaleSubmission when the version no longer matches, or
// domain.ErrSubmissionNotFound when the id is unknown.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, version int64) (*domain.Submission, error)
}

// UploadArea allocates and inspects upload destinations.
type UploadArea interface {
	Allocate(ctx context.Context, submissionID string) (string, error)
	HasContent(ctx context.Context, submissionID string) (bool, error)
}

// MessageQueue publishes/consumes submission-uploaded events.
type MessageQueue interface {
	PublishSubmissionUploaded(ctx context.Context, submissionID string) error
	SubscribeSubmissionUploaded(ctx context.Context, handler func(context.Context, string) error) error
}
