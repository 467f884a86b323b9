package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
	"github.com/kirillkom/submission-gateway/internal/core/ports"
)

// SubmissionLifecycleUseCase owns submission creation, the ownership gate and
// status transitions. It never authenticates; accounts arrive already
// resolved.
type SubmissionLifecycleUseCase struct {
	repo    ports.SubmissionRepository
	uploads ports.UploadArea
	queue   ports.MessageQueue
}

func NewSubmissionLifecycleUseCase(
	repo ports.SubmissionRepository,
	uploads ports.UploadArea,
	queue ports.MessageQueue,
) *SubmissionLifecycleUseCase {
	return &SubmissionLifecycleUseCase{
		repo:    repo,
		uploads: uploads,
		queue:   queue,
	}
}

func (uc *SubmissionLifecycleUseCase) Initiate(ctx context.Context, account domain.SubmissionAccount) (*domain.Submission, error) {
	if account.ID == "" || account.Provider == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "initiate submission", errors.New("account is not resolved"))
	}

	id := uuid.NewString()
	uploadURL, err := uc.uploads.Allocate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("allocate upload destination: %w", err)
	}

	now := time.Now().UTC()
	submission := &domain.Submission{
		ID:        id,
		Account:   account,
		Status:    domain.StatusInitiated,
		UploadURL: uploadURL,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("create submission record: %w", err)
	}
	return submission, nil
}

// MarkUploaded transitions initiated→uploaded and announces the upload to the
// processing worker. Re-marking a submission that is already uploaded is a
// no-op returning the current record; marking one that has moved past
// uploaded is rejected.
func (uc *SubmissionLifecycleUseCase) MarkUploaded(ctx context.Context, submissionID string) (*domain.Submission, error) {
	submission, err := uc.repo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("fetch submission: %w", err)
	}

	switch submission.Status {
	case domain.StatusUploaded:
		return submission, nil
	case domain.StatusInitiated:
	default:
		return nil, domain.WrapError(domain.ErrInvalidTransition, "mark uploaded",
			fmt.Errorf("submission is %s", submission.Status))
	}

	updated, err := uc.repo.UpdateStatus(ctx, submissionID, domain.StatusUploaded, submission.Version)
	if err != nil {
		if domain.IsKind(err, domain.ErrStaleSubmission) {
			// A concurrent writer got there first; re-marking stays
			// idempotent as long as the record ended up uploaded.
			return uc.reloadAfterConflict(ctx, submissionID)
		}
		return nil, fmt.Errorf("update submission status: %w", err)
	}

	if err := uc.queue.PublishSubmissionUploaded(ctx, updated.ID); err != nil {
		return nil, fmt.Errorf("publish uploaded event: %w", err)
	}
	return updated, nil
}

func (uc *SubmissionLifecycleUseCase) reloadAfterConflict(ctx context.Context, submissionID string) (*domain.Submission, error) {
	submission, err := uc.repo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("fetch submission after conflict: %w", err)
	}
	if submission.Status == domain.StatusUploaded {
		return submission, nil
	}
	return nil, domain.WrapError(domain.ErrInvalidTransition, "mark uploaded",
		fmt.Errorf("submission is %s", submission.Status))
}

func (uc *SubmissionLifecycleUseCase) GetStatus(ctx context.Context, submissionID string) (domain.SubmissionStatus, error) {
	submission, err := uc.repo.GetByID(ctx, submissionID)
	if err != nil {
		return "", fmt.Errorf("fetch submission: %w", err)
	}
	return submission.Status, nil
}

// MarkStatus is the administrative override: it sets the status directly and
// deliberately skips the forward-only rule. It must stay behind the elevated
// authorization check at the boundary, never behind plain ownership.
func (uc *SubmissionLifecycleUseCase) MarkStatus(ctx context.Context, submissionID string, status domain.SubmissionStatus) (*domain.Submission, error) {
	if !status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "mark status",
			fmt.Errorf("unknown status %q", status))
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		submission, err := uc.repo.GetByID(ctx, submissionID)
		if err != nil {
			return nil, fmt.Errorf("fetch submission: %w", err)
		}
		if submission.Status == status {
			return submission, nil
		}
		updated, err := uc.repo.UpdateStatus(ctx, submissionID, status, submission.Version)
		if err == nil {
			return updated, nil
		}
		if !domain.IsKind(err, domain.ErrStaleSubmission) {
			return nil, fmt.Errorf("update submission status: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("update submission status: %w", lastErr)
}

// CheckAccess reports whether the account owns the submission. Unknown ids
// and foreign ids are deliberately indistinguishable: both come back false
// with no error, so callers cannot enumerate identifiers.
func (uc *SubmissionLifecycleUseCase) CheckAccess(ctx context.Context, account domain.SubmissionAccount, submissionID string) (bool, error) {
	submission, err := uc.repo.GetByID(ctx, submissionID)
	if err != nil {
		if domain.IsKind(err, domain.ErrSubmissionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("fetch submission: %w", err)
	}
	return submission.OwnedBy(account), nil
}
