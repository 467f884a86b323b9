package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
	"github.com/kirillkom/submission-gateway/internal/core/ports"
)

// ProcessSubmissionUseCase is the worker side of the lifecycle: it takes an
// uploaded submission through processing to a terminal state.
type ProcessSubmissionUseCase struct {
	repo    ports.SubmissionRepository
	uploads ports.UploadArea
}

func NewProcessSubmissionUseCase(
	repo ports.SubmissionRepository,
	uploads ports.UploadArea,
) *ProcessSubmissionUseCase {
	return &ProcessSubmissionUseCase{
		repo:    repo,
		uploads: uploads,
	}
}

func (uc *ProcessSubmissionUseCase) ProcessByID(ctx context.Context, submissionID string) error {
	submission, err := uc.repo.GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("fetch submission by id: %w", err)
	}

	switch {
	case submission.Status.Terminal():
		// Event replay after the work is done; nothing left to do.
		return nil
	case submission.Status == domain.StatusUploaded:
	default:
		return domain.WrapError(domain.ErrInvalidTransition, "process submission",
			fmt.Errorf("submission is %s", submission.Status))
	}

	claimed, err := uc.repo.UpdateStatus(ctx, submissionID, domain.StatusProcessing, submission.Version)
	if err != nil {
		if domain.IsKind(err, domain.ErrStaleSubmission) {
			// Another worker claimed the submission.
			return nil
		}
		return fmt.Errorf("set status=processing: %w", err)
	}

	hasContent, err := uc.uploads.HasContent(ctx, submissionID)
	if err != nil {
		if failErr := uc.markFinished(ctx, claimed, domain.StatusFailed); failErr != nil {
			return fmt.Errorf("inspect upload area: %w; mark failed status: %w", err, failErr)
		}
		return fmt.Errorf("inspect upload area: %w", err)
	}
	if !hasContent {
		if failErr := uc.markFinished(ctx, claimed, domain.StatusFailed); failErr != nil {
			return fmt.Errorf("mark failed status: %w", failErr)
		}
		return domain.WrapError(domain.ErrInvalidInput, "process submission", errors.New("upload area is empty"))
	}

	if err := uc.markFinished(ctx, claimed, domain.StatusCompleted); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessSubmissionUseCase) markFinished(ctx context.Context, submission *domain.Submission, status domain.SubmissionStatus) error {
	_, err := uc.repo.UpdateStatus(ctx, submission.ID, status, submission.Version)
	if err != nil && domain.IsKind(err, domain.ErrStaleSubmission) {
		// An administrative override moved the record while we were working;
		// its decision stands.
		return nil
	}
	return err
}
