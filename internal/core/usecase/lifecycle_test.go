package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

type repoFake struct {
	submissions map[string]*domain.Submission
	createErr   error
	updateCalls int
}

func newRepoFake() *repoFake {
	return &repoFake{submissions: map[string]*domain.Submission{}}
}

func (f *repoFake) Create(_ context.Context, submission *domain.Submission) error {
	if f.createErr != nil {
		return f.createErr
	}
	copySub := *submission
	f.submissions[submission.ID] = &copySub
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Submission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSubmissionNotFound, "get submission", fmt.Errorf("id %s", id))
	}
	copySub := *submission
	return &copySub, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.SubmissionStatus, version int64) (*domain.Submission, error) {
	f.updateCalls++
	submission, ok := f.submissions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSubmissionNotFound, "update submission status", fmt.Errorf("id %s", id))
	}
	if submission.Version != version {
		return nil, domain.WrapError(domain.ErrStaleSubmission, "update submission status", fmt.Errorf("id %s version %d", id, version))
	}
	submission.Status = status
	submission.Version++
	copySub := *submission
	return &copySub, nil
}

type uploadsFake struct {
	allocated  []string
	hasContent bool
	inspectErr error
}

func (f *uploadsFake) Allocate(_ context.Context, submissionID string) (string, error) {
	f.allocated = append(f.allocated, submissionID)
	return "file:///uploads/" + submissionID, nil
}

func (f *uploadsFake) HasContent(context.Context, string) (bool, error) {
	return f.hasContent, f.inspectErr
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishSubmissionUploaded(_ context.Context, submissionID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, submissionID)
	return nil
}

func (f *queueFake) SubscribeSubmissionUploaded(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

var (
	accountX = domain.SubmissionAccount{ID: "acc-x", Provider: domain.ProviderWebin}
	accountY = domain.SubmissionAccount{ID: "acc-y", Provider: domain.ProviderLSRI}
)

func newLifecycleForTest() (*SubmissionLifecycleUseCase, *repoFake, *queueFake) {
	repo := newRepoFake()
	queue := &queueFake{}
	uc := NewSubmissionLifecycleUseCase(repo, &uploadsFake{}, queue)
	return uc, repo, queue
}

func TestInitiateCreatesOwnedSubmission(t *testing.T) {
	uc, repo, _ := newLifecycleForTest()

	submission, err := uc.Initiate(context.Background(), accountX)
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if submission.ID == "" {
		t.Fatalf("expected submission id")
	}
	if submission.Status != domain.StatusInitiated {
		t.Fatalf("expected status initiated, got %s", submission.Status)
	}
	if submission.UploadURL == "" {
		t.Fatalf("expected upload destination to be allocated")
	}
	if !submission.OwnedBy(accountX) {
		t.Fatalf("expected submission owned by creating account")
	}
	if _, ok := repo.submissions[submission.ID]; !ok {
		t.Fatalf("expected submission persisted")
	}

	status, err := uc.GetStatus(context.Background(), submission.ID)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != domain.StatusInitiated {
		t.Fatalf("expected initiated, got %s", status)
	}
}

func TestInitiateRejectsUnresolvedAccount(t *testing.T) {
	uc, _, _ := newLifecycleForTest()

	_, err := uc.Initiate(context.Background(), domain.SubmissionAccount{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMarkUploadedTransitionsAndPublishes(t *testing.T) {
	uc, _, queue := newLifecycleForTest()
	created, _ := uc.Initiate(context.Background(), accountX)

	updated, err := uc.MarkUploaded(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("MarkUploaded() error = %v", err)
	}
	if updated.Status != domain.StatusUploaded {
		t.Fatalf("expected uploaded, got %s", updated.Status)
	}
	if updated.Version != created.Version+1 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}
	if len(queue.published) != 1 || queue.published[0] != created.ID {
		t.Fatalf("expected one uploaded event for %s, got %v", created.ID, queue.published)
	}
}

func TestMarkUploadedIsIdempotentAtUploaded(t *testing.T) {
	uc, _, queue := newLifecycleForTest()
	created, _ := uc.Initiate(context.Background(), accountX)

	first, err := uc.MarkUploaded(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("MarkUploaded() error = %v", err)
	}
	second, err := uc.MarkUploaded(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("second MarkUploaded() error = %v", err)
	}
	if second.Status != domain.StatusUploaded || second.Version != first.Version {
		t.Fatalf("expected no-op re-mark, got status=%s version=%d", second.Status, second.Version)
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected a single uploaded event, got %d", len(queue.published))
	}
}

func TestMarkUploadedPastUploadedIsRejected(t *testing.T) {
	uc, repo, _ := newLifecycleForTest()
	created, _ := uc.Initiate(context.Background(), accountX)
	repo.submissions[created.ID].Status = domain.StatusProcessing

	_, err := uc.MarkUploaded(context.Background(), created.ID)
	if !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkUploadedUnknownIDIsNotFound(t *testing.T) {
	uc, _, _ := newLifecycleForTest()

	_, err := uc.MarkUploaded(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestMarkStatusOverridesBackward(t *testing.T) {
	uc, repo, _ := newLifecycleForTest()
	created, _ := uc.Initiate(context.Background(), accountX)
	repo.submissions[created.ID].Status = domain.StatusCompleted

	submission, err := uc.MarkStatus(context.Background(), created.ID, domain.StatusInitiated)
	if err != nil {
		t.Fatalf("MarkStatus() error = %v", err)
	}
	if submission.Status != domain.StatusInitiated {
		t.Fatalf("expected administrative override to initiated, got %s", submission.Status)
	}
}

func TestMarkStatusRejectsUnknownStatus(t *testing.T) {
	uc, _, _ := newLifecycleForTest()

	_, err := uc.MarkStatus(context.Background(), "any", domain.SubmissionStatus("bogus"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCheckAccessIndistinguishableOutcomes(t *testing.T) {
	uc, _, _ := newLifecycleForTest()
	created, _ := uc.Initiate(context.Background(), accountX)

	owned, err := uc.CheckAccess(context.Background(), accountX, created.ID)
	if err != nil || !owned {
		t.Fatalf("expected owner access, got allowed=%v err=%v", owned, err)
	}

	foreign, err := uc.CheckAccess(context.Background(), accountY, created.ID)
	if err != nil {
		t.Fatalf("CheckAccess() error = %v", err)
	}
	unknown, err := uc.CheckAccess(context.Background(), accountY, "missing")
	if err != nil {
		t.Fatalf("CheckAccess() error = %v", err)
	}
	if foreign != unknown || foreign {
		t.Fatalf("expected foreign and unknown ids to be uniformly denied, got %v/%v", foreign, unknown)
	}
}
