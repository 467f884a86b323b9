package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

type verifierFake struct {
	provider domain.AccountProvider
	account  *domain.SubmissionAccount
	err      error
	calls    int
}

func (f *verifierFake) Provider() domain.AccountProvider {
	return f.provider
}

func (f *verifierFake) VerifyToken(context.Context, string) (*domain.SubmissionAccount, error) {
	f.calls++
	return f.account, f.err
}

type cacheFake struct {
	entries map[string]domain.SubmissionAccount
	gets    int
	sets    int
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: map[string]domain.SubmissionAccount{}}
}

func (f *cacheFake) Get(token string) (*domain.SubmissionAccount, bool) {
	f.gets++
	account, ok := f.entries[token]
	if !ok {
		return nil, false
	}
	return &account, true
}

func (f *cacheFake) Set(token string, account domain.SubmissionAccount) {
	f.sets++
	f.entries[token] = account
}

func TestResolveShortCircuitsOnFirstProvider(t *testing.T) {
	primary := &verifierFake{
		provider: domain.ProviderWebin,
		account:  &domain.SubmissionAccount{ID: "webin-123", Provider: domain.ProviderWebin},
	}
	secondary := &verifierFake{provider: domain.ProviderLSRI}
	uc := NewResolveAccountUseCase(nil, primary, secondary)

	account, err := uc.Resolve(context.Background(), "token-a")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if account.ID != "webin-123" || account.Provider != domain.ProviderWebin {
		t.Fatalf("unexpected account %+v", account)
	}
	if secondary.calls != 0 {
		t.Fatalf("expected secondary provider to never be consulted, got %d calls", secondary.calls)
	}
}

func TestResolveFallsBackToSecondProvider(t *testing.T) {
	primary := &verifierFake{provider: domain.ProviderWebin}
	secondary := &verifierFake{
		provider: domain.ProviderLSRI,
		account:  &domain.SubmissionAccount{ID: "lsri-9", Provider: domain.ProviderLSRI},
	}
	uc := NewResolveAccountUseCase(nil, primary, secondary)

	account, err := uc.Resolve(context.Background(), "token-b")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if account.Provider != domain.ProviderLSRI {
		t.Fatalf("expected lsri account, got %+v", account)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected both providers consulted once, got %d/%d", primary.calls, secondary.calls)
	}
}

func TestResolveProviderErrorDoesNotAbortEvaluation(t *testing.T) {
	primary := &verifierFake{provider: domain.ProviderWebin, err: errors.New("upstream down")}
	secondary := &verifierFake{
		provider: domain.ProviderLSRI,
		account:  &domain.SubmissionAccount{ID: "lsri-9", Provider: domain.ProviderLSRI},
	}
	uc := NewResolveAccountUseCase(nil, primary, secondary)

	account, err := uc.Resolve(context.Background(), "token-c")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if account.ID != "lsri-9" {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestResolveAllProvidersRejectReturnsUnauthorized(t *testing.T) {
	uc := NewResolveAccountUseCase(nil,
		&verifierFake{provider: domain.ProviderWebin},
		&verifierFake{provider: domain.ProviderLSRI, err: errors.New("rejected")},
	)

	_, err := uc.Resolve(context.Background(), "token-d")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveEmptyCredentialIsUnauthorized(t *testing.T) {
	primary := &verifierFake{provider: domain.ProviderWebin}
	uc := NewResolveAccountUseCase(nil, primary)

	_, err := uc.Resolve(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if primary.calls != 0 {
		t.Fatalf("expected no provider call for empty credential")
	}
}

func TestResolveUsesAndPopulatesCache(t *testing.T) {
	tokenCache := newCacheFake()
	primary := &verifierFake{
		provider: domain.ProviderWebin,
		account:  &domain.SubmissionAccount{ID: "webin-123", Provider: domain.ProviderWebin},
	}
	uc := NewResolveAccountUseCase(tokenCache, primary)

	if _, err := uc.Resolve(context.Background(), "token-e"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if tokenCache.sets != 1 {
		t.Fatalf("expected resolver to populate the cache, sets=%d", tokenCache.sets)
	}

	if _, err := uc.Resolve(context.Background(), "token-e"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if primary.calls != 1 {
		t.Fatalf("expected cached resolution to skip the provider, calls=%d", primary.calls)
	}
}
