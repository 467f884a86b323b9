package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
	"github.com/kirillkom/submission-gateway/internal/core/ports"
)

// ResolveAccountUseCase exchanges a bearer credential for an account by
// consulting identity providers in a fixed priority order. The first provider
// that recognizes the credential wins; later providers are never called.
type ResolveAccountUseCase struct {
	verifiers []ports.TokenVerifier
	cache     ports.AccountCache
}

// NewResolveAccountUseCase builds a resolver over the given verifiers. cache
// may be nil, in which case every call goes to the providers.
func NewResolveAccountUseCase(cache ports.AccountCache, verifiers ...ports.TokenVerifier) *ResolveAccountUseCase {
	return &ResolveAccountUseCase{
		verifiers: verifiers,
		cache:     cache,
	}
}

func (uc *ResolveAccountUseCase) Resolve(ctx context.Context, token string) (*domain.SubmissionAccount, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "resolve account", errors.New("empty credential"))
	}

	if uc.cache != nil {
		if account, ok := uc.cache.Get(token); ok {
			return account, nil
		}
	}

	for _, verifier := range uc.verifiers {
		account, err := verifier.VerifyToken(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Provider failures count as "not resolved here" and must not
			// abort evaluation of the remaining providers.
			slog.Debug("token verification failed",
				"provider", verifier.Provider(),
				"error", err,
			)
			continue
		}
		if account == nil {
			continue
		}
		if uc.cache != nil {
			uc.cache.Set(token, *account)
		}
		return account, nil
	}

	return nil, domain.WrapError(domain.ErrUnauthorized, "resolve account", errors.New("no provider resolved the credential"))
}
