package lsri

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

// PollForToken polls the token endpoint with the device code until the user
// approves the grant, the code expires, or expiresInSeconds of wall-clock
// time have passed. The loop never issues a call that would land past the
// budget, and it stops immediately when ctx is cancelled so an abandoned
// request leaves no poller behind.
//
// Terminal failures (expiry, denial, unexpected provider errors) come back as
// domain.ErrUnauthorized; only parent-context cancellation surfaces as a
// plain context error.
func (c *Client) PollForToken(ctx context.Context, deviceCode string, expiresInSeconds int) (string, error) {
	if deviceCode == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "device authorization", errors.New("empty device code"))
	}
	if expiresInSeconds <= 0 {
		return "", expiredErr()
	}

	deadline := time.Now().Add(time.Duration(expiresInSeconds) * time.Second)
	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	interval := c.pollInterval
	for {
		token, state, err := c.requestToken(pollCtx, deviceCode)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if pollCtx.Err() != nil {
				return "", expiredErr()
			}
			return "", domain.WrapError(domain.ErrUnauthorized, "device authorization", err)
		}

		switch state {
		case grantApproved:
			return token, nil
		case grantPending:
		case grantSlowDown:
			interval += c.slowDownStep
		case grantExpired:
			return "", expiredErr()
		default:
			return "", domain.WrapError(domain.ErrUnauthorized, "device authorization", errors.New("authorization denied"))
		}

		// A poll fired after the deadline would overrun the budget; give up
		// now instead of sleeping into it.
		if time.Until(deadline) <= interval {
			return "", expiredErr()
		}

		timer := time.NewTimer(interval)
		select {
		case <-pollCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", expiredErr()
		case <-timer.C:
		}
	}
}

func expiredErr() error {
	return domain.WrapError(domain.ErrUnauthorized, "device authorization", fmt.Errorf("device code expired"))
}
