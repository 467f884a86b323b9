// Package webin resolves bearer tokens against the Webin authentication
// service. This is a direct lookup: one authenticated call mapping the token
// to an account, with no polling and no retry of rejections.
package webin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	// RequestTimeout bounds each introspection call independently of the
	// caller's deadline.
	RequestTimeout time.Duration
	// Executor, when set, guards the introspection endpoint with a circuit
	// breaker. Rejected tokens never trip it.
	Executor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

func (c *Client) Provider() domain.AccountProvider {
	return domain.ProviderWebin
}

// VerifyToken resolves a Webin bearer token to an account. A nil account
// without error means Webin rejected the token; transport failures surface as
// errors so the resolver can still try the next provider.
func (c *Client) VerifyToken(ctx context.Context, token string) (*domain.SubmissionAccount, error) {
	var account *domain.SubmissionAccount
	call := func(ctx context.Context) error {
		resolved, err := c.introspect(ctx, token)
		if err != nil {
			return err
		}
		account = resolved
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "webin.introspect", call, classifyWebinError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (c *Client) introspect(ctx context.Context, token string) (*domain.SubmissionAccount, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/account", nil)
	if err != nil {
		return nil, fmt.Errorf("create introspect request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webin introspect request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// The token is simply not a Webin token.
		return nil, nil
	default:
		return nil, newStatusError("introspect", resp)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode introspect response: %w", err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, nil
	}
	return &domain.SubmissionAccount{
		ID:       payload.ID,
		Provider: domain.ProviderWebin,
	}, nil
}

func newStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
