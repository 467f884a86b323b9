// Package lsri resolves accounts through the LSRI authorization service.
// Credentials are issued via the device-authorization flow: the caller hands
// us a device code, the user approves it out-of-band, and we poll the token
// endpoint until the grant is approved or the code expires. Issued tokens are
// then exchanged for an account at the userinfo endpoint.
package lsri

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/resilience"
)

const deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

type Client struct {
	tokenURL     string
	userinfoURL  string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	executor     *resilience.Executor

	pollInterval time.Duration
	slowDownStep time.Duration
}

type Options struct {
	ClientID     string
	ClientSecret string
	// RequestTimeout bounds each upstream call on its own, so one slow
	// response cannot eat the whole poll budget.
	RequestTimeout time.Duration
	// PollInterval is the wait between token-endpoint polls; SlowDownStep is
	// added to it every time the server answers slow_down.
	PollInterval time.Duration
	SlowDownStep time.Duration
	// Executor, when set, guards the userinfo exchange with a circuit
	// breaker. The polling loop manages its own pacing and is not wrapped.
	Executor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	base := strings.TrimRight(baseURL, "/")
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pollInterval := options.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	slowDownStep := options.SlowDownStep
	if slowDownStep <= 0 {
		slowDownStep = 5 * time.Second
	}
	return &Client{
		tokenURL:     base + "/token",
		userinfoURL:  base + "/userinfo",
		clientID:     options.ClientID,
		clientSecret: options.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		executor:     options.Executor,
		pollInterval: pollInterval,
		slowDownStep: slowDownStep,
	}
}

func (c *Client) Provider() domain.AccountProvider {
	return domain.ProviderLSRI
}

// VerifyToken exchanges an issued LSRI token for an account via userinfo. A
// nil account without error means LSRI does not recognize the token.
func (c *Client) VerifyToken(ctx context.Context, token string) (*domain.SubmissionAccount, error) {
	var account *domain.SubmissionAccount
	call := func(ctx context.Context) error {
		resolved, err := c.userinfo(ctx, token)
		if err != nil {
			return err
		}
		account = resolved
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "lsri.userinfo", call, classifyLSRIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (c *Client) userinfo(ctx context.Context, token string) (*domain.SubmissionAccount, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lsri userinfo request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil
	default:
		return nil, newStatusError("userinfo", resp)
	}

	var payload struct {
		Subject string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	if strings.TrimSpace(payload.Subject) == "" {
		return nil, nil
	}
	return &domain.SubmissionAccount{
		ID:       payload.Subject,
		Provider: domain.ProviderLSRI,
	}, nil
}

// tokenGrantState is the per-poll outcome of one token-endpoint call.
type tokenGrantState int

const (
	grantApproved tokenGrantState = iota
	grantPending
	grantSlowDown
	grantExpired
	grantDenied
)

func (c *Client) requestToken(ctx context.Context, deviceCode string) (string, tokenGrantState, error) {
	form := url.Values{}
	form.Set("grant_type", deviceGrantType)
	form.Set("device_code", deviceCode)
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", grantDenied, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", grantDenied, fmt.Errorf("lsri token request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", grantDenied, fmt.Errorf("decode token response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && payload.AccessToken != "" {
		return payload.AccessToken, grantApproved, nil
	}

	switch payload.Error {
	case "authorization_pending":
		return "", grantPending, nil
	case "slow_down":
		return "", grantSlowDown, nil
	case "expired_token":
		return "", grantExpired, nil
	default:
		return "", grantDenied, nil
	}
}
