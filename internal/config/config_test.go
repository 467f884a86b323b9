package config

import "testing"

func TestLoadIncludesIdentityDefaults(t *testing.T) {
	t.Setenv("LSRI_POLL_INTERVAL_SECONDS", "")
	t.Setenv("IDENTITY_REQUEST_TIMEOUT_SECONDS", "")
	t.Setenv("TOKEN_CACHE_TTL_SECONDS", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.LSRIPollIntervalSeconds != 5 {
		t.Fatalf("expected default poll interval 5, got %d", cfg.LSRIPollIntervalSeconds)
	}
	if cfg.IdentityRequestTimeoutSeconds != 10 {
		t.Fatalf("expected default identity timeout 10, got %d", cfg.IdentityRequestTimeoutSeconds)
	}
	if cfg.TokenCacheTTLSeconds != 300 {
		t.Fatalf("expected default token cache ttl 300, got %d", cfg.TokenCacheTTLSeconds)
	}
	if cfg.NATSSubject != "submissions.uploaded" {
		t.Fatalf("expected default subject submissions.uploaded, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("LSRI_POLL_INTERVAL_SECONDS", "2")
	t.Setenv("TOKEN_CACHE_TTL_SECONDS", "60")
	t.Setenv("ADMIN_API_KEY", "admin-secret")
	t.Setenv("API_RATE_LIMIT_RPS", "20")

	cfg := Load()
	if cfg.LSRIPollIntervalSeconds != 2 {
		t.Fatalf("expected poll interval override, got %d", cfg.LSRIPollIntervalSeconds)
	}
	if cfg.TokenCacheTTLSeconds != 60 {
		t.Fatalf("expected cache ttl override, got %d", cfg.TokenCacheTTLSeconds)
	}
	if cfg.AdminAPIKey != "admin-secret" {
		t.Fatalf("expected admin key override, got %q", cfg.AdminAPIKey)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected rate limit override, got %d", cfg.APIRateLimitRPS)
	}
}

func TestLoadFallsBackOnUnparsableInt(t *testing.T) {
	t.Setenv("LSRI_POLL_INTERVAL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.LSRIPollIntervalSeconds != 5 {
		t.Fatalf("expected fallback poll interval 5, got %d", cfg.LSRIPollIntervalSeconds)
	}
}
