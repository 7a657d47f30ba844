package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master": map[string]any{
				"userName": "user",
			},
		},
		"auth": map[string]any{
			"maxAttempts":      5,
			"accessTtlMinutes": 15,
		},
		"secretKey": map[string]any{
			"access": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "POSTGRES_MASTER_USERNAME", want: "postgres.master.userName"},
		{envKey: "AUTH_MAXATTEMPTS", want: "auth.maxAttempts"},
		{envKey: "AUTH_ACCESSTTLMINUTES", want: "auth.accessTtlMinutes"},
		{envKey: "SECRETKEY_ACCESS", want: "secretKey.access"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestApplyAuthDefaults(t *testing.T) {
	cfg := &Config{}
	applyAuthDefaults(cfg)

	if cfg.Auth == nil {
		t.Fatal("expected auth config to be created")
	}
	if cfg.Auth.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("MaxAttempts = %d, want %d", cfg.Auth.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Auth.RefreshTTLDays != DefaultRefreshTTLDays {
		t.Fatalf("RefreshTTLDays = %d, want %d", cfg.Auth.RefreshTTLDays, DefaultRefreshTTLDays)
	}
	if cfg.Auth.TwoFactorIssuer != "sitewatch" {
		t.Fatalf("TwoFactorIssuer = %q, want %q", cfg.Auth.TwoFactorIssuer, "sitewatch")
	}

	cfg.Auth.MaxAttempts = 10
	applyAuthDefaults(cfg)
	if cfg.Auth.MaxAttempts != 10 {
		t.Fatalf("explicit MaxAttempts overwritten: got %d", cfg.Auth.MaxAttempts)
	}
}

func TestBuildReplicasFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_REPLICAS_0_HOST", "replica-a")
	t.Setenv("POSTGRES_REPLICAS_0_PORT", "5433")
	t.Setenv("POSTGRES_REPLICAS_0_USERNAME", "reader")
	t.Setenv("POSTGRES_REPLICAS_0_PASSWORD", "secret")
	t.Setenv("POSTGRES_REPLICAS_1_HOST", "replica-b")
	t.Setenv("POSTGRES_REPLICAS_1_PORT", "5434")

	replicas := buildReplicasFromEnv()
	if len(replicas) != 2 {
		t.Fatalf("len(replicas) = %d, want 2", len(replicas))
	}
	if replicas[0].Host != "replica-a" || replicas[0].Port != "5433" {
		t.Fatalf("replica 0 = %+v", replicas[0])
	}
	if replicas[0].UserName != "reader" || replicas[0].Password != "secret" {
		t.Fatalf("replica 0 credentials = %+v", replicas[0])
	}
	if replicas[1].Host != "replica-b" {
		t.Fatalf("replica 1 = %+v", replicas[1])
	}
}

func TestBuildReplicasFromEnv_StopsAtIncompleteEntry(t *testing.T) {
	t.Setenv("POSTGRES_REPLICAS_0_HOST", "replica-a")

	if replicas := buildReplicasFromEnv(); len(replicas) != 0 {
		t.Fatalf("len(replicas) = %d, want 0", len(replicas))
	}
}

func TestAuthConfigEnforcesRole(t *testing.T) {
	auth := &AuthConfig{TwoFactorEnforceRoles: []string{"admin", " Maintainer "}}

	if !auth.EnforcesRole("admin") {
		t.Fatal("expected admin to be enforced")
	}
	if !auth.EnforcesRole("maintainer") {
		t.Fatal("expected role matching to ignore case and whitespace")
	}
	if auth.EnforcesRole("viewer") {
		t.Fatal("viewer should not be enforced")
	}
}
