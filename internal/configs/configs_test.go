package configs

import (
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("GROUP_ECHO_SENDER", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseDSN == "" {
		t.Error("expected development DSN default, got empty string")
	}
	if cfg.NatsURL == "" {
		t.Error("expected development NATS URL default, got empty string")
	}
	if cfg.GroupEchoSender {
		t.Error("expected group echo to default off")
	}
}

func TestLoadConfigProductionRequiresDSN(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NATS_URL", "nats://nats:4222")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for missing DATABASE_URL in production")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error should name DATABASE_URL, got: %v", err)
	}
}

func TestLoadConfigProductionRequiresNatsURL(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://chat:chat@db:5432/chat")
	t.Setenv("NATS_URL", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for missing NATS_URL in production")
	}
}

func TestLoadConfigInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}

	t.Setenv("PORT", "80")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for privileged port")
	}
}

func TestLoadConfigOrigins(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("expected %d origins, got %d", len(want), len(cfg.AllowedOrigins))
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("origin %d: expected %q, got %q", i, want[i], cfg.AllowedOrigins[i])
		}
	}
}

func TestLoadConfigGroupEcho(t *testing.T) {
	t.Setenv("GROUP_ECHO_SENDER", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.GroupEchoSender {
		t.Error("expected group echo enabled")
	}

	t.Setenv("GROUP_ECHO_SENDER", "maybe")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid GROUP_ECHO_SENDER")
	}
}
