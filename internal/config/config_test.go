package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.FlowTimeout != 60*time.Second {
		t.Errorf("FlowTimeout = %v", cfg.FlowTimeout)
	}
	if cfg.MaxToolRounds != 5 {
		t.Errorf("MaxToolRounds = %d", cfg.MaxToolRounds)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CRAFTAI_ADDR", ":9090")
	t.Setenv("CRAFTAI_PROVIDER", "openai")
	t.Setenv("CRAFTAI_FLOW_TIMEOUT_SECONDS", "15")
	t.Setenv("CRAFTAI_MAX_TOOL_ROUNDS", "3")
	t.Setenv("CRAFTAI_AUDIT_DB", "/tmp/audit.db")

	cfg := FromEnv()
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.FlowTimeout != 15*time.Second {
		t.Errorf("FlowTimeout = %v", cfg.FlowTimeout)
	}
	if cfg.MaxToolRounds != 3 {
		t.Errorf("MaxToolRounds = %d", cfg.MaxToolRounds)
	}
	if cfg.AuditDBPath != "/tmp/audit.db" {
		t.Errorf("AuditDBPath = %q", cfg.AuditDBPath)
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("CRAFTAI_TEST_INT", "not a number")
	if got := ParseIntEnv("CRAFTAI_TEST_INT", 7); got != 7 {
		t.Errorf("malformed value: got %d, want fallback 7", got)
	}
	t.Setenv("CRAFTAI_TEST_INT", " 42 ")
	if got := ParseIntEnv("CRAFTAI_TEST_INT", 7); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}
