package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Backend != BackendCompletion {
		t.Errorf("Expected completion backend by default, got %s", cfg.Backend)
	}
	if cfg.Stream.TurnTimeout != 2*time.Minute {
		t.Errorf("Expected 2m turn timeout, got %s", cfg.Stream.TurnTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("LLM_BACKEND", "thread")
	t.Setenv("LLM_ASSISTANT_ID", "asst_123")
	t.Setenv("STREAM_TURN_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Port)
	}
	if cfg.Backend != BackendThread {
		t.Errorf("Expected thread backend, got %s", cfg.Backend)
	}
	if cfg.Stream.TurnTimeout != 45*time.Second {
		t.Errorf("Expected 45s timeout, got %s", cfg.Stream.TurnTimeout)
	}
}

func TestValidateThreadBackendNeedsAssistant(t *testing.T) {
	t.Setenv("LLM_BACKEND", "thread")

	if _, err := Load(); err == nil {
		t.Error("Expected thread backend without assistant ID to fail")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("LLM_BACKEND", "psychic")

	if _, err := Load(); err == nil {
		t.Error("Expected unknown backend to fail validation")
	}
}

func TestGetEnvDurationFallback(t *testing.T) {
	t.Setenv("STREAM_TURN_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.TurnTimeout != 2*time.Minute {
		t.Errorf("Expected fallback timeout, got %s", cfg.Stream.TurnTimeout)
	}
}

func TestIsDevelopment(t *testing.T) {
	cases := []struct {
		frontend string
		want     bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://app.example.com", false},
	}
	for _, tc := range cases {
		c := &Config{FrontendURL: tc.frontend}
		if got := c.IsDevelopment(); got != tc.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tc.frontend, got, tc.want)
		}
	}
}
