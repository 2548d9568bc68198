package config_test

import (
	"testing"
	"time"

	"github.com/starline/queue-callback/internal/config"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/callback")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.AMIAddr != "127.0.0.1:5038" || cfg.AMIUsername != "manager" {
		t.Errorf("unexpected manager defaults: %q %q", cfg.AMIAddr, cfg.AMIUsername)
	}
	if cfg.AGIAddr != ":24131" {
		t.Errorf("AGIAddr = %q, want :24131", cfg.AGIAddr)
	}
	if cfg.SchedulerInterval != 90*time.Second {
		t.Errorf("SchedulerInterval = %v, want 90s", cfg.SchedulerInterval)
	}
	if cfg.CallbackLimit != 3 {
		t.Errorf("CallbackLimit = %d, want 3", cfg.CallbackLimit)
	}
	if cfg.OriginateRate != 1 {
		t.Errorf("OriginateRate = %d, want 1", cfg.OriginateRate)
	}
	if cfg.CallbackContext != "queue-callback" || cfg.CallbackExten != "s" || cfg.CallbackPriority != 1 {
		t.Errorf("unexpected routing defaults: %q %q %d",
			cfg.CallbackContext, cfg.CallbackExten, cfg.CallbackPriority)
	}
	if cfg.OriginateTimeout != 30*time.Second {
		t.Errorf("OriginateTimeout = %v, want 30s", cfg.OriginateTimeout)
	}
	if len(cfg.Queues) != 0 {
		t.Errorf("Queues should default to empty, got %v", cfg.Queues)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/callback")
	t.Setenv("MONITORED_QUEUES", "Dev, Sales ,,Support")
	t.Setenv("SCHEDULER_INTERVAL", "45s")
	t.Setenv("CALLBACK_LIMIT", "5")
	t.Setenv("CALLBACK_TRUNK", "trunk-out")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Dev", "Sales", "Support"}
	if len(cfg.Queues) != len(want) {
		t.Fatalf("Queues = %v, want %v", cfg.Queues, want)
	}
	for i, q := range want {
		if cfg.Queues[i] != q {
			t.Fatalf("Queues = %v, want %v", cfg.Queues, want)
		}
	}
	if cfg.SchedulerInterval != 45*time.Second {
		t.Errorf("SchedulerInterval = %v, want 45s", cfg.SchedulerInterval)
	}
	if cfg.CallbackLimit != 5 {
		t.Errorf("CallbackLimit = %d, want 5", cfg.CallbackLimit)
	}
	if cfg.CallbackTrunk != "trunk-out" {
		t.Errorf("CallbackTrunk = %q, want trunk-out", cfg.CallbackTrunk)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/callback")
	t.Setenv("CALLBACK_LIMIT", "not-a-number")
	t.Setenv("SCHEDULER_INTERVAL", "ninety seconds")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CallbackLimit != 3 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.CallbackLimit)
	}
	if cfg.SchedulerInterval != 90*time.Second {
		t.Errorf("malformed duration should fall back to default, got %v", cfg.SchedulerInterval)
	}
}
