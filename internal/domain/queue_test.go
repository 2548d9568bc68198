package domain_test

import (
	"errors"
	"testing"

	"github.com/starline/queue-callback/internal/domain"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		tech     string
		agent    string
		wantErr  bool
	}{
		{"sip device", "SIP/2001", "SIP", "2001", false},
		{"iax device", "IAX2/alice", "IAX2", "alice", false},
		{"agent id with slash kept whole", "Local/42@agents", "Local", "42@agents", false},
		{"missing separator", "SIP2001", "", "", true},
		{"empty technology", "/2001", "", "", true},
		{"empty agent", "SIP/", "", "", true},
		{"empty string", "", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tech, agent, err := domain.ParseLocation(tc.location)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrBadLocation) {
					t.Fatalf("expected ErrBadLocation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tech != tc.tech || agent != tc.agent {
				t.Fatalf("expected (%s, %s), got (%s, %s)", tc.tech, tc.agent, tech, agent)
			}
		})
	}
}

func TestDeviceStatus_IsValid(t *testing.T) {
	for s := domain.DeviceUnknown; s <= domain.DeviceOnHold; s++ {
		if !s.IsValid() {
			t.Fatalf("status %d should be valid", s)
		}
	}
	if domain.DeviceStatus(9).IsValid() {
		t.Fatal("status 9 should be invalid")
	}
	if domain.DeviceStatus(-1).IsValid() {
		t.Fatal("status -1 should be invalid")
	}
}

func TestDeviceStatus_String(t *testing.T) {
	if got := domain.DeviceRinging.String(); got != "ringing" {
		t.Fatalf("expected %q, got %q", "ringing", got)
	}
	if got := domain.DeviceStatus(42).String(); got != "device_status(42)" {
		t.Fatalf("unexpected string for out-of-range status: %q", got)
	}
}
