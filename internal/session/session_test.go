package session

import (
	"strings"
	"testing"
)

func TestNewGeneratesCorrelationID(t *testing.T) {
	s := New("test")
	if !strings.HasPrefix(s.CorrelationID, "corr_") {
		t.Fatalf("unexpected correlation id: %q", s.CorrelationID)
	}
	if s.CorrelationID == correlationUnavailable {
		t.Fatal("expected a generated id, got the sentinel")
	}
}

func TestMetaCarriesContext(t *testing.T) {
	s := New("test")
	meta := s.Meta()
	if meta["correlationId"] != s.CorrelationID {
		t.Fatalf("meta carries wrong correlation id: %v", meta["correlationId"])
	}
	if _, ok := meta["device"]; !ok {
		t.Fatal("meta missing device snapshot")
	}
}

func TestDeviceInfoBestEffort(t *testing.T) {
	s := New("1.2.3")
	if s.Device.OS == "" || s.Device.Arch == "" {
		t.Fatalf("expected OS/arch to be populated: %+v", s.Device)
	}
	if s.Device.AgentVersion != "1.2.3" {
		t.Fatalf("agent version lost: %+v", s.Device)
	}
}
