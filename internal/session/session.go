// Package session derives the per-process correlation context attached to
// every tracked event and log entry.
package session

import (
	"crypto/rand"
	"fmt"
	"os"
	"runtime"
	"time"
)

// correlationUnavailable is returned when no entropy source is available.
const correlationUnavailable = "corr_unavailable"

// DeviceInfo is a best-effort snapshot of the host the agent runs on.
// Fields that cannot be determined stay empty instead of failing the caller.
type DeviceInfo struct {
	Hostname     string `json:"hostname,omitempty"`
	OS           string `json:"os,omitempty"`
	Arch         string `json:"arch,omitempty"`
	NumCPU       int    `json:"num_cpu,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	AgentVersion string `json:"agent_version,omitempty"`
}

// Session holds the correlation id and device snapshot for one agent
// process. It is created once at startup and injected into every component
// that needs it; it lives for the process and has no teardown.
type Session struct {
	CorrelationID string
	Device        DeviceInfo
}

// New builds the session context. The correlation id is generated once here;
// callers share the same Session value for the whole process.
func New(agentVersion string) *Session {
	return &Session{
		CorrelationID: newCorrelationID(),
		Device:        deviceInfo(agentVersion),
	}
}

// Meta returns the contextual fields merged into event/log metadata.
func (s *Session) Meta() map[string]any {
	return map[string]any{
		"correlationId": s.CorrelationID,
		"device":        s.Device,
	}
}

func newCorrelationID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return correlationUnavailable
	}
	return fmt.Sprintf("corr_%d_%x", time.Now().UnixMilli(), b)
}

func deviceInfo(agentVersion string) DeviceInfo {
	host, _ := os.Hostname()
	return DeviceInfo{
		Hostname:     host,
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		AgentVersion: agentVersion,
	}
}
