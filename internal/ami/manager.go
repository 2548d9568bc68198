package ami

import (
	"context"
	"time"
)

// OriginateRequest carries everything needed to place an outbound call leg.
// Routing fields come from configuration; Variables carry the per-caller
// correlation data the callback dialplan reads once the leg is answered.
type OriginateRequest struct {
	Channel   string
	Context   string
	Exten     string
	Priority  int
	CallerID  string
	Timeout   time.Duration
	Variables map[string]string
}

// Manager is the telephony-manager boundary. The concrete TCP client lives in
// client.go; tests use a hand-written fake.
//
// Originate is fire-and-forget: a nil error means the action was accepted by
// the manager, not that the human answered. Connection success is decided
// later by an in-call verification step outside this service.
type Manager interface {
	// Events returns the stream of typed queue events. Closed on shutdown.
	Events() <-chan Event
	// QueueStatus requests a full dump of current queue state.
	QueueStatus(ctx context.Context) (*QueueStatusDump, error)
	// Originate places an outbound call leg.
	Originate(ctx context.Context, req OriginateRequest) error
	// Live reports whether the manager connection is currently up.
	Live() bool
}
