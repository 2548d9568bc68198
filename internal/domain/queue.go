package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeviceStatus mirrors the PBX device-state codes reported for queue members.
type DeviceStatus int

const (
	DeviceUnknown DeviceStatus = iota
	DeviceNotInUse
	DeviceInUse
	DeviceBusy
	DeviceInvalid
	DeviceUnavailable
	DeviceRinging
	DeviceRingInUse
	DeviceOnHold
)

func (s DeviceStatus) IsValid() bool {
	return s >= DeviceUnknown && s <= DeviceOnHold
}

func (s DeviceStatus) String() string {
	switch s {
	case DeviceUnknown:
		return "unknown"
	case DeviceNotInUse:
		return "not_in_use"
	case DeviceInUse:
		return "in_use"
	case DeviceBusy:
		return "busy"
	case DeviceInvalid:
		return "invalid"
	case DeviceUnavailable:
		return "unavailable"
	case DeviceRinging:
		return "ringing"
	case DeviceRingInUse:
		return "ring_in_use"
	case DeviceOnHold:
		return "on_hold"
	}
	return fmt.Sprintf("device_status(%d)", int(s))
}

// QueueEntry is one tracked caller in a monitored queue. CallbackNumber and
// Room are only meaningful while CallbackRequested is true. AttemptCount only
// ever increases.
type QueueEntry struct {
	UID               string    `json:"uid"`
	QueueName         string    `json:"queue_name"`
	CallerID          string    `json:"caller_id"`
	CallbackRequested bool      `json:"callback_requested"`
	CallbackNumber    *string   `json:"callback_number,omitempty"`
	Room              *string   `json:"room,omitempty"`
	AttemptCount      int       `json:"attempt_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// QueueMember is a staffed position attached to a queue. Unique per
// (queue, location) pair.
type QueueMember struct {
	Agent       string       `json:"agent"`
	QueueName   string       `json:"queue_name"`
	DisplayName string       `json:"display_name"`
	Location    string       `json:"location"`
	Penalty     int          `json:"penalty"`
	CallsTaken  int          `json:"calls_taken"`
	LastCall    int64        `json:"last_call"`
	Status      DeviceStatus `json:"status"`
	Paused      bool         `json:"paused"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BlacklistEntry is a number the scheduler must never dial back.
// Managed externally; read-only here.
type BlacklistEntry struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
}

// CallbackCandidate is the scheduling read projection: the oldest
// callback-flagged entry for a queue joined with its call record, if any.
type CallbackCandidate struct {
	QueueEntry
	Ticket *string `json:"ticket,omitempty"`
	DNID   *string `json:"dnid,omitempty"`
}

// ParseLocation splits a device location such as "SIP/2001" into its
// technology and agent-id halves. Only the agent-id half is persisted.
func ParseLocation(location string) (tech, agent string, err error) {
	tech, agent, ok := strings.Cut(location, "/")
	if !ok || tech == "" || agent == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadLocation, location)
	}
	return tech, agent, nil
}
