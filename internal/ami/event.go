package ami

import (
	"strconv"

	"github.com/starline/queue-callback/internal/domain"
)

// Event is the closed set of manager events this service consumes. Each
// variant carries the queue it pertains to so the monitored-queue filter can
// run before any dispatch. The set is closed: HandleEvent switches over every
// variant and the compiler keeps new ones from slipping in unhandled.
type Event interface {
	EventQueue() string
	EventName() string
}

// Join: a caller entered a queue.
type Join struct {
	Queue       string
	UniqueID    string
	CallerIDNum string
}

// Leave: a caller left a queue (answered, transferred, or hung up).
type Leave struct {
	Queue    string
	UniqueID string
}

// QueueCallerAbandoned: the caller hung up before reaching an agent.
type QueueCallerAbandoned struct {
	Queue    string
	UniqueID string
}

// AgentConnect: an agent answered a queued call.
type AgentConnect struct {
	Queue    string
	UniqueID string
	Location string
}

// AgentDump: the agent dumped the caller back into the queue.
type AgentDump struct {
	Queue    string
	UniqueID string
	Location string
}

// AgentComplete: an agent call finished normally.
type AgentComplete struct {
	Queue    string
	UniqueID string
	Location string
}

// QueueMemberStatus: device-state change for a queue member.
type QueueMemberStatus struct {
	Queue      string
	Location   string
	Penalty    int
	CallsTaken int
	LastCall   int64
	Status     domain.DeviceStatus
	Paused     bool
}

// QueueMemberPaused: a member was paused or unpaused.
type QueueMemberPaused struct {
	Queue      string
	Location   string
	MemberName string
	Paused     bool
}

// QueueMemberAdded: a member was dynamically added to a queue.
type QueueMemberAdded struct {
	Queue      string
	Location   string
	MemberName string
	Penalty    int
	CallsTaken int
	LastCall   int64
	Status     domain.DeviceStatus
	Paused     bool
}

// QueueMemberRemoved: a member was dynamically removed from a queue.
type QueueMemberRemoved struct {
	Queue    string
	Location string
}

func (e Join) EventQueue() string                 { return e.Queue }
func (e Join) EventName() string                  { return "Join" }
func (e Leave) EventQueue() string                { return e.Queue }
func (e Leave) EventName() string                 { return "Leave" }
func (e QueueCallerAbandoned) EventQueue() string { return e.Queue }
func (e QueueCallerAbandoned) EventName() string  { return "QueueCallerAbandoned" }
func (e AgentConnect) EventQueue() string         { return e.Queue }
func (e AgentConnect) EventName() string          { return "AgentConnect" }
func (e AgentDump) EventQueue() string            { return e.Queue }
func (e AgentDump) EventName() string             { return "AgentDump" }
func (e AgentComplete) EventQueue() string        { return e.Queue }
func (e AgentComplete) EventName() string         { return "AgentComplete" }
func (e QueueMemberStatus) EventQueue() string    { return e.Queue }
func (e QueueMemberStatus) EventName() string     { return "QueueMemberStatus" }
func (e QueueMemberPaused) EventQueue() string    { return e.Queue }
func (e QueueMemberPaused) EventName() string     { return "QueueMemberPaused" }
func (e QueueMemberAdded) EventQueue() string     { return e.Queue }
func (e QueueMemberAdded) EventName() string      { return "QueueMemberAdded" }
func (e QueueMemberRemoved) EventQueue() string   { return e.Queue }
func (e QueueMemberRemoved) EventName() string    { return "QueueMemberRemoved" }

// QueueEntryRecord is one waiting caller in a full queue-status dump.
type QueueEntryRecord struct {
	Queue       string
	UniqueID    string
	CallerIDNum string
	Position    int
}

// QueueMemberRecord is one member row in a full queue-status dump.
type QueueMemberRecord struct {
	Queue      string
	Name       string
	Location   string
	Penalty    int
	CallsTaken int
	LastCall   int64
	Status     domain.DeviceStatus
	Paused     bool
}

// QueueStatusDump is the manager's answer to a QueueStatus action: the
// complete current queue state, replayed through the mutator at (re)connect.
type QueueStatusDump struct {
	Entries []QueueEntryRecord
	Members []QueueMemberRecord
}

// ParseEvent maps a raw manager frame to its typed variant. Returns false for
// event names outside the consumed set; those frames are discarded by the
// reader without logging noise.
func ParseEvent(fields map[string]string) (Event, bool) {
	switch fields["Event"] {
	case "Join":
		return Join{
			Queue:       fields["Queue"],
			UniqueID:    fields["Uniqueid"],
			CallerIDNum: fields["CallerIDNum"],
		}, true
	case "Leave":
		return Leave{Queue: fields["Queue"], UniqueID: fields["Uniqueid"]}, true
	case "QueueCallerAbandoned":
		return QueueCallerAbandoned{Queue: fields["Queue"], UniqueID: fields["Uniqueid"]}, true
	case "AgentConnect":
		return AgentConnect{Queue: fields["Queue"], UniqueID: fields["Uniqueid"], Location: fields["Member"]}, true
	case "AgentDump":
		return AgentDump{Queue: fields["Queue"], UniqueID: fields["Uniqueid"], Location: fields["Member"]}, true
	case "AgentComplete":
		return AgentComplete{Queue: fields["Queue"], UniqueID: fields["Uniqueid"], Location: fields["Member"]}, true
	case "QueueMemberStatus":
		return QueueMemberStatus{
			Queue:      fields["Queue"],
			Location:   fields["Location"],
			Penalty:    atoi(fields["Penalty"]),
			CallsTaken: atoi(fields["CallsTaken"]),
			LastCall:   atoi64(fields["LastCall"]),
			Status:     domain.DeviceStatus(atoi(fields["Status"])),
			Paused:     fields["Paused"] == "1",
		}, true
	case "QueueMemberPaused":
		return QueueMemberPaused{
			Queue:      fields["Queue"],
			Location:   fields["Location"],
			MemberName: fields["MemberName"],
			Paused:     fields["Paused"] == "1",
		}, true
	case "QueueMemberAdded":
		return QueueMemberAdded{
			Queue:      fields["Queue"],
			Location:   fields["Location"],
			MemberName: fields["MemberName"],
			Penalty:    atoi(fields["Penalty"]),
			CallsTaken: atoi(fields["CallsTaken"]),
			LastCall:   atoi64(fields["LastCall"]),
			Status:     domain.DeviceStatus(atoi(fields["Status"])),
			Paused:     fields["Paused"] == "1",
		}, true
	case "QueueMemberRemoved":
		return QueueMemberRemoved{Queue: fields["Queue"], Location: fields["Location"]}, true
	}
	return nil, false
}

// ParseDumpRecord maps QueueStatus response frames (QueueEntry / QueueMember)
// into dump records. Other frame types in the response (QueueParams,
// QueueStatusComplete) return (nil, nil, false).
func ParseDumpRecord(fields map[string]string) (*QueueEntryRecord, *QueueMemberRecord, bool) {
	switch fields["Event"] {
	case "QueueEntry":
		return &QueueEntryRecord{
			Queue:       fields["Queue"],
			UniqueID:    fields["Uniqueid"],
			CallerIDNum: fields["CallerIDNum"],
			Position:    atoi(fields["Position"]),
		}, nil, true
	case "QueueMember":
		return nil, &QueueMemberRecord{
			Queue:      fields["Queue"],
			Name:       fields["Name"],
			Location:   fields["Location"],
			Penalty:    atoi(fields["Penalty"]),
			CallsTaken: atoi(fields["CallsTaken"]),
			LastCall:   atoi64(fields["LastCall"]),
			Status:     domain.DeviceStatus(atoi(fields["Status"])),
			Paused:     fields["Paused"] == "1",
		}, true
	}
	return nil, nil, false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
