package ami_test

import (
	"testing"

	"github.com/starline/queue-callback/internal/ami"
	"github.com/starline/queue-callback/internal/domain"
)

func TestParseEvent_Join(t *testing.T) {
	ev, ok := ami.ParseEvent(map[string]string{
		"Event":       "Join",
		"Queue":       "Dev",
		"Uniqueid":    "1234567890.42",
		"CallerIDNum": "5551234",
	})
	if !ok {
		t.Fatal("expected Join to parse")
	}
	join, ok := ev.(ami.Join)
	if !ok {
		t.Fatalf("expected ami.Join, got %T", ev)
	}
	if join.Queue != "Dev" || join.UniqueID != "1234567890.42" || join.CallerIDNum != "5551234" {
		t.Fatalf("unexpected fields: %+v", join)
	}
	if join.EventName() != "Join" || join.EventQueue() != "Dev" {
		t.Fatal("EventName/EventQueue mismatch")
	}
}

func TestParseEvent_MemberAdded(t *testing.T) {
	ev, ok := ami.ParseEvent(map[string]string{
		"Event":      "QueueMemberAdded",
		"Queue":      "Dev",
		"Location":   "SIP/2001",
		"MemberName": "Alice",
		"Penalty":    "2",
		"CallsTaken": "17",
		"LastCall":   "1700000000",
		"Status":     "6",
		"Paused":     "1",
	})
	if !ok {
		t.Fatal("expected QueueMemberAdded to parse")
	}
	added := ev.(ami.QueueMemberAdded)
	if added.Location != "SIP/2001" || added.MemberName != "Alice" {
		t.Fatalf("unexpected fields: %+v", added)
	}
	if added.Penalty != 2 || added.CallsTaken != 17 || added.LastCall != 1700000000 {
		t.Fatalf("unexpected numeric fields: %+v", added)
	}
	if added.Status != domain.DeviceRinging {
		t.Fatalf("expected ringing status, got %v", added.Status)
	}
	if !added.Paused {
		t.Fatal("expected paused=true")
	}
}

func TestParseEvent_AllConsumedNames(t *testing.T) {
	names := []string{
		"Join", "Leave", "QueueCallerAbandoned",
		"AgentConnect", "AgentDump", "AgentComplete",
		"QueueMemberStatus", "QueueMemberPaused",
		"QueueMemberAdded", "QueueMemberRemoved",
	}
	for _, name := range names {
		ev, ok := ami.ParseEvent(map[string]string{"Event": name, "Queue": "Dev"})
		if !ok {
			t.Fatalf("event %q should parse", name)
		}
		if ev.EventName() != name {
			t.Fatalf("expected name %q, got %q", name, ev.EventName())
		}
		if ev.EventQueue() != "Dev" {
			t.Fatalf("event %q lost its queue", name)
		}
	}
}

func TestParseEvent_UnknownDiscarded(t *testing.T) {
	if _, ok := ami.ParseEvent(map[string]string{"Event": "Hangup", "Queue": "Dev"}); ok {
		t.Fatal("Hangup should not be part of the consumed event set")
	}
	if _, ok := ami.ParseEvent(map[string]string{"Response": "Success"}); ok {
		t.Fatal("non-event frames should not parse")
	}
}

func TestParseDumpRecord(t *testing.T) {
	entry, member, ok := ami.ParseDumpRecord(map[string]string{
		"Event":       "QueueEntry",
		"Queue":       "Dev",
		"Uniqueid":    "100.1",
		"CallerIDNum": "5550001",
		"Position":    "3",
	})
	if !ok || entry == nil || member != nil {
		t.Fatal("expected a QueueEntry record")
	}
	if entry.UniqueID != "100.1" || entry.Position != 3 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	entry, member, ok = ami.ParseDumpRecord(map[string]string{
		"Event":    "QueueMember",
		"Queue":    "Dev",
		"Name":     "Bob",
		"Location": "SIP/2002",
		"Status":   "1",
		"Paused":   "0",
	})
	if !ok || member == nil || entry != nil {
		t.Fatal("expected a QueueMember record")
	}
	if member.Name != "Bob" || member.Status != domain.DeviceNotInUse || member.Paused {
		t.Fatalf("unexpected member: %+v", member)
	}

	if _, _, ok := ami.ParseDumpRecord(map[string]string{"Event": "QueueParams"}); ok {
		t.Fatal("QueueParams frames should be skipped")
	}
}
