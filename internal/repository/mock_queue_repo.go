package repository

import (
	"context"
	"sync"
	"time"

	"github.com/starline/queue-callback/internal/domain"
)

type mockEntry struct {
	domain.QueueEntry
	seq int // insertion order, FIFO tie-break for NextCallback
}

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
type MockQueueRepository struct {
	mu      sync.RWMutex
	seq     int
	entries map[string]*mockEntry
	members map[string]*domain.QueueMember // keyed queue + "|" + location
	records map[string][2]*string          // uid -> (ticket, dnid)
	banned  map[string]bool

	// Optional error overrides, set in tests to simulate failure paths.
	InsertEntryErr   error
	RemoveEntryErr   error
	ToggleErr        error
	NextCallbackErr  error
	IsBlacklistedErr error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{
		entries: make(map[string]*mockEntry),
		members: make(map[string]*domain.QueueMember),
		records: make(map[string][2]*string),
		banned:  make(map[string]bool),
	}
}

// Blacklist adds a number to the in-memory blacklist.
func (m *MockQueueRepository) Blacklist(number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned[number] = true
}

// SetRecord attaches a call record (ticket, DNID) to a uid for the
// NextCallback join.
func (m *MockQueueRepository) SetRecord(uid string, ticket, dnid *string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[uid] = [2]*string{ticket, dnid}
}

func (m *MockQueueRepository) InsertEntry(_ context.Context, e *domain.QueueEntry) error {
	if m.InsertEntryErr != nil {
		return m.InsertEntryErr
	}
	if e.UID == "" {
		return domain.ErrMissingUniqueID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	clone := *e
	clone.CallbackRequested = false
	clone.AttemptCount = 0
	clone.CreatedAt = time.Now().UTC()
	m.entries[e.UID] = &mockEntry{QueueEntry: clone, seq: m.seq}
	return nil
}

func (m *MockQueueRepository) GetEntry(_ context.Context, uid string) (*domain.QueueEntry, error) {
	if uid == "" {
		return nil, domain.ErrMissingUniqueID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := e.QueueEntry
	return &clone, nil
}

func (m *MockQueueRepository) RemoveEntry(_ context.Context, uid string, force bool) error {
	if m.RemoveEntryErr != nil {
		return m.RemoveEntryErr
	}
	if uid == "" {
		return domain.ErrMissingUniqueID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[uid]; ok {
		if force || !e.CallbackRequested {
			delete(m.entries, uid)
		}
	}
	return nil
}

func (m *MockQueueRepository) ToggleCallback(_ context.Context, uid, number, room string) error {
	if m.ToggleErr != nil {
		return m.ToggleErr
	}
	if uid == "" {
		return domain.ErrMissingUniqueID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[uid]
	if !ok {
		return domain.ErrNotFound
	}
	e.CallbackRequested = !e.CallbackRequested
	e.CallbackNumber = &number
	if room != "" {
		r := room
		e.Room = &r
	} else {
		e.Room = nil
	}
	return nil
}

func (m *MockQueueRepository) IncrementAttempts(_ context.Context, uid string) error {
	if uid == "" {
		return domain.ErrMissingUniqueID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[uid]; ok {
		e.AttemptCount++
	}
	return nil
}

func (m *MockQueueRepository) NextCallback(_ context.Context, queueName string) (*domain.CallbackCandidate, error) {
	if m.NextCallbackErr != nil {
		return nil, m.NextCallbackErr
	}
	if queueName == "" {
		return nil, domain.ErrMissingQueue
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var oldest *mockEntry
	for _, e := range m.entries {
		if e.QueueName != queueName || !e.CallbackRequested {
			continue
		}
		if oldest == nil || e.seq < oldest.seq {
			oldest = e
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	c := &domain.CallbackCandidate{QueueEntry: oldest.QueueEntry}
	if rec, ok := m.records[oldest.UID]; ok {
		c.Ticket, c.DNID = rec[0], rec[1]
	}
	return c, nil
}

func (m *MockQueueRepository) ListEntries(_ context.Context, queueName string) ([]*domain.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ordered []*mockEntry
	for _, e := range m.entries {
		if e.QueueName == queueName {
			ordered = append(ordered, e)
		}
	}
	// Insertion order, matching the pg implementation's ORDER BY id.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].seq < ordered[j-1].seq; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	result := make([]*domain.QueueEntry, len(ordered))
	for i, e := range ordered {
		clone := e.QueueEntry
		result[i] = &clone
	}
	return result, nil
}

func (m *MockQueueRepository) InsertMember(_ context.Context, mem *domain.QueueMember) error {
	if mem.QueueName == "" || mem.Location == "" {
		return domain.ErrMissingQueue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *mem
	clone.UpdatedAt = time.Now().UTC()
	m.members[mem.QueueName+"|"+mem.Location] = &clone
	return nil
}

func (m *MockQueueRepository) UpdateMemberStatus(_ context.Context, queueName, location string, penalty, callsTaken int, lastCall int64, status domain.DeviceStatus, paused bool) error {
	if queueName == "" || location == "" {
		return domain.ErrMissingQueue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[queueName+"|"+location]; ok {
		mem.Penalty = penalty
		mem.CallsTaken = callsTaken
		mem.LastCall = lastCall
		mem.Status = status
		mem.Paused = paused
	}
	return nil
}

func (m *MockQueueRepository) UpdateMemberPaused(_ context.Context, queueName, location string, paused bool) error {
	if queueName == "" || location == "" {
		return domain.ErrMissingQueue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[queueName+"|"+location]; ok {
		mem.Paused = paused
	}
	return nil
}

func (m *MockQueueRepository) RemoveMember(_ context.Context, queueName, location string) error {
	if queueName == "" || location == "" {
		return domain.ErrMissingQueue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, queueName+"|"+location)
	return nil
}

func (m *MockQueueRepository) ListMembers(_ context.Context, queueName string) ([]*domain.QueueMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.QueueMember
	for _, mem := range m.members {
		if mem.QueueName == queueName {
			clone := *mem
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockQueueRepository) IsBlacklisted(_ context.Context, number string) (bool, error) {
	if m.IsBlacklistedErr != nil {
		return false, m.IsBlacklistedErr
	}
	if number == "" {
		return false, domain.ErrMissingNumber
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.banned[number], nil
}

func (m *MockQueueRepository) ClearNonCallbackEntries(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, e := range m.entries {
		if !e.CallbackRequested {
			delete(m.entries, uid)
		}
	}
	return nil
}

func (m *MockQueueRepository) ClearAllMembers(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[string]*domain.QueueMember)
	return nil
}

// GetMember is a test helper for asserting member state.
func (m *MockQueueRepository) GetMember(queueName, location string) (*domain.QueueMember, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[queueName+"|"+location]
	if !ok {
		return nil, false
	}
	clone := *mem
	return &clone, true
}
