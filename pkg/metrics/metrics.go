// Package metrics aggregates counters for the chat event pipeline: how many
// envelopes were applied or dropped, and per-session message and send
// activity.
package metrics

import (
	"sync"
	"time"
)

type MeterStore struct {
	mu     sync.RWMutex
	totals Totals
	meters map[string]*SessionMeter
}

// Totals tracks pipeline-wide counters across all sessions.
type Totals struct {
	EventsApplied int64
	EventsDropped int64
	SendsPrepared int64
	AcksResolved  int64
}

// SessionMeter tracks per-session activity.
type SessionMeter struct {
	SessionID    string
	Events       int64
	Dropped      int64
	Messages     int64
	Sends        int64
	Acks         int64
	LastActivity time.Time
}

func NewMeterStore() *MeterStore {
	return &MeterStore{
		meters: make(map[string]*SessionMeter),
	}
}

func (s *MeterStore) meterLocked(sessionID string) *SessionMeter {
	m, ok := s.meters[sessionID]
	if !ok {
		m = &SessionMeter{SessionID: sessionID}
		s.meters[sessionID] = m
	}
	return m
}

// RecordEvent counts one inbound envelope. Dropped envelopes with no usable
// session id are counted in the totals only.
func (s *MeterStore) RecordEvent(sessionID string, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if applied {
		s.totals.EventsApplied++
	} else {
		s.totals.EventsDropped++
	}

	if sessionID == "" {
		return
	}
	m := s.meterLocked(sessionID)
	if applied {
		m.Events++
	} else {
		m.Dropped++
	}
	m.LastActivity = time.Now()
}

// RecordMessage counts one message landing in a session ledger.
func (s *MeterStore) RecordMessage(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meterLocked(sessionID)
	m.Messages++
	m.LastActivity = time.Now()
}

// RecordSend counts one optimistic local send.
func (s *MeterStore) RecordSend(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.SendsPrepared++
	m := s.meterLocked(sessionID)
	m.Sends++
	m.LastActivity = time.Now()
}

// RecordAck counts one server ack resolving a pending send.
func (s *MeterStore) RecordAck(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.AcksResolved++
	m := s.meterLocked(sessionID)
	m.Acks++
	m.LastActivity = time.Now()
}

// RemapSession folds counters from the old session id into the new one.
func (s *MeterStore) RemapSession(oldID, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.meters[oldID]
	if !ok || oldID == newID {
		return
	}
	delete(s.meters, oldID)

	dst := s.meterLocked(newID)
	dst.Events += old.Events
	dst.Dropped += old.Dropped
	dst.Messages += old.Messages
	dst.Sends += old.Sends
	dst.Acks += old.Acks
	if old.LastActivity.After(dst.LastActivity) {
		dst.LastActivity = old.LastActivity
	}
}

// Totals returns the pipeline-wide counter snapshot.
func (s *MeterStore) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// GetSessionMeter returns a copy of the meter for one session.
func (s *MeterStore) GetSessionMeter(sessionID string) (SessionMeter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meters[sessionID]
	if !ok {
		return SessionMeter{}, false
	}
	return *m, true
}

// GetAllMeters returns a snapshot of all session meters.
func (s *MeterStore) GetAllMeters() map[string]SessionMeter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]SessionMeter, len(s.meters))
	for id, m := range s.meters {
		result[id] = *m
	}
	return result
}
