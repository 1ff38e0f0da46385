package chat

import (
	"strings"
)

// SessionDescriptor is the sanitizable shape from which sessions are created
// or merged: a "chat.session" event payload, the session context riding on a
// message event, or a local-send target.
type SessionDescriptor struct {
	ID           string
	Type         SessionType
	Title        string
	Avatar       string
	CreatedBy    string
	Participants []Participant
}

// groupIDPrefixes mark conversation ids that imply a group session when the
// descriptor leaves the type ambiguous.
var groupIDPrefixes = []string{"group:", "room:", "party:"}

// inferSessionType resolves an ambiguous session type from the conversation
// id shape. Direct is the default.
func inferSessionType(id string) SessionType {
	lower := strings.ToLower(id)
	for _, p := range groupIDPrefixes {
		if strings.HasPrefix(lower, p) {
			return SessionGroup
		}
	}
	return SessionDirect
}

// sanitizeDescriptor normalizes a descriptor before it touches the registry:
// substitutes the canonical self id for aliased participants and creators,
// and enriches from the friend directory. An ambiguous type stays empty; it
// is only inferred when the session is first created, so a later type-less
// event never overwrites a stored explicit type.
func (st *Store) sanitizeDescriptor(d SessionDescriptor) SessionDescriptor {
	d.ID = strings.TrimSpace(d.ID)
	d.Title = strings.TrimSpace(d.Title)

	if d.Type != SessionDirect && d.Type != SessionGroup {
		d.Type = ""
	}

	self, hasSelf := st.selfParticipant()
	parts := make([]Participant, 0, len(d.Participants))
	for _, p := range d.Participants {
		if hasSelf && st.identity.IsSelf(p.ID) {
			parts = append(parts, self)
			continue
		}
		parts = append(parts, st.enrichParticipant(p))
	}
	d.Participants = MergeParticipants(parts)

	if hasSelf && st.identity.IsSelf(d.CreatedBy) {
		d.CreatedBy = self.ID
	}
	return d
}

// directTitle computes the default title for a direct session: the names of
// its non-self counterparts.
func (st *Store) directTitle(s *Session) string {
	names := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if st.identity.IsSelf(p.ID) {
			continue
		}
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

// EnsureResult reports what ensuring a session did. SessionID is the
// sanitized id the session lives under (empty when the descriptor was
// unusable); Changed drives the caller's notify/skip-render decision.
type EnsureResult struct {
	SessionID string
	Created   bool
	Changed   bool
}

// EnsureSession creates the session if absent, otherwise merges the
// descriptor's metadata and participants into it.
func (st *Store) EnsureSession(d SessionDescriptor) EnsureResult {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, res := st.ensureSessionLocked(d)
	return res
}

func (st *Store) ensureSessionLocked(d SessionDescriptor) (*Session, EnsureResult) {
	d = st.sanitizeDescriptor(d)
	if d.ID == "" {
		return nil, EnsureResult{}
	}

	s, ok := st.sessions[d.ID]
	if !ok {
		s = newSession(d.ID)
		s.Type = d.Type
		if s.Type == "" {
			s.Type = inferSessionType(d.ID)
		}
		s.Title = d.Title
		s.Avatar = d.Avatar
		s.CreatedBy = d.CreatedBy
		s.Participants = d.Participants
		if s.Title == "" && s.Type == SessionDirect {
			s.Title = st.directTitle(s)
		}
		st.sessions[d.ID] = s
		return s, EnsureResult{SessionID: d.ID, Created: true, Changed: true}
	}

	changed := false
	if d.Type != "" && d.Type != s.Type {
		s.Type = d.Type
		changed = true
	}
	if d.Title != "" && d.Title != s.Title {
		s.Title = d.Title
		changed = true
	}
	if d.Avatar != "" && d.Avatar != s.Avatar {
		s.Avatar = d.Avatar
		changed = true
	}
	if d.CreatedBy != "" && d.CreatedBy != s.CreatedBy {
		s.CreatedBy = d.CreatedBy
		changed = true
	}
	if len(d.Participants) > 0 {
		merged := MergeParticipants(s.Participants, d.Participants)
		if !participantsEqual(merged, s.Participants) {
			s.Participants = merged
			changed = true
		}
	}
	if s.Title == "" && s.Type == SessionDirect {
		if title := st.directTitle(s); title != "" {
			s.Title = title
			changed = true
		}
	}
	return s, EnsureResult{SessionID: d.ID, Changed: changed}
}

// Participants returns a copy of a session's participant list.
func (st *Store) Participants(sessionID string) []Participant {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]Participant, len(s.Participants))
	copy(out, s.Participants)
	return out
}

// hasSelfParticipant reports whether any current participant of the session
// resolves to the local user.
func (st *Store) hasSelfParticipantLocked(sessionID string) bool {
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	for _, p := range s.Participants {
		if st.identity.IsSelf(p.ID) {
			return true
		}
	}
	return false
}
