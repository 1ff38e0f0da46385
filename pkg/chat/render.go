package chat

import (
	"fmt"
	"sort"
)

// SessionView is the read-only rendering snapshot of one session. Views are
// deep copies; a later store operation never mutates a returned view.
type SessionView struct {
	ID                 string
	Type               SessionType
	Title              string
	Avatar             string
	CreatedBy          string
	Participants       []Participant
	Messages           []Message
	LastMessageAt      int64 // epoch ms
	LastMessagePreview string
	UnreadCount        int
	Typing             []Participant
}

// RenderSnapshot returns views of all sessions ordered by last activity,
// newest first. Expired typing entries are excluded.
func (st *Store) RenderSnapshot() []SessionView {
	st.mu.RLock()
	defer st.mu.RUnlock()

	now := st.now().UnixMilli()
	out := make([]SessionView, 0, len(st.sessions))
	for _, s := range st.sortedSessionsLocked() {
		out = append(out, st.viewLocked(s, now))
	}
	return out
}

// SessionSnapshot returns the view of one session.
func (st *Store) SessionSnapshot(id string) (SessionView, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return SessionView{}, false
	}
	return st.viewLocked(s, st.now().UnixMilli()), true
}

// sortedSessionsLocked returns sessions by LastMessageTimestamp descending,
// id ascending on ties so output order is stable.
func (st *Store) sortedSessionsLocked() []*Session {
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessageTimestamp != out[j].LastMessageTimestamp {
			return out[i].LastMessageTimestamp > out[j].LastMessageTimestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *Store) viewLocked(s *Session, now int64) SessionView {
	v := SessionView{
		ID:            s.ID,
		Type:          s.Type,
		Title:         s.Title,
		Avatar:        s.Avatar,
		CreatedBy:     s.CreatedBy,
		Participants:  append([]Participant(nil), s.Participants...),
		Messages:      copyMessages(s.Messages),
		LastMessageAt: s.LastMessageTimestamp,
		UnreadCount:   s.UnreadCount,
	}
	if n := len(s.Messages); n > 0 {
		v.LastMessagePreview = messagePreview(s.Messages[n-1])
	}
	v.Typing = make([]Participant, 0, len(s.typing))
	for _, e := range s.typing {
		if now <= e.ExpiresAt {
			v.Typing = append(v.Typing, e.Participant)
		}
	}
	sort.Slice(v.Typing, func(i, j int) bool { return v.Typing[i].ID < v.Typing[j].ID })
	return v
}

// messagePreview derives the one-line session preview: the message body, or
// an attachment fallback when the body is empty.
func messagePreview(m Message) string {
	if m.Body != "" {
		return m.Body
	}
	switch n := len(m.Attachments); {
	case n == 1:
		return "Attachment"
	case n > 1:
		return fmt.Sprintf("Attachments (%d)", n)
	default:
		return ""
	}
}
