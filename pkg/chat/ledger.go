package chat

import (
	"github.com/tinyland-inc/partyline/pkg/logger"
)

// AddMessage inserts or merges a message into a session's ledger. Repeated
// deliveries of the same id merge into the existing slot, never duplicate.
// Returns false only when the session is unknown.
func (st *Store) AddMessage(sessionID string, msg Message, isLocal bool) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	st.addMessageLocked(s, msg, isLocal)
	return true
}

func (st *Store) addMessageLocked(s *Session, msg Message, isLocal bool) {
	if msg.ID == "" {
		return
	}

	if i, ok := s.messageIndex[msg.ID]; ok {
		mergeMessage(&s.Messages[i], msg)
	} else {
		s.Messages = append(s.Messages, msg)
		s.messageIndex[msg.ID] = len(s.Messages) - 1
		if !isLocal && s.ID != st.activeSessionID {
			s.UnreadCount++
		}
		if excess := len(s.Messages) - st.opts.RetentionLimit; excess > 0 {
			s.Messages = append([]Message(nil), s.Messages[excess:]...)
			s.rebuildIndex()
		}
	}

	ts, ok := parseSentAt(msg.SentAt)
	if !ok {
		ts = st.now().UnixMilli()
	}
	if ts > s.LastMessageTimestamp {
		s.LastMessageTimestamp = ts
	}

	if isLocal && s.ID == st.activeSessionID {
		// Self is always reading its own sends.
		s.UnreadCount = 0
	}
}

// AcknowledgeMessage reconciles a pending local message against the server's
// confirmation. Resolution order: the client message id first, then an
// existing entry under the server id (duplicate delivery), else the payload
// is treated as a brand-new inbound message.
func (st *Store) AcknowledgeMessage(sessionID, clientMessageID string, payload Message) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	return st.acknowledgeLocked(s, clientMessageID, payload)
}

func (st *Store) acknowledgeLocked(s *Session, clientMessageID string, payload Message) bool {
	if payload.Status == "" {
		payload.Status = StatusSent
	}

	if i, ok := s.messageIndex[clientMessageID]; ok {
		finalID := payload.ID
		if finalID == "" {
			finalID = clientMessageID
		}
		if j, dup := s.messageIndex[finalID]; dup && j != i {
			// The server copy already arrived on its own; fold the pending
			// entry into it and drop the provisional slot.
			mergeMessage(&s.Messages[j], s.Messages[i])
			mergeMessage(&s.Messages[j], payload)
			s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
			s.rebuildIndex()
			return true
		}
		mergeMessage(&s.Messages[i], payload)
		if finalID != clientMessageID {
			s.Messages[i].ID = finalID
			delete(s.messageIndex, clientMessageID)
			s.messageIndex[finalID] = i
			logger.DebugCF("chat", "Message re-keyed on ack", map[string]any{
				"session":   s.ID,
				"client_id": clientMessageID,
				"server_id": finalID,
			})
		}
		return true
	}

	if i, ok := s.messageIndex[payload.ID]; ok {
		mergeMessage(&s.Messages[i], payload)
		return true
	}

	st.addMessageLocked(s, payload, st.identity.IsSelf(payload.AuthorID))
	return true
}

// MarkMessageStatus sets a single message's status. No-op when the message
// is absent or the status is unchanged.
func (st *Store) MarkMessageStatus(sessionID, messageID string, status MessageStatus) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	i, ok := s.messageIndex[messageID]
	if !ok || s.Messages[i].Status == status {
		return false
	}
	s.Messages[i].Status = status
	return true
}

// MessagePatch carries the editable fields of a message-update event.
type MessagePatch struct {
	Body        *string
	Attachments []Attachment
}

// UpdateMessage applies an edit patch in place. Stale references are a no-op.
func (st *Store) UpdateMessage(sessionID, messageID string, patch MessagePatch) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	i, ok := s.messageIndex[messageID]
	if !ok {
		return false
	}
	m := &s.Messages[i]
	changed := false
	if patch.Body != nil && *patch.Body != m.Body {
		m.Body = *patch.Body
		changed = true
	}
	if len(patch.Attachments) > 0 && !attachmentsEqual(m.Attachments, patch.Attachments) {
		m.Attachments = patch.Attachments
		changed = true
	}
	return changed
}

// SetReactions replaces a message's reaction list wholesale. Reaction
// changes never alter message status.
func (st *Store) SetReactions(sessionID, messageID string, reactions []Reaction) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	i, ok := s.messageIndex[messageID]
	if !ok {
		return false
	}
	if reactionsEqual(s.Messages[i].Reactions, reactions) {
		return false
	}
	s.Messages[i].Reactions = reactions
	return true
}

// DeleteMessage removes a message from the ledger. A delete arriving before
// its target's creation is absorbed as a no-op; the message reappears if the
// creation event arrives later.
func (st *Store) DeleteMessage(sessionID, messageID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	i, ok := s.messageIndex[messageID]
	if !ok {
		return false
	}
	s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
	s.rebuildIndex()
	return true
}

// Messages returns a copy of a session's ledger in order.
func (st *Store) Messages(sessionID string) []Message {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return nil
	}
	return copyMessages(s.Messages)
}

// Message looks up one message by id.
func (st *Store) Message(sessionID, messageID string) (Message, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return Message{}, false
	}
	i, ok := s.messageIndex[messageID]
	if !ok {
		return Message{}, false
	}
	return copyMessage(s.Messages[i]), true
}

func copyMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = copyMessage(m)
	}
	return out
}

func copyMessage(m Message) Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = make([]Reaction, len(m.Reactions))
		for i, r := range m.Reactions {
			out.Reactions[i] = Reaction{Emoji: r.Emoji, Users: append([]Participant(nil), r.Users...)}
		}
	}
	if m.Attachments != nil {
		out.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return out
}

func attachmentsEqual(a, b []Attachment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reactionsEqual(a, b []Reaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Emoji != b[i].Emoji || len(a[i].Users) != len(b[i].Users) {
			return false
		}
		for j := range a[i].Users {
			if a[i].Users[j] != b[i].Users[j] {
				return false
			}
		}
	}
	return true
}
