package chat

// StoredState is the bounded, serializable snapshot of a store: the last N
// messages per session, no typing indicators, no friend directory. Message
// status is not persisted; rehydrated messages are always sent.
type StoredState struct {
	ActiveSessionID string          `json:"active_session_id,omitempty"`
	Sessions        []StoredSession `json:"sessions"`
}

// StoredSession is one session in the persisted snapshot.
type StoredSession struct {
	ID           string          `json:"id"`
	Type         SessionType     `json:"type"`
	Title        string          `json:"title,omitempty"`
	Avatar       string          `json:"avatar,omitempty"`
	CreatedBy    string          `json:"created_by,omitempty"`
	Participants []Participant   `json:"participants,omitempty"`
	Messages     []StoredMessage `json:"messages,omitempty"`
}

// StoredMessage is one message in the persisted snapshot. Status is omitted
// deliberately.
type StoredMessage struct {
	ID          string       `json:"id"`
	AuthorID    string       `json:"author_id"`
	Body        string       `json:"body"`
	SentAt      string       `json:"sent_at"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	TaskID      string       `json:"task_id,omitempty"`
	TaskTitle   string       `json:"task_title,omitempty"`
}

// ToStoredState produces the bounded snapshot for persistence. Sessions are
// emitted in last-activity order so truncated consumers keep the fresh ones.
func (st *Store) ToStoredState() StoredState {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := StoredState{
		ActiveSessionID: st.activeSessionID,
		Sessions:        make([]StoredSession, 0, len(st.sessions)),
	}
	for _, s := range st.sortedSessionsLocked() {
		stored := StoredSession{
			ID:           s.ID,
			Type:         s.Type,
			Title:        s.Title,
			Avatar:       s.Avatar,
			CreatedBy:    s.CreatedBy,
			Participants: append([]Participant(nil), s.Participants...),
		}
		msgs := s.Messages
		if len(msgs) > st.opts.SnapshotMessageLimit {
			msgs = msgs[len(msgs)-st.opts.SnapshotMessageLimit:]
		}
		stored.Messages = make([]StoredMessage, 0, len(msgs))
		for _, m := range msgs {
			c := copyMessage(m)
			stored.Messages = append(stored.Messages, StoredMessage{
				ID:          c.ID,
				AuthorID:    c.AuthorID,
				Body:        c.Body,
				SentAt:      c.SentAt,
				Reactions:   c.Reactions,
				Attachments: c.Attachments,
				TaskID:      c.TaskID,
				TaskTitle:   c.TaskTitle,
			})
		}
		out.Sessions = append(out.Sessions, stored)
	}
	return out
}

// Hydrate replaces the store's session tree wholesale from a persisted
// snapshot. All rehydrated messages carry status sent.
func (st *Store) Hydrate(state StoredState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions = make(map[string]*Session, len(state.Sessions))
	st.activeSessionID = state.ActiveSessionID

	for _, stored := range state.Sessions {
		if stored.ID == "" {
			continue
		}
		s := newSession(stored.ID)
		s.Type = stored.Type
		if s.Type != SessionDirect && s.Type != SessionGroup {
			s.Type = inferSessionType(stored.ID)
		}
		s.Title = stored.Title
		s.Avatar = stored.Avatar
		s.CreatedBy = stored.CreatedBy
		s.Participants = MergeParticipants(stored.Participants)
		s.Messages = make([]Message, 0, len(stored.Messages))
		for _, m := range stored.Messages {
			if m.ID == "" {
				continue
			}
			if _, dup := s.messageIndex[m.ID]; dup {
				continue
			}
			s.Messages = append(s.Messages, Message{
				ID:          m.ID,
				AuthorID:    m.AuthorID,
				Body:        m.Body,
				SentAt:      m.SentAt,
				Status:      StatusSent,
				Reactions:   m.Reactions,
				Attachments: m.Attachments,
				TaskID:      m.TaskID,
				TaskTitle:   m.TaskTitle,
			})
			s.messageIndex[m.ID] = len(s.Messages) - 1
			if ts, ok := parseSentAt(m.SentAt); ok && ts > s.LastMessageTimestamp {
				s.LastMessageTimestamp = ts
			}
		}
		st.sessions[stored.ID] = s
	}

	if st.activeSessionID != "" {
		if _, ok := st.sessions[st.activeSessionID]; !ok {
			st.activeSessionID = ""
		}
	}
}
