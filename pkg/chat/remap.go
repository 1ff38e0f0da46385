package chat

import (
	"sort"

	"github.com/tinyland-inc/partyline/pkg/logger"
)

// RemapSessionID moves a session from a client-provisional id to the
// server's canonical id. When the new id is unused this is a cheap rename;
// when both sessions exist their participants and messages are merged
// deterministically (see mergeSessions) and the source id is deleted. The
// active pointer follows the rename.
func (st *Store) RemapSessionID(oldID, newID string) bool {
	if oldID == "" || newID == "" || oldID == newID {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	src, ok := st.sessions[oldID]
	if !ok {
		return false
	}

	if dst, exists := st.sessions[newID]; exists {
		st.mergeSessions(dst, src)
	} else {
		src.ID = newID
		st.sessions[newID] = src
	}
	delete(st.sessions, oldID)

	if st.activeSessionID == oldID {
		st.activeSessionID = newID
	}

	logger.DebugCF("chat", "Session remapped", map[string]any{
		"old": oldID,
		"new": newID,
	})
	return true
}

// mergeSessions folds src into dst. Message conflicts on the same id resolve
// by status precedence (sent beats everything, an incoming pending
// supersedes an existing failed entry, otherwise the existing message
// stands), then the merged set is ordered by parsed sent-at ascending with
// id string comparison breaking ties. Replaying the two original event
// streams in either relative order converges on the same session content.
func (st *Store) mergeSessions(dst, src *Session) {
	dst.Participants = MergeParticipants(dst.Participants, src.Participants)

	for _, in := range src.Messages {
		if i, ok := dst.messageIndex[in.ID]; ok {
			if statusWins(in.Status, dst.Messages[i].Status) {
				dst.Messages[i] = in
			}
			continue
		}
		dst.Messages = append(dst.Messages, in)
		dst.messageIndex[in.ID] = len(dst.Messages) - 1
	}

	sort.SliceStable(dst.Messages, func(i, j int) bool {
		a, b := dst.Messages[i], dst.Messages[j]
		ta, okA := parseSentAt(a.SentAt)
		tb, okB := parseSentAt(b.SentAt)
		if okA && okB && ta != tb {
			return ta < tb
		}
		if okA != okB {
			// Parseable timestamps sort before unparseable ones.
			return okA
		}
		return a.ID < b.ID
	})
	if excess := len(dst.Messages) - st.opts.RetentionLimit; excess > 0 {
		dst.Messages = append([]Message(nil), dst.Messages[excess:]...)
	}
	dst.rebuildIndex()

	if src.LastMessageTimestamp > dst.LastMessageTimestamp {
		dst.LastMessageTimestamp = src.LastMessageTimestamp
	}
	if src.UnreadCount > dst.UnreadCount {
		dst.UnreadCount = src.UnreadCount
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Avatar == "" {
		dst.Avatar = src.Avatar
	}
	if dst.CreatedBy == "" {
		dst.CreatedBy = src.CreatedBy
	}

	for key, e := range src.typing {
		if _, ok := dst.typing[key]; !ok {
			dst.typing[key] = e
		}
	}
}
