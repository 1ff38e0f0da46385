package chat

import (
	"github.com/tinyland-inc/partyline/pkg/identity"
)

// SetTyping upserts or removes a typing indicator for the given participant.
// Self-originated signals are never stored. serverExpiresAt is epoch ms; when
// it is not a usable future expiry the configured TTL applies, and a valid
// server expiry is still held for at least the configured minimum duration.
// Expired entries are pruned on every call. Returns whether the live set
// changed.
func (st *Store) SetTyping(sessionID string, p Participant, typing bool, serverExpiresAt int64) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}

	now := st.now().UnixMilli()
	changed := false
	key := identity.CanonicalKey(p.ID)

	switch {
	case key == "":
		// fall through to the prune sweep only
	case typing && !st.identity.IsSelf(p.ID):
		expires := now + st.opts.TypingTTL.Milliseconds()
		if serverExpiresAt > now {
			expires = max(serverExpiresAt, now+st.opts.TypingMinDuration.Milliseconds())
		}
		prev, had := s.typing[key]
		entry := typingEntry{Participant: p, ExpiresAt: expires}
		if !had || prev != entry {
			s.typing[key] = entry
			changed = true
		}
	default:
		if _, had := s.typing[key]; had {
			delete(s.typing, key)
			changed = true
		}
	}

	if pruneTypingLocked(s, now) {
		changed = true
	}
	return changed
}

// TypingParticipants returns the participants with a live typing indicator
// in the session, excluding entries that have expired.
func (st *Store) TypingParticipants(sessionID string) []Participant {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return nil
	}
	now := st.now().UnixMilli()
	out := make([]Participant, 0, len(s.typing))
	for _, e := range s.typing {
		if now <= e.ExpiresAt {
			out = append(out, e.Participant)
		}
	}
	return out
}

// PruneTyping sweeps expired typing entries across all sessions. The store
// owns no timer; callers that need indicators to expire without inbound
// traffic invoke this periodically.
func (st *Store) PruneTyping() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now().UnixMilli()
	changed := false
	for _, s := range st.sessions {
		if pruneTypingLocked(s, now) {
			changed = true
		}
	}
	return changed
}

func pruneTypingLocked(s *Session, now int64) bool {
	changed := false
	for key, e := range s.typing {
		if now > e.ExpiresAt {
			delete(s.typing, key)
			changed = true
		}
	}
	return changed
}
