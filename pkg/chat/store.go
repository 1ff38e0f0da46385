package chat

import (
	"sync"
	"time"

	"github.com/tinyland-inc/partyline/pkg/friends"
	"github.com/tinyland-inc/partyline/pkg/identity"
	"github.com/tinyland-inc/partyline/pkg/logger"
)

// Options tunes a Store. Zero values fall back to defaults.
type Options struct {
	// RetentionLimit caps the number of messages kept per session.
	RetentionLimit int
	// TypingTTL is the lifetime of a typing indicator when the event
	// carries no usable expiry.
	TypingTTL time.Duration
	// TypingMinDuration is the minimum time a typing indicator stays live
	// even when the server expiry is sooner.
	TypingMinDuration time.Duration
	// SnapshotMessageLimit caps messages per session in the stored snapshot.
	SnapshotMessageLimit int
}

const (
	defaultRetentionLimit       = 100
	defaultTypingTTL            = 6 * time.Second
	defaultTypingMinDuration    = 3 * time.Second
	defaultSnapshotMessageLimit = 50
)

func (o Options) withDefaults() Options {
	if o.RetentionLimit <= 0 {
		o.RetentionLimit = defaultRetentionLimit
	}
	if o.TypingTTL <= 0 {
		o.TypingTTL = defaultTypingTTL
	}
	if o.TypingMinDuration <= 0 {
		o.TypingMinDuration = defaultTypingMinDuration
	}
	if o.SnapshotMessageLimit <= 0 {
		o.SnapshotMessageLimit = defaultSnapshotMessageLimit
	}
	return o
}

// Store owns the full chat state tree for one logical client. One instance
// per application session; construct with NewStore and discard the reference
// to tear down. Safe for concurrent use; every operation is one atomic state
// transition.
type Store struct {
	mu sync.RWMutex

	opts     Options
	identity *identity.Registry
	friends  *friends.Directory

	sessions        map[string]*Session
	activeSessionID string

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	return &Store{
		opts:     opts.withDefaults(),
		identity: identity.NewRegistry(),
		friends:  friends.NewDirectory(),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Identity exposes the alias registry for callers that classify ids.
func (st *Store) Identity() *identity.Registry {
	return st.identity
}

// Friends exposes the friend directory for read-side callers.
func (st *Store) Friends() *friends.Directory {
	return st.friends
}

// SetCurrentUserID updates the primary user id and retroactively rewrites
// aliased participants and authors across all sessions. Returns whether
// anything changed.
func (st *Store) SetCurrentUserID(id string) bool {
	changed := st.identity.SetCurrentUserID(id)
	if !changed {
		return false
	}
	if self, ok := st.selfParticipantUnlocked(); ok {
		st.ApplySelfParticipant(self, nil)
	}
	return true
}

// SetSelfClientID updates the ephemeral client id.
func (st *Store) SetSelfClientID(id string) bool {
	return st.identity.SetSelfClientID(id)
}

func (st *Store) selfParticipantUnlocked() (Participant, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.selfParticipant()
}

// ApplySelfParticipant rewrites every participant entry, message author and
// session creator matching a known alias (directly or by canonical key) to
// the given canonical self participant. Idempotent: applying the same
// participant twice reports no further change.
func (st *Store) ApplySelfParticipant(self Participant, aliases []string) bool {
	if self.ID == "" {
		return false
	}
	st.identity.RegisterAliases(append([]string{self.ID}, aliases...)...)
	set := st.identity.AliasSet(aliases...)

	matches := func(id string) bool {
		if id == "" {
			return false
		}
		if _, ok := set[id]; ok {
			return true
		}
		_, ok := set[identity.CanonicalKey(id)]
		return ok
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	changed := false
	for _, s := range st.sessions {
		for i := range s.Participants {
			p := &s.Participants[i]
			if matches(p.ID) && *p != self {
				*p = self
				changed = true
			}
		}
		// Rewriting may have introduced duplicate self entries.
		if merged := MergeParticipants(s.Participants); !participantsEqual(merged, s.Participants) {
			s.Participants = merged
			changed = true
		}
		for i := range s.Messages {
			m := &s.Messages[i]
			if matches(m.AuthorID) && m.AuthorID != self.ID {
				m.AuthorID = self.ID
				changed = true
			}
		}
		if matches(s.CreatedBy) && s.CreatedBy != self.ID {
			s.CreatedBy = self.ID
			changed = true
		}
	}
	return changed
}

// UpdateFromFriends rebuilds the friend directory and re-enriches every
// session's participants, recomputing default titles for direct sessions.
// The directory itself is not persisted.
func (st *Store) UpdateFromFriends(list []friends.Friend) bool {
	st.friends.Replace(list)

	st.mu.Lock()
	defer st.mu.Unlock()

	changed := false
	for _, s := range st.sessions {
		enriched := st.enrichParticipants(s.Participants)
		if !participantsEqual(enriched, s.Participants) {
			s.Participants = enriched
			changed = true
		}
		if s.Type == SessionDirect {
			if title := st.directTitle(s); title != "" && title != s.Title {
				s.Title = title
				changed = true
			}
		}
	}
	if changed {
		logger.DebugCF("chat", "Participants re-enriched from friends", map[string]any{
			"friends": len(list),
		})
	}
	return changed
}

// SetActiveSession switches the active session, resetting its unread count.
// Returns false when the id is already active.
func (st *Store) SetActiveSession(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id == st.activeSessionID {
		return false
	}
	st.activeSessionID = id
	if s, ok := st.sessions[id]; ok && s.UnreadCount != 0 {
		s.UnreadCount = 0
	}
	return true
}

// ActiveSessionID returns the currently active session id, or empty.
func (st *Store) ActiveSessionID() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.activeSessionID
}

// MarkRead resets a session's unread count without activating it.
func (st *Store) MarkRead(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok || s.UnreadCount == 0 {
		return false
	}
	s.UnreadCount = 0
	return true
}

// DeleteSession removes a session. If it was active the active pointer is
// cleared. Unknown ids are a no-op.
func (st *Store) DeleteSession(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	if st.activeSessionID == id {
		st.activeSessionID = ""
	}
	return true
}

// SessionCount returns the number of known sessions.
func (st *Store) SessionCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// UpsertParticipants enriches then merges the given participants into a
// session. Returns false when the session is unknown or the merge produces
// an identical list.
func (st *Store) UpsertParticipants(sessionID string, parts []Participant) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	merged := MergeParticipants(s.Participants, st.enrichParticipants(parts))
	if participantsEqual(merged, s.Participants) {
		return false
	}
	s.Participants = merged
	return true
}
