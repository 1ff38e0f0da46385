// Package identity tracks the identifiers that refer to the local user.
//
// A user is known by several strings over a client's lifetime: the primary
// user id, an ephemeral client id handed out before login completes, and
// synthetic forms carried by event payloads (e.g. "capsule:<id>"). The
// Registry accumulates every string ever registered as "me" and classifies
// arbitrary ids against that set.
package identity

import (
	"strings"
	"sync"
)

// knownPrefixes are identifier prefixes stripped during canonicalization.
// "capsule:" marks synthetic capsule authors, "client:" ephemeral client ids.
var knownPrefixes = []string{"capsule:", "client:", "user:"}

// CanonicalKey normalizes an identifier for alias and friend matching:
// whitespace trimmed, known prefixes stripped, lowercased. It is the single
// place id-shape heuristics live so matching rules can change without
// touching call sites.
func CanonicalKey(id string) string {
	s := strings.TrimSpace(id)
	for _, p := range knownPrefixes {
		if len(s) > len(p) && strings.EqualFold(s[:len(p)], p) {
			s = s[len(p):]
			break
		}
	}
	return strings.ToLower(s)
}

// LooksLikeRawID reports whether s is id-shaped (uuid-like, long hex, or a
// known synthetic prefix) rather than a human display name. Used to avoid
// surfacing raw identifiers as participant names.
func LooksLikeRawID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, p := range knownPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	hexish := 0
	for _, r := range lower {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r == '-':
			hexish++
		case r == ' ':
			// Display names contain spaces, ids do not.
			return false
		}
	}
	return len(lower) >= 16 && hexish == len(lower)
}

// Registry holds the local user's known identifiers. Safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	currentUserID string
	selfClientID  string
	aliases       map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{aliases: make(map[string]struct{})}
}

// SetCurrentUserID updates the primary user id. Returns false if the
// normalized id is empty or unchanged; otherwise the id is registered as an
// alias and true is returned.
func (r *Registry) SetCurrentUserID(id string) bool {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" || id == r.currentUserID {
		return false
	}
	r.currentUserID = id
	r.registerLocked(id)
	return true
}

// SetSelfClientID updates the ephemeral client id, same contract as
// SetCurrentUserID.
func (r *Registry) SetSelfClientID(id string) bool {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" || id == r.selfClientID {
		return false
	}
	r.selfClientID = id
	r.registerLocked(id)
	return true
}

func (r *Registry) CurrentUserID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentUserID
}

func (r *Registry) SelfClientID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selfClientID
}

// RegisterAliases records additional strings known to refer to the local
// user. Empty strings are ignored.
func (r *Registry) RegisterAliases(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if s := strings.TrimSpace(id); s != "" {
			r.registerLocked(s)
		}
	}
}

func (r *Registry) registerLocked(id string) {
	r.aliases[id] = struct{}{}
	if ck := CanonicalKey(id); ck != "" {
		r.aliases[ck] = struct{}{}
	}
}

// IsSelf reports whether id refers to the local user: it matches the current
// user id, the self client id, or any registered alias directly or by
// canonical key.
func (r *Registry) IsSelf(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == r.currentUserID || id == r.selfClientID {
		return true
	}
	if _, ok := r.aliases[id]; ok {
		return true
	}
	_, ok := r.aliases[CanonicalKey(id)]
	return ok
}

// Aliases returns a copy of every registered alias, including canonical forms.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.aliases))
	for a := range r.aliases {
		out = append(out, a)
	}
	return out
}

// AliasSet returns the full alias set including the given extra ids and all
// canonical forms. Used when rewriting participants to the canonical self.
func (r *Registry) AliasSet(extra ...string) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[string]struct{}, len(r.aliases)+2*len(extra))
	for a := range r.aliases {
		set[a] = struct{}{}
	}
	for _, id := range extra {
		if s := strings.TrimSpace(id); s != "" {
			set[s] = struct{}{}
			if ck := CanonicalKey(s); ck != "" {
				set[ck] = struct{}{}
			}
		}
	}
	return set
}
