// Package friends holds the local user's friend directory, used to enrich
// chat participants with cleaner names and avatars than event payloads carry.
package friends

import (
	"strings"
	"sync"

	"github.com/tinyland-inc/partyline/pkg/identity"
)

// Friend is one directory entry as delivered by the friends service.
type Friend struct {
	UserID string `json:"user_id"`
	Key    string `json:"key,omitempty"` // alternate identifier (handle, invite key)
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Status string `json:"status,omitempty"`
}

// Directory indexes friends by canonical user id and by canonical alternate
// key. It is rebuilt wholesale on every friends update and never persisted.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]Friend
	byKey   map[string]Friend
	entries []Friend
}

func NewDirectory() *Directory {
	return &Directory{
		byID:  make(map[string]Friend),
		byKey: make(map[string]Friend),
	}
}

// Replace rebuilds the directory from the given list. Entries without a
// usable user id are skipped.
func (d *Directory) Replace(list []Friend) {
	byID := make(map[string]Friend, len(list))
	byKey := make(map[string]Friend, len(list))
	entries := make([]Friend, 0, len(list))

	for _, f := range list {
		f.UserID = strings.TrimSpace(f.UserID)
		if f.UserID == "" {
			continue
		}
		entries = append(entries, f)
		byID[identity.CanonicalKey(f.UserID)] = f
		if k := identity.CanonicalKey(f.Key); k != "" {
			byKey[k] = f
		}
	}

	d.mu.Lock()
	d.byID = byID
	d.byKey = byKey
	d.entries = entries
	d.mu.Unlock()
}

// Lookup finds a friend by id: direct canonical user-id match first, then
// the alternate key index. Matching is case-insensitive via CanonicalKey.
func (d *Directory) Lookup(id string) (Friend, bool) {
	ck := identity.CanonicalKey(id)
	if ck == "" {
		return Friend{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if f, ok := d.byID[ck]; ok {
		return f, true
	}
	f, ok := d.byKey[ck]
	return f, ok
}

// All returns a copy of the current entries in insertion order.
func (d *Directory) All() []Friend {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Friend, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of indexed friends.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
