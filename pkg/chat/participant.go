package chat

import (
	"strings"

	"github.com/tinyland-inc/partyline/pkg/identity"
)

// RawParticipant is the loosely-typed participant shape carried by event
// payloads. Either "id" or "user_id" may hold the identifier.
type RawParticipant struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// NormalizeParticipant converts a raw payload participant into the canonical
// shape. Returns false if no usable id is present. Name defaults to the id.
func NormalizeParticipant(raw RawParticipant) (Participant, bool) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = strings.TrimSpace(raw.UserID)
	}
	if id == "" {
		return Participant{}, false
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = id
	}
	return Participant{ID: id, Name: name, Avatar: strings.TrimSpace(raw.Avatar)}, true
}

// NormalizeParticipants normalizes a raw list, dropping unusable entries.
func NormalizeParticipants(raw []RawParticipant) []Participant {
	out := make([]Participant, 0, len(raw))
	for _, r := range raw {
		if p, ok := NormalizeParticipant(r); ok {
			out = append(out, p)
		}
	}
	return out
}

// MergeParticipants concatenates the given lists and deduplicates by id.
// First-seen order is preserved; for duplicate ids the last occurrence wins
// for name and avatar (later data is assumed fresher).
func MergeParticipants(lists ...[]Participant) []Participant {
	merged := make([]Participant, 0)
	pos := make(map[string]int)
	for _, list := range lists {
		for _, p := range list {
			if p.ID == "" {
				continue
			}
			if i, ok := pos[p.ID]; ok {
				if p.Name != "" {
					merged[i].Name = p.Name
				}
				if p.Avatar != "" {
					merged[i].Avatar = p.Avatar
				}
				continue
			}
			pos[p.ID] = len(merged)
			merged = append(merged, p)
		}
	}
	return merged
}

// participantsEqual compares two lists by the (id, name, avatar) triple in
// order. Used to decide whether a participant merge actually changed state.
func participantsEqual(a, b []Participant) bool {
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

// enrichParticipant overlays friend-directory data onto a participant. When
// the directory knows the id (directly or by canonical key), the friend's
// user id becomes the canonical id and the friend's name and avatar are
// preferred when present. An existing name survives only if it does not look
// like a raw identifier.
func (st *Store) enrichParticipant(p Participant) Participant {
	f, ok := st.friends.Lookup(p.ID)
	if !ok {
		return p
	}
	out := p
	out.ID = f.UserID
	if f.Name != "" {
		out.Name = f.Name
	} else if p.Name == "" || p.Name == p.ID || identity.LooksLikeRawID(p.Name) {
		out.Name = f.UserID
	}
	if f.Avatar != "" {
		out.Avatar = f.Avatar
	}
	return out
}

func (st *Store) enrichParticipants(list []Participant) []Participant {
	out := make([]Participant, len(list))
	for i, p := range list {
		out[i] = st.enrichParticipant(p)
	}
	return MergeParticipants(out)
}

// selfParticipant builds the canonical local-user participant from whatever
// identity information is currently available.
func (st *Store) selfParticipant() (Participant, bool) {
	id := st.identity.CurrentUserID()
	if id == "" {
		id = st.identity.SelfClientID()
	}
	if id == "" {
		return Participant{}, false
	}
	p := Participant{ID: id, Name: id}
	if f, ok := st.friends.Lookup(id); ok {
		if f.Name != "" {
			p.Name = f.Name
		}
		p.Avatar = f.Avatar
	}
	return p, true
}
