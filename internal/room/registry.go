package room

import (
	"sort"
	"sync"
)

// Room holds the state shared by everyone in one collaboration session:
// the set of usernames currently present and the most recent execution
// output. Nothing here survives the process.
type Room struct {
	members    map[string]struct{}
	lastOutput string
	hasOutput  bool
}

// Registry maps room keys to live rooms. It is an injectable value, not a
// package singleton, so the hub (and tests) own their registry explicitly.
// Rooms are created on first AddMember and deleted when the last member
// leaves.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: map[string]*Room{}}
}

// AddMember puts username into the room's member set, creating the room if
// needed. Adding a name that is already present is a no-op.
func (r *Registry) AddMember(key, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.rooms[key]
	if rm == nil {
		rm = &Room{members: map[string]struct{}{}}
		r.rooms[key] = rm
	}
	rm.members[username] = struct{}{}
}

// RemoveMember drops username from the room. Removing an absent name, or
// removing from an unknown room, is a no-op. The room itself is deleted
// once its member set empties.
func (r *Registry) RemoveMember(key, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.rooms[key]
	if rm == nil {
		return
	}
	delete(rm.members, username)
	if len(rm.members) == 0 {
		delete(r.rooms, key)
	}
}

// MembersOf returns the room's usernames, sorted for stable presence
// payloads. Unknown rooms yield an empty list.
func (r *Registry) MembersOf(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm := r.rooms[key]
	if rm == nil {
		return []string{}
	}
	out := make([]string, 0, len(rm.members))
	for u := range rm.members {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Exists reports whether the room currently has members.
func (r *Registry) Exists(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[key]
	return ok
}

// SetLastOutput records the most recent execution output for the room.
// A no-op if the room has since emptied out.
func (r *Registry) SetLastOutput(key, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.rooms[key]
	if rm == nil {
		return
	}
	rm.lastOutput = output
	rm.hasOutput = true
}

// LastOutput returns the room's most recent execution output, if any.
func (r *Registry) LastOutput(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm := r.rooms[key]
	if rm == nil || !rm.hasOutput {
		return "", false
	}
	return rm.lastOutput, true
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
