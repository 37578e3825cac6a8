package membership

import (
	"sort"
	"sync"

	"github.com/miwidot/twitchmod/internal/app/ports"
)

// Tracker reduces session events into per-room presence sets. Room keys
// are canonical (lower-case, no leading marker). Entries are created on
// first reference and never proactively deleted; RoomCleared empties a
// set but keeps the room.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func New() *Tracker {
	return &Tracker{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Apply consumes one session event. Join of a present member and part of
// an absent member are no-ops.
func (t *Tracker) Apply(ev ports.Event) {
	switch e := ev.(type) {
	case ports.UserJoined:
		t.join(e.Room, e.User)
	case ports.UserParted:
		t.part(e.Room, e.User)
	case ports.RoomCleared:
		t.clear(e.Room)
	}
}

func (t *Tracker) join(room, user string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		t.rooms[room] = members
	}
	members[user] = struct{}{}
}

func (t *Tracker) part(room, user string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if members, ok := t.rooms[room]; ok {
		delete(members, user)
	}
}

func (t *Tracker) clear(room string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rooms[room]; ok {
		t.rooms[room] = make(map[string]struct{})
	}
}

// MembersOf returns a sorted copy of the room's member set.
func (t *Tracker) MembersOf(room string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := make([]string, 0, len(t.rooms[room]))
	for user := range t.rooms[room] {
		members = append(members, user)
	}
	sort.Strings(members)

	return members
}

func (t *Tracker) Count(room string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.rooms[room])
}

// Rooms returns every room ever referenced, sorted.
func (t *Tracker) Rooms() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rooms := make([]string, 0, len(t.rooms))
	for room := range t.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)

	return rooms
}
