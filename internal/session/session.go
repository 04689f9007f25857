// Package session tracks which room and identity a single connection
// currently represents. The state is an explicit value mutated only through
// the transition methods, so the lifecycle is testable without a transport.
package session

// State is the connection's position in its lifecycle.
type State int

const (
	// Unjoined means the connection has no room membership.
	Unjoined State = iota
	// InRoom means the connection claims exactly one (room, username) pair.
	InRoom
)

// Membership is a (room, username) claim held by a connection.
type Membership struct {
	RoomKey  string
	Username string
}

// Session is the per-connection state machine. A connection is in at most
// one room at a time; joining while already joined is a move, never a
// second membership.
type Session struct {
	state   State
	current Membership
}

func New() *Session {
	return &Session{state: Unjoined}
}

func (s *Session) State() State { return s.state }

// Current returns the active membership. ok is false when Unjoined.
func (s *Session) Current() (Membership, bool) {
	if s.state != InRoom {
		return Membership{}, false
	}
	return s.current, true
}

// Join transitions to InRoom(roomKey, username). If the session was already
// in a room, the previous membership is returned with moved=true so the
// caller can run the old room's leave side effects before announcing the
// new membership.
func (s *Session) Join(roomKey, username string) (prev Membership, moved bool) {
	if s.state == InRoom {
		prev, moved = s.current, true
	}
	s.state = InRoom
	s.current = Membership{RoomKey: roomKey, Username: username}
	return prev, moved
}

// Leave transitions to Unjoined and returns the membership that was given
// up. A no-op returning ok=false when already Unjoined, so double-leave and
// leave-after-disconnect are harmless.
func (s *Session) Leave() (prev Membership, ok bool) {
	if s.state != InRoom {
		return Membership{}, false
	}
	prev = s.current
	s.state = Unjoined
	s.current = Membership{}
	return prev, true
}
