package usecases

import (
	"sync"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// DefaultChatQueueCapacity is the per-session outbound queue size used when
// none is configured.
const DefaultChatQueueCapacity = 64

// SessionID identifies a chat session within one ChatRoom.
type SessionID uint64

// NoSession is the sender of notes that did not originate from a local
// session, such as notes relayed from another replica.
const NoSession SessionID = 0

// ChatSession is one participant of a ChatRoom.
type ChatSession struct {
	id       SessionID
	outbound chan domain.RouteNote
}

// ID returns the session identifier.
func (s *ChatSession) ID() SessionID { return s.id }

// Outbound delivers notes broadcast by other sessions. It is closed when the
// session leaves the room.
func (s *ChatSession) Outbound() <-chan domain.RouteNote { return s.outbound }

// BroadcastResult reports what happened to one broadcast.
type BroadcastResult struct {
	Delivered int
	Dropped   int
}

// ChatRoom fans route notes out to every other active session.
type ChatRoom struct {
	capacity int

	mu       sync.RWMutex
	nextID   SessionID
	sessions map[SessionID]*ChatSession
}

// NewChatRoom creates an empty room. Non-positive capacities fall back to
// DefaultChatQueueCapacity.
func NewChatRoom(queueCapacity int) *ChatRoom {
	if queueCapacity <= 0 {
		queueCapacity = DefaultChatQueueCapacity
	}
	return &ChatRoom{
		capacity: queueCapacity,
		sessions: make(map[SessionID]*ChatSession),
	}
}

// Join registers a new session.
func (r *ChatRoom) Join() *ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	s := &ChatSession{id: r.nextID, outbound: make(chan domain.RouteNote, r.capacity)}
	r.sessions[s.id] = s
	return s
}

// Leave removes the session and closes its outbound queue. Leaving twice is
// a no-op.
func (r *ChatRoom) Leave(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	close(s.outbound)
}

// Broadcast enqueues note on every active session except from. A session
// whose queue is full misses this note; the others are unaffected.
func (r *ChatRoom) Broadcast(from SessionID, note domain.RouteNote) BroadcastResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res BroadcastResult
	for id, s := range r.sessions {
		if id == from {
			continue
		}
		select {
		case s.outbound <- note:
			res.Delivered++
		default:
			res.Dropped++
		}
	}
	return res
}

// Size returns the number of active sessions.
func (r *ChatRoom) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
