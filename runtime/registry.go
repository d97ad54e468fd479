package runtime

import (
	"sync"

	"live-docs/contract"
	"live-docs/domain"
)

// member pairs a participant entry with the outbound sink of the
// connection that produced it.
type member struct {
	participant domain.Participant
	sink        contract.EventSink
}

// session is the membership of one document. Each session carries its own
// lock so that unrelated documents never contend.
type session struct {
	mu      sync.Mutex
	members map[string]*member // keyed by user ID, unique per document
	order   []string           // user IDs in join order, for stable snapshots
	dead    bool               // set once the empty session is unlinked from the registry
}

// Registry is the sole owner of Session and Participant state.
//
// The outer mutex only guards the two maps below and is held for map
// lookups, never across membership mutations or sink calls. byConn is the
// reverse index from connection ID to joined documents: disconnect cleanup
// touches exactly the sessions the connection was part of, it never scans
// the registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byConn   map[string]map[string]string // connection ID -> document ID -> user ID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		byConn:   make(map[string]map[string]string),
	}
}

// Join inserts or replaces the participant keyed by user ID within the
// document's session and returns the membership snapshot including the
// joiner. Re-joining with the same user ID replaces the previous entry,
// whatever connection produced it.
func (r *Registry) Join(documentID string, p domain.Participant, sink contract.EventSink) []domain.Participant {
	var snapshot []domain.Participant
	var replacedSocket string
	var replaced bool

	for {
		s := r.getOrCreateSession(documentID)
		s.mu.Lock()
		if s.dead {
			// Lost the race against empty-session cleanup, grab a fresh one.
			s.mu.Unlock()
			continue
		}
		if old, ok := s.members[p.ID]; ok {
			replacedSocket = old.participant.SocketID
			replaced = true
			old.participant = p
			old.sink = sink
		} else {
			s.members[p.ID] = &member{participant: p, sink: sink}
			s.order = append(s.order, p.ID)
		}
		snapshot = s.snapshotLocked()
		s.mu.Unlock()
		break
	}

	r.mu.Lock()
	if replaced && replacedSocket != p.SocketID {
		r.unindexLocked(replacedSocket, documentID)
	}
	if _, ok := r.byConn[p.SocketID]; !ok {
		r.byConn[p.SocketID] = make(map[string]string)
	}
	r.byConn[p.SocketID][documentID] = p.ID
	r.mu.Unlock()

	return snapshot
}

// Leave removes the participant if present. Leaving a document twice, or a
// document never joined, is a no-op rather than an error.
func (r *Registry) Leave(documentID, userID string) (domain.Participant, bool) {
	s := r.lookupSession(documentID)
	if s == nil {
		return domain.Participant{}, false
	}

	s.mu.Lock()
	m, ok := s.members[userID]
	if !ok {
		s.mu.Unlock()
		return domain.Participant{}, false
	}
	removed := m.participant
	delete(s.members, userID)
	s.removeOrderLocked(userID)
	s.mu.Unlock()

	r.mu.Lock()
	r.unindexLocked(removed.SocketID, documentID)
	r.mu.Unlock()
	r.cleanupIfEmpty(documentID)

	return removed, true
}

// RemoveConnection drops this connection's participant entry from every
// document it had joined, and from no others. Safe to call concurrently
// with joins/leaves for the same connection, and idempotent: the second
// call finds an empty reverse index and removes nothing.
func (r *Registry) RemoveConnection(connectionID string) []domain.Removal {
	r.mu.Lock()
	joined := r.byConn[connectionID]
	delete(r.byConn, connectionID)
	r.mu.Unlock()

	var removals []domain.Removal
	for documentID, userID := range joined {
		s := r.lookupSession(documentID)
		if s == nil {
			continue
		}
		s.mu.Lock()
		m, ok := s.members[userID]
		// The user may have re-joined from a fresh connection already; in
		// that case the entry belongs to the new socket and must survive.
		if ok && m.participant.SocketID == connectionID {
			removed := m.participant
			delete(s.members, userID)
			s.removeOrderLocked(userID)
			removals = append(removals, domain.Removal{DocumentID: documentID, Participant: removed})
		}
		s.mu.Unlock()
		r.cleanupIfEmpty(documentID)
	}
	return removals
}

// Snapshot returns the current membership in join order.
func (r *Registry) Snapshot(documentID string) []domain.Participant {
	s := r.lookupSession(documentID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsMember reports whether the connection is currently joined to the
// document. The session entry is checked too, so a connection whose user
// re-joined from elsewhere is no longer a member even if a stale index
// entry survived an interleaved join.
func (r *Registry) IsMember(documentID, connectionID string) bool {
	_, ok := r.ParticipantFor(documentID, connectionID)
	return ok
}

// ParticipantFor resolves the identity asserted when the connection joined
// the document.
func (r *Registry) ParticipantFor(documentID, connectionID string) (domain.Participant, bool) {
	r.mu.RLock()
	userID, ok := r.byConn[connectionID][documentID]
	r.mu.RUnlock()
	if !ok {
		return domain.Participant{}, false
	}
	s := r.lookupSession(documentID)
	if s == nil {
		return domain.Participant{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[userID]
	if !ok || m.participant.SocketID != connectionID {
		return domain.Participant{}, false
	}
	return m.participant, true
}

// Sinks returns the outbound channels of every member of the document
// except the given connection.
func (r *Registry) Sinks(documentID, exceptConnectionID string) []contract.EventSink {
	s := r.lookupSession(documentID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var sinks []contract.EventSink
	for _, userID := range s.order {
		m := s.members[userID]
		if m.participant.SocketID == exceptConnectionID {
			continue
		}
		sinks = append(sinks, m.sink)
	}
	return sinks
}

// Counts reports live sessions and participant entries.
func (r *Registry) Counts() (sessions, participants int) {
	r.mu.RLock()
	all := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()
	for _, s := range all {
		s.mu.Lock()
		if !s.dead {
			sessions++
			participants += len(s.members)
		}
		s.mu.Unlock()
	}
	return sessions, participants
}

func (r *Registry) lookupSession(documentID string) *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[documentID]
}

func (r *Registry) getOrCreateSession(documentID string) *session {
	r.mu.RLock()
	s := r.sessions[documentID]
	r.mu.RUnlock()
	if s != nil {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s = r.sessions[documentID]; s == nil {
		s = &session{members: make(map[string]*member)}
		r.sessions[documentID] = s
	}
	return s
}

// cleanupIfEmpty unlinks a session once its last participant left, so the
// registry doesn't accumulate entries for documents nobody watches.
func (r *Registry) cleanupIfEmpty(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[documentID]
	if s == nil {
		return
	}
	s.mu.Lock()
	if len(s.members) == 0 {
		s.dead = true
		delete(r.sessions, documentID)
	}
	s.mu.Unlock()
}

// unindexLocked removes one reverse index entry. Caller holds r.mu.
func (r *Registry) unindexLocked(connectionID, documentID string) {
	if docs, ok := r.byConn[connectionID]; ok {
		delete(docs, documentID)
		if len(docs) == 0 {
			delete(r.byConn, connectionID)
		}
	}
}

func (s *session) snapshotLocked() []domain.Participant {
	snapshot := make([]domain.Participant, 0, len(s.members))
	for _, userID := range s.order {
		snapshot = append(snapshot, s.members[userID].participant)
	}
	return snapshot
}

func (s *session) removeOrderLocked(userID string) {
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
