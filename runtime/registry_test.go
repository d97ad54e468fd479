package runtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"live-docs/domain"
	"live-docs/domain/event"
)

// recordingSink is an in-memory EventSink capturing every delivered frame.
type recordingSink struct {
	id string

	mu     sync.Mutex
	frames []event.Envelope
}

func newRecordingSink(id string) *recordingSink {
	return &recordingSink{id: id}
}

func (s *recordingSink) ID() string { return s.id }

func (s *recordingSink) Consume(_ context.Context, e event.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, e)
	return nil
}

func (s *recordingSink) Frames() []event.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Envelope, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *recordingSink) FramesOfType(t event.Type) []event.Envelope {
	var out []event.Envelope
	for _, f := range s.Frames() {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func participant(userID, socketID string) domain.Participant {
	return domain.Participant{ID: userID, Username: "user-" + userID, SocketID: socketID}
}

func TestRegistry_Join_ReturnsSnapshotIncludingJoiner(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	// Given an empty registry
	// When two users join the same document
	alice := participant("alice", "sock-a")
	bob := participant("bob", "sock-b")
	registry.Join("doc1", alice, newRecordingSink("sock-a"))
	snapshot := registry.Join("doc1", bob, newRecordingSink("sock-b"))

	// Then the second snapshot contains both, in join order
	assert.Equal([]domain.Participant{alice, bob}, snapshot)
}

func TestRegistry_Join_SameUserTwiceKeepsOneEntry(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	// Given alice already joined from her first connection
	registry.Join("doc1", participant("alice", "sock-1"), newRecordingSink("sock-1"))

	// When she joins again from a second connection (page refresh)
	fresh := participant("alice", "sock-2")
	snapshot := registry.Join("doc1", fresh, newRecordingSink("sock-2"))

	// Then the document has a single entry carrying the new socket
	assert.Len(snapshot, 1)
	assert.Equal(fresh, snapshot[0])

	// And the stale connection is no longer a member
	assert.False(registry.IsMember("doc1", "sock-1"))
	assert.True(registry.IsMember("doc1", "sock-2"))
}

func TestRegistry_Join_ReplacementPreservesOrderPosition(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	registry.Join("doc1", participant("alice", "sock-a"), newRecordingSink("sock-a"))
	registry.Join("doc1", participant("bob", "sock-b"), newRecordingSink("sock-b"))

	// When alice re-joins, she keeps her original position in the snapshot
	snapshot := registry.Join("doc1", participant("alice", "sock-a2"), newRecordingSink("sock-a2"))

	assert.Len(snapshot, 2)
	assert.Equal("alice", snapshot[0].ID)
	assert.Equal("bob", snapshot[1].ID)
}

func TestRegistry_Leave_IsIdempotent(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	registry.Join("doc1", participant("alice", "sock-a"), newRecordingSink("sock-a"))

	removed, ok := registry.Leave("doc1", "alice")
	assert.True(ok)
	assert.Equal("alice", removed.ID)

	// Leaving twice, or leaving a document never joined, removes nothing
	_, ok = registry.Leave("doc1", "alice")
	assert.False(ok)
	_, ok = registry.Leave("doc-unknown", "alice")
	assert.False(ok)
}

func TestRegistry_Leave_LastParticipantDropsSession(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	registry.Join("doc1", participant("alice", "sock-a"), newRecordingSink("sock-a"))
	registry.Leave("doc1", "alice")

	sessions, participants := registry.Counts()
	assert.Zero(sessions)
	assert.Zero(participants)

	// The document stays joinable after cleanup
	snapshot := registry.Join("doc1", participant("bob", "sock-b"), newRecordingSink("sock-b"))
	assert.Len(snapshot, 1)
}

func TestRegistry_RemoveConnection_SweepsEveryJoinedDocument(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	// Given one connection joined to two documents, plus a bystander
	registry.Join("doc1", participant("alice", "sock-a"), newRecordingSink("sock-a"))
	registry.Join("doc2", participant("alice", "sock-a"), newRecordingSink("sock-a"))
	registry.Join("doc1", participant("bob", "sock-b"), newRecordingSink("sock-b"))

	// When the connection drops
	removals := registry.RemoveConnection("sock-a")

	// Then alice is removed from both documents and bob from none
	assert.Len(removals, 2)
	for _, removal := range removals {
		assert.Equal("alice", removal.Participant.ID)
	}
	assert.True(registry.IsMember("doc1", "sock-b"))
	assert.False(registry.IsMember("doc1", "sock-a"))
	assert.False(registry.IsMember("doc2", "sock-a"))

	// And a second sweep finds nothing
	assert.Empty(registry.RemoveConnection("sock-a"))
}

func TestRegistry_RemoveConnection_SparesFresherJoin(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	// Given alice joined, then re-joined from a new connection
	registry.Join("doc1", participant("alice", "sock-old"), newRecordingSink("sock-old"))
	registry.Join("doc1", participant("alice", "sock-new"), newRecordingSink("sock-new"))

	// When the old connection finally disconnects
	removals := registry.RemoveConnection("sock-old")

	// Then the fresh entry survives untouched
	assert.Empty(removals)
	assert.True(registry.IsMember("doc1", "sock-new"))
	snapshot := registry.Snapshot("doc1")
	assert.Len(snapshot, 1)
	assert.Equal("sock-new", snapshot[0].SocketID)
}

func TestRegistry_Sinks_ExcludesGivenConnection(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	sinkA := newRecordingSink("sock-a")
	sinkB := newRecordingSink("sock-b")
	sinkC := newRecordingSink("sock-c")
	registry.Join("doc1", participant("alice", "sock-a"), sinkA)
	registry.Join("doc1", participant("bob", "sock-b"), sinkB)
	registry.Join("doc1", participant("carol", "sock-c"), sinkC)

	sinks := registry.Sinks("doc1", "sock-b")
	assert.Len(sinks, 2)
	assert.Equal("sock-a", sinks[0].ID())
	assert.Equal("sock-c", sinks[1].ID())

	// Unknown documents yield no sinks
	assert.Empty(registry.Sinks("doc-unknown", "sock-a"))
}

func TestRegistry_ParticipantFor_ResolvesJoinTimeIdentity(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	alice := participant("alice", "sock-a")
	registry.Join("doc1", alice, newRecordingSink("sock-a"))

	found, ok := registry.ParticipantFor("doc1", "sock-a")
	assert.True(ok)
	assert.Equal(alice, found)

	_, ok = registry.ParticipantFor("doc1", "sock-unknown")
	assert.False(ok)
	_, ok = registry.ParticipantFor("doc-unknown", "sock-a")
	assert.False(ok)
}

func TestRegistry_Counts_TracksSessionsAndParticipants(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	registry.Join("doc1", participant("alice", "sock-a"), newRecordingSink("sock-a"))
	registry.Join("doc1", participant("bob", "sock-b"), newRecordingSink("sock-b"))
	registry.Join("doc2", participant("alice", "sock-a"), newRecordingSink("sock-a"))

	sessions, participants := registry.Counts()
	assert.Equal(2, sessions)
	assert.Equal(3, participants)
}

func TestRegistry_ConcurrentJoinLeave_StaysConsistent(t *testing.T) {
	assert := require.New(t)
	registry := NewRegistry()

	// Hammer one document with concurrent join/leave cycles; the registry
	// must end empty with no leftover index entries.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", n)
			socketID := fmt.Sprintf("sock-%d", n)
			for j := 0; j < 20; j++ {
				registry.Join("doc1", participant(userID, socketID), newRecordingSink(socketID))
				registry.Leave("doc1", userID)
			}
		}(i)
	}
	wg.Wait()

	sessions, participants := registry.Counts()
	assert.Zero(sessions)
	assert.Zero(participants)
	assert.Empty(registry.RemoveConnection("sock-0"))
}
