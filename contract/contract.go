//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"live-docs/domain"
	"live-docs/domain/event"
)

// EventSink is the outbound side of one live connection. Consume must not
// block the caller: a sink whose buffer is full reports ErrSlowConsumer and
// the event is dropped, never queued against the room.
type EventSink interface {
	ID() string
	Consume(ctx context.Context, e event.Envelope) error
}

// IRegistry owns all Session and Participant state. Mutations on the same
// document are serialized; unrelated documents never contend.
type IRegistry interface {
	// Join inserts or replaces the participant keyed by user ID and returns
	// the full membership snapshot, joiner included.
	Join(documentID string, p domain.Participant, sink EventSink) []domain.Participant
	// Leave removes the participant if present. The second return reports
	// whether anything was removed; leaving twice is not an error.
	Leave(documentID, userID string) (domain.Participant, bool)
	// RemoveConnection drops this connection's entry from every document it
	// joined, via the reverse index. Idempotent.
	RemoveConnection(connectionID string) []domain.Removal
	Snapshot(documentID string) []domain.Participant
	IsMember(documentID, connectionID string) bool
	// ParticipantFor resolves the join-time identity of a connection within
	// a document. Used to annotate relayed cursor events.
	ParticipantFor(documentID, connectionID string) (domain.Participant, bool)
	// Sinks returns the outbound channels of every member except the given
	// connection.
	Sinks(documentID, exceptConnectionID string) []EventSink
	// Counts reports live rooms and participant entries, for monitoring.
	Counts() (sessions, participants int)
}

// IDocumentStore is the external persistence collaborator of the save path.
type IDocumentStore interface {
	Update(ctx context.Context, documentID, content string) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
