package runtime

import (
	"context"
	"errors"
	"log/slog"

	"live-docs/contract"
	"live-docs/domain"
	"live-docs/domain/event"
	liveerrors "live-docs/errors"
	"live-docs/observability"
)

// Hub coordinates presence, event relay and persistence for every live
// document session. It owns no connection: transports register a sink per
// connection and the registry keeps the membership.
//
// Requests reaching the hub have already been validated at the transport
// boundary; the hub enforces membership, not payload shape.
type Hub struct {
	log      *slog.Logger
	registry contract.IRegistry
	saver    *Saver
	monitor  *observability.Monitor
}

func NewHub(log *slog.Logger, registry contract.IRegistry, saver *Saver, monitor *observability.Monitor) *Hub {
	return &Hub{log: log, registry: registry, saver: saver, monitor: monitor}
}

// Join adds the participant to the document's session, sends the full
// membership snapshot to the joiner only, and notifies the rest of the
// room with just the new participant. Receivers fold either form into the
// same view: snapshot entries and the joined notification share one shape.
func (h *Hub) Join(ctx context.Context, sink contract.EventSink, req event.JoinDocument) {
	p := domain.Participant{
		ID:       req.User.ID,
		Username: req.User.Username,
		SocketID: sink.ID(),
	}
	snapshot := h.registry.Join(req.DocumentID, p, sink)
	h.monitor.IncrJoins()

	h.send(ctx, sink, event.NewActiveUsers(snapshot))
	h.broadcast(ctx, req.DocumentID, sink.ID(), event.NewUserJoined(p))

	h.log.Info("participant joined",
		"document_id", req.DocumentID,
		"user_id", p.ID,
		"username", p.Username,
		"socket_id", p.SocketID)
}

// Leave handles an explicit leave-document request. Leaving a document
// that was never joined is a no-op.
func (h *Hub) Leave(ctx context.Context, connectionID string, req event.LeaveDocument) {
	removed, ok := h.registry.Leave(req.DocumentID, req.User.ID)
	if !ok {
		return
	}
	h.monitor.IncrLeaves()
	h.broadcast(ctx, req.DocumentID, connectionID, event.NewUserLeft(removed.ID))
	h.log.Info("participant left", "document_id", req.DocumentID, "user_id", removed.ID)
}

// Disconnect sweeps every session the connection was still joined to and
// notifies the remaining members. Idempotent: a disconnect after an
// explicit leave of all rooms removes nothing and emits nothing.
func (h *Hub) Disconnect(ctx context.Context, connectionID string) {
	removals := h.registry.RemoveConnection(connectionID)
	for _, removal := range removals {
		h.monitor.IncrLeaves()
		h.broadcast(ctx, removal.DocumentID, connectionID, event.NewUserLeft(removal.Participant.ID))
	}
	if len(removals) > 0 {
		h.log.Info("connection swept", "socket_id", connectionID, "sessions", len(removals))
	}
}

// RelayChange forwards an opaque editor delta to every other member of the
// document. Payloads from connections that never joined the document are
// dropped silently: surfacing an error would leak room membership.
func (h *Hub) RelayChange(ctx context.Context, connectionID string, req event.TextChange) {
	if !h.registry.IsMember(req.DocumentID, connectionID) {
		h.monitor.IncrDropped()
		return
	}
	h.monitor.IncrChanges()
	h.broadcast(ctx, req.DocumentID, connectionID, event.NewTextChange(req.DocumentID, req.Delta))
}

// RelayCursor forwards a cursor/selection update annotated with the
// sender's join-time identity. A nil range means "hide cursor" and is
// relayed as such. Identity is never taken from the payload.
func (h *Hub) RelayCursor(ctx context.Context, connectionID string, req event.CursorMove) {
	sender, ok := h.registry.ParticipantFor(req.DocumentID, connectionID)
	if !ok {
		h.monitor.IncrDropped()
		return
	}
	h.monitor.IncrCursors()
	identity := event.UserRef{ID: sender.ID, Username: sender.Username}
	h.broadcast(ctx, req.DocumentID, connectionID, event.NewCursorUpdate(req.DocumentID, req.Range, identity))
}

// Save hands the request to the save coordinator; success or failure is
// reported to the requester only.
func (h *Hub) Save(ctx context.Context, sink contract.EventSink, req event.SaveDocument) {
	h.saver.Save(ctx, req.DocumentID, req.Content, sink)
}

// Stats exposes the monitor snapshot enriched with registry occupancy.
func (h *Hub) Stats() observability.Stats {
	sessions, participants := h.registry.Counts()
	return h.monitor.Snapshot(sessions, participants)
}

func (h *Hub) broadcast(ctx context.Context, documentID, exceptConnectionID string, e event.Envelope) {
	for _, sink := range h.registry.Sinks(documentID, exceptConnectionID) {
		h.send(ctx, sink, e)
	}
}

func (h *Hub) send(ctx context.Context, sink contract.EventSink, e event.Envelope) {
	if err := sink.Consume(ctx, e); err != nil {
		h.monitor.IncrDropped()
		if errors.Is(err, liveerrors.ErrSlowConsumer) {
			h.log.Debug("event dropped, slow consumer", "socket_id", sink.ID(), "type", e.Type)
			return
		}
		h.log.Debug("event not delivered", "socket_id", sink.ID(), "type", e.Type, "error", err)
	}
}
