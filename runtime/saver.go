package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"live-docs/contract"
	"live-docs/domain/event"
	"live-docs/observability"
)

// Saver is the save coordinator. It forwards document content to the
// external store without ever blocking session operations: the store call
// runs on its own goroutine with its own deadline, and the outcome is
// reported to the requester only. A failed save never evicts participants
// or tears down a room.
//
// Content that failed to persist stays in a dirty set; the autosave worker
// retries it in the background. Best-effort, not transactional.
type Saver struct {
	log     *slog.Logger
	store   contract.IDocumentStore
	monitor *observability.Monitor
	timeout time.Duration

	wg    sync.WaitGroup
	mu    sync.Mutex
	dirty map[string]string // document ID -> content awaiting a successful write
}

func NewSaver(log *slog.Logger, store contract.IDocumentStore, monitor *observability.Monitor, timeout time.Duration) *Saver {
	return &Saver{
		log:     log,
		store:   store,
		monitor: monitor,
		timeout: timeout,
		dirty:   make(map[string]string),
	}
}

// Save persists the document content asynchronously and notifies the
// requester with document-saved or save-error. It may race with freshly
// relayed changes; the canonical view for new joiners is always the
// store's current snapshot.
func (s *Saver) Save(ctx context.Context, documentID, content string, requester contract.EventSink) {
	s.markDirty(documentID, content)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// The save must outlive the triggering event's context: a requester
		// disconnecting mid-save should not abort persistence.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		if err := s.store.Update(saveCtx, documentID, content); err != nil {
			s.monitor.IncrSavesFailed()
			s.log.Warn("document save failed", "document_id", documentID, "error", err)
			s.notify(ctx, requester, event.NewSaveError(documentID))
			return
		}

		s.clearDirty(documentID, content)
		s.monitor.IncrSavesOK()
		s.notify(ctx, requester, event.NewDocumentSaved(documentID))
	}()
}

// Flush retries every dirty document once. Used by the autosave worker.
func (s *Saver) Flush(ctx context.Context) {
	s.mu.Lock()
	pending := make(map[string]string, len(s.dirty))
	for id, content := range s.dirty {
		pending[id] = content
	}
	s.mu.Unlock()

	for documentID, content := range pending {
		flushCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.store.Update(flushCtx, documentID, content)
		cancel()
		if err != nil {
			s.monitor.IncrSavesFailed()
			s.log.Warn("autosave retry failed", "document_id", documentID, "error", err)
			continue
		}
		s.clearDirty(documentID, content)
		s.monitor.IncrSavesOK()
		s.log.Debug("autosave flushed", "document_id", documentID)
	}
}

// DirtyCount reports how many documents still await a successful write.
func (s *Saver) DirtyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// Wait blocks until all in-flight saves are done. Called on shutdown.
func (s *Saver) Wait() {
	s.wg.Wait()
}

func (s *Saver) markDirty(documentID, content string) {
	s.mu.Lock()
	s.dirty[documentID] = content
	s.mu.Unlock()
}

// clearDirty drops the entry only when it still holds the content we just
// persisted; a newer save request must not be wiped by an older success.
func (s *Saver) clearDirty(documentID, content string) {
	s.mu.Lock()
	if current, ok := s.dirty[documentID]; ok && current == content {
		delete(s.dirty, documentID)
	}
	s.mu.Unlock()
}

func (s *Saver) notify(ctx context.Context, requester contract.EventSink, e event.Envelope) {
	if requester == nil {
		return
	}
	if err := requester.Consume(ctx, e); err != nil {
		s.log.Debug("save status not delivered", "socket_id", requester.ID(), "error", err)
	}
}
