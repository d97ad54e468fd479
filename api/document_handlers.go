package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"live-docs/auth"
	"live-docs/domain"
	liveerrors "live-docs/errors"
)

type createDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type updateDocumentRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// documentSummary is the list view of a document: metadata only, the
// content travels on the detail endpoint.
type documentSummary struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Language  string    `json:"language,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSummary(doc domain.Document) documentSummary {
	return documentSummary{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Title:     doc.Title,
		Language:  doc.Language,
		UpdatedAt: doc.UpdatedAt,
	}
}

func (rt *Router) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := rt.documentService.Create(r.Context(), auth.UserID(r.Context()), req.Title, req.Content)
	if err != nil {
		rt.log.Error("document creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.documentService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, liveerrors.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		rt.log.Error("document fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not fetch document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request) {
	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	documentID := mux.Vars(r)["id"]
	var err error
	switch {
	case req.Content != nil:
		err = rt.documentService.Update(r.Context(), documentID, *req.Content)
	case req.Title != nil:
		err = rt.documentService.Rename(r.Context(), documentID, *req.Title)
	default:
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if err != nil {
		if errors.Is(err, liveerrors.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		rt.log.Error("document update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not update document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.documentService.List(r.Context())
	if err != nil {
		rt.log.Error("document list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list documents")
		return
	}
	summaries := lo.Map(docs, func(doc domain.Document, _ int) documentSummary {
		return toSummary(doc)
	})
	writeJSON(w, http.StatusOK, summaries)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.documentService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		rt.log.Error("document delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.documentService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		rt.log.Error("document search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	summaries := lo.Map(docs, func(doc domain.Document, _ int) documentSummary {
		return toSummary(doc)
	})
	writeJSON(w, http.StatusOK, summaries)
}
