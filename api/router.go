// Package api exposes the request/response surface around the realtime
// core: auth, document CRUD and search, the writing assistant and the
// websocket entry point.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"live-docs/auth"
	"live-docs/runtime"
	"live-docs/services"
)

type Router struct {
	log             *slog.Logger
	authService     services.IAuthService
	documentService services.IDocumentService
	assistService   services.IAssistService
	hub             *runtime.Hub
}

func NewRouter(
	log *slog.Logger,
	authService services.IAuthService,
	documentService services.IDocumentService,
	assistService services.IAssistService,
	hub *runtime.Hub,
	collab http.Handler,
) *mux.Router {
	rt := &Router{
		log:             log,
		authService:     authService,
		documentService: documentService,
		assistService:   assistService,
		hub:             hub,
	}

	r := mux.NewRouter()
	r.Use(Logging(log))

	r.Methods(http.MethodPost).Path("/api/auth/register").HandlerFunc(rt.register)
	r.Methods(http.MethodPost).Path("/api/auth/login").HandlerFunc(rt.login)

	// The websocket handler does its own token validation: identity must be
	// asserted before the upgrade, not per frame.
	r.Path("/ws").Handler(collab)

	r.Methods(http.MethodGet).Path("/stats").HandlerFunc(rt.stats)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(mux.MiddlewareFunc(auth.Middleware))

	protected.Methods(http.MethodGet).Path("/documents").HandlerFunc(rt.listDocuments)
	protected.Methods(http.MethodPost).Path("/documents").HandlerFunc(rt.createDocument)
	protected.Methods(http.MethodGet).Path("/documents/search").HandlerFunc(rt.searchDocuments)
	protected.Methods(http.MethodGet).Path("/documents/{id}").HandlerFunc(rt.getDocument)
	protected.Methods(http.MethodPut).Path("/documents/{id}").HandlerFunc(rt.updateDocument)
	protected.Methods(http.MethodDelete).Path("/documents/{id}").HandlerFunc(rt.deleteDocument)

	protected.Methods(http.MethodPost).Path("/ai/grammar").HandlerFunc(rt.checkGrammar)
	protected.Methods(http.MethodPost).Path("/ai/enhance").HandlerFunc(rt.enhanceText)
	protected.Methods(http.MethodPost).Path("/ai/summarize").HandlerFunc(rt.summarizeText)
	protected.Methods(http.MethodPost).Path("/ai/complete").HandlerFunc(rt.completeText)

	return r
}

func (rt *Router) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.hub.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
