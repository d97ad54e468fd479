package api

import (
	"encoding/json"
	"errors"
	"net/http"

	liveerrors "live-docs/errors"
)

type assistRequest struct {
	Text          string `json:"text"`
	Tone          string `json:"tone,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Context       string `json:"context,omitempty"`
	FullParagraph string `json:"fullParagraph,omitempty"`
}

type assistResponse struct {
	Suggestion string `json:"suggestion"`
}

func (rt *Router) checkGrammar(w http.ResponseWriter, r *http.Request) {
	rt.assist(w, r, func(req assistRequest) (string, error) {
		return rt.assistService.CheckGrammar(r.Context(), req.Text)
	})
}

func (rt *Router) enhanceText(w http.ResponseWriter, r *http.Request) {
	rt.assist(w, r, func(req assistRequest) (string, error) {
		return rt.assistService.Enhance(r.Context(), req.Text, req.Tone)
	})
}

func (rt *Router) summarizeText(w http.ResponseWriter, r *http.Request) {
	rt.assist(w, r, func(req assistRequest) (string, error) {
		return rt.assistService.Summarize(r.Context(), req.Text)
	})
}

func (rt *Router) completeText(w http.ResponseWriter, r *http.Request) {
	rt.assist(w, r, func(req assistRequest) (string, error) {
		return rt.assistService.Complete(r.Context(), req.Text, req.Prefix, req.Context)
	})
}

func (rt *Router) assist(w http.ResponseWriter, r *http.Request, call func(assistRequest) (string, error)) {
	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestion, err := call(req)
	if err != nil {
		if errors.Is(err, liveerrors.ErrEmptyText) {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		rt.log.Error("assistant request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "assistant request failed")
		return
	}
	writeJSON(w, http.StatusOK, assistResponse{Suggestion: suggestion})
}
