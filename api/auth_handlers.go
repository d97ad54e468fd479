package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	liveerrors "live-docs/errors"
	"live-docs/services"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (rt *Router) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := rt.authService.Register(req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, liveerrors.ErrUserAlreadyExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, liveerrors.ErrInvalidPassword):
			writeError(w, http.StatusBadRequest, "invalid registration data")
		default:
			rt.log.Error("registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	setTokenCookie(w, token)
	writeJSON(w, http.StatusCreated, authResponse{Token: string(token), UserID: user.ID, Username: user.Username})
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := rt.authService.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{Token: string(token), UserID: user.ID, Username: user.Username})
}

// setTokenCookie mirrors the token into an httpOnly cookie so browser
// clients don't have to manage it themselves.
func setTokenCookie(w http.ResponseWriter, token services.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    string(token),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}
