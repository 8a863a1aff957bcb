package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type HTTPHandler struct {
	Service *AuthService
}

func NewHTTPHandler(service *AuthService) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

type requestLinkBody struct {
	Email string `json:"email"`
}

type verifyBody struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// RequestLink handles POST /api/auth/magic-link. The response is identical
// whether or not the email has an account, so the endpoint cannot be used
// to enumerate crew addresses.
func (h *HTTPHandler) RequestLink(w http.ResponseWriter, r *http.Request) {
	var body requestLinkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		http.Error(w, `{"error": "email is required"}`, http.StatusBadRequest)
		return
	}

	if _, err := h.Service.IssueMagicLink(r.Context(), body.Email); err != nil {
		if !errors.Is(err, ErrUserUnknown) {
			slog.ErrorContext(r.Context(), "failed to issue magic link", "error", err)
			http.Error(w, `{"error": "failed to issue magic link"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"message":"if the address has an account, a login link has been sent"}`))
}

// Verify handles POST /api/auth/verify, exchanging a magic-link token for a
// session token.
func (h *HTTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		http.Error(w, `{"error": "token is required"}`, http.StatusBadRequest)
		return
	}

	session, err := h.Service.VerifyMagicLink(r.Context(), body.Token, remoteIP(r))
	if err != nil {
		if errors.Is(err, ErrLinkInvalid) || errors.Is(err, ErrUserUnknown) {
			http.Error(w, `{"error": "invalid or expired link"}`, http.StatusUnauthorized)
			return
		}
		slog.ErrorContext(r.Context(), "failed to verify magic link", "error", err)
		http.Error(w, `{"error": "verification failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	})
}

func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
