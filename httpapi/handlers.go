package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/MrEthical07/sessioncore/middleware"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error         string `json:"error"`
	SecurityAlert bool   `json:"security_alert,omitempty"`
}

type logoutResponse struct {
	Message string `json:"message"`
	Revoked int    `json:"revoked"`
}

type sessionsResponse struct {
	Sessions []sessioncore.SessionInfo `json:"sessions"`
}

type healthResponse struct {
	Status         string  `json:"status"`
	Service        string  `json:"service"`
	Timestamp      string  `json:"timestamp"`
	RedisAvailable bool    `json:"redis_available"`
	RedisLatencyMS float64 `json:"redis_latency_ms"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return
	}

	pair, err := s.engine.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pair)
	case errors.Is(err, sessioncore.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_credentials"})
	case errors.Is(err, sessioncore.ErrLoginRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limited"})
	case errors.Is(err, sessioncore.ErrStoreUnavailable), errors.Is(err, sessioncore.ErrEngineNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
	default:
		s.log.Error("login failed", zap.Error(err), zap.String("request_id", sessioncore.RequestIDFromContext(r.Context())))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return
	}

	res := s.engine.Rotate(r.Context(), req.RefreshToken)
	switch res.Outcome {
	case sessioncore.RotationOK:
		writeJSON(w, http.StatusOK, res.Tokens)
	case sessioncore.RotationReplay:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "refresh_reuse_detected", SecurityAlert: true})
	case sessioncore.RotationRateLimited:
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limited"})
	case sessioncore.RotationUnavailable:
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
	default:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_token"})
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r.Header.Get("Authorization"))

	n, err := s.engine.Logout(r.Context(), token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, logoutResponse{Message: "Successfully logged out", Revoked: n})
	case errors.Is(err, sessioncore.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_token"})
	case errors.Is(err, sessioncore.ErrStoreUnavailable) && n > 0:
		writeJSON(w, http.StatusOK, logoutResponse{Message: "Logged out (some sessions may not have been revoked)", Revoked: n})
	case errors.Is(err, sessioncore.ErrStoreUnavailable), errors.Is(err, sessioncore.ErrEngineNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
	default:
		s.log.Error("logout failed", zap.Error(err), zap.String("request_id", sessioncore.RequestIDFromContext(r.Context())))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	list, err := s.engine.ListActiveSessions(r.Context(), principal.Subject)
	switch {
	case err == nil:
		if list == nil {
			list = []sessioncore.SessionInfo{}
		}
		writeJSON(w, http.StatusOK, sessionsResponse{Sessions: list})
	case errors.Is(err, sessioncore.ErrUserNotFound):
		writeJSON(w, http.StatusOK, sessionsResponse{Sessions: []sessioncore.SessionInfo{}})
	case errors.Is(err, sessioncore.ErrStoreUnavailable), errors.Is(err, sessioncore.ErrEngineNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
	default:
		s.log.Error("list sessions failed", zap.Error(err), zap.String("subject", principal.Subject))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Health(r.Context())
	body := healthResponse{
		Status:         "healthy",
		Service:        "authentication",
		Timestamp:      s.now().UTC().Format(time.RFC3339),
		RedisAvailable: st.RedisAvailable,
		RedisLatencyMS: float64(st.RedisLatency) / float64(time.Millisecond),
	}
	if !st.RedisAvailable {
		body.Status = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request_too_large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
