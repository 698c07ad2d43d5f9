package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-semnet/pkg/audit"
	"github.com/dd0wney/cluso-semnet/pkg/auth"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
)

// defaultAuditLimit caps GET /admin/audit when no limit is given.
const defaultAuditLimit = 100

// TokenRequest is the body of POST /token.
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// TokenResponse is returned by POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuditResponse is returned by GET /admin/audit.
type AuditResponse struct {
	Events []*audit.Event `json:"events"`
	Count  int            `json:"count"`
	Total  int64          `json:"total"`
}

// ErrorResponse is the JSON body of non-GraphQL errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || req.APIKey == "" {
		s.respondError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	claims, err := s.opts.APIKeys.ValidateToken(r.Context(), req.APIKey)
	if err != nil {
		s.metrics.AuthFailuresTotal.Inc()
		s.record(r, audit.NewFailedEvent("", audit.ActionIssueToken, audit.ResourceToken, err))
		s.respondError(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	token, err := s.opts.JWT.GenerateToken(claims.Subject, claims.Role)
	if err != nil {
		s.logger.Error("failed to issue token", logging.Error(err))
		s.record(r, audit.NewFailedEvent(claims.Subject, audit.ActionIssueToken, audit.ResourceToken, err))
		s.respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.logger.Info("token issued", logging.String("subject", claims.Subject), logging.String("role", claims.Role))
	s.record(r, audit.NewEvent(claims.Subject, claims.Role, audit.ActionIssueToken, audit.ResourceToken, ""))
	s.respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.opts.JWT.TokenDuration().Seconds()),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		s.record(r, audit.NewFailedEvent("", audit.ActionReload, audit.ResourceKnowledgeBase, err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st := s.Engine().Store().Statistics()
	event := audit.NewEvent("", "", audit.ActionReload, audit.ResourceKnowledgeBase, "")
	event.Metadata = map[string]any{"nodes": st.Nodes, "relations": st.Relations}
	s.record(r, event)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"nodes":     st.Nodes,
		"relations": st.Relations,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	size, err := s.Snapshot(r.Context())
	if err != nil {
		s.record(r, audit.NewFailedEvent("", audit.ActionSnapshot, audit.ResourceKnowledgeBase, err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	event := audit.NewEvent("", "", audit.ActionSnapshot, audit.ResourceKnowledgeBase, s.opts.Snapshots.Backend())
	event.Metadata = map[string]any{"size": size}
	s.record(r, event)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "saved",
		"backend": s.opts.Snapshots.Backend(),
		"size":    size,
	})
}

// handleAudit lists recent audit events, oldest first. Query parameters
// action, status and subject filter; limit keeps the newest N.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultAuditLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events := s.audit.GetEvents(&audit.Filter{
		Subject: q.Get("subject"),
		Action:  audit.Action(q.Get("action")),
		Status:  audit.Status(q.Get("status")),
	})
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	s.respondJSON(w, http.StatusOK, AuditResponse{
		Events: events,
		Count:  len(events),
		Total:  s.audit.TotalLogged(),
	})
}

// record fills request details into event and logs it. Subject and role
// default to the caller's claims.
func (s *Server) record(r *http.Request, event *audit.Event) {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		if event.Subject == "" {
			event.Subject = claims.Subject
		}
		if event.Role == "" {
			event.Role = claims.Role
		}
	}
	event.IPAddress = clientIP(r)
	event.UserAgent = r.UserAgent()
	if err := s.audit.Log(event); err != nil {
		s.logger.Warn("failed to record audit event", logging.Error(err))
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
