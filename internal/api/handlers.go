package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/evidence"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/metrics"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/policy/ratelimit"
)

const maxTargetURLLen = 2000

type createAuditRequest struct {
	URL string `json:"url"`
}

// createAudit is the submission endpoint. Gate order: rate limit, input
// validation, SSRF check; only then does any outbound traffic happen.
func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, s.auditLimiter, "audit", clientKey(r)) {
		return
	}

	var req createAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateTargetURL(req.URL); err != nil {
		metrics.ObserveAudit("rejected")
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	verdict, err := s.resolver.Check(r.Context(), req.URL)
	if err != nil {
		metrics.ObserveAudit("rejected")
		s.writeError(w, http.StatusBadRequest, "target URL could not be validated")
		return
	}
	if verdict.Disallowed {
		metrics.ObserveAudit("disallowed")
		s.logger.Info("target disallowed",
			zap.String("url", req.URL), zap.String("reason", verdict.Reason))
		s.writeError(w, http.StatusBadRequest, "target resolves to a disallowed address")
		return
	}

	a := s.orch.Run(r.Context(), req.URL)
	a.AISummary = s.assistant.Summarize(r.Context(), &a)
	a.Normalize()

	if _, err := s.store.Save(r.Context(), &a); err != nil {
		metrics.ObserveAudit("error")
		s.logger.Error("persist audit", zap.String("url", req.URL), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to persist audit")
		return
	}
	metrics.ObserveAudit("ok")
	s.writeJSON(w, http.StatusCreated, a)
}

// getAudit serves one record by id, site id, URL, or hostname.
func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	identifier := strings.TrimSpace(chi.URLParam(r, "identifier"))
	if identifier == "" {
		s.writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	rec, err := s.store.FindByIDOrSite(r.Context(), identifier)
	if err != nil {
		s.logger.Error("lookup audit", zap.String("identifier", identifier), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "no audit matches this identifier")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

type questionRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// askQuestion answers a follow-up question against a stored audit.
func (s *Server) askQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, s.questionLimiter, "question", clientKey(r)) {
		return
	}

	identifier := strings.TrimSpace(chi.URLParam(r, "identifier"))
	if identifier == "" {
		s.writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if len(req.Query) < 3 {
		s.writeError(w, http.StatusBadRequest, "query must be at least 3 characters")
		return
	}

	rec, err := s.store.FindByIDOrSite(r.Context(), identifier)
	if err != nil {
		s.logger.Error("lookup audit", zap.String("identifier", identifier), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "no audit matches this identifier")
		return
	}

	ev := evidence.Build(rec, req.Query, req.Limit)
	s.writeJSON(w, http.StatusOK, s.assistant.AnswerQuestion(r.Context(), ev, req.Query))
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz probes the store so a broken backend flips readiness.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Get(r.Context(), "readiness-probe"); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// admit applies one limiter and writes the 429 itself on denial.
func (s *Server) admit(w http.ResponseWriter, l *ratelimit.Limiter, endpoint, key string) bool {
	d := l.Admit(key)
	if d.Allowed {
		return true
	}
	metrics.ObserveRateLimitDenial(endpoint)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
	s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func validateTargetURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	if len(raw) > maxTargetURLLen {
		return fmt.Errorf("url exceeds %d characters", maxTargetURLLen)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url is not parsable")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Hostname() == "" {
		return fmt.Errorf("url must include a hostname")
	}
	return nil
}
