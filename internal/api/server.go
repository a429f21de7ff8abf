// Package api exposes the auditor's HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/ai"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/metrics"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/policy/ratelimit"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/safeurl"
	"github.com/HasnainBinMunawar/website-auditor-agent/internal/store"
)

// Resolver is the SSRF gate consulted before any outbound traffic.
type Resolver interface {
	Check(ctx context.Context, rawURL string) (safeurl.Verdict, error)
}

// Orchestrator runs the analyzers for one target.
type Orchestrator interface {
	Run(ctx context.Context, rawURL string) audit.Audit
}

// Assistant narrates audits and answers follow-up questions.
type Assistant interface {
	Summarize(ctx context.Context, a *audit.Audit) audit.Summary
	AnswerQuestion(ctx context.Context, ev map[string]string, query string) ai.Answer
}

// Server wires the HTTP routes to the audit subsystems.
type Server struct {
	resolver        Resolver
	orch            Orchestrator
	assistant       Assistant
	store           store.Store
	auditLimiter    *ratelimit.Limiter
	questionLimiter *ratelimit.Limiter
	logger          *zap.Logger
}

// NewServer builds a Server. Each endpoint group keeps its own limiter.
func NewServer(
	resolver Resolver,
	orch Orchestrator,
	assistant Assistant,
	st store.Store,
	auditLimiter, questionLimiter *ratelimit.Limiter,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		resolver:        resolver,
		orch:            orch,
		assistant:       assistant,
		store:           st,
		auditLimiter:    auditLimiter,
		questionLimiter: questionLimiter,
		logger:          logger,
	}
}

// Routes assembles the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/audits", func(r chi.Router) {
		r.Post("/", s.createAudit)
		r.Get("/{identifier}", s.getAudit)
		r.Post("/{identifier}/questions", s.askQuestion)
	})
	return r
}

type ctxKey int

const requestIDKey ctxKey = 0

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panicked",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestIDFrom(r.Context())),
				)
				s.writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// clientKey identifies a caller for rate limiting: the first X-Forwarded-For
// entry when present, otherwise the connection's remote host.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
