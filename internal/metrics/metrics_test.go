package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitAndObserve(t *testing.T) {
	Init()
	Init() // idempotent

	ObserveAudit("succeeded")
	ObserveFetch("page", 120*time.Millisecond)
	ObserveAIFailover("openai")
	ObserveRateLimitDenial("audit")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "auditor_audits_total")
	require.Contains(t, body, "auditor_ratelimit_denials_total")
}

func TestObserve_BeforeInitDoesNotPanic(t *testing.T) {
	// Collectors are nil-guarded so library code can record unconditionally.
	ObserveAudit("x")
	ObserveFetch("y", time.Second)
}
