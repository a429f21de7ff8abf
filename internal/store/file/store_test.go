package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	iduuid "github.com/HasnainBinMunawar/website-auditor-agent/internal/id/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Dir: t.TempDir()}, iduuid.New())
	require.NoError(t, err)
	return s
}

func sampleAudit(url, siteID string) *audit.Audit {
	a := &audit.Audit{
		Meta: audit.Meta{URL: url, SiteID: siteID, GeneratedAt: time.Unix(1700000000, 0).UTC()},
		SEO: audit.Section{Score: 72, Findings: []audit.Finding{
			{Title: "Missing meta description", Action: "Add one under 160 characters"},
		}},
		Performance: audit.NewSection(),
		Security:    audit.Section{Score: 84, Findings: []audit.Finding{{Title: "No CSP", Action: "Add Content-Security-Policy"}}},
		AISummary:   audit.Summary{Summary: "Mostly fine.", Recommendations: []string{"Fix CSP"}},
	}
	return a
}

func TestSaveThenGet_RoundTrips(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	in := sampleAudit("https://example.com/", "example.com")
	id, err := s.Save(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, id, in.ID)

	out, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, in, out)
}

func TestGet_MissIsNilNil(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	out, err := s.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestSave_ConcurrentDistinctIDs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Save(ctx, sampleAudit("https://example.com/", "example.com"))
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
		out, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, out, "record %s lost", id)
	}
}

func TestSave_NoPartialFilesLeftVisible(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{Dir: dir}, iduuid.New())
	require.NoError(t, err)

	_, err = s.Save(context.Background(), sampleAudit("https://example.com/", "example.com"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "audits"))
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp-")
		require.Contains(t, e.Name(), ".json")
	}
}

func TestFindByIDOrSite_TierPriority(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	siteHit := sampleAudit("https://shop.example.com/catalog", "shop.example.com")
	_, err := s.Save(ctx, siteHit)
	require.NoError(t, err)
	other := sampleAudit("https://blog.example.org/shop.example.com-review", "blog.example.org")
	_, err = s.Save(ctx, other)
	require.NoError(t, err)

	// Exact id wins over everything.
	byID, err := s.FindByIDOrSite(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, other.ID, byID.ID)

	// siteID equality beats the substring match in the other record's URL.
	bySite, err := s.FindByIDOrSite(ctx, "shop.example.com")
	require.NoError(t, err)
	require.NotNil(t, bySite)
	require.Equal(t, siteHit.ID, bySite.ID)

	// Full URL equality.
	byURL, err := s.FindByIDOrSite(ctx, "https://shop.example.com/catalog")
	require.NoError(t, err)
	require.Equal(t, siteHit.ID, byURL.ID)

	// Hostname match from a URL-shaped identifier.
	byHost, err := s.FindByIDOrSite(ctx, "https://blog.example.org/other-page")
	require.NoError(t, err)
	require.NotNil(t, byHost)
	require.Equal(t, other.ID, byHost.ID)

	// Substring on URL when no stronger tier matches.
	bySub, err := s.FindByIDOrSite(ctx, "catalog")
	require.NoError(t, err)
	require.NotNil(t, bySub)
	require.Equal(t, siteHit.ID, bySub.ID)

	// Clean miss.
	miss, err := s.FindByIDOrSite(ctx, "nothing-matches-this")
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestFindByIDOrSite_SecondaryLocation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Config{Dir: dir}, iduuid.New())
	require.NoError(t, err)

	// A record deposited by an external collaborator, keyed by identifier.
	legacy := sampleAudit("https://legacy.example.net/", "legacy.example.net")
	legacy.ID = "legacy-report-1"
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reports", "legacy-report-1.json"), data, 0o600))

	out, err := s.FindByIDOrSite(context.Background(), "legacy-report-1")
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, "legacy-report-1", out.ID)
}

func TestFindByIDOrSite_BlankIdentifier(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	out, err := s.FindByIDOrSite(context.Background(), "  ")
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestNew_RejectsBadDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Dir: "  "}, iduuid.New())
	require.Error(t, err)
}

func TestGet_PathTraversalRejected(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Get(context.Background(), "../../etc/passwd")
	require.Error(t, err)
}
