package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
	iduuid "github.com/HasnainBinMunawar/website-auditor-agent/internal/id/uuid"
)

func TestStore_SaveGetFind(t *testing.T) {
	t.Parallel()

	s := New(iduuid.New())
	ctx := context.Background()

	a := &audit.Audit{Meta: audit.Meta{URL: "https://example.com/home", SiteID: "example.com"}}
	id, err := s.Save(ctx, a)
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "example.com", got.Meta.SiteID)
	require.NotNil(t, got.SEO.Findings, "Normalize applied on save")

	bySite, err := s.FindByIDOrSite(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, bySite)

	bySub, err := s.FindByIDOrSite(ctx, "home")
	require.NoError(t, err)
	require.NotNil(t, bySub)

	miss, err := s.FindByIDOrSite(ctx, "zzz-not-here")
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestStore_CopiesAreIsolated(t *testing.T) {
	t.Parallel()

	s := New(iduuid.New())
	ctx := context.Background()

	a := &audit.Audit{Meta: audit.Meta{URL: "https://example.com", SiteID: "example.com"}}
	id, err := s.Save(ctx, a)
	require.NoError(t, err)

	first, err := s.Get(ctx, id)
	require.NoError(t, err)
	first.Meta.SiteID = "mutated"

	second, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "example.com", second.Meta.SiteID)
}
