package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSiteID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"https", "https://Example.COM/path?q=1", "example.com"},
		{"http default port", "http://example.com:80/", "example.com"},
		{"https default port", "https://example.com:443", "example.com"},
		{"custom port kept", "https://example.com:8443/x", "example.com:8443"},
		{"www kept", "https://www.example.com", "www.example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := SiteID(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSiteID_NoHost(t *testing.T) {
	t.Parallel()

	_, err := SiteID("https:///nohost")
	require.Error(t, err)
}

func TestHostname(t *testing.T) {
	t.Parallel()

	require.Equal(t, "example.com", Hostname("https://Example.com:8443/a"))
	require.Equal(t, "", Hostname("://bad"))
}

func TestSectionNormalize(t *testing.T) {
	t.Parallel()

	var s Section
	s.Normalize()
	require.NotNil(t, s.Findings)

	a := Audit{}
	a.Normalize()
	require.NotNil(t, a.SEO.Findings)
	require.NotNil(t, a.Performance.Findings)
	require.NotNil(t, a.Security.Findings)
	require.NotNil(t, a.AISummary.Recommendations)
}
