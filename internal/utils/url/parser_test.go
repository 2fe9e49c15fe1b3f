package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://earthquake.phivolcs.dost.gov.ph/2025_Earthquake_Information/November/2025_1127_0204_B2.html",
	}
	for _, u := range valid {
		require.NoError(t, ValidateURL(u))
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///", "relative/page.html", ""}
	for _, u := range invalid {
		require.Error(t, ValidateURL(u), u)
	}
}

func TestResolveUpstreamPath(t *testing.T) {
	origin := "https://earthquake.phivolcs.dost.gov.ph"

	tests := []struct {
		href string
		want string
	}{
		{
			`2025_Earthquake_Information\November\2025_1127_0204_B2.html`,
			origin + "/2025_Earthquake_Information/November/2025_1127_0204_B2.html",
		},
		{
			" /2025_Earthquake_Information/a.html ",
			origin + "/2025_Earthquake_Information/a.html",
		},
		{
			"https://mirror.example.org/b.html",
			"https://mirror.example.org/b.html",
		},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ResolveUpstreamPath(origin+"/", tt.href), tt.href)
	}
}

func TestResolveURL(t *testing.T) {
	require.Equal(t, "https://host/2025/maps/map.jpg", ResolveURL("https://host/2025/November/page.html", "../maps/map.jpg"))
}

func TestOrigin(t *testing.T) {
	require.Equal(t, "https://earthquake.phivolcs.dost.gov.ph", Origin("https://earthquake.phivolcs.dost.gov.ph/index.html"))
}
