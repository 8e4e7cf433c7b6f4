package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/screenguard/screenguard/internal/domain"
)

func TestDisplayName_UsesResolver(t *testing.T) {
	resolves := 0
	a := NewCachedAppInfo(func(pkg domain.PackageID) string {
		resolves++
		return "Example Games"
	})

	assert.Equal(t, "Example Games", a.DisplayName("com.example.games"))
	assert.Equal(t, "Example Games", a.DisplayName("com.example.games"))
	assert.Equal(t, 1, resolves, "second lookup must hit the cache")
}

func TestDisplayName_DerivedFallback(t *testing.T) {
	a := NewCachedAppInfo(func(domain.PackageID) string { return "" })

	assert.Equal(t, "Games", a.DisplayName("com.example.games"))
}

func TestDisplayName_NilResolver(t *testing.T) {
	a := NewCachedAppInfo(nil)

	assert.Equal(t, "Games", a.DisplayName("com.example.games"))
}

func TestDerivedName(t *testing.T) {
	tests := []struct {
		pkg  domain.PackageID
		want string
	}{
		{"com.example.games", "Games"},
		{"games", "Games"},
		{"com.example.", "com.example."},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, derivedName(tt.pkg), "pkg=%q", tt.pkg)
	}
}
