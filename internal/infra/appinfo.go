package infra

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/screenguard/screenguard/internal/domain"
)

const appInfoCacheSize = 128

// ResolveNameFunc asks the host for an application's display name.
// Returning an empty string means "unknown".
type ResolveNameFunc func(pkg domain.PackageID) string

// CachedAppInfo implements domain.AppInfoProvider with an LRU cache in
// front of a host lookup. Lookups that fail fall back to a name derived
// from the package id (its last dot-segment, capitalized).
type CachedAppInfo struct {
	resolve ResolveNameFunc
	cache   *lru.Cache[domain.PackageID, string]
}

// NewCachedAppInfo creates a display-name provider. resolve may be nil,
// in which case only the derived fallback is used.
func NewCachedAppInfo(resolve ResolveNameFunc) *CachedAppInfo {
	cache, _ := lru.New[domain.PackageID, string](appInfoCacheSize)
	return &CachedAppInfo{resolve: resolve, cache: cache}
}

// DisplayName resolves a package id to a human-readable name.
func (a *CachedAppInfo) DisplayName(pkg domain.PackageID) string {
	if name, ok := a.cache.Get(pkg); ok {
		return name
	}

	name := ""
	if a.resolve != nil {
		name = a.resolve(pkg)
	}
	if name == "" {
		name = derivedName(pkg)
	}

	a.cache.Add(pkg, name)
	return name
}

// derivedName falls back to the last dot-segment of the package id.
func derivedName(pkg domain.PackageID) string {
	s := string(pkg)
	if i := strings.LastIndex(s, "."); i >= 0 && i+1 < len(s) {
		s = s[i+1:]
	}
	if s == "" {
		return string(pkg)
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Ensure CachedAppInfo implements domain.AppInfoProvider.
var _ domain.AppInfoProvider = (*CachedAppInfo)(nil)
