package navsync

import (
	"strings"

	"github.com/billm/framehub/pkg/registry"
)

// Prefix returns the hub path prefix owned by moduleID
func Prefix(moduleID string) string {
	return "/" + strings.Trim(moduleID, "/")
}

// HubPath rewrites a module-relative path into the hub namespace:
// /list/42 in module employees becomes /employees/list/42, and the module
// root becomes /employees. A query string is carried over unchanged.
func HubPath(moduleID, modulePath string) string {
	path, query, hasQuery := strings.Cut(NormalizePath(modulePath), "?")
	hub := Prefix(moduleID)
	if path != "/" {
		hub += path
	}
	if hasQuery {
		hub += "?" + query
	}
	return hub
}

// ModulePath strips the module prefix from a hub path. The module root is
// returned when the prefix consumes the whole path; a path outside the
// prefix is returned unchanged.
func ModulePath(moduleID, hubPath string) string {
	prefix := Prefix(moduleID)
	if !registry.HasPathPrefix(hubPath, prefix) {
		return hubPath
	}
	sub := strings.TrimPrefix(hubPath, prefix)
	if sub == "" {
		return "/"
	}
	return sub
}

// NormalizePath makes a path absolute
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// IsInternalHref reports whether activating href should be routed inside
// the module. Absolute URLs, fragments, mailto and tel links, and hrefs
// under an excluded prefix are left to their default behaviour.
func IsInternalHref(href string, exclude []string) bool {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return false
	case strings.HasPrefix(href, "#"):
		return false
	case strings.HasPrefix(href, "mailto:"), strings.HasPrefix(href, "tel:"):
		return false
	case strings.HasPrefix(href, "//"), strings.Contains(href, "://"):
		return false
	case strings.HasPrefix(href, "http:"), strings.HasPrefix(href, "https:"):
		return false
	}
	for _, p := range exclude {
		if p != "" && strings.HasPrefix(href, p) {
			return false
		}
	}
	return true
}
