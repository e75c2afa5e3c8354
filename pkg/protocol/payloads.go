package protocol

import (
	"net/url"
	"strings"
)

// User is the hub-owned user profile, read-only for modules
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// BreadcrumbItem is one entry of the hub breadcrumb trail
type BreadcrumbItem struct {
	Label string `json:"label"`
	Path  string `json:"path,omitempty"`
}

// Route is a location with optional query parameters. It is hub-relative
// or module-relative depending on the direction of travel.
type Route struct {
	Path  string            `json:"path"`
	Query map[string]string `json:"query,omitempty"`
}

// ParseRoute splits a "path?query" string into a Route.
// Repeated query keys keep their first value.
func ParseRoute(raw string) Route {
	path, rawQuery, found := strings.Cut(raw, "?")
	if path == "" {
		path = "/"
	}
	r := Route{Path: path}
	if !found || rawQuery == "" {
		return r
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return r
	}
	r.Query = make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			r.Query[k] = v[0]
		}
	}
	return r
}

// String renders the route as "path?query", with query keys sorted
func (r Route) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	values := make(url.Values, len(r.Query))
	for k, v := range r.Query {
		values.Set(k, v)
	}
	return r.Path + "?" + values.Encode()
}

// Equal reports whether two routes have the same path and query
func (r Route) Equal(other Route) bool {
	if r.Path != other.Path || len(r.Query) != len(other.Query) {
		return false
	}
	for k, v := range r.Query {
		if ov, ok := other.Query[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// NavigatePayload is the payload of NAVIGATE
type NavigatePayload struct {
	Path string `json:"path"`
}

// ReadyPayload is the payload of READY
type ReadyPayload struct {
	ModuleID string `json:"moduleId"`
}

// SetBreadcrumbsPayload is the payload of SET_BREADCRUMBS
type SetBreadcrumbsPayload struct {
	Items []BreadcrumbItem `json:"items"`
}

// SetLoadingPayload is the payload of SET_LOADING
type SetLoadingPayload struct {
	Loading bool `json:"loading"`
}

// UserResponse is the reply to GET_USER
type UserResponse struct {
	User *User `json:"user"`
}

// ErrorPayload is the payload of ERROR
type ErrorPayload struct {
	Code ErrorCode `json:"code"`
}

// RouteChangePayload is the payload of ROUTE_CHANGE
type RouteChangePayload = Route

// InitialRouteResponse is the reply to GET_INITIAL_ROUTE
type InitialRouteResponse = Route
