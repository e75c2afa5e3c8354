// Package protocol defines the message catalog exchanged between the hub and
// its embedded modules, the payload shapes for each message type and the wire
// frame that carries them.
package protocol

import "fmt"

// MessageType identifies a message in the catalog
type MessageType string

// Module to hub messages
const (
	Navigate        MessageType = "NAVIGATE"
	Ready           MessageType = "READY"
	SetBreadcrumbs  MessageType = "SET_BREADCRUMBS"
	SetLoading      MessageType = "SET_LOADING"
	GetUser         MessageType = "GET_USER"
	Logout          MessageType = "LOGOUT"
	Error           MessageType = "ERROR"
	GetSidebarState MessageType = "GET_SIDEBAR_STATE"
	SetSidebarState MessageType = "SET_SIDEBAR_STATE"
	GetInitialRoute MessageType = "GET_INITIAL_ROUTE"
)

// Hub to module messages
const (
	RouteChange MessageType = "ROUTE_CHANGE"
)

// Direction is the direction a message type travels in
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionModuleToHub
	DirectionHubToModule
)

// String returns the string representation of the direction
func (d Direction) String() string {
	switch d {
	case DirectionModuleToHub:
		return "module->hub"
	case DirectionHubToModule:
		return "hub->module"
	default:
		return "unknown"
	}
}

var moduleToHub = []MessageType{
	Navigate,
	Ready,
	SetBreadcrumbs,
	SetLoading,
	GetUser,
	Logout,
	Error,
	GetSidebarState,
	SetSidebarState,
	GetInitialRoute,
}

var hubToModule = []MessageType{
	RouteChange,
}

// ModuleToHub returns the module to hub sub-catalog
func ModuleToHub() []MessageType {
	return append([]MessageType(nil), moduleToHub...)
}

// HubToModule returns the hub to module sub-catalog
func HubToModule() []MessageType {
	return append([]MessageType(nil), hubToModule...)
}

// Direction returns the direction the message type belongs to
func (t MessageType) Direction() Direction {
	for _, m := range moduleToHub {
		if m == t {
			return DirectionModuleToHub
		}
	}
	for _, m := range hubToModule {
		if m == t {
			return DirectionHubToModule
		}
	}
	return DirectionUnknown
}

// Valid reports whether the type is part of the catalog
func (t MessageType) Valid() bool {
	return t.Direction() != DirectionUnknown
}

// IsQuery reports whether the hub answers the type with a snapshot of its state
func (t MessageType) IsQuery() bool {
	switch t {
	case GetUser, GetSidebarState, GetInitialRoute:
		return true
	}
	return false
}

// String returns the string representation of the message type
func (t MessageType) String() string {
	return string(t)
}

// ErrorCode is an HTTP-style error code a module may report
type ErrorCode int

const (
	ErrorForbidden ErrorCode = 403
	ErrorNotFound  ErrorCode = 404
	ErrorInternal  ErrorCode = 500
)

// Valid reports whether the code maps to a hub error route
func (c ErrorCode) Valid() bool {
	switch c {
	case ErrorForbidden, ErrorNotFound, ErrorInternal:
		return true
	}
	return false
}

// Route returns the hub error route for the code
func (c ErrorCode) Route() string {
	return fmt.Sprintf("/errors/%d", int(c))
}
