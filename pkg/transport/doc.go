// Package transport turns a one-way Poster into a duplex channel with
// request/response correlation and typed subscriptions.
//
// A Channel owns the pending-request table and the handler table for one side
// of a hub/module pair. Inbound requests and events are handled one at a time
// on a single goroutine, in arrival order; inbound responses are matched to
// their pending request as soon as they arrive, so a handler may itself send
// requests without stalling the channel.
//
// A Channel created without a Poster is detached: the party runs standalone,
// every Send and Emit returns immediately with a nil error, and reply targets
// keep their zero values.
package transport
