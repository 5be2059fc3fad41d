// Package component defines the lifecycle contract shared by the service's
// infrastructure pieces: the staging store, the journal's redis client and
// the HTTP server.
//
// A Registry starts components in registration order, stops them in
// reverse, and aggregates their health for the /health endpoint.
package component
