// Package events carries chat message events from their sources (the gateway
// connection and the HTTP ingest endpoint) to the components that react to
// them. Sources depend on EventEmitter only; Router fans each event out to the
// handlers subscribed to its kind.
package events
