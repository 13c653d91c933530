// Package testutils holds fixtures shared by tests across packages: a
// recording slog handler for asserting on log output and an in-memory queue
// wired the way the server wires it, minus the network.
package testutils
