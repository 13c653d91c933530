// Package api implements the HTTP surface of the queue: trigger endpoints that
// submit tasks, task lookup, queue introspection and an ingress for chat
// events relayed by an external gateway.
//
// Handlers decode and validate requests, call the service layer and map its
// errors to status codes in one place (errors.go). Response helpers, request
// decoding and trace IDs live in the shared subpackage; authentication and
// tracing middleware live in the middleware subpackage.
package api
