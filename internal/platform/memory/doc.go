// Package memory provides process-local implementations of the task store and
// the admission index, for single-node deployments and tests.
package memory
