// Package service contains the trigger use cases that turn client requests
// into tasks. It assigns task IDs, embeds the correlation marker into prompts,
// translates prompts when needed and hands every task to the queue.
//
// The service depends on the queue through a narrow interface and never on a
// concrete store or transport, so the API layer and tests can drive it with
// in-memory backends.
package service
