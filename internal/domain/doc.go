// Package domain contains the core entities of the queue: the generation Task,
// its lifecycle state machine, the closed set of actions a task can carry, and
// the typed dispatch parameters for each action. It is independent of any
// storage, transport, or chat provider.
package domain
