// Package task is the queue and correlation engine. It admits tasks into a
// bounded waiting queue, dispatches them into a capacity-limited running set,
// hands each dispatch to the external submission collaborator without waiting
// for it, and reconciles asynchronous chat events with running tasks through
// the correlation listener. Every persisted transition is reported to the
// notifier.
package task
