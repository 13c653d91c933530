// Package asynqx hands activated dispatches to asynq so the external
// submission runs on a worker process instead of the API process that
// activated the task. Dispatch tasks are never retried by asynq; a rejected
// submission is recorded as a task failure by the executor.
package asynqx
