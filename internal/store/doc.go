// Package store defines the persistence contract for tasks. The task store is
// the single source of truth for task content; queue and running-set indices
// only ever hold task IDs. Implementations live under internal/platform.
package store
