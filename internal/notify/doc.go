// Package notify delivers task snapshots to their webhook targets.
//
// Deliveries for one task are strictly ordered: each task with pending
// notifications owns a FIFO drained by a single goroutine, which exits and
// drops the queue once it is empty. Deliveries for different tasks run
// concurrently up to a global worker limit. Failed deliveries are logged and
// not retried.
package notify
