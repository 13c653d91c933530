// Package redis implements the task store and the admission index on Redis,
// so several API nodes can share one queue. The waiting queue and running set
// are only mutated through Lua scripts, which keeps every capacity check and
// its mutation atomic.
package redis
