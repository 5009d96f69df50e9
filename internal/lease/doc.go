// Package lease keeps a working agent's claim on a task alive. For the
// duration of one task execution a Coordinator renews the agent's lease and
// emits heartbeats with health reports at fixed intervals, so that an
// external observer can tell a live worker from a crashed one by watching
// (status, last_seen, ttl) alone.
package lease
