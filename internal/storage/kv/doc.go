// Package kv provides the durable key-value store holding version pointers
// and bundle records.
//
// Backends:
//   - memory: process memory, for tests and dry runs
//   - file: a single JSON document rewritten atomically on every mutation
//   - redis: a Redis server, keys namespaced by a prefix
//
// There is no cache layer in front of any backend.
package kv
