// Package cache implements the storage-and-custody cache of a DTN
// bundle protocol agent: per-interface admission, the entry finite
// state machine, aggregate custody acknowledgement (DACS) generation
// and matching, and the event loop that drives polling, route-up
// re-evaluation, and egress draining.
//
// A State is built on three secondary indices (hash, time, destination
// node) realized as github.com/google/btree trees over Queue nodes,
// themselves pool-allocated through pkg/mpool alongside the Entry
// records they list. Concurrency is the caller's: one State is meant
// to be driven by a single goroutine at a time, exactly like the
// single-threaded-per-interface event loop this package is modeled on.
package cache
