// Package mpool: handles, not pointers.
//
// Every value the cache indexes three different ways at once — an
// Entry can sit in the hash index, the time index, and the
// destination-EID index simultaneously — lives in exactly one Arena
// slot, and every index stores a Ref to that slot rather than a Go
// pointer into it. That sidesteps the aliasing questions the original
// pointer-and-refcount allocator had to solve by hand: a stale Ref
// fails Get cleanly instead of dereferencing freed memory, and the
// garbage collector never needs to reason about cycles through raw
// pointers because there aren't any — just integers.
package mpool
