// Package bridge marshals bytes across the host/module boundary.
//
// The module's memory-access surface differs between builds, so access goes
// through an explicit, ordered list of named strategies. The first strategy
// whose capability the module provides wins; when none apply the bridge
// fails with a memory_access error.
//
//	write: bulk-write, unsigned-view, signed-view, buffer-unsigned, buffer-signed
//	read:  unsigned-view, buffer-unsigned, signed-view, buffer-signed
//
// Views are acquired immediately before every read and write and never kept,
// because module memory may grow and invalidate them.
//
// # Release Discipline
//
// Every Region returned by Allocate or WriteBuffer must be passed to Release
// exactly once. Release reaches the module only on its first call; a second
// call reports double_free instead of freeing twice. WriteBuffer releases the
// region itself when the write fails.
//
// Address 0 is never dereferenced: Allocate treats it as allocation failure.
package bridge
