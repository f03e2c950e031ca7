// Package store persists card sets with optimistic concurrency control.
//
// A Medium is a durable location shared by independent processes with no
// shared memory. The Guard stamps every snapshot it writes with an integrity
// tag derived from the content and, at commit time, refuses to write when the
// tag of what is stored no longer matches the tag the caller loaded. The
// CardStore is the façade used by the rest of the application.
//
// Nothing here merges, retries or blocks waiting for a conflict to clear: a
// refused commit is reported as ErrConcurrentModification and the medium is
// left exactly as the other writer left it.
package store
