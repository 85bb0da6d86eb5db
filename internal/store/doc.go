// Package store holds the shared feed and item data for feedboard.
//
// The store is an arena of feeds and items keyed by opaque ids. Items refer
// to their feed by id only; removing a feed deletes its items in the same
// critical section, so no lookup can ever observe an item whose feed is gone.
//
// The main components are:
//
//   - [MemoryStore]: the mutation-synchronized store
//   - [Snapshot]: an immutable copy used for rendering and navigation
//   - [StoredState]: the versioned, serializable form of the store
//
// All mutations are serialized by the store's lock. The application loop is
// the only writer; fetch goroutines never touch the store and hand their
// results to the loop instead.
package store
