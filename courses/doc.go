// Package courses provides the course entity store.
//
// The [Store] owns the canonical in-memory cache of courses. It loads the
// whole collection once at construction, serves derived read queries as
// streams, and performs optimistic writes: a save updates the cache
// immediately and then issues the remote update. Remote failures are reported
// to the shared message bus as a generic message and returned to the caller;
// an optimistic save is not rolled back when the remote update fails.
//
// The main components are:
//
//   - [Store]: cache owner with [Store.Courses], [Store.FilterByCategory],
//     [Store.Save], [Store.Loaded] and [Store.Reload]
//   - [Course], [Changes] and [Envelope]: the entity, a partial update, and
//     the fetch-all response
//   - [Transport]: the remote course API the store talks to
//   - [Error]: load and save failures, matched with [ErrLoadFailed] and
//     [ErrSaveFailed]
//
// Cache snapshots are shared between subscribers and must be treated as
// read-only. Every change produces a new slice; existing snapshots are never
// modified.
package courses
