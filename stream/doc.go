// Package stream provides the reactive primitives the course store is built on.
//
// The main components are:
//
//   - [Stream]: anything that can be subscribed to with a callback
//   - [Subject]: a multicast stream that remembers its last value and replays
//     it to every new subscriber before delivering later values
//   - [Map] and [Filter]: derived streams that recompute their output from each
//     upstream value with a pure function and hold no state of their own
//   - [Channel]: adapts a stream to a buffered channel for goroutine consumers
//
// Deliveries on a [Subject] are serialized. Every subscriber observes values in
// the order they were produced, and a callback may call back into the subject
// (Next or Subscribe) without deadlocking: re-entrant work is queued and
// delivered once the current callback returns.
package stream
