// Package messages provides the shared error-notification channel.
//
// The main components are:
//
//   - [Bus]: publishes batches of user-visible error strings to every current
//     and future subscriber, suppressing empty batches
//   - [Panel]: presentation-local state for one consumer of the bus, tracking
//     whether the latest batch is showing or has been dismissed
//
// The bus has no notion of dismissal. Closing a [Panel] is local to that panel
// and never clears the bus, so publishing the same batch again re-opens it.
package messages
