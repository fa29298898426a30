// Package domain contains the core entities of the scheduling and
// forecasting engine: cards with their memory state, decks, scheduling
// profiles, review sessions, and immutable review logs.
//
// Domain objects carry their own validation rules but perform no I/O.
// All timestamps are UTC instants; local-time bucketing is a caller
// concern.
package domain
