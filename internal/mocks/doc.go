// Package mocks provides in-memory implementations of the store
// interfaces for service-level tests. The implementations carry real
// semantics (quota counters, session dedup, due ordering) so tests can
// drive whole scheduling scenarios without a database; individual
// methods can be overridden through the *Fn fields to inject errors.
package mocks
