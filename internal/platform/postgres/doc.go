// Package postgres contains PostgreSQL implementations of the store
// interfaces. Stores accept a store.DBTX so the same code runs against
// a connection pool or inside a transaction, and map database errors
// to the store sentinel errors.
package postgres
