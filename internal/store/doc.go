// Package store defines the persistence interfaces consumed by the
// scheduler and forecast services, along with the shared transaction
// helper and sentinel errors.
//
// The storage engine and on-disk format are external collaborators;
// implementations live in internal/platform. Everything the core needs
// from persistence crosses this boundary.
package store
