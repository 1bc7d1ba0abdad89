package database

import (
	"context"
	"errors"
)

var (
	// ErrStorageUnavailable is returned when the engine could not be opened or Init has not succeeded yet.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDuplicateKey is returned by Add when a record with the same id exists.
	ErrDuplicateKey = errors.New("duplicate record id")
	// ErrDuplicateSource is returned when another record already owns the source url.
	ErrDuplicateSource = errors.New("source url already recorded")
	// ErrNotFound is returned by strict lookups; GetByID reports absence through its bool instead.
	ErrNotFound = errors.New("record not found")
)

// SchemaVersion is written by Init and checked on reopen.
const SchemaVersion = 1

type RecordStore interface {
	// Init opens the engine and creates the schema on first use. Repeated calls after
	// a successful Init are no-ops; concurrent first calls are serialized.
	Init(ctx context.Context) error
	Close() error

	// Add inserts a new record and fails with ErrDuplicateKey if the id is taken.
	Add(ctx context.Context, record *ImageRecord) error
	// Update inserts or replaces the record with the same id.
	Update(ctx context.Context, record *ImageRecord) error
	GetByID(ctx context.Context, id string) (*ImageRecord, bool, error)
	GetAll(ctx context.Context) ([]*ImageRecord, error)
	FindByURL(ctx context.Context, url string) (*ImageRecord, bool, error)
	FindBySeed(ctx context.Context, seed string) ([]*ImageRecord, error)
	// Delete removes the record; deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	// Clear removes every record in one transaction.
	Clear(ctx context.Context) error
}
