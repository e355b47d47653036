package repository

import (
	"context"
	"fmt"
	"time"

	"listingapi/internal/model"
)

// ListingRepository defines data access for listings using SQL queries only.
// No business logic here, strictly persistence operations.
type ListingRepository interface {
	// UpsertBatch writes all listings inside a single transaction.
	// On failure the transaction is rolled back and the returned error is a
	// *ListingError naming the listing that was being processed.
	UpsertBatch(ctx context.Context, listings []model.Listing) error

	// FindByID returns the listing row (scalar fields and image hashes only,
	// no properties or entities).
	FindByID(ctx context.Context, id string) (*model.Listing, error)

	// List returns a page of listings matching the filters, fully hydrated
	// with properties and entities, plus the total match count.
	List(ctx context.Context, q ListQuery) (*PageResult[model.Listing], error)

	// AddImageHash appends a content hash to the listing's image hash set.
	// Appending an already-present hash is a no-op.
	AddImageHash(ctx context.Context, id, hash string) error
}

// ListQuery holds the filters accepted by List. Nil pointer fields and
// empty collections mean "not filtered".
type ListQuery struct {
	ListingID    string
	ScanDateFrom *time.Time
	ScanDateTo   *time.Time
	IsActive     *bool
	// ImageHashes matches listings whose hash set overlaps (&&) the given set.
	ImageHashes []string
	// Properties maps property_id to the expected value. Each entry must
	// match; the property's declared type picks the value table.
	Properties map[int64]string
	// EntityData is raw JSON tested with JSONB containment (@>) against
	// dataset entity data.
	EntityData []byte
	// Page is 1-based. Zero means the first page.
	Page int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

// ListingError wraps a persistence error with the listing that caused it,
// so batch failures can report which record aborted the transaction.
type ListingError struct {
	ListingID string
	Err       error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing %s: %v", e.ListingID, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }
