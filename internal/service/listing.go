package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"listingapi/internal/model"
	"listingapi/internal/repository"
	"listingapi/internal/storage"
)

var (
	ErrIDRequired      = errors.New("listing id is required")
	ErrNotFound        = errors.New("listing not found")
	ErrImageNotFound   = errors.New("image not found")
	ErrStorageDisabled = errors.New("image storage is not configured")

	// ErrValidation marks batch rejections detected before any SQL runs.
	ErrValidation = errors.New("validation failed")
	// ErrUpsertFailed marks batches aborted by the database.
	ErrUpsertFailed = errors.New("upsert failed")
)

// scanDateLayout matches the wire format of scan_date in read responses.
const scanDateLayout = "2006-01-02 15:04:05"

// UpsertFailure identifies the listing that aborted a batch.
type UpsertFailure struct {
	ListingID string `json:"listing_id"`
	Message   string `json:"error"`
}

// UpsertResult is the response body of the batch upsert endpoint.
type UpsertResult struct {
	Status string         `json:"status"`
	Error  *UpsertFailure `json:"error"`
}

// ListingView is a single listing as rendered by the read endpoint.
// ScanDate is formatted as "2006-01-02 15:04:05" and is empty when unset.
type ListingView struct {
	ListingID   string           `json:"listing_id"`
	ScanDate    string           `json:"scan_date"`
	IsActive    bool             `json:"is_active"`
	ImageHashes []string         `json:"image_hashes"`
	Properties  []model.Property `json:"properties"`
	Entities    []model.Entity   `json:"entities"`
}

// ListingListResult is the response body of the read endpoint.
type ListingListResult struct {
	Listings []ListingView `json:"listings"`
	Total    int           `json:"total"`
}

// ImageUploadResult describes a stored listing image.
type ImageUploadResult struct {
	ListingID string `json:"listing_id"`
	Hash      string `json:"hash"`
	Size      int64  `json:"size"`
}

// ListingService defines the use cases for handling listings.
type ListingService interface {
	// Upsert validates and writes a batch of listings. The returned result is
	// always usable as a response body; the error (if any) is ErrValidation or
	// ErrUpsertFailed and selects the HTTP status.
	Upsert(ctx context.Context, listings []model.Listing) (*UpsertResult, error)

	// List returns one page of listings matching the query.
	List(ctx context.Context, q repository.ListQuery) (*ListingListResult, error)

	// UploadImage stores image content under its SHA-256 hash and appends the
	// hash to the listing's image hash set.
	UploadImage(ctx context.Context, listingID string, r io.Reader, contentType string) (*ImageUploadResult, error)

	// ImageURL returns a presigned download URL for a stored listing image.
	ImageURL(ctx context.Context, listingID, hash string) (string, error)
}

// listingService is a concrete implementation of ListingService.
type listingService struct {
	repo  repository.ListingRepository
	store storage.ImageStore
}

// NewListingService constructs a new ListingService. store may be nil, in
// which case the image use cases report ErrStorageDisabled.
func NewListingService(repo repository.ListingRepository, store storage.ImageStore) ListingService {
	return &listingService{repo: repo, store: store}
}

func (s *listingService) Upsert(ctx context.Context, listings []model.Listing) (*UpsertResult, error) {
	for i := range listings {
		if err := validateListing(&listings[i]); err != nil {
			return &UpsertResult{
				Status: "failed",
				Error:  &UpsertFailure{ListingID: listings[i].ListingID, Message: err.Error()},
			}, ErrValidation
		}
	}

	if err := s.repo.UpsertBatch(ctx, listings); err != nil {
		failure := &UpsertFailure{Message: err.Error()}
		var le *repository.ListingError
		if errors.As(err, &le) {
			failure.ListingID = le.ListingID
			failure.Message = le.Err.Error()
		}
		return &UpsertResult{Status: "failed", Error: failure}, ErrUpsertFailed
	}

	return &UpsertResult{Status: "success"}, nil
}

// validateListing checks the invariants that must hold before any SQL runs:
// a non-empty id, known property type tags and bool-like boolean values.
func validateListing(l *model.Listing) error {
	if l.ListingID == "" {
		return ErrIDRequired
	}
	for _, p := range l.Properties {
		kind, ok := model.NormalizePropertyType(p.Type)
		if !ok {
			return fmt.Errorf("property %q: unknown type tag %q", p.Name, p.Type)
		}
		if kind == model.PropertyTypeBoolean {
			if _, err := strconv.ParseBool(p.Value); err != nil {
				return fmt.Errorf("property %q: value %q is not boolean", p.Name, p.Value)
			}
		}
	}
	return nil
}

func (s *listingService) List(ctx context.Context, q repository.ListQuery) (*ListingListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}

	res, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	views := make([]ListingView, 0, len(res.Items))
	for i := range res.Items {
		views = append(views, newListingView(&res.Items[i]))
	}
	return &ListingListResult{Listings: views, Total: res.Total}, nil
}

func newListingView(l *model.Listing) ListingView {
	v := ListingView{
		ListingID:   l.ListingID,
		IsActive:    l.IsActive,
		ImageHashes: l.ImageHashes,
		Properties:  l.Properties,
		Entities:    l.Entities,
	}
	if l.ScanDate != nil {
		v.ScanDate = l.ScanDate.Format(scanDateLayout)
	}
	if v.ImageHashes == nil {
		v.ImageHashes = []string{}
	}
	if v.Properties == nil {
		v.Properties = []model.Property{}
	}
	if v.Entities == nil {
		v.Entities = []model.Entity{}
	}
	return v
}

// UploadImage buffers the content to compute its SHA-256, stores it under
// images/<hash>, then records the hash on the listing. Identical content is
// stored once regardless of how many listings reference it.
func (s *listingService) UploadImage(ctx context.Context, listingID string, r io.Reader, contentType string) (*ImageUploadResult, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if listingID == "" {
		return nil, ErrIDRequired
	}
	if _, err := s.repo.FindByID(ctx, listingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image content: %w", err)
	}
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	key := storage.ImageKey(hash)

	if err := s.store.Put(ctx, key, content, contentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	if err := s.repo.AddImageHash(ctx, listingID, hash); err != nil {
		// Roll back the stored object so the hash set stays authoritative.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("record image hash failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("record image hash failed: %w", err)
	}

	return &ImageUploadResult{ListingID: listingID, Hash: hash, Size: int64(len(content))}, nil
}

// ImageURL verifies the hash belongs to the listing and presigns a download.
func (s *listingService) ImageURL(ctx context.Context, listingID, hash string) (string, error) {
	if s.store == nil {
		return "", ErrStorageDisabled
	}
	if listingID == "" {
		return "", ErrIDRequired
	}
	l, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	found := false
	for _, h := range l.ImageHashes {
		if h == hash {
			found = true
			break
		}
	}
	if !found {
		return "", ErrImageNotFound
	}

	return s.store.PresignGet(ctx, storage.ImageKey(hash), 15*time.Minute)
}
