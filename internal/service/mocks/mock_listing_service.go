package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"listingapi/internal/model"
	"listingapi/internal/repository"
	"listingapi/internal/service"
)

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Upsert(ctx context.Context, listings []model.Listing) (*service.UpsertResult, error) {
	args := m.Called(ctx, listings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UpsertResult), args.Error(1)
}

func (m *MockListingService) List(ctx context.Context, q repository.ListQuery) (*service.ListingListResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListingListResult), args.Error(1)
}

func (m *MockListingService) UploadImage(ctx context.Context, listingID string, r io.Reader, contentType string) (*service.ImageUploadResult, error) {
	args := m.Called(ctx, listingID, r, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImageUploadResult), args.Error(1)
}

func (m *MockListingService) ImageURL(ctx context.Context, listingID, hash string) (string, error) {
	args := m.Called(ctx, listingID, hash)
	return args.String(0), args.Error(1)
}
