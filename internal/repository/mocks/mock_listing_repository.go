package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"listingapi/internal/model"
	"listingapi/internal/repository"
)

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) UpsertBatch(ctx context.Context, listings []model.Listing) error {
	args := m.Called(ctx, listings)
	return args.Error(0)
}

func (m *MockListingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Listing), args.Error(1)
}

func (m *MockListingRepository) List(ctx context.Context, q repository.ListQuery) (*repository.PageResult[model.Listing], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Listing]), args.Error(1)
}

func (m *MockListingRepository) AddImageHash(ctx context.Context, id, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}
