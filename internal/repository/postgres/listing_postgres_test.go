package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingapi/internal/model"
	"listingapi/internal/repository"
)

// passthroughConverter lets slice and byte-slice arguments (text[], jsonb)
// reach the mock driver unmodified.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) {
	return driver.Value(v), nil
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestListingPostgres_UpsertBatch(t *testing.T) {
	ctx := context.Background()
	scanDate := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	listing := model.Listing{
		ListingID:   "lst-1",
		ScanDate:    &scanDate,
		IsActive:    true,
		ImageHashes: []string{"aaa", "bbb"},
		Properties: []model.Property{
			{Name: "color", Type: "str", Value: "red"},
			{Name: "in_stock", Type: "bool", Value: "true"},
		},
		Entities: []model.Entity{
			{Name: "quality_check", Data: map[string]float64{"score": 0.9}},
		},
	}

	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO listings").
			WithArgs("lst-1", &scanDate, true, []string{"aaa", "bbb"}, []int64{}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("INSERT INTO properties").
			WithArgs("color", "string").
			WillReturnRows(sqlmock.NewRows([]string{"property_id"}).AddRow(int64(1)))
		mock.ExpectExec("INSERT INTO string_property_values").
			WithArgs("lst-1", int64(1), "red").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("INSERT INTO properties").
			WithArgs("in_stock", "boolean").
			WillReturnRows(sqlmock.NewRows([]string{"property_id"}).AddRow(int64(2)))
		mock.ExpectExec("INSERT INTO boolean_property_values").
			WithArgs("lst-1", int64(2), true).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectQuery("INSERT INTO dataset_entities").
			WithArgs("quality_check", []byte(`{"score":0.9}`)).
			WillReturnRows(sqlmock.NewRows([]string{"entity_id"}).AddRow(int64(7)))

		mock.ExpectExec("UPDATE listings SET dataset_entity_ids").
			WithArgs("lst-1", []int64{7}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectCommit()

		err := repo.UpsertBatch(ctx, []model.Listing{listing})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		err := repo.UpsertBatch(ctx, nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure rolls back and names the listing", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO listings").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := repo.UpsertBatch(ctx, []model.Listing{listing})

		assert.Error(t, err)
		var le *repository.ListingError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "lst-1", le.ListingID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown type tag aborts the batch", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		bad := listing
		bad.Properties = []model.Property{{Name: "color", Type: "float", Value: "1.5"}}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO listings").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		err := repo.UpsertBatch(ctx, []model.Listing{bad})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown type tag")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListingPostgres_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		scanDate := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"listing_id", "scan_date", "is_active", "to_json"}).
			AddRow("lst-1", scanDate, true, []byte(`["aaa","bbb"]`))

		mock.ExpectQuery("SELECT listing_id, scan_date, is_active").
			WithArgs("lst-1").
			WillReturnRows(rows)

		l, err := repo.FindByID(ctx, "lst-1")

		assert.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, "lst-1", l.ListingID)
		require.NotNil(t, l.ScanDate)
		assert.True(t, scanDate.Equal(*l.ScanDate))
		assert.Equal(t, []string{"aaa", "bbb"}, l.ImageHashes)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		mock.ExpectQuery("SELECT listing_id, scan_date, is_active").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		l, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, l)
	})
}

func TestListingPostgres_AddImageHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingPostgres(db)

	mock.ExpectExec("UPDATE listings").
		WithArgs("lst-1", "cafe").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AddImageHash(context.Background(), "lst-1", "cafe")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingPostgres_List(t *testing.T) {
	ctx := context.Background()

	t.Run("no filters", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		scanDate := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT COUNT\\(DISTINCT l.listing_id\\)").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		pageRows := sqlmock.NewRows([]string{"listing_id", "scan_date", "is_active", "hashes", "entities"}).
			AddRow("lst-1", scanDate, true, []byte(`["aaa"]`), []byte(`[{"name":"quality_check","data":{"score":0.9}}]`))
		mock.ExpectQuery("SELECT l.listing_id, l.scan_date").
			WithArgs(0).
			WillReturnRows(pageRows)

		stringRows := sqlmock.NewRows([]string{"listing_id", "name", "value"}).
			AddRow("lst-1", "color", "red")
		mock.ExpectQuery("FROM string_property_values").
			WithArgs([]string{"lst-1"}).
			WillReturnRows(stringRows)

		boolRows := sqlmock.NewRows([]string{"listing_id", "name", "value"}).
			AddRow("lst-1", "in_stock", true)
		mock.ExpectQuery("FROM boolean_property_values").
			WithArgs([]string{"lst-1"}).
			WillReturnRows(boolRows)

		res, err := repo.List(ctx, repository.ListQuery{})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		require.Len(t, res.Items, 1)

		got := res.Items[0]
		assert.Equal(t, "lst-1", got.ListingID)
		assert.Equal(t, []string{"aaa"}, got.ImageHashes)
		require.Len(t, got.Entities, 1)
		assert.Equal(t, "quality_check", got.Entities[0].Name)
		assert.InDelta(t, 0.9, got.Entities[0].Data["score"], 1e-9)
		assert.Equal(t, []model.Property{
			{Name: "color", Type: "str", Value: "red"},
			{Name: "in_stock", Type: "bool", Value: "true"},
		}, got.Properties)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("property filter with no matches short-circuits", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		mock.ExpectQuery("SELECT type FROM properties").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("string"))
		mock.ExpectQuery("SELECT listing_id FROM string_property_values").
			WithArgs(int64(3), "blue").
			WillReturnRows(sqlmock.NewRows([]string{"listing_id"}))

		res, err := repo.List(ctx, repository.ListQuery{
			Properties: map[int64]string{3: "blue"},
		})

		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, res.Items)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("boolean property filter coerces the expectation", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		mock.ExpectQuery("SELECT type FROM properties").
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("boolean"))
		mock.ExpectQuery("SELECT listing_id FROM boolean_property_values").
			WithArgs(int64(4), true).
			WillReturnRows(sqlmock.NewRows([]string{"listing_id"}))

		res, err := repo.List(ctx, repository.ListQuery{
			Properties: map[int64]string{4: "true"},
		})

		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scalar filters are pushed into the query", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewListingPostgres(db)

		active := true
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT COUNT\\(DISTINCT l.listing_id\\)").
			WithArgs("lst-1", from, active).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT l.listing_id, l.scan_date").
			WithArgs("lst-1", from, active, 0).
			WillReturnRows(sqlmock.NewRows([]string{"listing_id", "scan_date", "is_active", "hashes", "entities"}))

		res, err := repo.List(ctx, repository.ListQuery{
			ListingID:    "lst-1",
			ScanDateFrom: &from,
			IsActive:     &active,
		})

		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, res.Items)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
