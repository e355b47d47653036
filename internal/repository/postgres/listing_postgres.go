package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"listingapi/internal/model"
	"listingapi/internal/repository"
)

// pageSize is the fixed page length for List.
const pageSize = 100

// ListingPostgres is a PostgreSQL implementation of repository.ListingRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ListingPostgres struct {
	db *sql.DB
}

// NewListingPostgres creates a new ListingPostgres repository.
func NewListingPostgres(db *sql.DB) *ListingPostgres {
	return &ListingPostgres{db: db}
}

var _ repository.ListingRepository = (*ListingPostgres)(nil)

// UpsertBatch writes all listings inside one transaction. The first failure
// rolls back the whole batch and is reported as a *repository.ListingError.
func (r *ListingPostgres) UpsertBatch(ctx context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range listings {
		if err := upsertListing(ctx, tx, &listings[i]); err != nil {
			return &repository.ListingError{ListingID: listings[i].ListingID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func upsertListing(ctx context.Context, tx *sql.Tx, l *model.Listing) error {
	const qListing = `
		INSERT INTO listings (listing_id, scan_date, is_active, image_hashes, dataset_entity_ids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (listing_id) DO UPDATE SET
			scan_date          = EXCLUDED.scan_date,
			is_active          = EXCLUDED.is_active,
			image_hashes       = EXCLUDED.image_hashes,
			dataset_entity_ids = EXCLUDED.dataset_entity_ids
	`
	hashes := l.ImageHashes
	if hashes == nil {
		hashes = []string{}
	}
	if _, err := tx.ExecContext(ctx, qListing, l.ListingID, l.ScanDate, l.IsActive, hashes, []int64{}); err != nil {
		return fmt.Errorf("upsert listing row: %w", err)
	}

	if err := upsertProperties(ctx, tx, l.ListingID, l.Properties); err != nil {
		return err
	}

	entityIDs, err := upsertEntities(ctx, tx, l.Entities)
	if err != nil {
		return err
	}

	const qEntityIDs = `UPDATE listings SET dataset_entity_ids = $2 WHERE listing_id = $1`
	if _, err := tx.ExecContext(ctx, qEntityIDs, l.ListingID, entityIDs); err != nil {
		return fmt.Errorf("set entity ids: %w", err)
	}
	return nil
}

func upsertProperties(ctx context.Context, tx *sql.Tx, listingID string, props []model.Property) error {
	// The no-op DO UPDATE makes RETURNING yield the id on conflict too.
	const qProperty = `
		INSERT INTO properties (name, type)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING property_id
	`
	const qStringValue = `
		INSERT INTO string_property_values (listing_id, property_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, property_id) DO UPDATE SET value = EXCLUDED.value
	`
	const qBoolValue = `
		INSERT INTO boolean_property_values (listing_id, property_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, property_id) DO UPDATE SET value = EXCLUDED.value
	`

	for _, p := range props {
		kind, ok := model.NormalizePropertyType(p.Type)
		if !ok {
			return fmt.Errorf("property %s: unknown type tag %q", p.Name, p.Type)
		}

		var propertyID int64
		if err := tx.QueryRowContext(ctx, qProperty, p.Name, string(kind)).Scan(&propertyID); err != nil {
			return fmt.Errorf("upsert property %s: %w", p.Name, err)
		}

		switch kind {
		case model.PropertyTypeString:
			if _, err := tx.ExecContext(ctx, qStringValue, listingID, propertyID, p.Value); err != nil {
				return fmt.Errorf("upsert string value %s: %w", p.Name, err)
			}
		case model.PropertyTypeBoolean:
			if _, err := tx.ExecContext(ctx, qBoolValue, listingID, propertyID, strings.EqualFold(p.Value, "true")); err != nil {
				return fmt.Errorf("upsert boolean value %s: %w", p.Name, err)
			}
		}
	}
	return nil
}

func upsertEntities(ctx context.Context, tx *sql.Tx, entities []model.Entity) ([]int64, error) {
	const qEntity = `
		INSERT INTO dataset_entities (name, data)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data
		RETURNING entity_id
	`
	ids := make([]int64, 0, len(entities))
	for _, e := range entities {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal entity %s data: %w", e.Name, err)
		}
		var id int64
		if err := tx.QueryRowContext(ctx, qEntity, e.Name, data).Scan(&id); err != nil {
			return nil, fmt.Errorf("upsert entity %s: %w", e.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FindByID fetches the listing row only (no properties or entities).
func (r *ListingPostgres) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	const q = `
		SELECT listing_id, scan_date, is_active, to_json(image_hashes)
		FROM listings
		WHERE listing_id = $1
	`
	var (
		l          model.Listing
		scanDate   sql.NullTime
		hashesJSON []byte
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&l.ListingID, &scanDate, &l.IsActive, &hashesJSON); err != nil {
		return nil, err
	}
	if scanDate.Valid {
		t := scanDate.Time
		l.ScanDate = &t
	}
	if err := json.Unmarshal(hashesJSON, &l.ImageHashes); err != nil {
		return nil, fmt.Errorf("decode image hashes: %w", err)
	}
	return &l, nil
}

// AddImageHash appends a hash to the listing's image hash set unless it is
// already present.
func (r *ListingPostgres) AddImageHash(ctx context.Context, id, hash string) error {
	const q = `
		UPDATE listings
		SET image_hashes = array_append(image_hashes, $2)
		WHERE listing_id = $1 AND NOT ($2 = ANY(image_hashes))
	`
	if _, err := r.db.ExecContext(ctx, q, id, hash); err != nil {
		return fmt.Errorf("append image hash: %w", err)
	}
	return nil
}

// List returns one page of listings matching the query, hydrated with
// properties and dataset entities, plus the total match count.
//
// Listings are joined to their dataset entities via the id array, so a
// listing with no entities never appears in results.
func (r *ListingPostgres) List(ctx context.Context, q repository.ListQuery) (*repository.PageResult[model.Listing], error) {
	propertyIDs, filtered, err := r.propertyFilteredIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	if filtered && len(propertyIDs) == 0 {
		return &repository.PageResult[model.Listing]{Items: []model.Listing{}, Total: 0}, nil
	}

	where, args := buildListFilters(q, propertyIDs, filtered)

	qCount := `
		SELECT COUNT(DISTINCT l.listing_id)
		FROM listings l
		JOIN dataset_entities e ON e.entity_id = ANY(l.dataset_entity_ids)
		WHERE ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}

	offset := 0
	if q.Page > 1 {
		offset = (q.Page - 1) * pageSize
	}
	qPage := `
		SELECT l.listing_id, l.scan_date, l.is_active, to_json(l.image_hashes),
		       COALESCE(json_agg(json_build_object('name', e.name, 'data', e.data)), '[]'::json)
		FROM listings l
		JOIN dataset_entities e ON e.entity_id = ANY(l.dataset_entity_ids)
		WHERE ` + where + `
		GROUP BY l.listing_id
		ORDER BY l.listing_id
		LIMIT ` + strconv.Itoa(pageSize) + ` OFFSET $` + strconv.Itoa(len(args)+1)
	args = append(args, offset)

	rows, err := r.db.QueryContext(ctx, qPage, args...)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	defer rows.Close()

	items := make([]model.Listing, 0)
	for rows.Next() {
		var (
			l            model.Listing
			scanDate     sql.NullTime
			hashesJSON   []byte
			entitiesJSON []byte
		)
		if err := rows.Scan(&l.ListingID, &scanDate, &l.IsActive, &hashesJSON, &entitiesJSON); err != nil {
			return nil, err
		}
		if scanDate.Valid {
			t := scanDate.Time
			l.ScanDate = &t
		}
		if err := json.Unmarshal(hashesJSON, &l.ImageHashes); err != nil {
			return nil, fmt.Errorf("decode image hashes: %w", err)
		}
		if err := json.Unmarshal(entitiesJSON, &l.Entities); err != nil {
			return nil, fmt.Errorf("decode entities: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachProperties(ctx, items); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Listing]{Items: items, Total: total}, nil
}

// propertyFilteredIDs resolves each property filter against its declared type
// and intersects the matching listing id sets. The boolean return reports
// whether property filters were present at all.
func (r *ListingPostgres) propertyFilteredIDs(ctx context.Context, q repository.ListQuery) ([]string, bool, error) {
	if len(q.Properties) == 0 {
		return nil, false, nil
	}

	ids := make([]int64, 0, len(q.Properties))
	for id := range q.Properties {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var matched map[string]bool
	for _, propertyID := range ids {
		expected := q.Properties[propertyID]

		var kind string
		if err := r.db.QueryRowContext(ctx, `SELECT type FROM properties WHERE property_id = $1`, propertyID).Scan(&kind); err != nil {
			return nil, true, fmt.Errorf("resolve property %d: %w", propertyID, err)
		}

		var (
			query string
			value any
		)
		switch model.PropertyType(kind) {
		case model.PropertyTypeBoolean:
			b, err := strconv.ParseBool(expected)
			if err != nil {
				// Non-boolean expectation can never match a boolean property.
				return nil, true, nil
			}
			query = `SELECT listing_id FROM boolean_property_values WHERE property_id = $1 AND value = $2`
			value = b
		case model.PropertyTypeString:
			query = `SELECT listing_id FROM string_property_values WHERE property_id = $1 AND value = $2`
			value = expected
		default:
			return nil, true, fmt.Errorf("property %d has invalid type %q", propertyID, kind)
		}
		if q.ListingID != "" {
			query += ` AND listing_id = $3`
		}
		query += ` GROUP BY listing_id`

		args := []any{propertyID, value}
		if q.ListingID != "" {
			args = append(args, q.ListingID)
		}
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, true, fmt.Errorf("filter property %d: %w", propertyID, err)
		}
		current := make(map[string]bool)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, true, err
			}
			if matched == nil || matched[id] {
				current[id] = true
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, true, err
		}
		rows.Close()

		matched = current
		if len(matched) == 0 {
			return nil, true, nil
		}
	}

	out := make([]string, 0, len(matched))
	for id := range matched {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, true, nil
}

func buildListFilters(q repository.ListQuery, propertyIDs []string, propertyFiltered bool) (string, []any) {
	conds := []string{"e.name IS NOT NULL"}
	args := []any{}

	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if q.ListingID != "" {
		args = append(args, q.ListingID)
		conds = append(conds, "l.listing_id = "+next())
	}
	if q.ScanDateFrom != nil {
		args = append(args, *q.ScanDateFrom)
		conds = append(conds, "l.scan_date >= "+next())
	}
	if q.ScanDateTo != nil {
		args = append(args, *q.ScanDateTo)
		conds = append(conds, "l.scan_date <= "+next())
	}
	if q.IsActive != nil {
		args = append(args, *q.IsActive)
		conds = append(conds, "l.is_active = "+next())
	}
	if len(q.ImageHashes) > 0 {
		args = append(args, q.ImageHashes)
		conds = append(conds, "l.image_hashes && "+next())
	}
	if len(q.EntityData) > 0 {
		args = append(args, q.EntityData)
		conds = append(conds, "cardinality(l.dataset_entity_ids) > 0 AND e.data @> "+next())
	}
	if propertyFiltered {
		args = append(args, propertyIDs)
		conds = append(conds, "l.listing_id = ANY("+next()+")")
	}

	return strings.Join(conds, " AND "), args
}

// attachProperties hydrates the typed property lists for the given page of
// listings with two queries, one per value table.
func (r *ListingPostgres) attachProperties(ctx context.Context, items []model.Listing) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ListingID
	}

	byListing := make(map[string][]model.Property, len(items))

	const qString = `
		SELECT v.listing_id, p.name, v.value
		FROM string_property_values v
		JOIN properties p ON p.property_id = v.property_id
		WHERE v.listing_id = ANY($1)
		ORDER BY p.name
	`
	rows, err := r.db.QueryContext(ctx, qString, ids)
	if err != nil {
		return fmt.Errorf("select string properties: %w", err)
	}
	for rows.Next() {
		var listingID, name, value string
		if err := rows.Scan(&listingID, &name, &value); err != nil {
			rows.Close()
			return err
		}
		byListing[listingID] = append(byListing[listingID], model.Property{Name: name, Type: "str", Value: value})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	const qBool = `
		SELECT v.listing_id, p.name, v.value
		FROM boolean_property_values v
		JOIN properties p ON p.property_id = v.property_id
		WHERE v.listing_id = ANY($1)
		ORDER BY p.name
	`
	rows, err = r.db.QueryContext(ctx, qBool, ids)
	if err != nil {
		return fmt.Errorf("select boolean properties: %w", err)
	}
	for rows.Next() {
		var (
			listingID, name string
			value           bool
		)
		if err := rows.Scan(&listingID, &name, &value); err != nil {
			rows.Close()
			return err
		}
		byListing[listingID] = append(byListing[listingID], model.Property{Name: name, Type: "bool", Value: strconv.FormatBool(value)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for i := range items {
		props := byListing[items[i].ListingID]
		if props == nil {
			props = []model.Property{}
		}
		items[i].Properties = props
	}
	return nil
}
