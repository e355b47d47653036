package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"listingapi/internal/model"
	"listingapi/internal/repository"
	"listingapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal; all business logic lives in the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.ListingService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Put("/listings", UpsertListings(svc))
	app.Get("/listings", ListListings(svc))
	app.Post("/listings/:id/images", UploadListingImage(svc))
	app.Get("/listings/:id/images/:hash", GetListingImage(svc))
}

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness check that always succeeds.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

type upsertRequest struct {
	Listings []model.Listing `json:"listings"`
}

// UpsertListings handles PUT /listings.
//
// @Summary Upsert a batch of listings
// @Accept json
// @Produce json
// @Param request body upsertRequest true "listings batch"
// @Success 200 {object} service.UpsertResult
// @Router /listings [put]
func UpsertListings(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req upsertRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}

		res, err := svc.Upsert(c.UserContext(), req.Listings)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrValidation):
				return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
			case errors.Is(err, service.ErrUpsertFailed):
				return c.Status(fiber.StatusInternalServerError).JSON(res)
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(res)
	}
}

// ListListings handles GET /listings with optional filters.
//
// @Summary List listings
// @Produce json
// @Param listing_id query string false "exact listing id"
// @Param scan_date_from query string false "inclusive lower scan date bound"
// @Param scan_date_to query string false "inclusive upper scan date bound"
// @Param is_active query bool false "active flag"
// @Param image_hashes query string false "comma-separated hashes, overlap match"
// @Param properties query string false "JSON object of property_id to expected value"
// @Param dataset_entities query string false "JSON object matched by containment against entity data"
// @Param page query int false "1-based page number, 100 per page"
// @Success 200 {object} service.ListingListResult
// @Router /listings [get]
func ListListings(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, errCode := parseListQuery(c)
		if errCode != "" {
			return writeError(c, fiber.StatusBadRequest, errCode, "invalid query parameter")
		}

		res, err := svc.List(c.UserContext(), q)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// parseListQuery converts query string parameters into a repository query.
// On failure it returns an empty query and the error code to respond with.
func parseListQuery(c *fiber.Ctx) (repository.ListQuery, string) {
	q := repository.ListQuery{ListingID: c.Query("listing_id")}

	if v := c.Query("scan_date_from"); v != "" {
		t, err := parseScanDate(v)
		if err != nil {
			return repository.ListQuery{}, "INVALID_SCAN_DATE_FROM"
		}
		q.ScanDateFrom = &t
	}
	if v := c.Query("scan_date_to"); v != "" {
		t, err := parseScanDate(v)
		if err != nil {
			return repository.ListQuery{}, "INVALID_SCAN_DATE_TO"
		}
		q.ScanDateTo = &t
	}
	if v := c.Query("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return repository.ListQuery{}, "INVALID_IS_ACTIVE"
		}
		q.IsActive = &b
	}
	if v := c.Query("image_hashes"); v != "" {
		q.ImageHashes = strings.Split(v, ",")
	}
	if v := c.Query("properties"); v != "" {
		props, err := parsePropertyFilters(v)
		if err != nil {
			return repository.ListQuery{}, "INVALID_PROPERTIES"
		}
		q.Properties = props
	}
	if v := c.Query("dataset_entities"); v != "" {
		if !json.Valid([]byte(v)) {
			return repository.ListQuery{}, "INVALID_DATASET_ENTITIES"
		}
		q.EntityData = []byte(v)
	}
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return repository.ListQuery{}, "INVALID_PAGE"
		}
		q.Page = page
	}

	return q, ""
}

func parseScanDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// parsePropertyFilters decodes a JSON object keyed by property id. Values may
// be JSON strings, booleans or numbers; all are carried as strings and
// coerced against the property's declared type later.
func parsePropertyFilters(raw string) (map[int64]string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}

	out := make(map[int64]string, len(obj))
	for key, val := range obj {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, err
		}
		switch v := val.(type) {
		case string:
			out[id] = v
		case bool:
			out[id] = strconv.FormatBool(v)
		case json.Number:
			out[id] = v.String()
		default:
			return nil, errors.New("unsupported property filter value")
		}
	}
	return out, nil
}

// UploadListingImage handles POST /listings/:id/images (multipart/form-data, field name: file).
//
// @Summary Upload a listing image
// @Accept mpfd
// @Produce json
// @Param id path string true "listing id"
// @Param file formData file true "image content"
// @Success 201 {object} service.ImageUploadResult
// @Router /listings/{id}/images [post]
func UploadListingImage(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		res, err := svc.UploadImage(c.UserContext(), id, f, ct)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "listing not found")
			case errors.Is(err, service.ErrStorageDisabled):
				return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_DISABLED", "image storage is not configured")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GetListingImage handles GET /listings/:id/images/:hash and returns a
// presigned download URL for the image.
//
// @Summary Presign a listing image download
// @Produce json
// @Param id path string true "listing id"
// @Param hash path string true "image content hash"
// @Success 200 {object} map[string]string
// @Router /listings/{id}/images/{hash} [get]
func GetListingImage(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		hash := c.Params("hash")

		url, err := svc.ImageURL(c.UserContext(), id, hash)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "listing not found")
			case errors.Is(err, service.ErrImageNotFound):
				return writeError(c, fiber.StatusNotFound, "IMAGE_NOT_FOUND", "image not found for listing")
			case errors.Is(err, service.ErrStorageDisabled):
				return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_DISABLED", "image storage is not configured")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(fiber.Map{"url": url})
	}
}
