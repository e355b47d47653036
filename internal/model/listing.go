package model

import (
	"strings"
	"time"
)

// PropertyType is the canonical kind of a property as stored in the
// properties table. Incoming payloads may use the short aliases "str"
// and "bool"; NormalizePropertyType maps them here.
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeBoolean PropertyType = "boolean"
)

// NormalizePropertyType resolves a declared type tag (case-insensitive
// "str", "string", "bool" or "boolean") to its canonical PropertyType.
// The second return value is false for unknown tags.
func NormalizePropertyType(tag string) (PropertyType, bool) {
	switch strings.ToLower(tag) {
	case "str", "string":
		return PropertyTypeString, true
	case "bool", "boolean":
		return PropertyTypeBoolean, true
	default:
		return "", false
	}
}

// Property is a single typed name/value pair attached to a listing.
// Value is always transported as a string; Type declares how it must be
// interpreted and which value table it lands in.
type Property struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Entity is a named dataset entity holding an open-ended map of
// numeric scores (e.g. quality-check results).
type Entity struct {
	Name string             `json:"name"`
	Data map[string]float64 `json:"data"`
}

// Listing is the domain aggregate: one marketplace item scan with its
// image content-hashes, typed properties and dataset entities.
// ListingID is the upsert key.
type Listing struct {
	ListingID   string     `json:"listing_id"`
	ScanDate    *time.Time `json:"scan_date"`
	IsActive    bool       `json:"is_active"`
	ImageHashes []string   `json:"image_hashes"`
	Properties  []Property `json:"properties"`
	Entities    []Entity   `json:"entities"`
}
