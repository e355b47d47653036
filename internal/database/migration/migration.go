package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_listings",
		SQL: `CREATE TABLE IF NOT EXISTS listings (
  listing_id         TEXT        PRIMARY KEY,
  scan_date          TIMESTAMPTZ,
  is_active          BOOLEAN     NOT NULL DEFAULT TRUE,
  image_hashes       TEXT[]      NOT NULL DEFAULT '{}',
  dataset_entity_ids INTEGER[]   NOT NULL DEFAULT '{}'
);`,
	},
	{
		Name: "create_table_properties",
		SQL: `CREATE TABLE IF NOT EXISTS properties (
  property_id SERIAL PRIMARY KEY,
  name        TEXT   NOT NULL UNIQUE,
  type        TEXT   NOT NULL CHECK (type IN ('string', 'boolean'))
);`,
	},
	{
		Name: "create_table_string_property_values",
		SQL: `CREATE TABLE IF NOT EXISTS string_property_values (
  listing_id  TEXT    NOT NULL REFERENCES listings (listing_id) ON DELETE CASCADE,
  property_id INTEGER NOT NULL REFERENCES properties (property_id) ON DELETE CASCADE,
  value       TEXT    NOT NULL,
  PRIMARY KEY (listing_id, property_id)
);`,
	},
	{
		Name: "create_table_boolean_property_values",
		SQL: `CREATE TABLE IF NOT EXISTS boolean_property_values (
  listing_id  TEXT    NOT NULL REFERENCES listings (listing_id) ON DELETE CASCADE,
  property_id INTEGER NOT NULL REFERENCES properties (property_id) ON DELETE CASCADE,
  value       BOOLEAN NOT NULL,
  PRIMARY KEY (listing_id, property_id)
);`,
	},
	{
		Name: "create_table_dataset_entities",
		SQL: `CREATE TABLE IF NOT EXISTS dataset_entities (
  entity_id SERIAL PRIMARY KEY,
  name      TEXT   NOT NULL UNIQUE,
  data      JSONB  NOT NULL DEFAULT '{}'::jsonb
);`,
	},
	{
		Name: "create_index_listings_scan_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_listings_scan_date ON listings (scan_date);`,
	},
	{
		Name: "create_index_listings_is_active",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_listings_is_active ON listings (is_active);`,
	},
	{
		Name: "create_index_dataset_entities_data",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_dataset_entities_data ON dataset_entities USING GIN (data);`,
	},
}

// EnsureMigrated checks if the 'listings' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.listings') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
