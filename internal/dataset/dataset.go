// Package dataset ships the geography demo schema and a SQLite-backed
// loader for it. The demo server seeds a small world dataset into
// SQLite and mirrors it into the in-memory store the engine queries.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matthewbaird/genq/internal/backend/memory"
	"github.com/matthewbaird/genq/internal/schema"
)

// Registry builds the geography schema: continents contain regions,
// regions contain countries, and countries carry rivers, mountains and
// forests (shared) plus disasters (owned).
func Registry() *schema.Registry {
	r := schema.NewRegistry()

	r.Register(&schema.EntityType{
		Name: "continent",
		Fields: map[string]*schema.Field{
			"id":   {Name: "id", Kind: schema.KindInt},
			"name": {Name: "name", Kind: schema.KindString},
		},
		FieldOrder: []string{"id", "name"},
		Relations: map[string]*schema.Relation{
			"regions": {Name: "regions", Target: "region", ToMany: true},
		},
		RelationOrder: []string{"regions"},
	})

	r.Register(&schema.EntityType{
		Name: "region",
		Fields: map[string]*schema.Field{
			"id":   {Name: "id", Kind: schema.KindInt},
			"name": {Name: "name", Kind: schema.KindString},
		},
		FieldOrder: []string{"id", "name"},
		Relations: map[string]*schema.Relation{
			"continent": {Name: "continent", Target: "continent"},
			"countries": {Name: "countries", Target: "country", ToMany: true},
		},
		RelationOrder: []string{"continent", "countries"},
	})

	r.Register(&schema.EntityType{
		Name: "country",
		Fields: map[string]*schema.Field{
			"id":         {Name: "id", Kind: schema.KindInt},
			"name":       {Name: "name", Kind: schema.KindString},
			"area":       {Name: "area", Kind: schema.KindInt},
			"population": {Name: "population", Kind: schema.KindInt},
		},
		FieldOrder: []string{"id", "name", "area", "population"},
		Relations: map[string]*schema.Relation{
			"region":    {Name: "region", Target: "region"},
			"rivers":    {Name: "rivers", Target: "river", ToMany: true},
			"mountains": {Name: "mountains", Target: "mountain", ToMany: true},
			"forests":   {Name: "forests", Target: "forest", ToMany: true},
			"disasters": {Name: "disasters", Target: "disaster", ToMany: true},
		},
		RelationOrder: []string{"region", "rivers", "mountains", "forests", "disasters"},
	})

	r.Register(&schema.EntityType{
		Name: "river",
		Fields: map[string]*schema.Field{
			"id":        {Name: "id", Kind: schema.KindInt},
			"name":      {Name: "name", Kind: schema.KindString},
			"discharge": {Name: "discharge", Kind: schema.KindInt, Nullable: true},
			"length":    {Name: "length", Kind: schema.KindInt},
		},
		FieldOrder: []string{"id", "name", "discharge", "length"},
		Relations: map[string]*schema.Relation{
			"countries": {Name: "countries", Target: "country", ToMany: true},
		},
		RelationOrder: []string{"countries"},
	})

	r.Register(&schema.EntityType{
		Name: "mountain",
		Fields: map[string]*schema.Field{
			"id":     {Name: "id", Kind: schema.KindInt},
			"name":   {Name: "name", Kind: schema.KindString},
			"height": {Name: "height", Kind: schema.KindInt},
		},
		FieldOrder: []string{"id", "name", "height"},
		Relations: map[string]*schema.Relation{
			"countries": {Name: "countries", Target: "country", ToMany: true},
		},
		RelationOrder: []string{"countries"},
	})

	r.Register(&schema.EntityType{
		Name: "forest",
		Fields: map[string]*schema.Field{
			"id":   {Name: "id", Kind: schema.KindInt},
			"name": {Name: "name", Kind: schema.KindString},
			"area": {Name: "area", Kind: schema.KindInt},
		},
		FieldOrder: []string{"id", "name", "area"},
		Relations: map[string]*schema.Relation{
			"countries": {Name: "countries", Target: "country", ToMany: true},
		},
		RelationOrder: []string{"countries"},
	})

	r.Register(&schema.EntityType{
		Name: "disaster",
		Fields: map[string]*schema.Field{
			"id":      {Name: "id", Kind: schema.KindInt},
			"event":   {Name: "event", Kind: schema.KindString},
			"date":    {Name: "date", Kind: schema.KindTime},
			"source":  {Name: "source", Kind: schema.KindString},
			"comment": {Name: "comment", Kind: schema.KindString},
		},
		FieldOrder: []string{"id", "event", "date", "source", "comment"},
		Relations: map[string]*schema.Relation{
			"country": {Name: "country", Target: "country"},
		},
		RelationOrder: []string{"country"},
	})

	return r
}

const ddl = `
CREATE TABLE IF NOT EXISTS continent (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS region (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	continent_id INTEGER NOT NULL REFERENCES continent(id)
);
CREATE TABLE IF NOT EXISTS country (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	area INTEGER NOT NULL,
	population INTEGER NOT NULL,
	region_id INTEGER NOT NULL REFERENCES region(id)
);
CREATE TABLE IF NOT EXISTS river (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	discharge INTEGER,
	length INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS mountain (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	height INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS forest (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	area INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS disaster (
	id INTEGER PRIMARY KEY,
	event TEXT NOT NULL,
	date TEXT NOT NULL,
	source TEXT NOT NULL,
	comment TEXT NOT NULL,
	country_id INTEGER NOT NULL REFERENCES country(id)
);
CREATE TABLE IF NOT EXISTS river_country (
	river_id INTEGER NOT NULL REFERENCES river(id),
	country_id INTEGER NOT NULL REFERENCES country(id),
	PRIMARY KEY (river_id, country_id)
);
CREATE TABLE IF NOT EXISTS mountain_country (
	mountain_id INTEGER NOT NULL REFERENCES mountain(id),
	country_id INTEGER NOT NULL REFERENCES country(id),
	PRIMARY KEY (mountain_id, country_id)
);
CREATE TABLE IF NOT EXISTS forest_country (
	forest_id INTEGER NOT NULL REFERENCES forest(id),
	country_id INTEGER NOT NULL REFERENCES country(id),
	PRIMARY KEY (forest_id, country_id)
);
`

// Seed creates the tables and inserts the sample dataset when the
// database is empty. Safe to call on every startup.
func Seed(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("dataset: creating tables: %w", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM continent").Scan(&n); err != nil {
		return fmt.Errorf("dataset: checking seed state: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range seedStatements {
		if _, err := tx.ExecContext(ctx, stmt.sql, stmt.args...); err != nil {
			return fmt.Errorf("dataset: seeding: %w", err)
		}
	}
	return tx.Commit()
}

// Load mirrors the SQLite contents into a fresh in-memory store.
func Load(ctx context.Context, db *sql.DB, registry *schema.Registry) (*memory.Store, error) {
	st := memory.NewStore(registry)

	if err := loadContinents(ctx, db, st); err != nil {
		return nil, err
	}
	if err := loadRegions(ctx, db, st); err != nil {
		return nil, err
	}
	if err := loadCountries(ctx, db, st); err != nil {
		return nil, err
	}
	if err := loadRivers(ctx, db, st); err != nil {
		return nil, err
	}
	if err := loadMountains(ctx, db, st); err != nil {
		return nil, err
	}
	if err := loadForests(ctx, db, st); err != nil {
		return nil, err
	}
	if err := loadDisasters(ctx, db, st); err != nil {
		return nil, err
	}
	if err := loadLinks(ctx, db, st); err != nil {
		return nil, err
	}
	return st, nil
}

func loadContinents(ctx context.Context, db *sql.DB, st *memory.Store) error {
	rows, err := db.QueryContext(ctx, "SELECT id, name FROM continent ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		if err := st.Insert("continent", map[string]any{"id": id, "name": name}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadRegions(ctx context.Context, db *sql.DB, st *memory.Store) error {
	rows, err := db.QueryContext(ctx, "SELECT id, name, continent_id FROM region ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, continentID int64
		var name string
		if err := rows.Scan(&id, &name, &continentID); err != nil {
			return err
		}
		err := st.Insert("region", map[string]any{
			"id": id, "name": name, "continent": continentID,
		})
		if err != nil {
			return err
		}
		if err := st.Link("continent", continentID, "regions", id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadCountries(ctx context.Context, db *sql.DB, st *memory.Store) error {
	rows, err := db.QueryContext(ctx, "SELECT id, name, area, population, region_id FROM country ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, area, population, regionID int64
		var name string
		if err := rows.Scan(&id, &name, &area, &population, &regionID); err != nil {
			return err
		}
		err := st.Insert("country", map[string]any{
			"id": id, "name": name, "area": area, "population": population,
			"region": regionID,
		})
		if err != nil {
			return err
		}
		if err := st.Link("region", regionID, "countries", id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadRivers(ctx context.Context, db *sql.DB, st *memory.Store) error {
	rows, err := db.QueryContext(ctx, "SELECT id, name, discharge, length FROM river ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, length int64
		var discharge sql.NullInt64
		var name string
		if err := rows.Scan(&id, &name, &discharge, &length); err != nil {
			return err
		}
		vals := map[string]any{"id": id, "name": name, "length": length, "discharge": nil}
		if discharge.Valid {
			vals["discharge"] = discharge.Int64
		}
		if err := st.Insert("river", vals); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadMountains(ctx context.Context, db *sql.DB, st *memory.Store) error {
	rows, err := db.QueryContext(ctx, "SELECT id, name, height FROM mountain ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, height int64
		var name string
		if err := rows.Scan(&id, &name, &height); err != nil {
			return err
		}
		if err := st.Insert("mountain", map[string]any{"id": id, "name": name, "height": height}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadForests(ctx context.Context, db *sql.DB, st *memory.Store) error {
	rows, err := db.QueryContext(ctx, "SELECT id, name, area FROM forest ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, area int64
		var name string
		if err := rows.Scan(&id, &name, &area); err != nil {
			return err
		}
		if err := st.Insert("forest", map[string]any{"id": id, "name": name, "area": area}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadDisasters(ctx context.Context, db *sql.DB, st *memory.Store) error {
	rows, err := db.QueryContext(ctx, "SELECT id, event, date, source, comment, country_id FROM disaster ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, countryID int64
		var event, date, source, comment string
		if err := rows.Scan(&id, &event, &date, &source, &comment, &countryID); err != nil {
			return err
		}
		when, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return fmt.Errorf("dataset: disaster %d has a bad date %q: %w", id, date, err)
		}
		err = st.Insert("disaster", map[string]any{
			"id": id, "event": event, "date": when, "source": source,
			"comment": comment, "country": countryID,
		})
		if err != nil {
			return err
		}
		if err := st.Link("country", countryID, "disasters", id); err != nil {
			return err
		}
	}
	return rows.Err()
}

// loadLinks mirrors the many-to-many tables in both directions.
func loadLinks(ctx context.Context, db *sql.DB, st *memory.Store) error {
	tables := []struct {
		query            string
		entity, relation string
	}{
		{"SELECT river_id, country_id FROM river_country ORDER BY river_id, country_id", "river", "rivers"},
		{"SELECT mountain_id, country_id FROM mountain_country ORDER BY mountain_id, country_id", "mountain", "mountains"},
		{"SELECT forest_id, country_id FROM forest_country ORDER BY forest_id, country_id", "forest", "forests"},
	}
	for _, t := range tables {
		rows, err := db.QueryContext(ctx, t.query)
		if err != nil {
			return err
		}
		for rows.Next() {
			var ownID, countryID int64
			if err := rows.Scan(&ownID, &countryID); err != nil {
				rows.Close()
				return err
			}
			if err := st.Link(t.entity, ownID, "countries", countryID); err != nil {
				rows.Close()
				return err
			}
			if err := st.Link("country", countryID, t.relation, ownID); err != nil {
				rows.Close()
				return err
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}
