package dataset

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/genq/internal/engine"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "genq.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, db))
	require.NoError(t, Seed(ctx, db))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM country").Scan(&n))
	assert.Equal(t, 5, n)
}

func TestLoadMirrorsDatabase(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, db))

	reg := Registry()
	st, err := Load(ctx, db, reg)
	require.NoError(t, err)

	eng, err := engine.New(reg, st, engine.Options{})
	require.NoError(t, err)

	names := func(res map[string]any) []string {
		t.Helper()
		require.Equal(t, true, res["status"], "unexpected envelope %v", res)
		rows, ok := res["rows"].([]map[string]any)
		require.True(t, ok)
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			if n, ok := r["name"].(string); ok {
				out = append(out, n)
			}
		}
		return out
	}

	res, err := eng.Evaluate(ctx, engine.Request{Entity: "country", RawQuery: "c:sort=name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Brazil", "Canada", "China", "India", "United States"}, names(res))

	// Shared rivers carry both directions of the link.
	res, err = eng.Evaluate(ctx, engine.Request{Entity: "country", RawQuery: "rivers.name=Yukon"})
	require.NoError(t, err)
	assert.Equal(t, []string{"United States", "Canada"}, names(res))

	res, err = eng.Evaluate(ctx, engine.Request{Entity: "river", RawQuery: "countries.name=United+States&c:sort=name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mississippi", "Yukon"}, names(res))

	// A NULL column survives the mirror as a null value.
	res, err = eng.Evaluate(ctx, engine.Request{Entity: "river", RawQuery: "discharge="})
	require.NoError(t, err)
	assert.Equal(t, []string{"Yukon"}, names(res))

	// Dates come back as parsed timestamps, so time filters work.
	res, err = eng.Evaluate(ctx, engine.Request{Entity: "disaster", RawQuery: "date=>2008-01-01&c:sort=date"})
	require.NoError(t, err)
	rows := res["rows"].([]map[string]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "Sichuan earthquake", rows[0]["event"])
	assert.Equal(t, "North India floods", rows[1]["event"])

	res, err = eng.Evaluate(ctx, engine.Request{Entity: "region", RawQuery: "continent.name=Asia&c:sort=name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Eastern Asia", "Southern Asia"}, names(res))
}
