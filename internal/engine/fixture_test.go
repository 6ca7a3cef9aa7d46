package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/genq/internal/backend/memory"
	"github.com/matthewbaird/genq/internal/schema"
)

// geoRegistry builds the world schema the engine tests query against.
func geoRegistry() *schema.Registry {
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
			"disasters": {Name: "disasters", Target: "disaster", ToMany: true},
		},
		RelationOrder: []string{"region", "rivers", "mountains", "disasters"},
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
		Name: "disaster",
		Fields: map[string]*schema.Field{
			"id":    {Name: "id", Kind: schema.KindInt},
			"event": {Name: "event", Kind: schema.KindString},
			"date":  {Name: "date", Kind: schema.KindTime},
		},
		FieldOrder: []string{"id", "event", "date"},
		Relations: map[string]*schema.Relation{
			"country": {Name: "country", Target: "country"},
		},
		RelationOrder: []string{"country"},
	})
	return r
}

// geoStore populates the fixture. River lengths are chosen so that a
// length>300 filter keeps two of United States' rivers but only one of
// Canada's, which the annotation tests depend on.
func geoStore(t *testing.T, reg *schema.Registry) *memory.Store {
	t.Helper()
	st := memory.NewStore(reg)

	insert := func(entity string, vals map[string]any) {
		require.NoError(t, st.Insert(entity, vals))
	}

	insert("continent", map[string]any{"id": int64(1), "name": "America", "regions": []int64{1, 2}})
	insert("continent", map[string]any{"id": int64(2), "name": "Asia", "regions": []int64{3}})

	insert("region", map[string]any{
		"id": int64(1), "name": "Northern America", "continent": int64(1), "countries": []int64{1, 2},
	})
	insert("region", map[string]any{
		"id": int64(2), "name": "South America", "continent": int64(1), "countries": []int64{3},
	})
	insert("region", map[string]any{
		"id": int64(3), "name": "Eastern Asia", "continent": int64(2), "countries": []int64{4},
	})

	insert("country", map[string]any{
		"id": int64(1), "name": "United States", "area": int64(9833517), "population": int64(331002651),
		"region": int64(1), "rivers": []int64{1, 2}, "mountains": []int64{1}, "disasters": []int64{1},
	})
	insert("country", map[string]any{
		"id": int64(2), "name": "Canada", "area": int64(9984670), "population": int64(37742154),
		"region": int64(1), "rivers": []int64{3, 4}, "mountains": nil, "disasters": nil,
	})
	insert("country", map[string]any{
		"id": int64(3), "name": "Brazil", "area": int64(8515767), "population": int64(212559417),
		"region": int64(2), "rivers": []int64{5}, "mountains": nil, "disasters": nil,
	})
	insert("country", map[string]any{
		"id": int64(4), "name": "China", "area": int64(9596961), "population": int64(1439323776),
		"region": int64(3), "rivers": nil, "mountains": []int64{2}, "disasters": nil,
	})

	insert("river", map[string]any{
		"id": int64(1), "name": "Colorado", "discharge": nil, "length": int64(400),
		"countries": []int64{1},
	})
	insert("river", map[string]any{
		"id": int64(2), "name": "Mississippi", "discharge": int64(16792), "length": int64(500),
		"countries": []int64{1},
	})
	insert("river", map[string]any{
		"id": int64(3), "name": "Fraser", "discharge": int64(3550), "length": int64(100),
		"countries": []int64{2},
	})
	insert("river", map[string]any{
		"id": int64(4), "name": "Yukon", "discharge": int64(6428), "length": int64(400),
		"countries": []int64{2},
	})
	insert("river", map[string]any{
		"id": int64(5), "name": "Tiete", "discharge": int64(2500), "length": int64(100),
		"countries": []int64{3},
	})

	insert("mountain", map[string]any{
		"id": int64(1), "name": "Denali", "height": int64(6190), "countries": []int64{1},
	})
	insert("mountain", map[string]any{
		"id": int64(2), "name": "Everest", "height": int64(8848), "countries": []int64{4},
	})

	insert("disaster", map[string]any{
		"id": int64(1), "event": "Hurricane Katrina",
		"date":    time.Date(2005, 8, 29, 11, 10, 0, 0, time.UTC),
		"country": int64(1),
	})

	return st
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	reg := geoRegistry()
	eng, err := New(reg, geoStore(t, reg), opts)
	require.NoError(t, err)
	return eng
}

// evalOK evaluates a query and requires the transport layer to accept
// it; the envelope may still carry status=false.
func evalOK(t *testing.T, eng *Engine, entity, query string) map[string]any {
	t.Helper()
	res, err := eng.Evaluate(context.Background(), Request{Entity: entity, RawQuery: query})
	require.NoError(t, err)
	return res
}

func resultRows(t *testing.T, res map[string]any) []map[string]any {
	t.Helper()
	require.Equal(t, true, res["status"], "expected a success envelope, got %v", res)
	rows, ok := res["rows"].([]map[string]any)
	require.True(t, ok, "rows missing from envelope %v", res)
	return rows
}

func rowNames(rows []map[string]any) []string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if n, ok := r["name"].(string); ok {
			names = append(names, n)
		}
	}
	return names
}

func requireErrorCode(t *testing.T, res map[string]any, code string) {
	t.Helper()
	require.Equal(t, false, res["status"], "expected an error envelope, got %v", res)
	require.Equal(t, code, res["code"])
}
