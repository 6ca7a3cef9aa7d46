package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/schema"
)

func testRegistry() *schema.Registry {
	r := schema.NewRegistry()
	r.Register(&schema.EntityType{
		Name: "author",
		Fields: map[string]*schema.Field{
			"id":   {Name: "id", Kind: schema.KindInt},
			"name": {Name: "name", Kind: schema.KindString},
			"born": {Name: "born", Kind: schema.KindInt, Nullable: true},
		},
		Relations: map[string]*schema.Relation{
			"books": {Name: "books", Target: "book", ToMany: true},
		},
	})
	r.Register(&schema.EntityType{
		Name: "book",
		Fields: map[string]*schema.Field{
			"id":    {Name: "id", Kind: schema.KindInt},
			"title": {Name: "title", Kind: schema.KindString},
			"pages": {Name: "pages", Kind: schema.KindInt},
		},
		Relations: map[string]*schema.Relation{
			"author": {Name: "author", Target: "author"},
		},
	})
	return r
}

func testStore(t *testing.T) *Store {
	t.Helper()
	st := NewStore(testRegistry())

	rows := []struct {
		entity string
		values map[string]any
	}{
		{"author", map[string]any{"id": int64(1), "name": "Woolf", "born": int64(1882), "books": []int64{1, 2}}},
		{"author", map[string]any{"id": int64(2), "name": "Homer", "born": nil, "books": []int64{3}}},
		{"book", map[string]any{"id": int64(1), "title": "Orlando", "pages": int64(336), "author": int64(1)}},
		{"book", map[string]any{"id": int64(2), "title": "The Waves", "pages": int64(297), "author": int64(1)}},
		{"book", map[string]any{"id": int64(3), "title": "Odyssey", "pages": int64(541), "author": int64(2)}},
	}
	for _, r := range rows {
		require.NoError(t, st.Insert(r.entity, r.values))
	}
	return st
}

func titles(t *testing.T, recs []backend.Record) []string {
	t.Helper()
	out := make([]string, len(recs))
	for i, r := range recs {
		v, ok := r.Field("title")
		require.True(t, ok)
		out[i] = v.(string)
	}
	return out
}

func TestInsertValidation(t *testing.T) {
	st := NewStore(testRegistry())

	err := st.Insert("magazine", map[string]any{"id": int64(1)})
	require.Error(t, err)

	err = st.Insert("book", map[string]any{"title": "no key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary key")
}

func TestQueryPredicatesAndSlicing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	q, err := st.Query("book")
	require.NoError(t, err)
	q.AddPredicate(backend.Predicate{Path: []string{"pages"}, Op: backend.OpGt, Value: int64(300)})
	q.AddSort(backend.SortKey{Path: []string{"pages"}, Desc: true})

	recs, err := q.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Odyssey", "Orlando"}, titles(t, recs))

	q.SetOffset(1)
	q.SetLimit(1)
	recs, err = q.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Orlando"}, titles(t, recs))

	// Count ignores slicing.
	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestQueryExcludeKeepsNulls(t *testing.T) {
	st := testStore(t)

	q, err := st.Query("author")
	require.NoError(t, err)
	q.AddPredicate(backend.Predicate{
		Path: []string{"born"}, Op: backend.OpEq, Value: int64(1882), Exclude: true,
	})

	recs, err := q.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	name, _ := recs[0].Field("name")
	assert.Equal(t, "Homer", name)
}

func TestQueryRelationPathExists(t *testing.T) {
	st := testStore(t)

	// Matches when any related leaf does.
	q, err := st.Query("author")
	require.NoError(t, err)
	q.AddPredicate(backend.Predicate{Path: []string{"books", "pages"}, Op: backend.OpLt, Value: int64(300)})

	recs, err := q.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	name, _ := recs[0].Field("name")
	assert.Equal(t, "Woolf", name)
}

func TestQuerySortNullsFirst(t *testing.T) {
	st := testStore(t)

	q, err := st.Query("author")
	require.NoError(t, err)
	q.AddSort(backend.SortKey{Path: []string{"born"}})

	recs, err := q.Execute(context.Background())
	require.NoError(t, err)
	name, _ := recs[0].Field("name")
	assert.Equal(t, "Homer", name)
}

func TestQueryAnnotations(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	q, err := st.Query("author")
	require.NoError(t, err)
	q.AddAnnotation(backend.Annotation{Path: []string{"books"}, As: "book_count", Fn: backend.FuncCount})
	q.AddAnnotation(backend.Annotation{Path: []string{"books", "pages"}, As: "longest", Fn: backend.FuncMax})

	recs, err := q.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	v, ok := recs[0].Field("book_count")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
	v, _ = recs[0].Field("longest")
	assert.Equal(t, int64(336), v)
}

func TestQueryDelayedAnnotationSeesMainFilter(t *testing.T) {
	st := testStore(t)
	pages := backend.Predicate{Path: []string{"books", "pages"}, Op: backend.OpGte, Value: int64(300)}
	ann := backend.Annotation{Path: []string{"books"}, As: "book_count", Fn: backend.FuncCount}

	q, err := st.Query("author")
	require.NoError(t, err)
	q.AddPredicate(pages)
	q.AddAnnotation(ann)

	recs, err := q.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	v, _ := recs[0].Field("book_count")
	assert.Equal(t, int64(2), v, "immediate annotations see every related row")

	ann.Delayed = true
	q, err = st.Query("author")
	require.NoError(t, err)
	q.AddPredicate(pages)
	q.AddAnnotation(ann)

	recs, err = q.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	v, _ = recs[0].Field("book_count")
	assert.Equal(t, int64(1), v, "delayed annotations only see rows the filter kept")
}

func TestQueryAnnotationFilters(t *testing.T) {
	st := testStore(t)

	q, err := st.Query("author")
	require.NoError(t, err)
	q.AddAnnotation(backend.Annotation{
		Path: []string{"books"}, As: "short_books", Fn: backend.FuncCount,
		Filters: []backend.Predicate{
			{Path: []string{"books", "pages"}, Op: backend.OpLt, Value: int64(300)},
		},
	})

	recs, err := q.Execute(context.Background())
	require.NoError(t, err)
	v, _ := recs[0].Field("short_books")
	assert.Equal(t, int64(1), v)
	v, _ = recs[1].Field("short_books")
	assert.Equal(t, int64(0), v)
}

func TestAggregate(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	q, err := st.Query("book")
	require.NoError(t, err)

	sum, err := q.Aggregate(ctx, backend.FuncSum, []string{"pages"})
	require.NoError(t, err)
	assert.Equal(t, int64(1174), sum)

	avg, err := q.Aggregate(ctx, backend.FuncAvg, []string{"pages"})
	require.NoError(t, err)
	assert.InDelta(t, 391.333, avg.(float64), 0.001)

	min, err := q.Aggregate(ctx, backend.FuncMin, []string{"pages"})
	require.NoError(t, err)
	assert.Equal(t, int64(297), min)

	// Null leaves are skipped; an empty input stays null except for
	// count.
	q, err = st.Query("author")
	require.NoError(t, err)
	q.AddPredicate(backend.Predicate{Path: []string{"name"}, Op: backend.OpEq, Value: "Homer"})

	born, err := q.Aggregate(ctx, backend.FuncSum, []string{"born"})
	require.NoError(t, err)
	assert.Nil(t, born)

	n, err := q.Aggregate(ctx, backend.FuncCount, []string{"born"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRelated(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	q, err := st.Query("author")
	require.NoError(t, err)
	recs, err := q.Execute(ctx)
	require.NoError(t, err)
	woolf := recs[0]

	books, err := st.Related(ctx, woolf, "books", backend.RelatedSpec{
		Sort: []backend.SortKey{{Path: []string{"pages"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"The Waves", "Orlando"}, titles(t, books))

	books, err = st.Related(ctx, woolf, "books", backend.RelatedSpec{
		Filters: []backend.Predicate{{Path: []string{"pages"}, Op: backend.OpGt, Value: int64(300)}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Orlando"}, titles(t, books))

	books, err = st.Related(ctx, woolf, "books", backend.RelatedSpec{Start: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"The Waves"}, titles(t, books))

	_, err = st.Related(ctx, woolf, "publisher", backend.RelatedSpec{})
	require.Error(t, err)
}

func TestLink(t *testing.T) {
	st := testStore(t)

	require.NoError(t, st.Link("author", int64(2), "books", int64(1)))
	require.Error(t, st.Link("author", int64(9), "books", int64(1)))

	q, err := st.Query("author")
	require.NoError(t, err)
	q.AddPredicate(backend.Predicate{Path: []string{"name"}, Op: backend.OpEq, Value: "Homer"})
	recs, err := q.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []any{int64(3), int64(1)}, recs[0].RelatedKeys("books"))
}
