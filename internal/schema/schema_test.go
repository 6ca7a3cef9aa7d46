package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register(&EntityType{
		Name: "city",
		Fields: map[string]*Field{
			"id":   {Name: "id", Kind: KindInt},
			"name": {Name: "name", Kind: KindString},
		},
		Relations: map[string]*Relation{
			"country": {Name: "country", Target: "country"},
		},
	})

	et := r.Entity("city")
	require.NotNil(t, et)
	assert.Equal(t, "id", et.PrimaryKey)
	assert.Equal(t, []string{"id", "name"}, et.FieldOrder, "derived order is sorted")
	assert.Equal(t, []string{"country"}, et.RelationOrder)
}

func TestRegisterKeepsDeclaredOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&EntityType{
		Name: "city",
		Fields: map[string]*Field{
			"id":   {Name: "id", Kind: KindInt},
			"name": {Name: "name", Kind: KindString},
		},
		FieldOrder: []string{"name", "id"},
	})

	assert.Equal(t, []string{"name", "id"}, r.Entity("city").FieldOrder)
}

func TestAllNames(t *testing.T) {
	r := NewRegistry()
	r.Register(&EntityType{
		Name: "city",
		Fields: map[string]*Field{
			"id": {Name: "id", Kind: KindInt},
		},
		Relations: map[string]*Relation{
			"country": {Name: "country", Target: "country"},
		},
	})

	et := r.Entity("city")
	assert.Equal(t, []string{"id", "country"}, et.AllNames())
	assert.NotNil(t, et.Field("id"))
	assert.Nil(t, et.Field("country"))
	assert.NotNil(t, et.Relation("country"))
}

func TestEntityNamesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&EntityType{Name: "b"})
	r.Register(&EntityType{Name: "a"})

	assert.Equal(t, []string{"b", "a"}, r.EntityNames())
	assert.Nil(t, r.Entity("c"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "uuid", KindUUID.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
