// Package schema provides the entity metadata registry consumed by the
// query engine.
//
// The registry is populated at startup by the embedding service and is
// consumed by the field resolver (validation), the censor (relation
// checks) and the row serializer (relation cardinality). Entity types are
// immutable once registered and safe for concurrent read access.
package schema

import "sort"

// Kind classifies a scalar field for value coercion and operator
// validation.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindUUID
)

// String returns the externally visible type name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// Field describes a single scalar field on an entity.
type Field struct {
	Name     string // query-visible name (snake_case, e.g. "population")
	Kind     Kind   // logical type for operator validation
	Nullable bool
}

// Relation describes a relationship to another entity.
type Relation struct {
	Name     string // query-visible name (snake_case, e.g. "rivers")
	Target   string // target entity name
	ToMany   bool   // false for to-one (single result)
	Nullable bool
}

// EntityType holds the complete metadata for one entity.
type EntityType struct {
	Name          string
	PrimaryKey    string // primary-key field name, usually "id"
	Fields        map[string]*Field
	Relations     map[string]*Relation
	FieldOrder    []string // fields in declaration order
	RelationOrder []string // relations in declaration order
}

// Field returns the scalar field descriptor, or nil.
func (et *EntityType) Field(name string) *Field {
	return et.Fields[name]
}

// Relation returns the relation descriptor, or nil.
func (et *EntityType) Relation(name string) *Relation {
	return et.Relations[name]
}

// AllNames returns every field and relation name in declaration order.
func (et *EntityType) AllNames() []string {
	names := make([]string, 0, len(et.FieldOrder)+len(et.RelationOrder))
	names = append(names, et.FieldOrder...)
	names = append(names, et.RelationOrder...)
	return names
}

// RelationNames returns the relation names in declaration order.
func (et *EntityType) RelationNames() []string {
	names := make([]string, len(et.RelationOrder))
	copy(names, et.RelationOrder)
	return names
}

// Registry holds the schema metadata for all entities.
type Registry struct {
	entities map[string]*EntityType
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*EntityType)}
}

// Register adds an entity type to the registry. The primary key
// defaults to "id"; field and relation order slices are derived from
// the maps, sorted by name, when not provided.
func (r *Registry) Register(et *EntityType) {
	if et.PrimaryKey == "" {
		et.PrimaryKey = "id"
	}
	if et.FieldOrder == nil {
		for name := range et.Fields {
			et.FieldOrder = append(et.FieldOrder, name)
		}
		sort.Strings(et.FieldOrder)
	}
	if et.RelationOrder == nil {
		for name := range et.Relations {
			et.RelationOrder = append(et.RelationOrder, name)
		}
		sort.Strings(et.RelationOrder)
	}
	r.entities[et.Name] = et
	r.order = append(r.order, et.Name)
}

// Entity returns the type for a named entity, or nil if not registered.
func (r *Registry) Entity(name string) *EntityType {
	return r.entities[name]
}

// EntityNames returns all registered entity names in registration order.
func (r *Registry) EntityNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
