package engine

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matthewbaird/genq/internal/censor"
	"github.com/matthewbaird/genq/internal/schema"
)

// resolverCacheSize bounds the structural cache. Entries are tiny and
// the working set is the schema's path vocabulary, so a small cache
// covers steady-state traffic.
const resolverCacheSize = 512

// step is one traversed segment of a field path.
type step struct {
	owner *schema.EntityType
	name  string
	field *schema.Field
	rel   *schema.Relation
}

// resolution is a validated field path. Exactly one of the terminal
// step's field and rel is set, unless the path is an arbitrary name,
// in which case both are nil.
type resolution struct {
	raw       string
	segments  []string
	steps     []step
	arbitrary bool
}

// terminal returns the last traversed step.
func (r *resolution) terminal() step { return r.steps[len(r.steps)-1] }

// terminalRel returns the relation the path ends on, or nil.
func (r *resolution) terminalRel() *schema.Relation { return r.terminal().rel }

// Resolver validates dotted field paths against the schema. Structure
// does not change between requests, so successful schema-only
// resolutions are cached; visibility is checked on every call because
// the censor differs per request.
type Resolver struct {
	registry *schema.Registry
	maxDepth int
	cache    *lru.Cache[string, *resolution]
}

func NewResolver(registry *schema.Registry, maxDepth int) *Resolver {
	cache, _ := lru.New[string, *resolution](resolverCacheSize)
	return &Resolver{registry: registry, maxDepth: maxDepth, cache: cache}
}

// Resolve validates one dotted path rooted at et. Names in arbitrary
// are accepted as single-segment paths on the root entity; they never
// enter the cache.
func (r *Resolver) Resolve(et *schema.EntityType, raw string, cen *censor.Censor, arbitrary map[string]struct{}) (*resolution, error) {
	if _, ok := arbitrary[raw]; ok {
		return &resolution{raw: raw, segments: []string{raw}, arbitrary: true}, nil
	}

	key := et.Name + "\x00" + raw
	if res, ok := r.cache.Get(key); ok {
		for _, s := range res.steps {
			if !cen.IsVisible(s.owner, s.name) {
				extras := arbitrary
				if s.owner != et {
					extras = nil
				}
				return nil, r.unknownField(s.owner, s.name, cen, extras)
			}
		}
		return res, nil
	}

	res, err := r.walk(et, raw, cen, arbitrary)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, res)
	return res, nil
}

func (r *Resolver) walk(et *schema.EntityType, raw string, cen *censor.Censor, arbitrary map[string]struct{}) (*resolution, error) {
	segments := strings.Split(raw, ".")
	if len(segments)-1 > r.maxDepth {
		return nil, &FieldDepthError{Field: raw, MaxDepth: r.maxDepth}
	}

	// Arbitrary names exist on the root entity only, so nested error
	// lists must not mention them.
	extras := func(owner *schema.EntityType) map[string]struct{} {
		if owner == et {
			return arbitrary
		}
		return nil
	}

	res := &resolution{raw: raw, segments: segments}
	cur := et
	for i, seg := range segments {
		last := i == len(segments)-1

		if f := cur.Field(seg); f != nil {
			if !cen.IsVisible(cur, seg) {
				return nil, r.unknownField(cur, seg, cen, extras(cur))
			}
			if !last {
				return nil, &NotARelatedFieldError{
					Field:         seg,
					Table:         cur.Name,
					RelatedFields: cen.Visible(cur, cur.RelationOrder),
				}
			}
			res.steps = append(res.steps, step{owner: cur, name: seg, field: f})
			continue
		}

		rel := cur.Relation(seg)
		if rel == nil {
			return nil, r.unknownField(cur, seg, cen, extras(cur))
		}
		if !cen.IsVisible(cur, seg) {
			return nil, r.unknownField(cur, seg, cen, extras(cur))
		}
		res.steps = append(res.steps, step{owner: cur, name: seg, rel: rel})
		if !last {
			next := r.registry.Entity(rel.Target)
			if next == nil {
				return nil, r.unknownField(cur, seg, cen, extras(cur))
			}
			cur = next
		}
	}
	return res, nil
}

// unknownField builds the error for a missing or censored name,
// listing only what the caller is allowed to see.
func (r *Resolver) unknownField(et *schema.EntityType, name string, cen *censor.Censor, arbitrary map[string]struct{}) error {
	valid := cen.Visible(et, et.AllNames())
	extras := make([]string, 0, len(arbitrary))
	for a := range arbitrary {
		extras = append(extras, a)
	}
	sort.Strings(extras)
	return &UnknownFieldError{Unknown: name, Table: et.Name, ValidFields: append(valid, extras...)}
}
