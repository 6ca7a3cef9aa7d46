package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/schema"
)

// JoinSpec describes one expanded relation. Joins form a tree: a
// nested join like region.countries creates an implicit parent for
// region that serializes nothing but its expanded children.
type JoinSpec struct {
	Relation string
	Target   *schema.EntityType
	ToMany   bool

	Show    []string
	Hide    []string
	Start   int
	Limit   int
	Sort    []backend.SortKey
	Filters []backend.Predicate

	Children map[string]*JoinSpec
	implicit bool
}

// joinCmd parses c:join values and merges them into the context's join
// tree. Show, hide, sort and filters inside a join are rooted at the
// joined entity, not at the queried one.
func (qc *Context) joinCmd(field string, values []string) error {
	type pending struct {
		path []string
		spec *JoinSpec
	}
	var joins []pending

	for _, raw := range splitList(values) {
		sub, err := parseSubquery(raw, qc.eng.opts.SubquerySepFields, qc.eng.opts.SubquerySepValues)
		if err != nil {
			return &InvalidCommandError{Command: field, Message: err.Error()}
		}
		if !hasKey(sub, "field") {
			return &InvalidCommandError{Command: field, Message: "'field' argument is missing"}
		}

		pathRaw := lastValue(sub, "field")
		res, err := qc.resolve(pathRaw)
		if err != nil {
			return err
		}
		rel := res.terminalRel()
		if rel == nil {
			owner := res.terminal().owner
			return &NotARelatedFieldError{
				Field:         pathRaw,
				Table:         owner.Name,
				RelatedFields: qc.Censor.Visible(owner, owner.RelationOrder),
			}
		}
		target := qc.eng.registry.Entity(rel.Target)

		spec := &JoinSpec{
			Relation: res.segments[len(res.segments)-1],
			Target:   target,
			ToMany:   rel.ToMany,
			Children: make(map[string]*JoinSpec),
		}

		for _, f := range valuesOf(sub, "show") {
			if _, err := qc.resolveAt(target, f); err != nil {
				return err
			}
			spec.Show = append(spec.Show, f)
		}
		for _, f := range valuesOf(sub, "hide") {
			if _, err := qc.resolveAt(target, f); err != nil {
				return err
			}
			spec.Hide = append(spec.Hide, f)
		}

		if spec.Start, err = joinInt(field, sub, "start"); err != nil {
			return err
		}
		if spec.Limit, err = joinInt(field, sub, "limit"); err != nil {
			return err
		}

		for _, f := range valuesOf(sub, "sort") {
			desc := strings.HasPrefix(f, "-")
			sres, err := qc.resolveAt(target, strings.TrimPrefix(f, "-"))
			if err != nil {
				return err
			}
			spec.Sort = append(spec.Sort, backend.SortKey{Path: sres.segments, Desc: desc})
		}

		for _, f := range valuesOf(sub, "filters") {
			key, value, found := strings.Cut(f, "=")
			if !found {
				return &InvalidCommandError{
					Command: field,
					Message: fmt.Sprintf("filters must contain an equal '=', received '%s'", f),
				}
			}
			fres, err := qc.resolveAt(target, key)
			if err != nil {
				return err
			}
			fspec, err := compileFilter(fres.segments, value, qc.eng.opts.Parsers)
			if err != nil {
				return err
			}
			spec.Filters = append(spec.Filters, fspec.predicate(qc.Case))
		}

		joins = append(joins, pending{path: res.segments, spec: spec})
	}

	// Shallow joins first, so an explicit parent is in place before a
	// deeper join would create an implicit one.
	sort.SliceStable(joins, func(i, j int) bool {
		return len(joins[i].path) < len(joins[j].path)
	})
	for _, j := range joins {
		qc.addJoin(j.path, j.spec)
	}
	return nil
}

// addJoin inserts a spec at its path, creating implicit intermediaries
// for the traversed relations. An explicit spec replaces an implicit
// one at the same node but adopts its children.
func (qc *Context) addJoin(path []string, spec *JoinSpec) {
	children := qc.joins
	cur := qc.Entity
	for _, seg := range path[:len(path)-1] {
		child, ok := children[seg]
		if !ok {
			rel := cur.Relation(seg)
			child = &JoinSpec{
				Relation: seg,
				Target:   qc.eng.registry.Entity(rel.Target),
				ToMany:   rel.ToMany,
				Children: make(map[string]*JoinSpec),
				implicit: true,
			}
			children[seg] = child
		}
		children = child.Children
		cur = child.Target
	}

	last := path[len(path)-1]
	if existing, ok := children[last]; ok {
		for name, child := range existing.Children {
			if _, taken := spec.Children[name]; !taken {
				spec.Children[name] = child
			}
		}
	}
	children[last] = spec
}

// visibleFields lists the names a join serializes, in schema order.
// Implicit intermediaries expose only their expanded children.
func (j *JoinSpec) visibleFields(qc *Context) []string {
	if j.implicit {
		names := make([]string, 0, len(j.Children))
		for _, name := range j.Target.RelationOrder {
			if _, ok := j.Children[name]; ok {
				names = append(names, name)
			}
		}
		return names
	}
	if j.Show != nil {
		return qc.Censor.Visible(j.Target, j.Show)
	}
	hidden := make(map[string]struct{}, len(j.Hide))
	for _, h := range j.Hide {
		hidden[h] = struct{}{}
	}
	var names []string
	for _, name := range qc.Censor.Visible(j.Target, j.Target.AllNames()) {
		if _, ok := hidden[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}

func (qc *Context) resolveAt(et *schema.EntityType, raw string) (*resolution, error) {
	return qc.eng.resolver.Resolve(et, raw, qc.Censor, nil)
}

func joinInt(command string, sub []Param, key string) (int, error) {
	raw := lastValue(sub, key)
	if raw == "" && !hasKey(sub, key) {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if !isDigits(raw) || err != nil {
		return 0, &InvalidCommandError{
			Command: command,
			Message: fmt.Sprintf("'%s' value must be a non-negative integer (received '%s')", key, raw),
		}
	}
	return n, nil
}
