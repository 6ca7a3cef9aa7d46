package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/censor"
	"github.com/matthewbaird/genq/internal/schema"
)

// evaluateResult materializes the context into the success envelope.
// Count and aggregates always see the filtered set before slicing, and
// are computed even when row materialization is switched off.
func (qc *Context) evaluateResult(ctx context.Context) (map[string]any, error) {
	result := map[string]any{"status": true}

	if !qc.LimitSet && qc.eng.opts.DefaultLimit > 0 {
		qc.Query.SetLimit(qc.eng.opts.DefaultLimit)
	}

	if qc.IncludeCount {
		n, err := qc.Query.Count(ctx)
		if err != nil {
			return nil, err
		}
		result["count"] = n
	}
	for _, agg := range qc.aggregates {
		v, err := qc.Query.Aggregate(ctx, agg.Fn, agg.Path)
		if err != nil {
			return nil, err
		}
		result[agg.To] = v
	}

	if qc.Evaluated {
		recs, err := qc.Query.Execute(ctx)
		if err != nil {
			return nil, err
		}
		fields := qc.visibleFields()
		rows := make([]map[string]any, 0, len(recs))
		for _, rec := range recs {
			row, err := qc.serializeRecord(ctx, rec, qc.Entity, fields, qc.joins)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		result["rows"] = rows
	}
	return result, nil
}

// visibleFields computes the serialized field names of the queried
// entity. An explicit c:show wins over c:hide; otherwise every visible
// schema field minus the hidden ones. Annotation targets are always
// appended; c:hide does not apply to them.
func (qc *Context) visibleFields() []string {
	if qc.show != nil {
		return qc.Censor.Visible(qc.Entity, qc.show)
	}

	names := qc.Censor.Visible(qc.Entity, qc.Entity.AllNames())
	if qc.hide != nil {
		hidden := make(map[string]struct{}, len(qc.hide))
		for _, h := range qc.hide {
			hidden[h] = struct{}{}
		}
		kept := names[:0]
		for _, n := range names {
			if _, ok := hidden[n]; !ok {
				kept = append(kept, n)
			}
		}
		names = kept
	}

	extras := make([]string, 0, len(qc.Arbitrary))
	for a := range qc.Arbitrary {
		extras = append(extras, a)
	}
	sort.Strings(extras)
	return append(names, extras...)
}

// serializeRecord turns one record into a result row. Un-joined
// relations collapse to primary keys; joined ones recurse with the
// join's own visibility, ordering and slicing.
func (qc *Context) serializeRecord(ctx context.Context, rec backend.Record, et *schema.EntityType, fields []string, joins map[string]*JoinSpec) (map[string]any, error) {
	row := make(map[string]any, len(fields))
	for _, name := range fields {
		rel := et.Relation(name)
		if rel == nil {
			v, _ := rec.Field(name)
			row[name] = v
			continue
		}

		join := joins[name]
		if join == nil {
			keys := rec.RelatedKeys(name)
			if rel.ToMany {
				row[name] = keys
			} else if len(keys) > 0 {
				row[name] = keys[0]
			} else {
				row[name] = nil
			}
			continue
		}

		related, err := qc.eng.store.Related(ctx, rec, name, backend.RelatedSpec{
			Filters: join.Filters,
			Sort:    join.Sort,
			Start:   join.Start,
			Limit:   join.Limit,
		})
		if err != nil {
			return nil, err
		}
		sub := join.visibleFields(qc)

		if rel.ToMany {
			rows := make([]map[string]any, 0, len(related))
			for _, r := range related {
				nested, err := qc.serializeRecord(ctx, r, join.Target, sub, join.Children)
				if err != nil {
					return nil, err
				}
				rows = append(rows, nested)
			}
			row[name] = rows
		} else if len(related) > 0 {
			nested, err := qc.serializeRecord(ctx, related[0], join.Target, sub, join.Children)
			if err != nil {
				return nil, err
			}
			row[name] = nested
		} else {
			row[name] = nil
		}
	}
	return row, nil
}

// Serialize renders a single record outside a query, with the same
// shape the row path produces for identical visibility settings.
func (e *Engine) Serialize(ctx context.Context, rec backend.Record, user string) (map[string]any, error) {
	et := e.registry.Entity(rec.Entity())
	if et == nil {
		return nil, fmt.Errorf("engine: unknown entity %q", rec.Entity())
	}
	cen, err := censor.New(e.registry, e.opts.Policy, censor.Policy{}, user, e.opts.UsePermissions, e.opts.Checker)
	if err != nil {
		return nil, err
	}
	qc, err := e.newContext(et, cen)
	if err != nil {
		return nil, err
	}
	return qc.serializeRecord(ctx, rec, et, qc.visibleFields(), qc.joins)
}
