package engine

import (
	"strings"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/schema"
)

// modifierGlyphs are the characters that may prefix a filter value to
// select a comparison other than equality. Derived from the table so
// an extended table extends detection.
var modifierGlyphs = func() string {
	var b strings.Builder
	for k := range filterTable {
		if k.glyph != "" && !strings.Contains(b.String(), k.glyph) {
			b.WriteString(k.glyph)
		}
	}
	return b.String()
}()

// filterOp pairs the case-sensitive and case-insensitive forms of one
// table entry. For kinds where case has no meaning both point at the
// same operator.
type filterOp struct {
	cs      backend.Op
	ci      backend.Op
	exclude bool
}

type filterKey struct {
	glyph string
	kind  schema.Kind
}

// filterTable maps a modifier and the parsed value's kind to backend
// operators. Absent pairs are invalid; notably floats have no equality
// row, so an exact float match must be phrased as a bounded range.
var filterTable = map[filterKey]filterOp{
	{"", schema.KindString}:  {cs: backend.OpEq, ci: backend.OpIEq},
	{"!", schema.KindString}: {cs: backend.OpEq, ci: backend.OpIEq, exclude: true},
	{">", schema.KindString}: {cs: backend.OpGt, ci: backend.OpGt},
	{"[", schema.KindString}: {cs: backend.OpGte, ci: backend.OpGte},
	{"<", schema.KindString}: {cs: backend.OpLt, ci: backend.OpLt},
	{"]", schema.KindString}: {cs: backend.OpLte, ci: backend.OpLte},
	{"^", schema.KindString}: {cs: backend.OpStartsWith, ci: backend.OpIStartsWith},
	{"$", schema.KindString}: {cs: backend.OpEndsWith, ci: backend.OpIEndsWith},
	{"*", schema.KindString}: {cs: backend.OpContains, ci: backend.OpIContains},
	{"~", schema.KindString}: {cs: backend.OpContains, ci: backend.OpIContains, exclude: true},

	{"", schema.KindInt}:  {cs: backend.OpEq, ci: backend.OpEq},
	{"!", schema.KindInt}: {cs: backend.OpEq, ci: backend.OpEq, exclude: true},
	{">", schema.KindInt}: {cs: backend.OpGt, ci: backend.OpGt},
	{"[", schema.KindInt}: {cs: backend.OpGte, ci: backend.OpGte},
	{"<", schema.KindInt}: {cs: backend.OpLt, ci: backend.OpLt},
	{"]", schema.KindInt}: {cs: backend.OpLte, ci: backend.OpLte},

	{"!", schema.KindFloat}: {cs: backend.OpEq, ci: backend.OpEq, exclude: true},
	{">", schema.KindFloat}: {cs: backend.OpGt, ci: backend.OpGt},
	{"[", schema.KindFloat}: {cs: backend.OpGte, ci: backend.OpGte},
	{"<", schema.KindFloat}: {cs: backend.OpLt, ci: backend.OpLt},
	{"]", schema.KindFloat}: {cs: backend.OpLte, ci: backend.OpLte},

	{"", schema.KindBool}:  {cs: backend.OpEq, ci: backend.OpEq},
	{"!", schema.KindBool}: {cs: backend.OpEq, ci: backend.OpEq, exclude: true},

	{"", schema.KindTime}:  {cs: backend.OpEq, ci: backend.OpEq},
	{"!", schema.KindTime}: {cs: backend.OpEq, ci: backend.OpEq, exclude: true},
	{">", schema.KindTime}: {cs: backend.OpGt, ci: backend.OpGt},
	{"[", schema.KindTime}: {cs: backend.OpGte, ci: backend.OpGte},
	{"<", schema.KindTime}: {cs: backend.OpLt, ci: backend.OpLt},
	{"]", schema.KindTime}: {cs: backend.OpLte, ci: backend.OpLte},

	{"", schema.KindUUID}:  {cs: backend.OpEq, ci: backend.OpEq},
	{"!", schema.KindUUID}: {cs: backend.OpEq, ci: backend.OpEq, exclude: true},
}

// filterSpec is a compiled filter. The operator pair is resolved
// against the c:case flag in effect when the filter is pushed; a
// later c:case leaves earlier filters untouched.
type filterSpec struct {
	path  []string
	op    filterOp
	value any
}

// compileFilter strips the modifier glyph, parses the remaining text
// and validates the combination against the table.
func compileFilter(path []string, raw string, parsers []Parser) (*filterSpec, error) {
	glyph := ""
	rest := raw
	if raw != "" && strings.ContainsAny(raw[:1], modifierGlyphs) {
		glyph, rest = raw[:1], raw[1:]
	}

	value := parse(parsers, rest)

	if value == nil {
		if glyph != "" && glyph != "!" {
			return nil, &SearchModifierError{Modifier: glyph, Value: rest, Type: "null"}
		}
		return &filterSpec{
			path:  path,
			op:    filterOp{cs: backend.OpEq, ci: backend.OpEq, exclude: glyph == "!"},
			value: nil,
		}, nil
	}

	op, ok := filterTable[filterKey{glyph: glyph, kind: kindOf(value)}]
	if !ok {
		return nil, &SearchModifierError{Modifier: glyph, Value: rest, Type: kindOf(value).String()}
	}
	return &filterSpec{path: path, op: op, value: value}, nil
}

// predicate resolves the operator pair for the query's case setting.
func (f *filterSpec) predicate(caseSensitive bool) backend.Predicate {
	op := f.op.cs
	if !caseSensitive {
		op = f.op.ci
	}
	return backend.Predicate{Path: f.path, Op: op, Value: f.value, Exclude: f.op.exclude}
}
