package engine

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/genq/internal/backend"
)

// aggregationFuncs maps the query-string function names to backend
// aggregation functions.
var aggregationFuncs = map[string]backend.Func{
	"count":  backend.FuncCount,
	"max":    backend.FuncMax,
	"min":    backend.FuncMin,
	"avg":    backend.FuncAvg,
	"sum":    backend.FuncSum,
	"stddev": backend.FuncStdDev,
	"var":    backend.FuncVar,
}

const validFuncNames = "[avg, count, max, min, stddev, sum, var]"

// aggregateSpec is a parsed c:aggregate entry, computed at evaluation
// over the filtered, unsliced row set.
type aggregateSpec struct {
	To   string
	Fn   backend.Func
	Path []string
}

// annotateCmd registers per-row aggregations. The target name becomes
// usable everywhere a field name is, including in filters that appear
// earlier in the query string.
func (qc *Context) annotateCmd(field string, values []string) error {
	for _, raw := range splitList(values) {
		sub, err := parseSubquery(raw, qc.eng.opts.SubquerySepFields, qc.eng.opts.SubquerySepValues)
		if err != nil {
			return &InvalidCommandError{Command: field, Message: err.Error()}
		}

		res, fn, to, err := qc.aggregationArgs(field, sub)
		if err != nil {
			return err
		}

		preds, err := qc.annotationFilters(field, sub)
		if err != nil {
			return err
		}

		delayed := false
		switch lastValue(sub, "delayed") {
		case "", "0":
		case "1":
			delayed = true
		default:
			return &InvalidCommandError{Command: field, Message: "'delayed' argument must be '0' or '1'"}
		}

		qc.Arbitrary[to] = struct{}{}
		qc.Query.AddAnnotation(backend.Annotation{
			Path:    res.segments,
			As:      to,
			Fn:      fn,
			Filters: preds,
			Delayed: delayed,
		})
	}
	return nil
}

// aggregateCmd registers whole-result aggregations, one envelope key
// per entry.
func (qc *Context) aggregateCmd(field string, values []string) error {
	for _, raw := range splitList(values) {
		sub, err := parseSubquery(raw, qc.eng.opts.SubquerySepFields, qc.eng.opts.SubquerySepValues)
		if err != nil {
			return &InvalidCommandError{Command: field, Message: err.Error()}
		}

		res, fn, to, err := qc.aggregationArgs(field, sub)
		if err != nil {
			return err
		}
		qc.aggregates = append(qc.aggregates, aggregateSpec{To: to, Fn: fn, Path: res.segments})
	}
	return nil
}

// aggregationArgs validates the field, func and to keys shared by
// c:annotate and c:aggregate.
func (qc *Context) aggregationArgs(command string, sub []Param) (*resolution, backend.Func, string, error) {
	if !hasKey(sub, "field") {
		return nil, 0, "", &InvalidCommandError{Command: command, Message: "'field' argument is missing"}
	}
	res, err := qc.resolve(lastValue(sub, "field"))
	if err != nil {
		return nil, 0, "", err
	}

	if !hasKey(sub, "func") {
		return nil, 0, "", &InvalidCommandError{Command: command, Message: "'func' argument is missing"}
	}
	name := lastValue(sub, "func")
	fn, ok := aggregationFuncs[name]
	if !ok {
		return nil, 0, "", &InvalidCommandError{
			Command: command,
			Message: fmt.Sprintf("unknown function '%s', valid functions are %s", name, validFuncNames),
		}
	}

	if !hasKey(sub, "to") {
		return nil, 0, "", &InvalidCommandError{Command: command, Message: "'to' argument is missing"}
	}
	to := lastValue(sub, "to")
	if !isIdentifier(to) {
		return nil, 0, "", &InvalidCommandError{
			Command: command,
			Message: fmt.Sprintf(
				"'to' value isn't a valid identifier ('%s'). Valid identifiers can use uppercase "+
					"and lowercase letters 'A' through 'Z', the underscore '_' and (except for "+
					"the first character) the digits '0' through '9'",
				to,
			),
		}
	}
	if err := qc.claimTarget(command, to); err != nil {
		return nil, 0, "", err
	}
	return res, fn, to, nil
}

// claimTarget refuses a target name that clashes with a schema field
// or with another annotation or aggregation of the same request.
func (qc *Context) claimTarget(command, to string) error {
	inUse := &InvalidCommandError{
		Command: command,
		Message: fmt.Sprintf("'to' value ('%s') is already used by a field", to),
	}
	if _, err := qc.eng.resolver.Resolve(qc.Entity, to, qc.Censor, nil); err == nil {
		return inUse
	}
	if _, ok := qc.claimed[to]; ok {
		return inUse
	}
	qc.claimed[to] = struct{}{}
	return nil
}

// annotationFilters compiles the origin-rooted filters of a c:annotate
// entry.
func (qc *Context) annotationFilters(command string, sub []Param) ([]backend.Predicate, error) {
	var preds []backend.Predicate
	for _, f := range valuesOf(sub, "filters") {
		key, value, found := strings.Cut(f, "=")
		if !found {
			return nil, &InvalidCommandError{
				Command: command,
				Message: fmt.Sprintf("filters must contain an equal '=', received '%s'", f),
			}
		}
		res, err := qc.resolve(key)
		if err != nil {
			return nil, err
		}
		spec, err := compileFilter(res.segments, value, qc.eng.opts.Parsers)
		if err != nil {
			return nil, err
		}
		preds = append(preds, spec.predicate(qc.Case))
	}
	return preds, nil
}

func hasKey(params []Param, key string) bool {
	for _, p := range params {
		if p.Field == key {
			return true
		}
	}
	return false
}

func valuesOf(params []Param, key string) []string {
	for _, p := range params {
		if p.Field == key {
			return p.Values
		}
	}
	return nil
}
