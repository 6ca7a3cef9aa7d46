package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/censor"
	"github.com/matthewbaird/genq/internal/schema"
)

// Context carries the state of one request through the command
// pipeline. Commands mutate it in the order their parameters first
// appear in the query string; evaluation then reads the final state.
type Context struct {
	eng    *Engine
	Entity *schema.EntityType
	Censor *censor.Censor
	Query  backend.Query

	Case         bool
	Evaluated    bool
	Sliced       bool
	LimitSet     bool
	Limit        int
	IncludeCount bool
	IncludeTime  bool

	// Arbitrary holds annotation target names. They are registered in
	// a pre-pass over the whole query string so that filters and other
	// commands may mention an annotation before its c:annotate pair.
	Arbitrary map[string]struct{}
	delayed   map[string]struct{}
	claimed   map[string]struct{}

	show       []string
	hide       []string
	aggregates []aggregateSpec
	joins      map[string]*JoinSpec
}

type commandFunc func(qc *Context, field string, values []string) error

var commands = map[string]commandFunc{
	"case":      (*Context).caseCmd,
	"annotate":  (*Context).annotateCmd,
	"aggregate": (*Context).aggregateCmd,
	"count":     (*Context).countCmd,
	"distinct":  (*Context).distinctCmd,
	"evaluate":  (*Context).evaluateCmd,
	"join":      (*Context).joinCmd,
	"show":      (*Context).showCmd,
	"hide":      (*Context).hideCmd,
	"sort":      (*Context).sortCmd,
	"start":     (*Context).startCmd,
	"limit":     (*Context).limitCmd,
	"time":      (*Context).timeCmd,
}

// apply dispatches every parameter to its command, or to filtering for
// plain field names.
func (qc *Context) apply(params []Param) error {
	qc.preregister(params)

	prefix := qc.eng.opts.CommandPrefix
	for _, p := range params {
		if !strings.HasPrefix(p.Field, prefix) {
			if err := qc.filterCmd(p.Field, p.Values); err != nil {
				return err
			}
			continue
		}
		cmd, ok := commands[strings.TrimPrefix(p.Field, prefix)]
		if !ok {
			return &InvalidCommandError{Command: p.Field, Message: "unknown command"}
		}
		if err := cmd(qc, p.Field, p.Values); err != nil {
			return err
		}
	}
	return nil
}

// preregister records every annotation target name before dispatch.
// Parse failures are ignored here; the annotate command reports them
// properly when its turn comes.
func (qc *Context) preregister(params []Param) {
	annotate := qc.eng.opts.CommandPrefix + "annotate"
	for _, p := range params {
		if p.Field != annotate {
			continue
		}
		for _, raw := range splitList(p.Values) {
			sub, err := parseSubquery(raw, qc.eng.opts.SubquerySepFields, qc.eng.opts.SubquerySepValues)
			if err != nil {
				continue
			}
			to := lastValue(sub, "to")
			if !isIdentifier(to) {
				continue
			}
			qc.Arbitrary[to] = struct{}{}
			if lastValue(sub, "delayed") == "1" {
				qc.delayed[to] = struct{}{}
			}
		}
	}
}

// filterCmd handles every non-command parameter as a conjunction of
// filters on one field.
func (qc *Context) filterCmd(field string, values []string) error {
	if qc.Sliced {
		return &InvalidCommandError{
			Command: field,
			Message: "you cannot filter on fields after 'c:start' or 'c:limit'",
		}
	}
	if _, ok := qc.delayed[field]; ok {
		return &InvalidCommandError{
			Command: field,
			Message: fmt.Sprintf("'%s' is a delayed annotation and cannot be used in filters", field),
		}
	}

	res, err := qc.resolve(field)
	if err != nil {
		return err
	}
	for _, raw := range splitList(values) {
		spec, err := compileFilter(res.segments, raw, qc.eng.opts.Parsers)
		if err != nil {
			return err
		}
		qc.Query.AddPredicate(spec.predicate(qc.Case))
	}
	return nil
}

func (qc *Context) caseCmd(field string, values []string) error {
	on, err := boolValue(field, values)
	if err != nil {
		return err
	}
	qc.Case = on
	return nil
}

func (qc *Context) countCmd(field string, values []string) error {
	on, err := boolValue(field, values)
	if err != nil {
		return err
	}
	qc.IncludeCount = on
	return nil
}

func (qc *Context) distinctCmd(field string, values []string) error {
	on, err := boolValue(field, values)
	if err != nil {
		return err
	}
	if on {
		qc.Query.SetDistinct(true)
	}
	return nil
}

func (qc *Context) evaluateCmd(field string, values []string) error {
	on, err := boolValue(field, values)
	if err != nil {
		return err
	}
	qc.Evaluated = on
	return nil
}

// showCmd replaces the visible-field set. When both c:show and c:hide
// are present, show wins regardless of order.
func (qc *Context) showCmd(field string, values []string) error {
	names := splitList(values)
	for _, f := range names {
		if _, err := qc.resolve(f); err != nil {
			return err
		}
	}
	qc.show = names
	return nil
}

func (qc *Context) hideCmd(field string, values []string) error {
	names := splitList(values)
	for _, f := range names {
		if _, err := qc.resolve(f); err != nil {
			return err
		}
	}
	qc.hide = names
	return nil
}

func (qc *Context) sortCmd(field string, values []string) error {
	if qc.Sliced {
		return &InvalidCommandError{
			Command: field,
			Message: "cannot be used after 'c:start' or 'c:limit'",
		}
	}
	for _, f := range splitList(values) {
		desc := strings.HasPrefix(f, "-")
		name := strings.TrimPrefix(f, "-")
		res, err := qc.resolve(name)
		if err != nil {
			return err
		}
		qc.Query.AddSort(backend.SortKey{Path: res.segments, Desc: desc})
	}
	return nil
}

func (qc *Context) startCmd(field string, values []string) error {
	start, err := intValue(field, values)
	if err != nil {
		return err
	}
	qc.Query.SetOffset(start)
	qc.Sliced = true
	return nil
}

// limitCmd caps the row count. Zero removes the default limit and
// returns every row; anything above the configured maximum is refused.
func (qc *Context) limitCmd(field string, values []string) error {
	limit, err := intValue(field, values)
	if err != nil {
		return err
	}
	if max := qc.eng.opts.MaxLimit; max > 0 && limit > max {
		return &InvalidCommandError{
			Command: field,
			Message: fmt.Sprintf("value cannot be higher than '%d' (received '%d')", max, limit),
		}
	}
	qc.Limit = limit
	qc.LimitSet = true
	qc.Sliced = true
	qc.Query.SetLimit(limit)
	return nil
}

func (qc *Context) timeCmd(field string, values []string) error {
	on, err := boolValue(field, values)
	if err != nil {
		return err
	}
	qc.IncludeTime = on
	return nil
}

func (qc *Context) resolve(raw string) (*resolution, error) {
	return qc.eng.resolver.Resolve(qc.Entity, raw, qc.Censor, qc.Arbitrary)
}

// ── helpers ──

// splitList flattens repeated parameters and their comma separated
// values into one list, so field=a,b&field=c acts like field=a&field=b&field=c.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

// boolValue reads a 0/1 flag; like repeated filters, the last value of
// a repeated flag wins.
func boolValue(command string, values []string) (bool, error) {
	last := values[len(values)-1]
	if !isDigits(last) {
		return false, &InvalidCommandError{
			Command: command,
			Message: fmt.Sprintf("value must be either 0 or 1 (received '%s')", last),
		}
	}
	n, _ := strconv.Atoi(last)
	return n != 0, nil
}

func intValue(command string, values []string) (int, error) {
	last := values[len(values)-1]
	n, err := strconv.Atoi(last)
	if !isDigits(last) || err != nil {
		return 0, &InvalidCommandError{
			Command: command,
			Message: fmt.Sprintf("value must be a non-negative integer (received '%s')", last),
		}
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}

// lastValue returns the final value of a subquery key, or "".
func lastValue(params []Param, key string) string {
	for _, p := range params {
		if p.Field == key {
			return p.Values[len(p.Values)-1]
		}
	}
	return ""
}
