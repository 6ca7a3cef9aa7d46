// Package engine compiles URL query strings into backend queries and
// serializes the results. A query string is a sequence of filters
// (field=value with optional modifier) and commands (c:sort, c:join,
// c:annotate, ...) applied in encounter order against a schema-checked
// entity.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/censor"
	"github.com/matthewbaird/genq/internal/schema"
)

var tracer = otel.Tracer("genq/engine")

const (
	DefaultLimit  = 10
	DefaultMax    = 200
	DefaultDepth  = 10
	CommandPrefix = "c:"
)

// Options tunes one Engine. Zero values take the package defaults; set
// DefaultLimit to a negative value to disable the implicit limit.
type Options struct {
	DefaultLimit      int
	MaxLimit          int
	MaxDepth          int
	CommandPrefix     string
	SubquerySepFields string
	SubquerySepValues string
	Parsers           []Parser

	// Policy is the process-wide visibility policy. Requests may layer
	// their own on top.
	Policy         censor.Policy
	UsePermissions bool
	Checker        censor.CapabilityChecker
}

func (o *Options) withDefaults() {
	if o.DefaultLimit == 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.MaxLimit == 0 {
		o.MaxLimit = DefaultMax
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultDepth
	}
	if o.CommandPrefix == "" {
		o.CommandPrefix = CommandPrefix
	}
	if o.SubquerySepFields == "" {
		o.SubquerySepFields = "|"
	}
	if o.SubquerySepValues == "" {
		o.SubquerySepValues = "'"
	}
	if o.Parsers == nil {
		o.Parsers = DefaultParsers()
	}
}

// Request is one query to evaluate. Policy adds request-scoped
// visibility restrictions over the engine's own.
type Request struct {
	Entity   string
	RawQuery string
	User     string
	Policy   censor.Policy
}

// Engine evaluates query strings against a schema and a store.
type Engine struct {
	registry *schema.Registry
	store    backend.Store
	resolver *Resolver
	opts     Options
}

func New(registry *schema.Registry, store backend.Store, opts Options) (*Engine, error) {
	opts.withDefaults()
	if opts.UsePermissions && opts.Checker == nil {
		return nil, errors.New("engine: permission checking requires a capability checker")
	}
	return &Engine{
		registry: registry,
		store:    store,
		resolver: NewResolver(registry, opts.MaxDepth),
		opts:     opts,
	}, nil
}

// Registry exposes the schema, for surfaces that describe entities.
func (e *Engine) Registry() *schema.Registry { return e.registry }

// Evaluate runs one request and returns the result envelope. Request
// failures are reported inside the envelope with status=false; the
// returned error is reserved for an unknown entity.
func (e *Engine) Evaluate(ctx context.Context, req Request) (map[string]any, error) {
	et := e.registry.Entity(req.Entity)
	if et == nil {
		return nil, fmt.Errorf("engine: unknown entity %q", req.Entity)
	}

	ctx, span := tracer.Start(ctx, "engine.evaluate", trace.WithAttributes(
		attribute.String("entity", req.Entity),
	))
	defer span.End()

	start := time.Now()
	result := e.run(ctx, et, req, start)
	span.SetAttributes(attribute.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	if rows, ok := result["rows"].([]map[string]any); ok {
		span.SetAttributes(attribute.Int("row_count", len(rows)))
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, et *schema.EntityType, req Request, start time.Time) (result map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[engine] panic evaluating %s?%s: %v", et.Name, req.RawQuery, r)
			result = unknownEnvelope()
		}
	}()

	cen, err := censor.New(e.registry, e.opts.Policy, req.Policy, req.User, e.opts.UsePermissions, e.opts.Checker)
	if err != nil {
		return e.envelope(et, err)
	}
	qc, err := e.newContext(et, cen)
	if err != nil {
		return e.envelope(et, err)
	}

	if err := qc.apply(parseQueryString(req.RawQuery)); err != nil {
		return e.envelope(et, err)
	}
	result, err = qc.evaluateResult(ctx)
	if err != nil {
		return e.envelope(et, err)
	}
	if qc.IncludeTime {
		result["time"] = time.Since(start).Seconds()
	}
	return result
}

func (e *Engine) newContext(et *schema.EntityType, cen *censor.Censor) (*Context, error) {
	q, err := e.store.Query(et.Name)
	if err != nil {
		return nil, err
	}
	return &Context{
		eng:       e,
		Entity:    et,
		Censor:    cen,
		Query:     q,
		Case:      true,
		Evaluated: true,
		Arbitrary: make(map[string]struct{}),
		delayed:   make(map[string]struct{}),
		claimed:   make(map[string]struct{}),
		joins:     make(map[string]*JoinSpec),
	}, nil
}

// envelope maps a failure to the error payload. Engine errors keep
// their structured fields; everything else is logged and reported with
// a fixed message so internals never reach the caller.
func (e *Engine) envelope(et *schema.EntityType, err error) map[string]any {
	var qerr Error
	if errors.As(err, &qerr) {
		env := map[string]any{
			"status":  false,
			"code":    qerr.Code(),
			"message": qerr.Error(),
		}
		for k, v := range qerr.Details() {
			env[k] = v
		}
		return env
	}

	log.Printf("[engine] error evaluating %s: %v", et.Name, err)
	return unknownEnvelope()
}

func unknownEnvelope() map[string]any {
	return map[string]any{
		"status":  false,
		"code":    "UNKNOWN",
		"message": "An unknown error occurred, please contact the administrator.",
	}
}
