package engine

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/genq/internal/schema"
)

// Parser attempts to interpret a raw query-string token, reporting
// whether it recognized the value. Parsers run in registration order
// and the first success wins; an unrecognized token stays a string.
type Parser func(raw string) (any, bool)

// DefaultParsers is the standard chain: empty string to null, then
// integers, floats and RFC 3339 style timestamps.
func DefaultParsers() []Parser {
	return []Parser{ParseNull, ParseInt, ParseFloat, ParseDateTime}
}

// ParseNull maps the empty string to a null value.
func ParseNull(raw string) (any, bool) {
	if raw == "" {
		return nil, true
	}
	return nil, false
}

// ParseInt recognizes base-10 integers.
func ParseInt(raw string) (any, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

// ParseFloat recognizes anything strconv.ParseFloat accepts, so it
// also claims plain integers when registered ahead of ParseInt.
func ParseFloat(raw string) (any, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime recognizes common ISO 8601 shapes, with or without a
// time and zone offset.
func ParseDateTime(raw string) (any, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return nil, false
}

// ParseUUID recognizes canonical UUID text. Not part of the default
// chain; register it for schemas with UUID keys.
func ParseUUID(raw string) (any, bool) {
	if len(raw) != 36 {
		return nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return id, true
}

// parse runs the chain over one token.
func parse(parsers []Parser, raw string) any {
	for _, p := range parsers {
		if v, ok := p(raw); ok {
			return v
		}
	}
	return raw
}

// kindOf reports the schema kind of a parsed value. Null is handled
// before this is consulted, so nil only needs a stable answer.
func kindOf(v any) schema.Kind {
	switch v.(type) {
	case nil, string:
		return schema.KindString
	case int64:
		return schema.KindInt
	case float64:
		return schema.KindFloat
	case bool:
		return schema.KindBool
	case time.Time:
		return schema.KindTime
	case uuid.UUID:
		return schema.KindUUID
	}
	return schema.KindString
}
