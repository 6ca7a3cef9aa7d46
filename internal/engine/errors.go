package engine

import (
	"fmt"
	"strings"
)

// Error is implemented by every failure the engine reports to clients.
// Code identifies the failure class in the response envelope and
// Details lists the structured fields merged into it alongside the
// message.
type Error interface {
	error
	Code() string
	Details() map[string]any
}

// SearchModifierError reports a filter whose modifier is not valid for
// the value's type, for instance an equality test on a float.
type SearchModifierError struct {
	Modifier string
	Value    string
	Type     string
}

func (e *SearchModifierError) Code() string { return "INVALID_SEARCH_MODIFIER" }

func (e *SearchModifierError) Details() map[string]any {
	return map[string]any{"modifier": e.Modifier, "value": e.Value, "type": e.Type}
}

func (e *SearchModifierError) Error() string {
	return fmt.Sprintf(
		"Search modifier '%s' cannot be used on type '%s' (type was extrapolated from value '%s')",
		e.Modifier, e.Type, e.Value,
	)
}

// UnknownFieldError reports a field name that does not exist on the
// entity. Censored fields count as nonexistent and the valid list is
// censored too, so the error cannot leak hidden names.
type UnknownFieldError struct {
	Unknown     string
	Table       string
	ValidFields []string
}

func (e *UnknownFieldError) Code() string { return "UNKNOWN_FIELD" }

func (e *UnknownFieldError) Details() map[string]any {
	return map[string]any{"unknown": e.Unknown, "table": e.Table, "valid_fields": e.ValidFields}
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf(
		"Unknown field '%s' in table '%s', valid fields are [%s]",
		e.Unknown, e.Table, strings.Join(e.ValidFields, ", "),
	)
}

// NotARelatedFieldError reports a scalar field used where a relation
// was required, either mid-path or as a join target.
type NotARelatedFieldError struct {
	Field         string
	Table         string
	RelatedFields []string
}

func (e *NotARelatedFieldError) Code() string { return "NOT_A_RELATED_FIELD" }

func (e *NotARelatedFieldError) Details() map[string]any {
	return map[string]any{"field": e.Field, "table": e.Table, "related_fields": e.RelatedFields}
}

func (e *NotARelatedFieldError) Error() string {
	return fmt.Sprintf(
		"Field '%s' in table '%s' is not a related field, related fields are [%s]",
		e.Field, e.Table, strings.Join(e.RelatedFields, ", "),
	)
}

// FieldDepthError reports a field path crossing more relations than
// the engine allows.
type FieldDepthError struct {
	Field    string
	MaxDepth int
}

func (e *FieldDepthError) Code() string { return "FIELD_DEPTH_ERROR" }

func (e *FieldDepthError) Details() map[string]any {
	return map[string]any{"field": e.Field, "max_depth": e.MaxDepth}
}

func (e *FieldDepthError) Error() string {
	return fmt.Sprintf(
		"Field '%s' exceed the allowed depth of related field (%d)",
		e.Field, e.MaxDepth,
	)
}

// InvalidCommandError reports a malformed or misused command.
type InvalidCommandError struct {
	Command string
	Message string
}

func (e *InvalidCommandError) Code() string { return "INVALID_COMMAND_ERROR" }

func (e *InvalidCommandError) Details() map[string]any {
	return map[string]any{"command": e.Command}
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("Invalid command '%s': %s", e.Command, e.Message)
}
