// Package censor implements field-level visibility for query results.
//
// A Censor combines a process-wide policy with per-request overrides and,
// optionally, a capability check on relation targets. It is consulted by
// the field resolver (a hidden field behaves exactly like an unknown one)
// and by the row serializer.
package censor

import (
	"errors"

	"github.com/matthewbaird/genq/internal/schema"
)

// FieldSet maps an entity name to a list of field names.
type FieldSet map[string][]string

func (fs FieldSet) contains(entity, field string) (listed, declared bool) {
	fields, ok := fs[entity]
	if !ok {
		return false, false
	}
	for _, f := range fields {
		if f == field {
			return true, true
		}
	}
	return false, true
}

// Policy holds public/private field lists. When an entity declares a
// public list, only the listed fields are visible; otherwise a private
// list hides exactly the listed fields. Public lists take precedence.
type Policy struct {
	Public  FieldSet
	Private FieldSet
}

// CapabilityChecker reports whether a user may view an entity type at
// all. It is consulted for relation fields when permission checking is
// enabled.
type CapabilityChecker interface {
	CanView(user, entity string) bool
}

// Censor decides the visibility of every (entity, field) pair for one
// request. The per-request policy is layered over the process-wide one.
type Censor struct {
	registry       *schema.Registry
	base           Policy
	request        Policy
	user           string
	usePermissions bool
	checker        CapabilityChecker
}

// New creates a Censor. A non-empty user is required when usePermissions
// is set.
func New(registry *schema.Registry, base, request Policy, user string, usePermissions bool, checker CapabilityChecker) (*Censor, error) {
	if usePermissions && user == "" {
		return nil, errors.New("censor: a user must be provided when permission checking is enabled")
	}
	if usePermissions && checker == nil {
		return nil, errors.New("censor: a capability checker must be provided when permission checking is enabled")
	}
	return &Censor{
		registry:       registry,
		base:           base,
		request:        request,
		user:           user,
		usePermissions: usePermissions,
		checker:        checker,
	}, nil
}

// Open returns a censor that hides nothing.
func Open(registry *schema.Registry) *Censor {
	c, _ := New(registry, Policy{}, Policy{}, "", false, nil)
	return c
}

// IsVisible reports whether the field may be exposed on the entity.
func (c *Censor) IsVisible(et *schema.EntityType, field string) bool {
	if c.usePermissions {
		if rel := et.Relation(field); rel != nil && !c.checker.CanView(c.user, rel.Target) {
			return false
		}
	}

	if listed, declared := c.request.Public.contains(et.Name, field); declared {
		return listed
	}
	if listed, declared := c.request.Private.contains(et.Name, field); declared {
		return !listed
	}
	if listed, declared := c.base.Public.contains(et.Name, field); declared {
		return listed
	}
	if listed, declared := c.base.Private.contains(et.Name, field); declared {
		return !listed
	}
	return true
}

// Visible filters names down to the visible subset, preserving order.
func (c *Censor) Visible(et *schema.EntityType, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if c.IsVisible(et, n) {
			out = append(out, n)
		}
	}
	return out
}
