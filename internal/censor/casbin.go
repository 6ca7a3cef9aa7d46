package censor

import (
	"log"

	"github.com/casbin/casbin/v3"
)

// EnforcerChecker adapts a casbin enforcer to the CapabilityChecker
// interface. Requests are modeled as (user, entity, "view").
type EnforcerChecker struct {
	enforcer *casbin.Enforcer
}

// NewEnforcerChecker wraps an existing enforcer.
func NewEnforcerChecker(e *casbin.Enforcer) *EnforcerChecker {
	return &EnforcerChecker{enforcer: e}
}

// CanView reports whether the user holds the view capability on the
// entity type. Enforcement errors deny access and are logged.
func (c *EnforcerChecker) CanView(user, entity string) bool {
	ok, err := c.enforcer.Enforce(user, entity, "view")
	if err != nil {
		log.Printf("censor: enforce(%s, %s, view): %v", user, entity, err)
		return false
	}
	return ok
}
