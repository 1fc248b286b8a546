package models

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes.
const (
	ScopeRank     = "rank"
	ScopeEntities = "entities"
)

// JWTClaims identifies the calling service. Scope lists the API groups it may use.
type JWTClaims struct {
	Client string   `json:"client"`
	Tier   string   `json:"tier,omitempty"`
	Scope  []string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope. An empty scope list grants everything.
func (c *JWTClaims) HasScope(scope string) bool {
	return len(c.Scope) == 0 || slices.Contains(c.Scope, scope)
}

// RateLimitInfo describes the caller's remaining request budget.
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}
