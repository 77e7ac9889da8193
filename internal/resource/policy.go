// Package resource implements a protected API server that validates access
// tokens issued by the auth service. Authorization decisions are expressed
// as named policies over the verified token claims.
package resource

import (
	"errors"
	"net/http"

	"github.com/eventwise/eventauth/pkg/httpx"
	"github.com/eventwise/eventauth/pkg/jwtx"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, and tokens
	// without a subject.
	ErrInvalidToken = errors.New("resource: invalid token")

	// ErrExpiredToken is returned for tokens that verify but have expired.
	ErrExpiredToken = errors.New("resource: token expired")

	// ErrInsufficientPolicy is returned when a verified token does not
	// satisfy the requested policy, or the policy name is unknown.
	ErrInsufficientPolicy = errors.New("resource: policy not satisfied")
)

// Policy is a named authorization rule over verified token claims. A policy
// passes when the caller holds at least one of the required roles and at
// least one of the required scopes; empty requirement lists are skipped.
type Policy struct {
	Name string

	AnyRole  []string
	AnyScope []string
}

// Allows reports whether the claims satisfy this policy.
func (p Policy) Allows(c jwtx.Claims) bool {
	if len(p.AnyRole) > 0 {
		ok := false
		for _, role := range p.AnyRole {
			if c.HasRole(role) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if len(p.AnyScope) > 0 {
		ok := false
		for _, scope := range p.AnyScope {
			if c.HasScope(scope) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	return true
}

// PolicySet is a collection of named policies.
type PolicySet map[string]Policy

// DataEventRecordsPolicies are the policies guarding the data event records
// API. The role policies also demand the API's scope claim so tokens issued
// for other resources are rejected outright.
func DataEventRecordsPolicies() PolicySet {
	return PolicySet{
		"admin": {
			Name:     "admin",
			AnyRole:  []string{"dataEventRecords.admin"},
			AnyScope: []string{"dataEventRecordsScope"},
		},
		"user": {
			Name:     "user",
			AnyRole:  []string{"dataEventRecords.user", "dataEventRecords.admin"},
			AnyScope: []string{"dataEventRecordsScope"},
		},
		"dataEventRecords": {
			Name:     "dataEventRecords",
			AnyScope: []string{"dataEventRecordsScope"},
		},
	}
}

// Principal is the verified caller identity produced by a successful
// authorization check.
type Principal struct {
	Subject string
	Claims  jwtx.Claims
}

// Authorizer validates bearer tokens and evaluates named policies over the
// verified claims.
type Authorizer struct {
	Verifier jwtx.Verifier
	Policies PolicySet
}

// Authorize verifies the bearer token, checks its expiry, and evaluates it
// against the named policy. Unknown policy names deny, so a typo in a route
// table fails closed rather than open.
func (a *Authorizer) Authorize(bearer, policyName string) (*Principal, error) {
	claims, err := a.Verifier.Verify(bearer)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	policy, known := a.Policies[policyName]
	if !known || !policy.Allows(claims) {
		return nil, ErrInsufficientPolicy
	}

	return &Principal{Subject: claims.Subject, Claims: claims}, nil
}

// Require returns middleware enforcing the named policy on each request,
// injecting the verified claims into the request context on success.
func (a *Authorizer) Require(policyName string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := httpx.BearerToken(r)
			if !ok {
				httpx.WriteBearerChallenge(w, "missing bearer token")
				return
			}

			principal, err := a.Authorize(bearer, policyName)
			switch {
			case errors.Is(err, ErrExpiredToken):
				httpx.WriteBearerChallenge(w, "token expired")
				return
			case errors.Is(err, ErrInsufficientPolicy):
				writeForbidden(w)
				return
			case err != nil:
				httpx.WriteBearerChallenge(w, "token verification failed")
				return
			}

			ctx := httpx.ContextWithClaims(r.Context(), principal.Claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_scope"))
}
