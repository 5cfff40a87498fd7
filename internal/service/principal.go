package service

import (
	"strings"

	"github.com/google/uuid"
)

// Principal is an authenticated caller. It is only built from a verified
// token, never from client-supplied ids.
type Principal struct {
	UserID string
	Email  string
}

// normalize rejects an anonymous principal and rewrites a uuid user id in
// its canonical lowercase form so it compares equal to canonical inputs.
func (p Principal) normalize() (Principal, error) {
	id := strings.TrimSpace(p.UserID)
	if id == "" {
		return p, newError(ErrUnauthorized, "caller identity is required")
	}
	if parsed, err := uuid.Parse(id); err == nil {
		id = parsed.String()
	}
	p.UserID = id
	return p, nil
}

// canonicalID parses s as a uuid in any accepted spelling (upper case, no
// dashes, braces, urn:uuid:) and returns the canonical form.
func canonicalID(s string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
