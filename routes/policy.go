package routes

import (
	"errors"
	"sort"
	"strings"
)

// Level is the authorization requirement attached to a route pattern.
type Level uint8

const (
	// Public routes pass with no credential check.
	Public Level = iota
	// Authenticated routes require a valid, non-expired session token.
	Authenticated
	// RoleGated routes additionally require one of the listed roles,
	// resolved against the backend per request.
	RoleGated
)

// Access is the policy attached to a route pattern.
type Access struct {
	Level Level
	// Roles lists the roles allowed through a RoleGated route. Ignored for
	// other levels.
	Roles []string
}

// AllowRole reports whether role passes this access entry's gate.
func (a Access) AllowRole(role string) bool {
	for _, allowed := range a.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var (
	// ErrFrozen is returned when registering against a frozen policy.
	ErrFrozen = errors.New("route policy is frozen")
	// ErrDuplicatePattern is returned when a pattern is registered twice.
	ErrDuplicatePattern = errors.New("route pattern already registered")
	// ErrEmptyPattern is returned for blank patterns.
	ErrEmptyPattern = errors.New("route pattern must not be empty")
)

type prefixRule struct {
	prefix string
	access Access
}

// Policy maps request paths to their required authorization. Patterns are
// registered during startup and the policy is frozen before serving; Lookup
// is read-only and safe for concurrent use afterwards.
//
// Unregistered paths resolve to the configured default. The safe default is
// Authenticated (deny by omission); the portal's historical frontend shipped
// allow-by-omission, which remains expressible by passing a Public default.
type Policy struct {
	exact    map[string]Access
	prefixes []prefixRule
	def      Access
	frozen   bool
}

// New returns an empty policy with def as the fate of unregistered paths.
func New(def Access) *Policy {
	return &Policy{
		exact: make(map[string]Access),
		def:   def,
	}
}

// RegisterExact attaches access to one exact path.
func (p *Policy) RegisterExact(path string, access Access) error {
	if p.frozen {
		return ErrFrozen
	}
	if path == "" {
		return ErrEmptyPattern
	}
	if _, ok := p.exact[path]; ok {
		return ErrDuplicatePattern
	}
	p.exact[path] = access
	return nil
}

// RegisterPrefix attaches access to every path beginning with prefix.
func (p *Policy) RegisterPrefix(prefix string, access Access) error {
	if p.frozen {
		return ErrFrozen
	}
	if prefix == "" {
		return ErrEmptyPattern
	}
	for _, rule := range p.prefixes {
		if rule.prefix == prefix {
			return ErrDuplicatePattern
		}
	}
	p.prefixes = append(p.prefixes, prefixRule{prefix: prefix, access: access})
	return nil
}

// Freeze seals the policy. Longer prefixes win from here on; further
// registration fails with ErrFrozen.
func (p *Policy) Freeze() {
	if p.frozen {
		return
	}
	sort.SliceStable(p.prefixes, func(i, j int) bool {
		return len(p.prefixes[i].prefix) > len(p.prefixes[j].prefix)
	})
	p.frozen = true
}

// Frozen reports whether the policy is sealed.
func (p *Policy) Frozen() bool {
	return p.frozen
}

// Lookup resolves the access requirement for path. Exact matches win over
// prefixes; among prefixes the longest wins; everything else gets the
// default.
func (p *Policy) Lookup(path string) Access {
	if access, ok := p.exact[path]; ok {
		return access
	}
	for _, rule := range p.prefixes {
		if strings.HasPrefix(path, rule.prefix) {
			return rule.access
		}
	}
	return p.def
}
