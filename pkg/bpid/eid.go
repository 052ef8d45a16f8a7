// Package bpid defines the node and endpoint identifiers used throughout
// the cache: a 64-bit node number and an ipn-scheme EID built from a
// (node, service) pair.
package bpid

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeNumber is the node component of an ipn EID.
type NodeNumber uint64

// EID is an endpoint identifier, an ipn:node.service pair.
type EID struct {
	Node    NodeNumber
	Service uint64
}

// String renders the EID in ipn scheme notation, e.g. "ipn:100.1".
func (e EID) String() string {
	return fmt.Sprintf("ipn:%d.%d", e.Node, e.Service)
}

// IsZero reports whether the EID is the zero value (no node, no service).
func (e EID) IsZero() bool {
	return e.Node == 0 && e.Service == 0
}

// Parse parses an "ipn:node.service" string into an EID.
func Parse(s string) (EID, error) {
	rest, ok := strings.CutPrefix(s, "ipn:")
	if !ok {
		return EID{}, fmt.Errorf("bpid: %q is not an ipn-scheme EID", s)
	}
	node, service, ok := strings.Cut(rest, ".")
	if !ok {
		return EID{}, fmt.Errorf("bpid: %q is missing the service number", s)
	}
	n, err := strconv.ParseUint(node, 10, 64)
	if err != nil {
		return EID{}, fmt.Errorf("bpid: invalid node number in %q: %w", s, err)
	}
	s2, err := strconv.ParseUint(service, 10, 64)
	if err != nil {
		return EID{}, fmt.Errorf("bpid: invalid service number in %q: %w", s, err)
	}
	return EID{Node: NodeNumber(n), Service: s2}, nil
}

// MustParse is Parse but panics on error; intended for tests and
// constant-like initialization of well-known EIDs.
func MustParse(s string) EID {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}
