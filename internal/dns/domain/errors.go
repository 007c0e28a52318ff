package domain

import (
	"errors"
	"fmt"
)

// ErrTypeNotCompared is returned when a record of a type outside ComparedTypes
// is used to build a RecordKey.
var ErrTypeNotCompared = errors.New("record type is not compared")

// QueryErrorKind classifies why a single DNS query failed.
type QueryErrorKind uint8

const (
	QueryTimeout QueryErrorKind = iota + 1
	QueryServerUnreachable
	QueryMalformed
	QueryRefused
)

// String returns the textual representation of the QueryErrorKind.
func (k QueryErrorKind) String() string {
	switch k {
	case QueryTimeout:
		return "timeout"
	case QueryServerUnreachable:
		return "server unreachable"
	case QueryMalformed:
		return "malformed response"
	case QueryRefused:
		return "refused"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// QueryError describes a failed query against one server.
type QueryError struct {
	Kind   QueryErrorKind
	Name   string
	Type   RRType
	Server string
	Err    error
}

func (e *QueryError) Error() string {
	server := e.Server
	if server == "" {
		server = "default resolver"
	}
	if e.Err == nil {
		return fmt.Sprintf("query %s %s @%s: %s", e.Name, e.Type, server, e.Kind)
	}
	return fmt.Sprintf("query %s %s @%s: %s: %v", e.Name, e.Type, server, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same query may succeed.
func (e *QueryError) Temporary() bool {
	return e.Kind == QueryTimeout || e.Kind == QueryServerUnreachable
}

// ArgumentError reports invalid user input detected before any network activity.
type ArgumentError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ResolutionError reports that the current nameserver of a zone could not be determined.
type ResolutionError struct {
	Zone string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot determine current nameserver for %s: %v", e.Zone, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// AuthorityError reports that a server did not answer NS queries for the zone.
type AuthorityError struct {
	Zone   string
	Server string
	Err    error
}

func (e *AuthorityError) Error() string {
	return fmt.Sprintf("nameserver %s is not answering NS for %s: %v", e.Server, e.Zone, e.Err)
}

func (e *AuthorityError) Unwrap() error {
	return e.Err
}
