// Package neoerr implements the driver's error taxonomy: protocol errors,
// classified Neo4j server errors, cluster errors, IO errors, timeout errors,
// configuration errors and value errors, per the classification scheme the
// rest of the driver dispatches retry/propagation decisions on.
package neoerr

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Kind classifies an error for retry and propagation decisions.
type Kind int

const (
	// KindUnknown is the zero value; never intentionally produced.
	KindUnknown Kind = iota
	// KindProtocol is a handshake/framing/state-transition violation. Always
	// fatal for the connection it occurred on.
	KindProtocol
	// KindServer wraps a classified Neo4j server error (Client/Transient/
	// DatabaseError/Security).
	KindServer
	// KindCluster is a Client error whose category is Cluster or Routing.
	KindCluster
	// KindIO is a socket read/write failure. Marks the connection DEFUNCT.
	KindIO
	// KindTimeout is an acquire-connection-timeout exhaustion.
	KindTimeout
	// KindConfiguration is an invalid URI/auth/TLS combination.
	KindConfiguration
	// KindValue is raised by consumers at the record-decoding layer.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindServer:
		return "server"
	case KindCluster:
		return "cluster"
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindConfiguration:
		return "configuration"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Error is the driver's base error type. It keeps the teacher's wrap/stack
// shape (errors/errors.go) and attaches a classification Kind plus, for
// server errors, the raw (code, message) pair reported over the wire.
type Error struct {
	kind    Kind
	msg     string
	code    string
	wrapped error
	stack   []byte
}

// New makes a new unclassified error with a captured stack trace.
func New(msg string, args ...interface{}) *Error {
	return &Error{
		kind:  KindUnknown,
		msg:   fmt.Sprintf(msg, args...),
		stack: debug.Stack(),
	}
}

// Classify makes a new error of the given kind.
func Classify(kind Kind, msg string, args ...interface{}) *Error {
	return &Error{
		kind:  kind,
		msg:   fmt.Sprintf(msg, args...),
		stack: debug.Stack(),
	}
}

// Wrap wraps err with additional context, preserving its classification if
// err is itself an *Error.
func Wrap(err error, msg string, args ...interface{}) *Error {
	if err == nil {
		return New(msg, args...)
	}
	wrapped := &Error{
		msg:     fmt.Sprintf(msg, args...),
		wrapped: err,
	}
	if inner, ok := err.(*Error); ok {
		wrapped.kind = inner.kind
	} else {
		wrapped.stack = debug.Stack()
	}
	return wrapped
}

// ServerError builds a classified server error from the (code, message) pair
// carried by a FAILURE message's metadata.
//
//	code is of the shape "Neo.<Classification>.<Category>.<Title>", e.g.
//	"Neo.ClientError.Cluster.NotALeader" or
//	"Neo.TransientError.Transaction.DeadlockDetected".
func ServerError(code, message string) *Error {
	e := &Error{kind: KindServer, code: code, msg: message, stack: debug.Stack()}
	parts := strings.Split(code, ".")
	if len(parts) >= 3 && parts[1] == "ClientError" && (parts[2] == "Cluster" || parts[2] == "Routing") {
		e.kind = KindCluster
	}
	return e
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the Neo4j status code, if this is a server error.
func (e *Error) Code() string { return e.code }

// Error implements error.
func (e *Error) Error() string { return e.render(0) }

// Unwrap supports errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.wrapped }

// Inner returns the directly wrapped error, if any.
func (e *Error) Inner() error { return e.wrapped }

// InnerMost walks to the root of the wrap chain.
func (e *Error) InnerMost() error {
	if e.wrapped == nil {
		return e
	}
	if inner, ok := e.wrapped.(*Error); ok {
		return inner.InnerMost()
	}
	return e.wrapped
}

func (e *Error) render(level int) string {
	msg := fmt.Sprintf("%s%s", strings.Repeat("\t", level), e.msg)
	if e.code != "" {
		msg += fmt.Sprintf(" [%s]", e.code)
	}
	if e.wrapped != nil {
		if inner, ok := e.wrapped.(*Error); ok {
			msg += "\n" + inner.render(level+1)
		} else {
			msg += fmt.Sprintf("\nwrapped(%T): %s", e.wrapped, e.wrapped.Error())
		}
	}
	if len(e.stack) > 0 && level == 0 {
		msg += fmt.Sprintf("\n\nstack trace:\n%s", e.stack)
	}
	return msg
}

var clusterLeaderSwitch = map[string]bool{
	"Neo.ClientError.Cluster.NotALeader":                true,
	"Neo.ClientError.Cluster.Forbidden":                 true,
	"Neo.ClientError.Cluster.RoutingTableChanged":        true,
	"Neo.ClientError.Cluster.NoLeaderAvailable":          true,
	"Neo.ClusterError.Routing.RoutingTableChanged":       true,
}

// IsCluster reports whether code names a cluster/routing class of error
// that should invalidate the routing table and trigger a retry (spec §4.4
// "Failure policy").
func IsCluster(code string) bool {
	if clusterLeaderSwitch[code] {
		return true
	}
	parts := strings.Split(code, ".")
	return len(parts) >= 3 && parts[1] == "ClientError" && (parts[2] == "Cluster" || parts[2] == "Routing")
}

// Retriable implements spec §4.7's retriable(e) predicate for the managed
// transaction runner: true for connection failure, service unavailable,
// cluster leader-switch errors, transient deadlock/timeout codes, and
// session-expired; false for client/syntax/constraint/security errors and
// database-not-found.
func Retriable(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.kind {
	case KindIO, KindCluster, KindTimeout:
		return true
	case KindServer:
		if IsCluster(e.code) {
			return true
		}
		parts := strings.Split(e.code, ".")
		if len(parts) >= 2 {
			switch parts[1] {
			case "TransientError":
				return true
			case "ClientError":
				return strings.Contains(e.code, "SessionExpired")
			}
		}
		return false
	default:
		return false
	}
}
