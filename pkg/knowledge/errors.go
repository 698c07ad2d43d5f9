package knowledge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEndpoint is returned when a relation names a node that is not
	// in the store. It is the one hard failure of bulk loading.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrInvalidDocument is returned when an exchange document is malformed.
	ErrInvalidDocument = errors.New("invalid document")
)

// KnowledgeError carries the failing operation and the concept involved.
type KnowledgeError struct {
	Op       string // e.g. "add relation", "import"
	Entity   string // "node", "relation", "document"
	Name     string // concept name, if any
	Relation *Relation
	Cause    error
}

func (e *KnowledgeError) Error() string {
	switch {
	case e.Relation != nil && e.Name != "":
		return fmt.Sprintf("%s %s (%s): %q: %v", e.Op, e.Entity, e.Relation, e.Name, e.Cause)
	case e.Relation != nil:
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Relation, e.Cause)
	case e.Name != "":
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.Name, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

func (e *KnowledgeError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder assembles a KnowledgeError.
type ErrorBuilder struct {
	err KnowledgeError
}

// NewError starts an error for the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: KnowledgeError{Op: op}}
}

func (b *ErrorBuilder) Node(name string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.Name = name
	return b
}

func (b *ErrorBuilder) Relation(r Relation) *ErrorBuilder {
	b.err.Entity = "relation"
	b.err.Relation = &r
	return b
}

func (b *ErrorBuilder) Document() *ErrorBuilder {
	b.err.Entity = "document"
	return b
}

// Missing records the endpoint name that could not be resolved.
func (b *ErrorBuilder) Missing(name string) *ErrorBuilder {
	b.err.Name = name
	return b
}

func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

func (b *ErrorBuilder) Err() error {
	e := b.err
	return &e
}

// UnknownEndpointError reports that r references the absent node missing.
func UnknownEndpointError(r Relation, missing string) error {
	return NewError("add").Relation(r).Missing(missing).Cause(ErrUnknownEndpoint).Err()
}

// IsUnknownEndpoint reports whether err was caused by a missing relation endpoint.
func IsUnknownEndpoint(err error) bool {
	return errors.Is(err, ErrUnknownEndpoint)
}
