package warraq

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup or delete against an id that does not exist.
var ErrNotFound = errors.New("not found")

// ErrConfig signals an invalid configuration value (bad chunk size or
// overlap, unknown strategy tag). Construction fails fast; it is never
// deferred to call time.
type ErrConfig struct {
	Field   string
	Message string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// ErrUpstream wraps a collaborator failure with the operation that hit it.
type ErrUpstream struct {
	Collaborator string // "embedding", "vector index", "store"
	Op           string
	Err          error
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *ErrUpstream) Unwrap() error { return e.Err }

type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
