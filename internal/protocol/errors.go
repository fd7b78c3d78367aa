package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks an inbound message that cannot be applied:
// missing type, or result/error not mutually exclusive.
var ErrMalformedResponse = errors.New("malformed socket response")

// DuplicateIDError reports a create targeting an id already present.
type DuplicateIDError struct {
	DocumentType string
	ID           string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.DocumentType, e.ID)
}

// NotFoundError reports an update targeting an id not in the collection.
type NotFoundError struct {
	DocumentType string
	ID           string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.DocumentType, e.ID)
}

// TransportError wraps a failure to deliver an envelope. No local state
// is mutated when it is returned.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ObserverError aggregates failures raised by dependent views during a
// single notification fan-out. All observers run before it is returned.
type ObserverError struct {
	Target string
	Errs   []error
}

func (e *ObserverError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d observer(s) failed for %q: %s", len(e.Errs), e.Target, strings.Join(msgs, "; "))
}

func (e *ObserverError) Unwrap() []error { return e.Errs }

// BatchError collects per-target failures from one applied response.
// A batch is never aborted mid-way; targets that failed are listed here
// and the rest stay applied.
type BatchError struct {
	Action       Action
	DocumentType string
	Errs         []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s %s: %d of batch failed: %s", e.Action, e.DocumentType, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error { return e.Errs }
