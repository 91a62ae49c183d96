package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps every input rejection.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicateTitle is returned when an item title is already taken.
	ErrDuplicateTitle = errors.New("title already exists")
	// ErrNotFound is returned when the addressed item or tag does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStore wraps failures of the durable store. Nothing was applied and
	// the operation may be retried.
	ErrStore = errors.New("catalog store failure")
	// ErrNoIdentity is returned by mutations attempted without an identity.
	ErrNoIdentity = errors.New("identity required")
	// ErrTagInUse is returned when deleting a tag that items still carry.
	ErrTagInUse = errors.New("tag still in use")
)

// ErrorKind classifies catalog errors for callers that map them onto
// transport status codes.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindDuplicate
	KindNotFound
	KindStore
	KindNoIdentity
	KindTagInUse
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	case KindNoIdentity:
		return "no_identity"
	case KindTagInUse:
		return "tag_in_use"
	default:
		return "internal"
	}
}

// Retryable reports whether an operation failing with this kind can be
// repeated unchanged.
func (k ErrorKind) Retryable() bool { return k == KindStore }

// Kind returns the classification of err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrStore):
		return KindStore
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrDuplicateTitle):
		return KindDuplicate
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoIdentity):
		return KindNoIdentity
	case errors.Is(err, ErrTagInUse):
		return KindTagInUse
	default:
		return KindInternal
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func duplicate(title string) error {
	return fmt.Errorf("%w: %q", ErrDuplicateTitle, title)
}

func notFound(what, title string) error {
	return fmt.Errorf("%s %q: %w", what, title, ErrNotFound)
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
