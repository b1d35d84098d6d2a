package merge

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies merge failures independently of the persistence
// driver's error representation.
type ErrorKind int

const (
	// KindOther covers unexpected persistence failures.
	KindOther ErrorKind = iota
	// KindConstraintViolation is a unique/primary-key clash. Inside the
	// executor this is policy, not failure: the row already attached to the
	// canonical target wins and the duplicate is discarded.
	KindConstraintViolation
	// KindNotFound means the source or target entity no longer exists.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindConstraintViolation:
		return "constraint_violation"
	case KindNotFound:
		return "not_found"
	default:
		return "other"
	}
}

// Error is a classified merge failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind extracts the classified kind from any error produced by this package.
func Kind(err error) ErrorKind {
	var mergeErr *Error
	if errors.As(err, &mergeErr) {
		return mergeErr.Kind
	}
	return KindOther
}

// sqliteConstraintCode is SQLITE_CONSTRAINT; extended constraint codes carry
// it in their low byte.
const sqliteConstraintCode = 19

// isConstraintViolation detects unique/primary-key clashes from the driver.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteConstraintCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_CONSTRAINT") || strings.Contains(msg, "constraint failed")
}

// classify wraps a raw persistence error with its kind and operation.
func classify(op string, err error) *Error {
	kind := KindOther
	if isConstraintViolation(err) {
		kind = KindConstraintViolation
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
