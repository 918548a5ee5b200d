package kbopts

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the fixed outcome vocabulary of registry operations.
type Status int

const (
	StatusOk Status = iota
	StatusInvalidArgument
	StatusKeyError
	StatusNoMemory
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusKeyError:
		return "key error"
	case StatusNoMemory:
		return "no memory"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	ErrInvalidArgument = errors.New("kbopts: invalid argument")
	ErrKeyError        = errors.New("kbopts: key error")
	ErrNoMemory        = errors.New("kbopts: no memory")
)

func (s Status) sentinel() error {
	switch s {
	case StatusInvalidArgument:
		return ErrInvalidArgument
	case StatusKeyError:
		return ErrKeyError
	case StatusNoMemory:
		return ErrNoMemory
	default:
		return nil
	}
}

// StatusError carries the failing operation, the entry it was working on
// and the underlying cause. It matches the Status sentinel and the cause
// with errors.Is.
type StatusError struct {
	Op     string
	Scope  Scope
	Key    string
	Status Status
	Err    error
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("kbopts: ")
	b.WriteString(e.Op)
	if e.Scope != ScopeUnknown || e.Key != "" {
		fmt.Fprintf(&b, " scope=%s key=%q", describeScope(e.Scope), e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Status.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StatusError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if sentinel := e.Status.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusOf maps an error returned by this package onto the status
// vocabulary. Errors from elsewhere report StatusInvalidArgument.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOk
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	switch {
	case errors.Is(err, ErrKeyError):
		return StatusKeyError
	case errors.Is(err, ErrNoMemory):
		return StatusNoMemory
	default:
		return StatusInvalidArgument
	}
}

func statusError(op string, status Status, scope Scope, key string, cause error) error {
	return &StatusError{Op: op, Scope: scope, Key: key, Status: status, Err: cause}
}

func describeScope(s Scope) string {
	if s.Valid() {
		return s.String()
	}
	return fmt.Sprintf("%d", uint8(s))
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("kbopts: %s evaluator %s scope=%s: %v", e.Engine, describeExpression(e.Expr), e.Scope, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "kbopts:") {
		return err
	}
	return fmt.Errorf("kbopts: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Scope:  scope,
		Err:    err,
	}
}
