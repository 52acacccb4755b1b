package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

var (
	// ErrBackendUnreachable is returned when no connection to the serving process could be made.
	ErrBackendUnreachable = errors.New("model backend unreachable")
	// ErrModel is returned when the backend rejects the model or fails to generate.
	ErrModel = errors.New("model error")
	// ErrAdapter covers every other unexpected backend failure.
	ErrAdapter = errors.New("backend adapter error")
	// ErrNoChoicesInResp is wrapped in an adapter error when a reply carries no message.
	ErrNoChoicesInResp = errors.New("no choices in LLM response")
)

// ErrorKind classifies backend failures
type ErrorKind int

const (
	KindAdapter ErrorKind = iota
	KindUnreachable
	KindModel
)

// String returns the name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "backend_unreachable"
	case KindModel:
		return "model_error"
	default:
		return "adapter_error"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnreachable:
		return ErrBackendUnreachable
	case KindModel:
		return ErrModel
	default:
		return ErrAdapter
	}
}

// BackendError is a classified backend failure. It matches the sentinel of its kind with
// errors.Is and unwraps to the provider's native error.
type BackendError struct {
	Kind     ErrorKind
	Provider LLMProvider
	Err      error
}

func (e *BackendError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel matching this error's kind.
func (e *BackendError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewBackendError wraps err with the given kind. A nil err yields nil.
func NewBackendError(kind ErrorKind, provider LLMProvider, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Kind: kind, Provider: provider, Err: err}
}

// KindOf returns the kind of a classified error and whether err was classified at all.
func KindOf(err error) (ErrorKind, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return KindAdapter, false
}

// IsConnectionError reports whether err looks like a failure to reach the serving
// process: refused or reset connections, DNS failures and dial errors.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

// classify maps an unclassified error coming out of a backend call.
// callCtx is the per-call context, parent the caller's context.
func classify(parent, callCtx context.Context, provider LLMProvider, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	if parent.Err() != nil {
		// caller cancellation is not a backend failure
		return err
	}
	if callCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return NewBackendError(KindUnreachable, provider, fmt.Errorf("request timed out: %w", err))
	}
	if IsConnectionError(err) {
		return NewBackendError(KindUnreachable, provider, err)
	}
	return NewBackendError(KindAdapter, provider, err)
}
