package rewriter

import (
	"fmt"

	jujuerrors "github.com/juju/errors"
)

// ErrorKind classifies a rewriter error so callers can branch on it without
// string-matching the message. See §7 of the design for the full list and
// when each is produced.
type ErrorKind int

const (
	// ErrSelectorParse indicates a selector was syntactically invalid or
	// used a feature this engine doesn't support.
	ErrSelectorParse ErrorKind = iota
	// ErrEncodingUnknown indicates settings.Encoding named a charset label
	// that could not be resolved.
	ErrEncodingUnknown
	// ErrHandlersAddedAfterWrite indicates a handler was registered after
	// the first Write call.
	ErrHandlersAddedAfterWrite
	// ErrEndOfStreamReached indicates Write or End was called after End
	// already completed.
	ErrEndOfStreamReached
	// ErrMemoryLimitExceeded indicates the retained buffer prefix would
	// exceed the configured memory ceiling.
	ErrMemoryLimitExceeded
	// ErrParsingAmbiguity indicates a structural collision the HTML5
	// algorithm can't disambiguate without ancestry this engine doesn't
	// track, or a defensive invariant check failed on malformed input.
	ErrParsingAmbiguity
	// ErrContentHandler wraps an error a content handler returned.
	ErrContentHandler
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSelectorParse:
		return "SelectorParse"
	case ErrEncodingUnknown:
		return "EncodingUnknown"
	case ErrHandlersAddedAfterWrite:
		return "HandlersAddedAfterWrite"
	case ErrEndOfStreamReached:
		return "EndOfStreamReached"
	case ErrMemoryLimitExceeded:
		return "MemoryLimitExceeded"
	case ErrParsingAmbiguity:
		return "ParsingAmbiguity"
	case ErrContentHandler:
		return "ContentHandler"
	default:
		return "Unknown"
	}
}

// Error is the single error type this package returns. Cause is always
// non-nil: for kinds with no underlying stdlib error a sentinel is
// annotated instead, so errors.Is/errors.Cause behave uniformly.
type Error struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("[%s] %v", e.Kind, e.Cause)
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

var errSentinel = jujuerrors.New("rewriter")

func newError(kind ErrorKind, detail string, cause error) *Error {
	if cause == nil {
		cause = errSentinel
	}
	return &Error{
		Kind:   kind,
		Detail: detail,
		Cause:  jujuerrors.Annotate(cause, detail),
	}
}

func errSelectorParse(detail string, cause error) *Error {
	return newError(ErrSelectorParse, detail, cause)
}

func errEncodingUnknown(label string) *Error {
	return newError(ErrEncodingUnknown, label, jujuerrors.NotFoundf("encoding %q", label))
}

func errEndOfStreamReached() *Error {
	return newError(ErrEndOfStreamReached, "stream already ended", nil)
}

func errMemoryLimitExceeded(retained, limit int) *Error {
	return newError(ErrMemoryLimitExceeded, fmt.Sprintf("retained %d bytes exceeds limit %d", retained, limit), nil)
}

func errParsingAmbiguity(detail string) *Error {
	return newError(ErrParsingAmbiguity, detail, nil)
}

func errContentHandler(cause error) *Error {
	return newError(ErrContentHandler, "content handler failed", cause)
}
