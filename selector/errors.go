package selector

import (
	jujuerrors "github.com/juju/errors"

	"github.com/streamhtml/rewriter"
)

// newParseError wraps a lex/parse failure as a *rewriter.Error of kind
// ErrSelectorParse, annotated with the offending selector text the same
// way the core package annotates its own errors.
func newParseError(raw string, cause error) *rewriter.Error {
	return &rewriter.Error{
		Kind:   rewriter.ErrSelectorParse,
		Detail: raw,
		Cause:  jujuerrors.Annotate(cause, raw),
	}
}

var errAlreadyStarted = jujuerrors.New("selector: handlers must be registered before matching begins")

func newAlreadyStartedError(detail string) *rewriter.Error {
	return &rewriter.Error{
		Kind:   rewriter.ErrHandlersAddedAfterWrite,
		Detail: detail,
		Cause:  jujuerrors.Annotate(errAlreadyStarted, detail),
	}
}
