package rewriter

// ContentSettings tells the Dispatcher which non-tag lexeme kinds a
// matched element wants captured from its direct children: it's the
// selector matcher's output for one element, converted almost directly
// into a Capturer's CaptureFlags. Tags are a separate concern — a
// StartTagToken is always built for any tag HandleElementStartHint deferred
// with RequestElementModifiersInfo, regardless of ContentSettings, since
// the controller needs it to evaluate further selector matches either way.
type ContentSettings struct {
	Text     bool
	Comments bool
	// Doctype only has any effect at document level (an element can never
	// contain a doctype declaration); it's still carried on every
	// ContentSettings value rather than split out so a controller can
	// return everything from one struct literal.
	Doctype bool
}

// CaptureFlags converts matched content settings into the flags a Capturer
// needs to build the corresponding Tokens.
func (c ContentSettings) CaptureFlags() CaptureFlags {
	var f CaptureFlags
	if c.Text {
		f |= CaptureText
	}
	if c.Comments {
		f |= CaptureComments
	}
	if c.Doctype {
		f |= CaptureDoctype
	}
	return f
}

// RequiresLexing reports whether any setting needs FullLexer mode; false
// means the element's direct children can be skimmed in TagScanner mode
// instead (nested elements are still independently offered to
// HandleElementStartHint either way).
func (c ContentSettings) RequiresLexing() bool {
	return c.Text || c.Comments || c.Doctype
}

// ElementStartKind distinguishes the two ways an element start handler
// can tell the Dispatcher to proceed.
type ElementStartKind int

const (
	// ElementContinue proceeds normally: children are visited per whatever
	// ContentSettings the matcher computes for them.
	ElementContinue ElementStartKind = iota
	// ElementStopTraversal skips matching inside this element's subtree
	// entirely (akin to lol-html's "stop matching"): descendants are
	// passed through unlexed even if they would otherwise match a
	// selector, though the subtree is still scanned in TagScanner mode so
	// nesting depth (and thus the matching end tag) stays trackable.
	ElementStopTraversal
)

// ElementStartResponse is the value an element-start handler (or the
// matcher consulting one on its behalf) returns.
type ElementStartResponse struct {
	Kind ElementStartKind
}

// HintDecisionKind distinguishes the two ways a controller can answer a
// start-tag hint, before any attribute has been lexed: settle content
// settings directly from the tag name alone, or ask to see the full tag
// first.
type HintDecisionKind int

const (
	// SettledContentSettings means the controller already knows, from the
	// tag name alone, what content settings apply to this element's
	// children and that no handler needs this element's real attributes —
	// the dispatcher skips lexing the tag entirely (no StartTagToken is
	// ever built, and HandleElementStart is never called for it) and
	// applies Settings directly.
	SettledContentSettings HintDecisionKind = iota
	// RequestElementModifiersInfo defers the decision until the tag has
	// been fully lexed (attributes and the self-closing flag known): the
	// dispatcher lexes it and calls HandleElementStart with the real
	// StartTagToken, exactly as before.
	RequestElementModifiersInfo
)

// HintDecision is a start-tag hint's reply: the tagged variant between
// settling content settings outright and deferring to a full lex.
type HintDecision struct {
	Kind     HintDecisionKind
	Settings ContentSettings
}

// TransformController decides, token by token, what to capture and routes
// each produced Token to whichever content handlers apply — it owns both
// the selector-matching ancestry and the handler registry, invoking
// handlers synchronously against the Token's own mutation surface before
// returning. A selector.Matcher is the production implementation; tests and
// simple embedders can implement it directly (e.g. "capture everything and
// run one handler on it").
type TransformController interface {
	// InitialContentSettings are the settings in effect before any start
	// tag has been seen (i.e. for content at the root of the document).
	InitialContentSettings() ContentSettings

	// HandleElementStartHint is consulted for every start-tag TagHint seen
	// in TagScanner mode (outside a stopped-traversal subtree), before any
	// attribute exists. SettledContentSettings lets the dispatcher skip
	// lexing this tag's attributes entirely — the cheap fast path
	// TagScanner mode exists for — while RequestElementModifiersInfo
	// defers to a full lex (after which HandleElementStart runs with the
	// real StartTagToken). Answering RequestElementModifiersInfo
	// unconditionally costs one full lex of every tag but is always
	// correct; answering SettledContentSettings when a registered
	// selector actually needed this element's attributes, or when any
	// matching rule's Element handler needed the real token, is a
	// correctness bug.
	HandleElementStartHint(hint TagHint) HintDecision

	// HandleElementStart is called once FullLexer mode has produced a
	// StartTagToken for an element the matcher is tracking (because some
	// selector could apply to it or one of its descendants). Any element
	// handlers matching this tag run before it returns. The returned
	// settings govern the element's children, plus whether traversal
	// continues at all beneath it.
	HandleElementStart(tok *StartTagToken, chunk *Chunk) (ContentSettings, ElementStartResponse, error)

	// HandleElementEnd is called once the element's matching end tag (or,
	// for a void/self-closing element, immediately) has been reached. The
	// Dispatcher has already run the start tag's OnEndTag callback by then;
	// the controller pops its ancestry bookkeeping here.
	HandleElementEnd(tok *EndTagToken, chunk *Chunk) error

	// HandleText and HandleComment route a coalesced text node or comment
	// to whatever handlers apply at the current position in the ancestry
	// stack (an element's own handlers, or document-level handlers if no
	// element is currently open).
	HandleText(tok *TextChunkToken, chunk *Chunk) error
	HandleComment(tok *CommentToken, chunk *Chunk) error

	// HandleDoctype routes the document's doctype declaration, if any, to
	// document-level doctype handlers.
	HandleDoctype(tok *DoctypeToken, chunk *Chunk) error
}

// PassthroughController captures nothing anywhere: every byte of input is
// reproduced verbatim. It's the zero-overhead baseline a Rewriter falls
// back to when no controller is configured, and a convenient scaffold for
// tests that only care about buffering/compaction behavior.
type PassthroughController struct{}

func (PassthroughController) InitialContentSettings() ContentSettings { return ContentSettings{} }
func (PassthroughController) HandleElementStartHint(TagHint) HintDecision {
	return HintDecision{Kind: SettledContentSettings}
}
func (PassthroughController) HandleElementStart(tok *StartTagToken, chunk *Chunk) (ContentSettings, ElementStartResponse, error) {
	return ContentSettings{}, ElementStartResponse{Kind: ElementStopTraversal}, nil
}
func (PassthroughController) HandleElementEnd(tok *EndTagToken, chunk *Chunk) error  { return nil }
func (PassthroughController) HandleText(tok *TextChunkToken, chunk *Chunk) error     { return nil }
func (PassthroughController) HandleComment(tok *CommentToken, chunk *Chunk) error    { return nil }
func (PassthroughController) HandleDoctype(tok *DoctypeToken, chunk *Chunk) error    { return nil }
