package rewriter

import (
	"github.com/sirupsen/logrus"
)

// ParserDirective is the dispatcher's reply to the tokenizer after each tag
// hint or tag lexeme: which mode to run in for the next span of input.
type ParserDirective int

const (
	// ScanForTags engages TagScanner mode: skim for the next `<name` or
	// `</name` boundary without tokenizing text, comments, doctype, or
	// attributes.
	ScanForTags ParserDirective = iota
	// Lex engages FullLexer mode: tokenize everything in detail.
	Lex
)

// ContentModel selects which family of states the tokenizer parses text
// in, mirroring the HTML5 tokenizer's insertion-mode-driven content
// models. The driver (dispatcher) can force a model via
// Tokenizer.SetContentModel, e.g. when parsing a document fragment whose
// context element is <script> or <title>.
type ContentModel int

const (
	DataContentModel ContentModel = iota
	RCDataContentModel
	RawTextContentModel
	ScriptDataContentModel
	PlaintextContentModel
)

// Sink receives tokenizer output. The dispatcher is the only production
// implementation; the tokenizer never holds a reference back to it beyond
// this interface, so the two components can be tested independently of
// each other.
type Sink interface {
	// HandleTagHint is called once per tag in TagScanner mode. It returns
	// the mode to use for the span starting immediately after the hint.
	HandleTagHint(hint TagHint) ParserDirective
	// HandleTagLexeme is called once per tag in FullLexer mode.
	HandleTagLexeme(lexeme TagLexeme) ParserDirective
	// HandleNonTagLexeme is called for text, comment, doctype, CDATA, and
	// the terminal Eof lexeme. These come from FullLexer mode, except that
	// the Eof lexeme, and text cut short by forceFlushOverflow, can also
	// arrive in TagScanner mode.
	HandleNonTagLexeme(lexeme NonTagContentLexeme)
}

// state enumerates the tokenizer's state-machine states. Using an int
// field rather than pongo2-style stateFn closures lets the tokenizer
// persist exactly where it was across chunk boundaries: each state is a
// pure function of (current byte or end-of-chunk) -> (action, next
// state), and end-of-chunk simply suspends the loop with the state
// untouched, ready to resume on the next Feed.
type state int

const (
	stateData state = iota
	stateTagOpen
	stateEndTagOpen
	stateTagName
	stateBeforeAttributeName
	stateAttributeName
	stateAfterAttributeName
	stateBeforeAttributeValue
	stateAttributeValueDoubleQuoted
	stateAttributeValueSingleQuoted
	stateAttributeValueUnquoted
	stateAfterAttributeValueQuoted
	stateSelfClosingStartTag
	stateBogusComment
	stateMarkupDeclarationOpen
	stateCommentStart
	stateCommentStartDash
	stateComment
	stateCommentEndDash
	stateCommentEnd
	stateCommentEndBang
	stateDoctype
	stateBeforeDoctypeName
	stateDoctypeName
	stateAfterDoctypeName
	stateBeforeDoctypePublicID
	stateDoctypePublicIDDoubleQuoted
	stateDoctypePublicIDSingleQuoted
	stateAfterDoctypePublicID
	stateBetweenDoctypePublicAndSystem
	stateBeforeDoctypeSystemID
	stateDoctypeSystemIDDoubleQuoted
	stateDoctypeSystemIDSingleQuoted
	stateAfterDoctypeSystemID
	stateBogusDoctype
	stateCdataSection
	stateRawTextLike // RAWTEXT/RCDATA/ScriptData share a body state
	stateRawTextLikeLessThanSign
	stateRawTextLikeEndTagOpen
	stateRawTextLikeEndTagName
	stateScanForTag // TagScanner-mode body state
	stateScanTagOpen
	stateScanEndTagOpen
	stateScanTagName
	stateScanInTagSkipToClose
)

// Tokenizer is the table-driven HTML5 lexer described in §4.1. It runs in
// one of two modes (TagScanner or FullLexer), switching at every tag
// boundary per the ParserDirective its Sink returns, and is reentrant
// across Feed calls: all progress is captured in persisted struct fields,
// never on the Go call stack, so a chunk boundary mid-attribute-value
// resumes correctly on the next Feed.
type Tokenizer struct {
	sink   Sink
	logger *logrus.Logger

	mode  ParserDirective
	state state

	// contentModel governs how stateData (and its RAWTEXT/RCDATA/script
	// counterparts) treats `<`: DataContentModel looks for any tag,
	// RCData/RawText/ScriptData only look for the appropriate end tag.
	contentModel ContentModel

	// lastStartTagHash/lastStartTagOK implement the "appropriate end tag"
	// rule: inside RCDATA/RAWTEXT/script-data, an end tag is only honored
	// if its name matches the most recently emitted start tag.
	lastStartTagHash NameHash
	lastStartTagOK   bool
	lastStartTagName []byte

	// per-chunk cursor state
	chunk      *Chunk
	pos        int // current read position
	tokenStart int // start of the lexeme currently being built

	// tag-in-progress scratch
	tagKind     TagKind
	nameStart   int
	nameHasher  nameHasher
	attrs       []AttrRange
	attrName    Range
	attrValue   Range
	attrHasVal  bool
	attrQuote   byte
	selfClosing bool

	// comment/doctype scratch
	commentDataStart int
	doctype          DoctypeOutline

	// scanner-mode scratch: remembers whether we're inside a quoted
	// attribute value while skimming to the closing '>'.
	scanQuote byte

	// overflow guarding
	maxTokenLength int // 0 = unbounded
	strict         bool

	// needMoreBytes is set by a state function that needs to look ahead
	// further than the current chunk extends (e.g. deciding whether "<!"
	// begins a comment, doctype, or CDATA section) before it can commit
	// to a transition.
	needMoreBytes bool

	// set once end-of-stream has been fully processed
	done bool
}

// LowWaterMark returns the lowest chunk-local offset the tokenizer still
// references. The driver (TransformStream) must never discard or rebase
// bytes before this offset; any position at or after it may safely be
// shifted via Rebase once the driver has also cleared its own bookkeeping
// up to the same point.
func (t *Tokenizer) LowWaterMark() int {
	return t.tokenStart
}

// Rebase shifts every chunk-local offset the tokenizer holds by -delta,
// following a buffer compaction that discarded the first delta bytes.
// Callers must ensure delta <= LowWaterMark().
func (t *Tokenizer) Rebase(delta int) {
	if delta == 0 {
		return
	}
	t.pos -= delta
	t.tokenStart -= delta
	t.nameStart -= delta
	t.attrName.Start -= delta
	t.attrName.End -= delta
	t.attrValue.Start -= delta
	t.attrValue.End -= delta
	t.commentDataStart -= delta
	for i := range t.attrs {
		t.attrs[i].Name.Start -= delta
		t.attrs[i].Name.End -= delta
		t.attrs[i].Value.Start -= delta
		t.attrs[i].Value.End -= delta
	}
	rebaseRange(&t.doctype.NameRange, delta)
	rebaseRange(&t.doctype.PublicIDRange, delta)
	rebaseRange(&t.doctype.SystemIDRange, delta)
}

func rebaseRange(r *Range, delta int) {
	r.Start -= delta
	r.End -= delta
}

// NewTokenizer constructs a Tokenizer that reports to sink. logger may be
// nil, in which case a discarding logger is used.
func NewTokenizer(sink Sink, logger *logrus.Logger) *Tokenizer {
	if logger == nil {
		logger = newDiscardLogger()
	}
	return &Tokenizer{
		sink:   sink,
		logger: logger,
		mode:   ScanForTags,
		state:  stateScanForTag,
	}
}

// StartInLexMode forces FullLexer mode from the very first byte fed to the
// tokenizer, instead of the usual TagScanner start. The driver uses this
// when document-level content settings want to see text, comments, or a
// doctype that precede any element: TagScanner mode has no notion of
// "<!doctype" or a bare comment at all (it only recognizes `<name`/`</name`
// boundaries), so content appearing before the first tag can only ever
// reach the sink if FullLexer mode is already running when it arrives.
func (t *Tokenizer) StartInLexMode() {
	t.mode = Lex
	t.state = t.dataEntryState()
}

// SetContentModel forces the text-parsing mode the tokenizer starts in,
// for drivers that need to parse a fragment whose context element implies
// RCDATA/RAWTEXT/script-data/plaintext content (e.g. inside <textarea> or
// <script>).
func (t *Tokenizer) SetContentModel(m ContentModel) {
	t.contentModel = m
	if t.mode == Lex {
		t.state = t.dataEntryState()
	}
}

// SetLimits configures the overflow policy from §7: a lexeme whose bytes
// exceed maxTokenLength either aborts the stream (strict) or is force-
// flushed as best-effort recovery (non-strict). maxTokenLength == 0 means
// unbounded.
func (t *Tokenizer) SetLimits(maxTokenLength int, strict bool) {
	t.maxTokenLength = maxTokenLength
	t.strict = strict
}

func (t *Tokenizer) dataEntryState() state {
	switch t.contentModel {
	case RCDataContentModel, RawTextContentModel, ScriptDataContentModel:
		return stateRawTextLike
	case PlaintextContentModel:
		return stateRawTextLike // plaintext never leaves this body; treated as a RAWTEXT with no end tag
	default:
		return stateData
	}
}

// Feed tokenizes as much of chunk as it can without blocking for more
// input, calling back into the sink for every lexeme/hint produced.
// consumed is the chunk-local offset up to which the tokenizer has made
// final decisions (i.e. will never rewind into); the driver should not
// discard bytes before this offset has also cleared the dispatcher's own
// bookkeeping. blocked is true if the tokenizer suspended mid-lexeme
// waiting for more bytes (only possible when chunk.LastChunk is false).
func (t *Tokenizer) Feed(chunk *Chunk) (consumed int, blocked bool, err error) {
	// chunk.Bytes is the transform stream's single growing buffer: t.pos,
	// t.tokenStart, and every other persisted offset remain valid into it
	// across calls, because the stream only ever appends to it (or
	// rebases those offsets itself via Rebase after a compaction). Feed
	// therefore resumes exactly where the previous call suspended rather
	// than restarting from 0.
	t.chunk = chunk
	t.needMoreBytes = false

	for {
		if t.needMoreBytes {
			if chunk.LastChunk {
				// No more bytes are ever coming; treat whatever's left as
				// a bogus comment rather than stalling forever.
				t.needMoreBytes = false
				t.commentDataStart = t.pos
				t.state = stateBogusComment
				continue
			}
			return t.tokenStart, true, nil
		}

		if t.pos >= len(chunk.Bytes) {
			if chunk.LastChunk {
				t.emitEOF()
				t.done = true
				return t.pos, false, nil
			}
			return t.tokenStart, true, nil
		}

		if t.maxTokenLength > 0 && t.pos-t.tokenStart > t.maxTokenLength {
			if t.strict {
				return t.tokenStart, false, errMemoryLimitExceeded(t.pos-t.tokenStart, t.maxTokenLength)
			}
			t.logger.WithField("len", t.pos-t.tokenStart).Debug("rewriter: forcing lexeme flush past max token length")
			t.forceFlushOverflow()
		}

		b := chunk.Bytes[t.pos]
		if t.mode == ScanForTags {
			t.stepScan(b)
		} else {
			t.stepLex(b)
		}
	}
}

// forceFlushOverflow implements the non-strict best-effort recovery: the
// in-progress lexeme is cut short as plain text/hint at the current
// position and scanning resumes from there. This never happens for well-
// formed input; it only guards against unbounded buffering on pathological
// streams (e.g. a single attribute value many megabytes long).
func (t *Tokenizer) forceFlushOverflow() {
	switch t.state {
	case stateRawTextLike, stateData:
		t.emitTextUpTo(t.pos)
	default:
		// Abandon whatever tag/comment/doctype was in progress; treat the
		// consumed span as opaque text so the dispatcher can still pass it
		// through verbatim.
		t.emitTextUpTo(t.pos)
	}
	t.tokenStart = t.pos
	t.state = t.dataEntryState()
	t.mode = Lex
}

func (t *Tokenizer) emitEOF() {
	// flush any pending text first
	if t.state == stateData || t.state == stateRawTextLike {
		t.emitTextUpTo(t.pos)
	}
	t.sink.HandleNonTagLexeme(NonTagContentLexeme{
		Range:   Range{Start: t.pos, End: t.pos},
		Outline: NonTagOutline{Kind: EofLexeme},
	})
}

func (t *Tokenizer) emitTextUpTo(end int) {
	if end <= t.tokenStart {
		return
	}
	t.sink.HandleNonTagLexeme(NonTagContentLexeme{
		Range:   Range{Start: t.tokenStart, End: end},
		Outline: NonTagOutline{Kind: TextLexeme},
	})
	t.tokenStart = end
}

func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isASCIIWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
