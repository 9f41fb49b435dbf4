package rewriter

import (
	"bytes"
	"io"

	"github.com/sirupsen/logrus"
)

// voidElementNames lists HTML5 elements that never have an end tag; the
// Dispatcher closes them the instant their start tag is seen.
var voidElementNames = []string{
	"area", "base", "br", "col", "embed", "hr", "img", "input",
	"link", "meta", "param", "source", "track", "wbr",
}

var voidElementHash = func() map[NameHash]bool {
	m := make(map[NameHash]bool, len(voidElementNames))
	for _, n := range voidElementNames {
		if h, ok := HashName([]byte(n)); ok {
			m[h] = true
		}
	}
	return m
}()

func isVoidElement(name []byte) bool {
	if h, ok := HashName(name); ok {
		return voidElementHash[h]
	}
	for _, n := range voidElementNames {
		if bytes.EqualFold(name, []byte(n)) {
			return true
		}
	}
	return false
}

// IsVoidElement reports whether name is one of HTML5's void elements
// (always immediately closed, self-closing slash or not). A
// TransformController can use this to decide, from a TagHint's name alone,
// whether settling HandleElementStartHint without a full lex is safe: a
// non-void element's self-closing-ness can never be known from a hint, but
// a void element is unconditionally closed regardless of it.
func IsVoidElement(name []byte) bool {
	return isVoidElement(name)
}

// IsVoidElementHash reports whether hash is the NameHash of one of HTML5's
// void elements. A TagHint never carries the tag's raw bytes, only its
// NameHash (and whether hashing succeeded at all) — this lets a
// TransformController make the same void-element check IsVoidElement makes,
// straight from a TagHint, with no chunk access and no lexing.
func IsVoidElementHash(hash NameHash, hashOK bool) bool {
	return hashOK && voidElementHash[hash]
}

// elementFrame is the Dispatcher's bookkeeping for one currently-open
// element: enough to recognize its matching end tag and to carry out
// whatever the element's start-tag handler decided should happen to its
// content (pass through, suppress, or replace) once that end tag arrives.
type elementFrame struct {
	nameHash NameHash
	hashOK   bool
	name     []byte

	startTok      *StartTagToken
	childSettings ContentSettings
	stopped       bool // ElementStopTraversal: subtree is hint-tracked only

	// suppressChildren is true when the element's original content must
	// not reach the output at all: RemoveElement, Replace and
	// SetInnerContent all discard it (RemoveElement and Replace
	// additionally discard the tags themselves, SetInnerContent keeps them).
	suppressChildren bool
	// dropOwnTags is true when the start/end tag bytes themselves are
	// dropped: RemoveElement, Replace, and RemoveAndKeepContent all drop
	// the tags (RemoveElement/Replace also drop the content via
	// suppressChildren; RemoveAndKeepContent does not).
	dropOwnTags bool

	// stopped-subtree nesting depth, tracked via TagHints only.
	depth int
}

// Dispatcher is the Sink implementation that sits between the Tokenizer and
// a TransformController, translating raw lexemes into semantic Tokens,
// running the controller's handlers against them, and splicing the
// handler-mutated result (or, for everything no handler touched, the
// original bytes verbatim) into out.
type Dispatcher struct {
	controller TransformController
	out        io.Writer
	logger     *logrus.Logger
	enc        Encoding

	chunk *Chunk

	// passthroughStart is the chunk-local offset of the first byte not
	// yet written to out, whether as raw pass-through or folded into a
	// token's serialization.
	passthroughStart int

	capturer      *Capturer
	elementStack  []elementFrame
	docSettings   ContentSettings

	suppressDepth int // >0 while inside a suppressChildren element's content

	err error
}

// NewDispatcher constructs a Dispatcher writing to out.
func NewDispatcher(controller TransformController, out io.Writer, enc Encoding, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = newDiscardLogger()
	}
	d := &Dispatcher{
		controller: controller,
		out:        out,
		logger:     logger,
		enc:        enc,
	}
	d.docSettings = controller.InitialContentSettings()
	d.capturer = NewCapturer(d.docSettings.CaptureFlags(), enc)
	return d
}

// DocSettings returns the content settings in effect at the document root,
// as established once at construction by the controller's
// InitialContentSettings. The driver consults this to decide whether the
// tokenizer needs to start in FullLexer mode.
func (d *Dispatcher) DocSettings() ContentSettings {
	return d.docSettings
}

// Err returns the first error a handler or controller call produced, if
// any; once set, the Dispatcher ignores further lexemes and writes nothing
// more to out.
func (d *Dispatcher) Err() error {
	return d.err
}

// SetChunk must be called before feeding a new Chunk to the Tokenizer that
// reports to this Dispatcher, so Range-relative writes resolve correctly.
func (d *Dispatcher) SetChunk(chunk *Chunk) {
	d.chunk = chunk
	d.passthroughStart = 0
}

// LowWaterMark returns the lowest chunk-local offset the Dispatcher still
// references, mirroring Tokenizer.LowWaterMark's compaction contract. Open
// elements hold no byte ranges past their own start tag (which is always
// written out synchronously before HandleTagLexeme returns), so the only
// retained state is the pass-through cursor and any text still being
// coalesced.
func (d *Dispatcher) LowWaterMark() int {
	if t := d.capturer.pendingText; t != nil && t.Range.Start < d.passthroughStart {
		return t.Range.Start
	}
	return d.passthroughStart
}

// Rebase shifts the Dispatcher's retained chunk-local offsets by -delta
// after the driver compacts the buffer.
func (d *Dispatcher) Rebase(delta int) {
	if delta == 0 {
		return
	}
	d.passthroughStart -= delta
	if t := d.capturer.pendingText; t != nil {
		t.Range.Start -= delta
		t.Range.End -= delta
	}
}

// currentSettings returns the content settings in effect right now: the
// innermost open element's, or document-level if none is open.
func (d *Dispatcher) currentSettings() ContentSettings {
	if n := len(d.elementStack); n > 0 {
		return d.elementStack[n-1].childSettings
	}
	return d.docSettings
}

func (d *Dispatcher) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// write sends bytes to out unless a Replace/SetInnerContent ancestor has
// suppressed this span's content.
func (d *Dispatcher) write(p []byte) {
	if d.err != nil || d.suppressDepth > 0 || len(p) == 0 {
		return
	}
	if _, err := d.out.Write(p); err != nil {
		d.fail(err)
	}
}

// flushPassthroughTo writes whatever raw bytes between passthroughStart
// and upTo were never claimed by a captured Token (comments, skipped tags,
// text in uncaptured spans, CDATA, ...), then advances passthroughStart.
func (d *Dispatcher) flushPassthroughTo(upTo int) {
	if upTo <= d.passthroughStart {
		return
	}
	d.write(d.chunk.Sub(Range{Start: d.passthroughStart, End: upTo}))
	d.passthroughStart = upTo
}

// ---- Sink implementation ----

// HandleTagHint implements Sink for TagScanner-mode spans: either a stopped
// subtree (tracked purely by name/kind, no controller consultation) or an
// ordinary hint the controller gets to veto full lexing for.
func (d *Dispatcher) HandleTagHint(hint TagHint) ParserDirective {
	if n := len(d.elementStack); n > 0 {
		top := &d.elementStack[n-1]
		if hintNameEquals(hint, top.nameHash, top.hashOK, top.name, d.chunk) {
			switch hint.Kind {
			case StartTagKind:
				top.depth++
				if top.stopped {
					return ScanForTags
				}
			case EndTagKind:
				top.depth--
				if top.depth <= 0 {
					// This closes the top frame itself: resume FullLexer
					// mode so handleEndTag can run its close-time logic.
					return Lex
				}
				if top.stopped {
					return ScanForTags
				}
			}
		} else if top.stopped {
			// Uninteresting while suppressed: don't even ask the
			// controller, since a stopped subtree ignores every selector.
			return ScanForTags
		}
	}

	if hint.Kind != StartTagKind {
		// handle_element_start only applies to starts: a stray/unmatched
		// end tag has no element here to settle content for, so fall
		// through to a full lex and let handleEndTag report the mismatch
		// the way it always has.
		return Lex
	}

	decision := d.controller.HandleElementStartHint(hint)
	if decision.Kind != SettledContentSettings {
		return Lex
	}
	if !decision.Settings.RequiresLexing() {
		// Nothing beneath this element differs from whatever already
		// applies, so there is nothing to restore once it closes either:
		// skip it exactly like "not of interest," with no frame at all.
		return ScanForTags
	}
	frame := d.pushSettledFrame(hint, decision.Settings)
	return d.nextDirective(frame)
}

// pushSettledFrame opens a lightweight elementFrame for a start tag whose
// content settings were already settled from its name alone, at hint
// stage: its attributes are never lexed and no StartTagToken is ever
// built, so startTok stays nil (closeFrame skips every token-mutation step
// for it — there is nothing to mutate, since HandleElementStart was never
// called). Reached only for names HandleElementStartHint proves safe to
// settle with non-empty ContentSettings; self-closing-ness is never
// knowable from a hint alone, which is why a real implementation (see
// selector.Matcher) restricts this path to elements that are always
// immediately closed regardless of a trailing "/".
func (d *Dispatcher) pushSettledFrame(hint TagHint, settings ContentSettings) elementFrame {
	name := append([]byte(nil), d.chunk.Sub(hint.NameRange)...)
	frame := elementFrame{
		nameHash:      hint.NameHash,
		hashOK:        hint.HashOK,
		name:          name,
		childSettings: settings,
	}
	frame.depth = 1
	if isVoidElement(name) {
		d.closeFrame(frame, nil, TagLexeme{})
		return frame
	}
	d.elementStack = append(d.elementStack, frame)
	d.capturer = NewCapturer(settings.CaptureFlags(), d.enc)
	return frame
}

func hintNameEquals(hint TagHint, nameHash NameHash, hashOK bool, name []byte, chunk *Chunk) bool {
	if hashOK && hint.HashOK {
		return hint.NameHash == nameHash
	}
	return bytes.EqualFold(chunk.Sub(hint.NameRange), name)
}

// HandleTagLexeme implements Sink for FullLexer-mode tags.
func (d *Dispatcher) HandleTagLexeme(lexeme TagLexeme) ParserDirective {
	if d.err != nil {
		return ScanForTags
	}
	if tokens := d.capturer.Flush(); len(tokens) > 0 {
		d.routeDocumentOrElementTokens(tokens)
	}
	d.flushPassthroughTo(lexeme.Range.Start)

	name := d.chunk.Sub(lexeme.Outline.NameRange)
	nameCopy := append([]byte(nil), name...)

	switch lexeme.Outline.Kind {
	case StartTagKind:
		return d.handleStartTag(lexeme, nameCopy)
	case EndTagKind:
		return d.handleEndTag(lexeme, nameCopy)
	}
	return Lex
}

func (d *Dispatcher) handleStartTag(lexeme TagLexeme, name []byte) ParserDirective {
	tok := &StartTagToken{
		originalNameRange: lexeme.Outline.NameRange,
		attrs:             decodeAttrs(d.chunk, lexeme.Outline.Attributes),
		selfClosing:       lexeme.Outline.SelfClosing,
	}

	childSettings, resp, err := d.controller.HandleElementStart(tok, d.chunk)
	if err != nil {
		d.fail(errContentHandler(err))
		return ScanForTags
	}

	d.write(tok.SerializeOpen(nil, d.chunk, lexeme))
	d.passthroughStart = lexeme.Range.End

	// Always go through the token's own methods rather than re-deriving
	// these booleans from its fields here: StartTagToken shadows
	// mutable.Remove/Removed specifically so that both agree on what
	// "removed" means (see token.go), and a second hand-rolled copy of
	// this logic is exactly how that could drift out of sync again.
	suppressChildren := tok.SuppressesChildren()
	dropOwnTags := tok.DropsOwnTagBytes()

	frame := elementFrame{
		nameHash:         lexeme.Outline.NameHash,
		hashOK:           lexeme.Outline.HashOK,
		name:             name,
		startTok:         tok,
		childSettings:    childSettings,
		stopped:          resp.Kind == ElementStopTraversal,
		suppressChildren: suppressChildren,
		dropOwnTags:      dropOwnTags,
	}
	// depth tracks the element itself (1) plus any same-named descendants
	// the hint scanner encounters while this frame's subtree is being
	// hint-scanned rather than fully lexed; it must reach 0 again — not
	// merely dip to it from a deeper nested duplicate's own close —
	// before the frame's matching end tag is recognized. Unused (but
	// harmless) when the frame's subtree never drops into ScanForTags.
	frame.depth = 1

	immediatelyClosed := tok.selfClosing || isVoidElement(name)
	if immediatelyClosed {
		d.closeFrame(frame, nil, lexeme)
		return d.nextDirective(frame)
	}

	d.elementStack = append(d.elementStack, frame)
	d.capturer = NewCapturer(childSettings.CaptureFlags(), d.enc)
	if suppressChildren {
		d.suppressDepth++
	}

	// Raw-text elements (script/style/textarea/...) always stay in
	// FullLexer mode regardless of what we'd otherwise pick, because the
	// Tokenizer itself forces that in finalizeTag; requesting Lex here too
	// keeps our own directive consistent with what will actually happen.
	if _, isRaw := rawTextModelForRange(d.chunk, lexeme.Outline.NameRange); isRaw {
		return Lex
	}

	return d.nextDirective(frame)
}

func (d *Dispatcher) nextDirective(frame elementFrame) ParserDirective {
	if frame.stopped {
		return ScanForTags
	}
	if frame.childSettings.RequiresLexing() {
		return Lex
	}
	return ScanForTags
}

func (d *Dispatcher) handleEndTag(lexeme TagLexeme, name []byte) ParserDirective {
	idx := d.findFrame(lexeme.Outline.NameHash, lexeme.Outline.HashOK, name)
	if idx < 0 {
		// Stray/unmatched end tag: no open element to close. Leave its
		// bytes as pending pass-through rather than writing them now.
		return Lex
	}

	// Implicitly close any more-nested frames first (malformed overlap).
	for len(d.elementStack)-1 > idx {
		top := d.popFrame()
		d.closeFrame(top, nil, TagLexeme{})
	}

	top := d.popFrame()
	d.closeFrame(top, &lexeme.Outline.NameRange, lexeme)

	return d.nextDirectiveAfterClose()
}

func (d *Dispatcher) nextDirectiveAfterClose() ParserDirective {
	return d.nextDirective(d.topFrameOrDoc())
}

func (d *Dispatcher) topFrameOrDoc() elementFrame {
	if n := len(d.elementStack); n > 0 {
		return d.elementStack[n-1]
	}
	return elementFrame{childSettings: d.docSettings}
}

func (d *Dispatcher) findFrame(hash NameHash, hashOK bool, name []byte) int {
	for i := len(d.elementStack) - 1; i >= 0; i-- {
		f := d.elementStack[i]
		if hashOK && f.hashOK {
			if f.nameHash == hash {
				return i
			}
			continue
		}
		if bytes.EqualFold(f.name, name) {
			return i
		}
	}
	return -1
}

func (d *Dispatcher) popFrame() elementFrame {
	n := len(d.elementStack)
	f := d.elementStack[n-1]
	d.elementStack = d.elementStack[:n-1]
	d.capturer = NewCapturer(d.currentSettings().CaptureFlags(), d.enc)
	return f
}

// closeFrame finalizes one element: flushes any pending text inside it,
// runs the OnEndTag callback and controller.HandleElementEnd, then writes
// whatever the close-time output is (suppressed children never having been
// written, a Replace/SetInnerContent substitution if queued, Append content,
// the end tag if the element had one in the input and its tags are not
// dropped, and finally After content).
// endNameRange/lexeme are zero-valued for an implicit close (a more-nested
// open element with no end tag of its own, e.g. unmatched overlap).
func (d *Dispatcher) closeFrame(frame elementFrame, endNameRange *Range, lexeme TagLexeme) {
	if frame.suppressChildren {
		d.suppressDepth--
	}

	endTok := &EndTagToken{}
	if endNameRange != nil {
		endTok.originalNameRange = *endNameRange
		endTok.hasOriginal = true
	}
	if frame.startTok != nil && frame.startTok.newName != nil {
		// SetTagName renames the end tag along with the start tag.
		endTok.newName = frame.startTok.newName
	}
	if frame.startTok != nil && frame.startTok.onEndTagCallback != nil {
		if err := frame.startTok.onEndTagCallback(endTok); err != nil {
			d.fail(errContentHandler(err))
		}
	}
	if err := d.controller.HandleElementEnd(endTok, d.chunk); err != nil {
		d.fail(errContentHandler(err))
	}

	if frame.startTok != nil {
		// Close-time content substitution, in priority order.
		switch {
		case frame.startTok.wholeElementReplace != nil:
			d.write(frame.startTok.wholeElementReplace.appendTo(nil))
		case frame.startTok.innerContentReplace != nil:
			d.write(frame.startTok.innerContentReplace.appendTo(nil))
		}
		d.write(frame.startTok.SerializeClose(nil))
	}

	if !frame.dropOwnTags {
		if endNameRange != nil {
			d.flushPassthroughTo(lexeme.Range.Start)
			d.write(endTok.Serialize(nil, d.chunk, &lexeme))
			d.passthroughStart = lexeme.Range.End
		} else {
			// Implicit close: no end tag bytes exist to emit or skip.
		}
	} else if endNameRange != nil {
		// Tags dropped: the end tag's original bytes are skipped, not
		// passed through.
		d.flushPassthroughTo(lexeme.Range.Start)
		d.passthroughStart = lexeme.Range.End
	}

	if frame.startTok != nil {
		d.write(frame.startTok.SerializeAfter(nil))
	}
}

// HandleNonTagLexeme implements Sink for text, comments, doctype, CDATA,
// and end-of-stream.
func (d *Dispatcher) HandleNonTagLexeme(lexeme NonTagContentLexeme) {
	if d.err != nil {
		return
	}

	if lexeme.Outline.Kind == EofLexeme {
		if tokens := d.capturer.Flush(); len(tokens) > 0 {
			d.routeDocumentOrElementTokens(tokens)
		}
		d.flushPassthroughTo(lexeme.Range.Start)
		return
	}

	tokens := d.capturer.ConsumeNonTag(lexeme, d.chunk)
	if len(tokens) == 0 {
		return
	}
	// The capturer only promotes a lexeme to a Token when its flags asked
	// for that kind; whatever range the resulting token(s) cover must be
	// claimed from pass-through before we write their serialization.
	for _, tok := range tokens {
		d.claimAndRoute(tok)
	}
}

// claimAndRoute flushes pass-through up to a token's own range, runs it
// through the controller, and writes its (possibly mutated) serialization.
func (d *Dispatcher) claimAndRoute(tok Token) {
	switch v := tok.(type) {
	case *TextChunkToken:
		d.flushPassthroughTo(v.Range.Start)
		if err := d.routeText(v); err != nil {
			d.fail(errContentHandler(err))
			return
		}
		d.write(v.Serialize(nil, d.chunk))
		d.passthroughStart = v.Range.End
	case *CommentToken:
		d.flushPassthroughTo(v.outerRange.Start)
		if err := d.routeComment(v); err != nil {
			d.fail(errContentHandler(err))
			return
		}
		d.write(v.Serialize(nil, d.chunk))
		d.passthroughStart = v.outerRange.End
	case *DoctypeToken:
		// Doctype is read-only; nothing to claim beyond what's already
		// pass-through, but still offer it to the controller.
		if err := d.controller.HandleDoctype(v, d.chunk); err != nil {
			d.fail(errContentHandler(err))
		}
	}
}

func (d *Dispatcher) routeText(tok *TextChunkToken) error {
	return d.controller.HandleText(tok, d.chunk)
}

func (d *Dispatcher) routeComment(tok *CommentToken) error {
	return d.controller.HandleComment(tok, d.chunk)
}

// routeDocumentOrElementTokens is used for the text/comment the capturer
// hands back when a tag boundary forces an early flush (coalescing ends at
// every tag, per the Capturer's contract).
func (d *Dispatcher) routeDocumentOrElementTokens(tokens []Token) {
	for _, tok := range tokens {
		d.claimAndRoute(tok)
	}
}
