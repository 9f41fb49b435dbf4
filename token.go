package rewriter

import "html"

// ContentType governs how content passed to Before/After/Prepend/Append/
// SetInnerContent/Replace is inserted: Html splices the bytes in as-is,
// Text HTML-escapes them first.
type ContentType int

const (
	ContentHTML ContentType = iota
	ContentText
)

// insertion is one piece of content queued by Before/After/Prepend/Append,
// remembering whether it still needs escaping at serialization time.
type insertion struct {
	content []byte
	ct      ContentType
}

func (ins insertion) appendTo(dst []byte) []byte {
	if ins.ct == ContentText {
		return append(dst, html.EscapeString(string(ins.content))...)
	}
	return append(dst, ins.content...)
}

func appendInsertions(dst []byte, ins []insertion) []byte {
	for _, i := range ins {
		dst = i.appendTo(dst)
	}
	return dst
}

// Attribute is one mutable attribute of a StartTagToken.
type Attribute struct {
	Name  string
	Value string
}

// mutable holds the Before/After insertion queues and remove flag shared
// by every content-bearing token kind (element, text chunk, comment).
type mutable struct {
	before  []insertion
	after   []insertion
	removed bool
}

// Before queues content to be emitted immediately before this token's own
// serialized form.
func (m *mutable) Before(content string, ct ContentType) {
	m.before = append(m.before, insertion{content: []byte(content), ct: ct})
}

// After queues content to be emitted immediately after this token's own
// serialized form (and after any Append content, for elements).
func (m *mutable) After(content string, ct ContentType) {
	m.after = append(m.after, insertion{content: []byte(content), ct: ct})
}

// Remove marks this token for removal: its own bytes are dropped from the
// output, but queued Before/After content still appears.
func (m *mutable) Remove() {
	m.removed = true
}

// Removed reports whether Remove was called.
func (m *mutable) Removed() bool {
	return m.removed
}

// StartTagToken is the mutable view of a start tag handed to element
// content handlers. Because "remove the whole element", "replace the
// whole element", and "set the element's inner content" all act on the
// span from this start tag to its matching end tag — which hasn't been
// seen yet when the handler runs — those three are recorded here as
// intents and carried out by the Dispatcher's element stack as the
// matching end tag (or self-closing) is reached.
type StartTagToken struct {
	mutable

	originalNameRange Range
	newName           []byte // nil => unchanged

	attrs       []Attribute
	dirty       bool // set once attrs no longer mirrors the original lexeme
	selfClosing bool

	prepend     []insertion
	appendQueue []insertion // Append() content, flushed just before the end tag

	removeWholeElement  bool
	removeKeepContent   bool
	innerContentReplace *insertion
	wholeElementReplace *insertion
	onEndTagCallback    func(*EndTagToken) error
}

// TagName returns the element's current tag name (post SetTagName if
// called), reading the original bytes from chunk otherwise.
func (s *StartTagToken) TagName(chunk *Chunk) string {
	if s.newName != nil {
		return string(s.newName)
	}
	return string(chunk.Sub(s.originalNameRange))
}

// SetTagName renames the element's start AND end tag.
func (s *StartTagToken) SetTagName(name string) {
	s.newName = []byte(name)
}

// GetAttribute returns an attribute's value and whether it was present.
func (s *StartTagToken) GetAttribute(name string) (string, bool) {
	for _, a := range s.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute sets (or adds) an attribute.
func (s *StartTagToken) SetAttribute(name, value string) {
	s.dirty = true
	for i, a := range s.attrs {
		if a.Name == name {
			s.attrs[i].Value = value
			return
		}
	}
	s.attrs = append(s.attrs, Attribute{Name: name, Value: value})
}

// RemoveAttribute deletes an attribute if present.
func (s *StartTagToken) RemoveAttribute(name string) {
	for i, a := range s.attrs {
		if a.Name == name {
			s.dirty = true
			s.attrs = append(s.attrs[:i], s.attrs[i+1:]...)
			return
		}
	}
}

// Prepend queues content to be inserted just after the start tag, before
// any original children.
func (s *StartTagToken) Prepend(content string, ct ContentType) {
	s.prepend = append(s.prepend, insertion{content: []byte(content), ct: ct})
}

// Append queues content to be inserted just before the end tag, after any
// original children.
func (s *StartTagToken) Append(content string, ct ContentType) {
	s.appendQueue = append(s.appendQueue, insertion{content: []byte(content), ct: ct})
}

// SetInnerContent replaces everything between the start and end tags.
func (s *StartTagToken) SetInnerContent(content string, ct ContentType) {
	ins := insertion{content: []byte(content), ct: ct}
	s.innerContentReplace = &ins
}

// Replace drops the element (tags and descendants) entirely and splices
// content in its place.
func (s *StartTagToken) Replace(content string, ct ContentType) {
	ins := insertion{content: []byte(content), ct: ct}
	s.wholeElementReplace = &ins
}

// RemoveElement drops the start tag, every descendant, and the end tag.
func (s *StartTagToken) RemoveElement() {
	s.removeWholeElement = true
}

// Remove shadows mutable.Remove: for a StartTagToken, "remove" means the
// whole element (tags, descendants, and all), the same as RemoveElement.
// mutable.Remove's tag-bytes-only meaning is correct for a text chunk or
// comment token, but promoting it unshadowed onto an element would drop
// only its opening tag while leaving children and the end tag untouched,
// corrupting the output.
func (s *StartTagToken) Remove() {
	s.RemoveElement()
}

// Removed reports whether Remove or RemoveElement was called.
func (s *StartTagToken) Removed() bool {
	return s.removeWholeElement
}

// RemoveAndKeepContent drops just the start/end tags, keeping descendants
// (and their own handlers still fire).
func (s *StartTagToken) RemoveAndKeepContent() {
	s.removeKeepContent = true
}

// OnEndTag registers a callback invoked with the element's end tag token
// when it is reached (or, for a self-closing/void element, immediately).
func (s *StartTagToken) OnEndTag(cb func(*EndTagToken) error) {
	s.onEndTagCallback = cb
}

// DropsOwnTagBytes reports whether Remove, RemoveElement, Replace, or
// RemoveAndKeepContent means the start/end tag bytes themselves must not
// reach the output (the Dispatcher still needs this to decide whether to
// skip the end tag's original bytes too). Remove is folded into
// removeWholeElement by the shadowed Remove method above, not checked via
// mutable.removed here — see its doc comment.
func (s *StartTagToken) DropsOwnTagBytes() bool {
	return s.removeWholeElement || s.wholeElementReplace != nil || s.removeKeepContent
}

// SuppressesChildren reports whether RemoveElement, Replace, or
// SetInnerContent means the element's original content must never reach
// the output at all.
func (s *StartTagToken) SuppressesChildren() bool {
	return s.removeWholeElement || s.wholeElementReplace != nil || s.innerContentReplace != nil
}

// SerializeOpen renders the opening half: Before() content, then the start
// tag itself (unless dropped), then Prepend() content (skipped when the
// element's children are suppressed, since there's no "inside" left for it
// to precede). After() content is NOT emitted here — Before/After apply to
// the whole element, so the Dispatcher's element stack emits s.after once
// the matching end tag (or the element's replacement/removal) has been
// resolved.
func (s *StartTagToken) SerializeOpen(dst []byte, chunk *Chunk, lexeme TagLexeme) []byte {
	dst = appendInsertions(dst, s.before)
	if !s.DropsOwnTagBytes() {
		dst = s.serializeTagItself(dst, chunk, lexeme)
	}
	if !s.SuppressesChildren() {
		dst = appendInsertions(dst, s.prepend)
	}
	return dst
}

// SerializeClose renders the Append() content queued for just before the
// end tag (skipped when the element's children are suppressed). Called by
// the Dispatcher immediately before it serializes the matching end tag (or,
// for a self-closing/void element, immediately after SerializeOpen).
func (s *StartTagToken) SerializeClose(dst []byte) []byte {
	if s.SuppressesChildren() {
		return dst
	}
	return appendInsertions(dst, s.appendQueue)
}

// SerializeAfter renders the After() content queued for the whole element,
// emitted once the end tag itself has been serialized.
func (s *StartTagToken) SerializeAfter(dst []byte) []byte {
	return appendInsertions(dst, s.after)
}

func (s *StartTagToken) serializeTagItself(dst []byte, chunk *Chunk, lexeme TagLexeme) []byte {
	if s.newName == nil && !s.attrsChanged() {
		return append(dst, chunk.Sub(lexeme.Range)...)
	}
	dst = append(dst, '<')
	dst = append(dst, s.TagName(chunk)...)
	for _, a := range s.attrs {
		dst = append(dst, ' ')
		dst = append(dst, a.Name...)
		dst = append(dst, '=', '"')
		dst = append(dst, html.EscapeString(a.Value)...)
		dst = append(dst, '"')
	}
	if s.selfClosing {
		dst = append(dst, ' ', '/')
	}
	dst = append(dst, '>')
	return dst
}

func (s *StartTagToken) attrsChanged() bool {
	return s.dirty
}

// EndTagToken is the mutable view of an end tag, built by the Dispatcher
// each time an open element closes and handed to that element's OnEndTag
// callback (if any) and to the controller's HandleElementEnd. It has no
// original name when the element had no end tag in the input.
type EndTagToken struct {
	mutable

	originalNameRange Range
	hasOriginal       bool
	newName           []byte
}

func (e *EndTagToken) TagName(chunk *Chunk) string {
	if e.newName != nil {
		return string(e.newName)
	}
	if e.hasOriginal {
		return string(chunk.Sub(e.originalNameRange))
	}
	return ""
}

func (e *EndTagToken) SetTagName(name string) {
	e.newName = []byte(name)
}

func (e *EndTagToken) Serialize(dst []byte, chunk *Chunk, lexeme *TagLexeme) []byte {
	dst = appendInsertions(dst, e.before)
	if !e.removed {
		if e.newName == nil && lexeme != nil {
			dst = append(dst, chunk.Sub(lexeme.Range)...)
		} else if e.hasOriginal || e.newName != nil {
			dst = append(dst, '<', '/')
			dst = append(dst, e.TagName(chunk)...)
			dst = append(dst, '>')
		}
	}
	dst = appendInsertions(dst, e.after)
	return dst
}

// TextChunkToken is the mutable view of a (possibly coalesced) run of text.
type TextChunkToken struct {
	mutable

	Range    Range
	Encoding Encoding
	// LastInTextNode is true if no further text lexeme will be coalesced
	// into this one before a tag or state change flushes it.
	LastInTextNode bool

	replacement *insertion
}

// AsStr decodes the chunk's raw bytes for this range using Encoding.
func (t *TextChunkToken) AsStr(chunk *Chunk) string {
	raw := chunk.Sub(t.Range)
	if t.Encoding.Codec == nil {
		return string(raw)
	}
	decoded, err := t.Encoding.Codec.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// Replace substitutes this text chunk's content entirely.
func (t *TextChunkToken) Replace(content string, ct ContentType) {
	ins := insertion{content: []byte(content), ct: ct}
	t.replacement = &ins
}

func (t *TextChunkToken) Serialize(dst []byte, chunk *Chunk) []byte {
	dst = appendInsertions(dst, t.before)
	switch {
	case t.removed:
		// drop own bytes
	case t.replacement != nil:
		dst = t.replacement.appendTo(dst)
	default:
		dst = append(dst, chunk.Sub(t.Range)...)
	}
	dst = appendInsertions(dst, t.after)
	return dst
}

// CommentToken is the mutable view of a comment. outerRange spans the
// whole original construct (including its delimiters, whatever they were —
// a well-formed comment's are "<!--"/"-->", a bogus comment's may be
// "<!"/">" or "<?"/">"), so untouched comments round-trip byte-for-byte
// rather than being renormalized into "<!--...-->" form.
type CommentToken struct {
	mutable

	outerRange Range
	dataRange  Range
	newText    []byte // nil => unchanged
}

func (c *CommentToken) Text(chunk *Chunk) string {
	if c.newText != nil {
		return string(c.newText)
	}
	return string(chunk.Sub(c.dataRange))
}

func (c *CommentToken) SetText(text string) {
	c.newText = []byte(text)
}

func (c *CommentToken) Serialize(dst []byte, chunk *Chunk) []byte {
	dst = appendInsertions(dst, c.before)
	if !c.removed {
		if c.newText == nil {
			dst = append(dst, chunk.Sub(c.outerRange)...)
		} else {
			dst = append(dst, "<!--"...)
			dst = append(dst, c.newText...)
			dst = append(dst, "-->"...)
		}
	}
	dst = appendInsertions(dst, c.after)
	return dst
}

// DoctypeToken is a read-only view of a doctype declaration; the spec
// defines no mutation surface for it.
type DoctypeToken struct {
	outline DoctypeOutline
}

func (d *DoctypeToken) Name(chunk *Chunk) (string, bool) {
	if !d.outline.NamePresent {
		return "", false
	}
	return string(chunk.Sub(d.outline.NameRange)), true
}

func (d *DoctypeToken) PublicID(chunk *Chunk) (string, bool) {
	if !d.outline.PublicIDPresent {
		return "", false
	}
	return string(chunk.Sub(d.outline.PublicIDRange)), true
}

func (d *DoctypeToken) SystemID(chunk *Chunk) (string, bool) {
	if !d.outline.SystemIDPresent {
		return "", false
	}
	return string(chunk.Sub(d.outline.SystemIDRange)), true
}

func (d *DoctypeToken) Serialize(dst []byte, chunk *Chunk, lexeme NonTagContentLexeme) []byte {
	// Doctype is read-only: always the original bytes.
	return append(dst, chunk.Sub(lexeme.Range)...)
}
