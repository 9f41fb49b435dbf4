package rewriter

// CaptureFlags selects which lexeme kinds a capturer promotes to semantic
// Tokens for one element's subtree (or, at the document level, for content
// no element selector claimed). Bits are independent: a controller can ask
// for comments without text, e.g. to rewrite comments without paying for
// text token construction. Tags are never captured here; the Dispatcher
// builds start/end tag tokens itself.
type CaptureFlags uint8

const (
	CaptureText CaptureFlags = 1 << iota
	CaptureComments
	CaptureDoctype
)

// CaptureNothing passes every lexeme through as raw bytes.
const CaptureNothing CaptureFlags = 0

// Token is the common type of every semantic token a Capturer can produce.
// Exactly one of the concrete *Token types in token.go implements it.
type Token interface {
	isToken()
}

func (*StartTagToken) isToken() {}
func (*EndTagToken) isToken()   {}
func (*TextChunkToken) isToken() {}
func (*CommentToken) isToken()  {}
func (*DoctypeToken) isToken()  {}

// Capturer turns raw lexemes into semantic Tokens according to a
// CaptureFlags mask, coalescing consecutive captured text lexemes into a
// single TextChunkToken the way a DOM text node absorbs adjacent character
// data. It holds no knowledge of elements, selectors, or output splicing —
// that's the Dispatcher's job; a Capturer only answers "what token(s), if
// any, does this lexeme produce".
type Capturer struct {
	flags       CaptureFlags
	enc         Encoding
	pendingText *TextChunkToken
}

// NewCapturer constructs a Capturer using enc to decode text content for
// TextChunkToken.AsStr.
func NewCapturer(flags CaptureFlags, enc Encoding) *Capturer {
	return &Capturer{flags: flags, enc: enc}
}

// SetFlags updates which lexeme kinds are captured, e.g. when a selector
// match changes the applicable content settings mid-stream. Any pending
// coalesced text is flushed first so the flag change only affects lexemes
// seen afterward.
func (c *Capturer) SetFlags(flags CaptureFlags) []Token {
	var out []Token
	if t := c.flushText(); t != nil {
		out = append(out, t)
	}
	c.flags = flags
	return out
}

// ConsumeNonTag converts one NonTagContentLexeme into zero or more Tokens.
// Text lexemes are buffered for coalescing rather than emitted immediately;
// call Flush (or let the next non-text ConsumeNonTag call do it) to force
// the pending run out.
func (c *Capturer) ConsumeNonTag(lexeme NonTagContentLexeme, chunk *Chunk) []Token {
	switch lexeme.Outline.Kind {
	case TextLexeme:
		if c.flags&CaptureText == 0 {
			if t := c.flushText(); t != nil {
				return []Token{t}
			}
			return nil
		}
		if t := c.coalesceText(lexeme.Range); t != nil {
			return []Token{t}
		}
		return nil

	case CommentLexeme:
		var out []Token
		if t := c.flushText(); t != nil {
			out = append(out, t)
		}
		if c.flags&CaptureComments != 0 {
			out = append(out, &CommentToken{
				outerRange: lexeme.Range,
				dataRange:  lexeme.Outline.CommentData,
			})
		}
		return out

	case DoctypeLexeme:
		var out []Token
		if t := c.flushText(); t != nil {
			out = append(out, t)
		}
		if c.flags&CaptureDoctype != 0 {
			out = append(out, &DoctypeToken{outline: lexeme.Outline.Doctype})
		}
		return out

	case CdataLexeme:
		// CDATA has no token representation; it passes through as raw
		// bytes regardless of capture flags, so just flush any pending text.
		if t := c.flushText(); t != nil {
			return []Token{t}
		}
		return nil

	case EofLexeme:
		if t := c.flushText(); t != nil {
			return []Token{t}
		}
		return nil
	}
	return nil
}

// Flush forces out any coalesced-but-not-yet-emitted text token, marking it
// as the last text in its node. Call this when an element boundary the
// Capturer itself doesn't see (e.g. content-settings change from a sibling
// selector match) must cut a text node short.
func (c *Capturer) Flush() []Token {
	if t := c.flushText(); t != nil {
		return []Token{t}
	}
	return nil
}

// coalesceText extends the pending text node if r directly continues it, or
// starts a fresh one otherwise. A non-adjacent run (shouldn't happen in
// practice since the tokenizer only gaps on a tag/comment/doctype, which
// already flushes via the Dispatcher's Flush call or ConsumeNonTag) still must not lose the
// node it's replacing, so it's returned for the caller to emit rather than
// discarded in place.
func (c *Capturer) coalesceText(r Range) *TextChunkToken {
	if c.pendingText != nil && c.pendingText.Range.End == r.Start {
		c.pendingText.Range.End = r.End
		return nil
	}
	flushed := c.flushText()
	c.pendingText = &TextChunkToken{Range: r, Encoding: c.enc}
	return flushed
}

func (c *Capturer) flushText() *TextChunkToken {
	t := c.pendingText
	if t == nil {
		return nil
	}
	t.LastInTextNode = true
	c.pendingText = nil
	return t
}

// decodeAttrs materializes mutable Attribute values from the raw
// AttrRanges a TagLexeme carries, copying names and values as raw byte
// slices of the chunk. No charset decoding is applied: the document's
// Encoding is not consulted here.
func decodeAttrs(chunk *Chunk, ranges []AttrRange) []Attribute {
	if len(ranges) == 0 {
		return nil
	}
	out := make([]Attribute, len(ranges))
	for i, a := range ranges {
		out[i].Name = string(chunk.Sub(a.Name))
		if a.HasValue {
			out[i].Value = string(chunk.Sub(a.Value))
		}
	}
	return out
}
