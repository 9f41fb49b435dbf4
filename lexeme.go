package rewriter

// AttrRange is the byte range of one attribute's name and, if present, its
// value, plus whether the value was quoted. Ranges are chunk-local; they
// are only valid while the chunk that produced them is current.
type AttrRange struct {
	Name       Range
	Value      Range
	HasValue   bool
	Quoted     bool
	QuoteChar  byte // '"', '\'', or 0 for unquoted
}

// TagKind distinguishes start and end tags.
type TagKind int

const (
	StartTagKind TagKind = iota
	EndTagKind
)

// TagHint is the lightweight preview TagScanner mode emits for a tag: name
// and kind only, no attributes, no self-closing flag. A tag reached in
// scanner mode produces a TagHint; a tag reached in lex mode produces a
// TagLexeme. When the sink answers a TagHint with Lex, the tokenizer
// re-tokenizes that same tag from its '<', so it produces both.
type TagHint struct {
	Kind      TagKind
	NameRange Range
	NameHash  NameHash
	HashOK    bool
}

// TagOutline is the detailed outline of a TagLexeme produced in FullLexer
// mode.
type TagOutline struct {
	Kind         TagKind
	NameRange    Range
	NameHash     NameHash
	HashOK       bool
	Attributes   []AttrRange // only populated for StartTagKind
	SelfClosing  bool        // only meaningful for StartTagKind
}

// TagLexeme is raw lexer output for a tag: a Range into the input chunk
// plus its outline.
type TagLexeme struct {
	Range   Range
	Outline TagOutline
}

// NonTagKind distinguishes the non-tag lexeme outlines.
type NonTagKind int

const (
	TextLexeme NonTagKind = iota
	CommentLexeme
	DoctypeLexeme
	CdataLexeme
	EofLexeme
)

// DoctypeOutline carries the byte ranges of a doctype's name and external
// identifiers. A zero Range with Present=false means that part was absent
// (e.g. `<!DOCTYPE html>` has no public/system id).
type DoctypeOutline struct {
	NameRange       Range
	NamePresent     bool
	PublicIDRange   Range
	PublicIDPresent bool
	SystemIDRange   Range
	SystemIDPresent bool
	ForceQuirks     bool
}

// NonTagOutline is the outline of a NonTagContentLexeme.
type NonTagOutline struct {
	Kind        NonTagKind
	CommentData Range // valid when Kind == CommentLexeme
	Doctype     DoctypeOutline
}

// NonTagContentLexeme is raw lexer output for text, comments, doctype,
// CDATA, and the synthetic end-of-stream marker.
type NonTagContentLexeme struct {
	Range   Range
	Outline NonTagOutline
}
