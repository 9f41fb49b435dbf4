package rewriter

// stepLex advances the tokenizer by one byte while in FullLexer mode.
// Unlike stepScan, every tag here is fully parsed — name, attributes,
// self-closing flag — because a TagLexeme (unlike a TagHint) carries a
// real Range the dispatcher can reserve and splice a serialized token
// into.
func (t *Tokenizer) stepLex(b byte) {
	switch t.state {
	case stateData:
		t.stepData(b)
	case stateTagOpen:
		t.stepTagOpen(b)
	case stateEndTagOpen:
		t.stepEndTagOpen(b)
	case stateTagName:
		t.stepTagName(b)
	case stateBeforeAttributeName:
		t.stepBeforeAttributeName(b)
	case stateAttributeName:
		t.stepAttributeName(b)
	case stateAfterAttributeName:
		t.stepAfterAttributeName(b)
	case stateBeforeAttributeValue:
		t.stepBeforeAttributeValue(b)
	case stateAttributeValueDoubleQuoted:
		t.stepAttributeValueQuoted(b, '"')
	case stateAttributeValueSingleQuoted:
		t.stepAttributeValueQuoted(b, '\'')
	case stateAttributeValueUnquoted:
		t.stepAttributeValueUnquoted(b)
	case stateAfterAttributeValueQuoted:
		t.stepAfterAttributeValueQuoted(b)
	case stateSelfClosingStartTag:
		t.stepSelfClosingStartTag(b)
	case stateRawTextLike, stateRawTextLikeLessThanSign, stateRawTextLikeEndTagOpen, stateRawTextLikeEndTagName:
		t.stepRawTextLike(b)
	case stateMarkupDeclarationOpen:
		t.stepMarkupDeclarationOpen(b)
	case stateBogusComment:
		t.stepBogusComment(b)
	case stateCommentStart, stateCommentStartDash, stateComment, stateCommentEndDash, stateCommentEnd, stateCommentEndBang:
		t.stepComment(b)
	case stateDoctype, stateBeforeDoctypeName, stateDoctypeName, stateAfterDoctypeName,
		stateBeforeDoctypePublicID, stateDoctypePublicIDDoubleQuoted, stateDoctypePublicIDSingleQuoted,
		stateAfterDoctypePublicID, stateBetweenDoctypePublicAndSystem, stateBeforeDoctypeSystemID,
		stateDoctypeSystemIDDoubleQuoted, stateDoctypeSystemIDSingleQuoted, stateAfterDoctypeSystemID,
		stateBogusDoctype:
		t.stepDoctype(b)
	case stateCdataSection:
		t.stepCdataSection(b)
	}
}

func (t *Tokenizer) stepData(b byte) {
	if t.contentModel != DataContentModel {
		t.stepRawTextLike(b)
		return
	}
	if b == '<' {
		t.emitTextUpTo(t.pos)
		t.pos++
		t.state = stateTagOpen
		return
	}
	t.pos++
}

func (t *Tokenizer) stepTagOpen(b byte) {
	switch {
	case isASCIIAlpha(b):
		t.tagKind = StartTagKind
		t.nameStart = t.pos
		t.nameHasher.reset()
		t.nameHasher.feed(b)
		t.pos++
		t.state = stateTagName
	case b == '/':
		t.pos++
		t.state = stateEndTagOpen
	case b == '!':
		t.pos++
		t.state = stateMarkupDeclarationOpen
	case b == '?':
		// Bogus comment (e.g. a stray XML processing instruction).
		t.commentDataStart = t.pos
		t.state = stateBogusComment
	default:
		// Not a tag after all: "<" becomes ordinary text, and b is
		// reconsumed as the first byte of the following Data run.
		t.state = stateData
	}
}

func (t *Tokenizer) stepEndTagOpen(b byte) {
	switch {
	case isASCIIAlpha(b):
		t.tagKind = EndTagKind
		t.nameStart = t.pos
		t.nameHasher.reset()
		t.nameHasher.feed(b)
		t.pos++
		t.state = stateTagName
	case b == '>':
		// "</>"; HTML5 discards this entirely.
		t.pos++
		t.tokenStart = t.pos
		t.state = stateData
	default:
		t.commentDataStart = t.pos
		t.state = stateBogusComment
	}
}

func (t *Tokenizer) stepTagName(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.attrs = t.attrs[:0]
		t.pos++
		t.state = stateBeforeAttributeName
	case b == '/':
		t.pos++
		t.state = stateSelfClosingStartTag
	case b == '>':
		t.finalizeTag(t.pos)
	default:
		t.nameHasher.feed(b)
		t.pos++
	}
}

func (t *Tokenizer) stepBeforeAttributeName(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.pos++
	case b == '/':
		t.pos++
		t.state = stateSelfClosingStartTag
	case b == '>':
		t.finalizeTag(t.pos)
	case b == '=':
		// Leading '=' with no name: HTML5 treats it as part of the name
		// (parse error); we just fold it in rather than special-case it.
		t.attrName = Range{Start: t.pos, End: t.pos}
		t.pos++
		t.state = stateAttributeName
	default:
		t.attrName = Range{Start: t.pos, End: t.pos}
		t.attrHasVal = false
		t.pos++
		t.state = stateAttributeName
	}
}

func (t *Tokenizer) stepAttributeName(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.attrName.End = t.pos
		t.pos++
		t.state = stateAfterAttributeName
	case b == '=':
		t.attrName.End = t.pos
		t.pos++
		t.state = stateBeforeAttributeValue
	case b == '/':
		t.attrName.End = t.pos
		t.finalizeAttrNoValue()
		t.pos++
		t.state = stateSelfClosingStartTag
	case b == '>':
		t.attrName.End = t.pos
		t.finalizeAttrNoValue()
		t.finalizeTag(t.pos)
	default:
		t.pos++
	}
}

func (t *Tokenizer) stepAfterAttributeName(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.pos++
	case b == '=':
		t.pos++
		t.state = stateBeforeAttributeValue
	case b == '/':
		t.finalizeAttrNoValue()
		t.pos++
		t.state = stateSelfClosingStartTag
	case b == '>':
		t.finalizeAttrNoValue()
		t.finalizeTag(t.pos)
	default:
		t.finalizeAttrNoValue()
		t.attrName = Range{Start: t.pos, End: t.pos}
		t.pos++
		t.state = stateAttributeName
	}
}

func (t *Tokenizer) stepBeforeAttributeValue(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.pos++
	case b == '"':
		t.attrQuote = '"'
		t.pos++
		t.attrValue = Range{Start: t.pos, End: t.pos}
		t.state = stateAttributeValueDoubleQuoted
	case b == '\'':
		t.attrQuote = '\''
		t.pos++
		t.attrValue = Range{Start: t.pos, End: t.pos}
		t.state = stateAttributeValueSingleQuoted
	case b == '>':
		t.finalizeAttrNoValue()
		t.finalizeTag(t.pos)
	default:
		t.attrQuote = 0
		t.attrValue = Range{Start: t.pos, End: t.pos}
		t.state = stateAttributeValueUnquoted
	}
}

func (t *Tokenizer) stepAttributeValueQuoted(b byte, quote byte) {
	if b == quote {
		t.attrValue.End = t.pos
		t.finalizeAttrWithValue(true, quote)
		t.pos++
		t.state = stateAfterAttributeValueQuoted
		return
	}
	t.pos++
}

func (t *Tokenizer) stepAttributeValueUnquoted(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.attrValue.End = t.pos
		t.finalizeAttrWithValue(false, 0)
		t.pos++
		t.state = stateBeforeAttributeName
	case b == '>':
		t.attrValue.End = t.pos
		t.finalizeAttrWithValue(false, 0)
		t.finalizeTag(t.pos)
	default:
		t.pos++
	}
}

func (t *Tokenizer) stepAfterAttributeValueQuoted(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.pos++
		t.state = stateBeforeAttributeName
	case b == '/':
		t.pos++
		t.state = stateSelfClosingStartTag
	case b == '>':
		t.finalizeTag(t.pos)
	default:
		// Missing whitespace between attributes; reconsume as a new
		// attribute rather than erroring, per HTML5's error recovery.
		t.state = stateBeforeAttributeName
	}
}

func (t *Tokenizer) stepSelfClosingStartTag(b byte) {
	if b == '>' {
		t.selfClosing = true
		t.finalizeTag(t.pos)
		return
	}
	t.selfClosing = false
	t.state = stateBeforeAttributeName
}

func (t *Tokenizer) finalizeAttrNoValue() {
	t.attrs = append(t.attrs, AttrRange{Name: t.attrName, HasValue: false})
}

func (t *Tokenizer) finalizeAttrWithValue(quoted bool, quoteChar byte) {
	t.attrs = append(t.attrs, AttrRange{
		Name:      t.attrName,
		Value:     t.attrValue,
		HasValue:  true,
		Quoted:    quoted,
		QuoteChar: quoteChar,
	})
}

// finalizeTag completes the tag at closePos (the index of '>'), builds
// the TagLexeme, dispatches it, and sets the state/mode/content-model for
// what follows, honoring both the sink's ParserDirective and the HTML5
// content-model rules for raw-text elements (script/style/textarea/...).
func (t *Tokenizer) finalizeTag(closePos int) {
	hash, ok := t.nameHasher.finish()
	outline := TagOutline{
		Kind:        t.tagKind,
		NameRange:   Range{Start: t.nameStart, End: t.attrNameBoundaryOrClose(closePos)},
		NameHash:    hash,
		HashOK:      ok,
		SelfClosing: t.selfClosing,
	}
	if t.tagKind == StartTagKind {
		outline.Attributes = append([]AttrRange(nil), t.attrs...)
	}

	lexeme := TagLexeme{
		Range:   Range{Start: t.tokenStart, End: closePos + 1},
		Outline: outline,
	}

	directive := t.sink.HandleTagLexeme(lexeme)

	t.pos = closePos + 1
	t.tokenStart = t.pos
	t.selfClosing = false
	t.attrs = t.attrs[:0]

	if t.tagKind == StartTagKind {
		t.lastStartTagHash = hash
		t.lastStartTagOK = ok
		t.lastStartTagName = append(t.lastStartTagName[:0], t.chunk.Bytes[outline.NameRange.Start:outline.NameRange.End]...)

		if model, isRaw := rawTextModelForRange(t.chunk, outline.NameRange); isRaw && !outline.SelfClosing {
			t.contentModel = model
			t.mode = Lex
			t.state = stateRawTextLike
			return
		}
	}

	t.contentModel = DataContentModel
	t.mode = directive
	if directive == Lex {
		t.state = stateData
	} else {
		t.state = stateScanForTag
	}
}

// attrNameBoundaryOrClose returns the name's end offset, which was
// recorded when tag-name scanning transitioned out of stateTagName; if the
// tag closed directly from stateTagName (no attributes, no whitespace) the
// name ends exactly at closePos.
func (t *Tokenizer) attrNameBoundaryOrClose(closePos int) int {
	if t.state == stateTagName {
		return closePos
	}
	// nameHasher.total tracks how many bytes were fed regardless of
	// whether hashing itself overflowed, so nameStart plus that count is
	// always the name's end, however we arrived here.
	return t.nameStart + t.nameHasher.total
}
