package rewriter

// stepScan advances the tokenizer by one byte while in TagScanner mode.
// TagScanner never builds a Range for the tag itself — only a TagHint
// naming it — so bytes it skims over remain implicit pass-through: the
// dispatcher only ever reserves bytes when a real lexeme (produced in
// FullLexer mode) fires LexemeConsumed. If the sink asks for Lex mode in
// response to a hint, stepScan rewinds to the tag's opening '<' so
// FullLexer can re-tokenize it properly, attributes and all.
func (t *Tokenizer) stepScan(b byte) {
	switch t.state {
	case stateScanForTag:
		if b == '<' {
			t.nameStart = t.pos // position of '<', used for rewind
			t.pos++
			t.state = stateScanTagOpen
			return
		}
		t.pos++

	case stateScanTagOpen:
		switch {
		case isASCIIAlpha(b):
			t.tagKind = StartTagKind
			t.nameHasher.reset()
			t.nameHasher.feed(b)
			t.pos++
			t.state = stateScanTagName
		case b == '/':
			t.pos++
			t.state = stateScanEndTagOpen
		default:
			// Not actually a tag; resume skimming from here.
			t.state = stateScanForTag
		}

	case stateScanEndTagOpen:
		if isASCIIAlpha(b) {
			t.tagKind = EndTagKind
			t.nameHasher.reset()
			t.nameHasher.feed(b)
			t.pos++
			t.state = stateScanTagName
			return
		}
		t.state = stateScanForTag

	case stateScanTagName:
		if isASCIIAlpha(b) || isASCIIDigit(b) || b == '-' {
			t.nameHasher.feed(b)
			t.pos++
			return
		}
		t.emitTagHint()

	case stateScanInTagSkipToClose:
		switch {
		case t.scanQuote != 0:
			if b == t.scanQuote {
				t.scanQuote = 0
			}
			t.pos++
		case b == '"' || b == '\'':
			t.scanQuote = b
			t.pos++
		case b == '>':
			t.pos++
			t.state = stateScanForTag
		default:
			t.pos++
		}
	}
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// emitTagHint builds the TagHint for the name just scanned and dispatches
// it to the sink, then honors the returned directive: Lex rewinds to the
// tag's '<' so FullLexer re-parses it in full; ScanForTags skips to the
// (quote-aware) closing '>' and resumes skimming.
func (t *Tokenizer) emitTagHint() {
	nameEnd := t.pos
	var nameOffset int
	if t.tagKind == StartTagKind {
		nameOffset = t.nameStart + 1
	} else {
		nameOffset = t.nameStart + 2
	}
	hash, ok := t.nameHasher.finish()

	hint := TagHint{
		Kind:      t.tagKind,
		NameRange: Range{Start: nameOffset, End: nameEnd},
		NameHash:  hash,
		HashOK:    ok,
	}

	directive := t.sink.HandleTagHint(hint)
	if directive == Lex {
		t.tokenStart = t.nameStart
		t.pos = t.nameStart + 1 // just past '<'; stateTagOpen reads the byte after it
		t.mode = Lex
		t.state = stateTagOpen
		return
	}
	t.scanQuote = 0
	t.state = stateScanInTagSkipToClose
}
