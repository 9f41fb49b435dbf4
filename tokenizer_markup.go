package rewriter

import "bytes"

func hasPrefix(b []byte, s string) bool {
	return len(b) >= len(s) && string(b[:len(s)]) == s
}

func hasPrefixFold(b []byte, s string) bool {
	return len(b) >= len(s) && bytes.EqualFold(b[:len(s)], []byte(s))
}

func couldBePrefix(b []byte, s string) bool {
	n := len(b)
	if n > len(s) {
		n = len(s)
	}
	return string(b[:n]) == s[:n]
}

func couldBePrefixFold(b []byte, s string) bool {
	n := len(b)
	if n > len(s) {
		n = len(s)
	}
	return bytes.EqualFold(b[:n], []byte(s[:n]))
}

// stepMarkupDeclarationOpen is entered with t.pos just past "<!". It
// decides between a comment ("<!--"), a doctype ("<!DOCTYPE"), a CDATA
// section ("<![CDATA["), and a bogus comment (anything else), blocking
// via needMoreBytes if the current chunk doesn't yet hold enough bytes to
// tell which.
func (t *Tokenizer) stepMarkupDeclarationOpen(b byte) {
	rest := t.chunk.Bytes[t.pos:]

	switch {
	case hasPrefix(rest, "--"):
		t.pos += 2
		t.commentDataStart = t.pos
		t.state = stateCommentStart
	case !t.chunk.LastChunk && couldBePrefix(rest, "--"):
		t.needMoreBytes = true
	case hasPrefixFold(rest, "DOCTYPE"):
		t.pos += len("DOCTYPE")
		t.doctype = DoctypeOutline{}
		t.state = stateDoctype
	case !t.chunk.LastChunk && couldBePrefixFold(rest, "DOCTYPE"):
		t.needMoreBytes = true
	case hasPrefix(rest, "[CDATA["):
		t.pos += len("[CDATA[")
		t.state = stateCdataSection
	case !t.chunk.LastChunk && couldBePrefix(rest, "[CDATA["):
		t.needMoreBytes = true
	default:
		t.commentDataStart = t.pos
		t.state = stateBogusComment
	}
}

// stepBogusComment consumes everything up to the next '>' (or EOF) as
// comment data, matching HTML5's handling of malformed markup
// declarations ("<!whatever>", "<?pi>", "</1>", ...).
func (t *Tokenizer) stepBogusComment(b byte) {
	if b == '>' {
		t.emitComment(t.commentDataStart, t.pos, t.pos+1)
		return
	}
	t.pos++
}

func (t *Tokenizer) emitComment(dataStart, dataEnd, lexemeEnd int) {
	lexeme := NonTagContentLexeme{
		Range: Range{Start: t.tokenStart, End: lexemeEnd},
		Outline: NonTagOutline{
			Kind:        CommentLexeme,
			CommentData: Range{Start: dataStart, End: dataEnd},
		},
	}
	t.sink.HandleNonTagLexeme(lexeme)
	t.pos = lexemeEnd
	t.tokenStart = t.pos
	t.state = t.dataEntryState()
}

// stepComment implements the comment states. It's deliberately permissive
// about "--!>" / stray "-" runs the way real browsers are: only "-->"
// unambiguously ends a comment.
func (t *Tokenizer) stepComment(b byte) {
	switch t.state {
	case stateCommentStart:
		switch b {
		case '-':
			t.pos++
			t.state = stateCommentStartDash
		case '>':
			t.emitComment(t.commentDataStart, t.pos, t.pos+1)
		default:
			t.state = stateComment
		}
	case stateCommentStartDash:
		switch b {
		case '-':
			t.pos++
			t.state = stateCommentEnd
		case '>':
			t.emitComment(t.commentDataStart, t.pos-1, t.pos+1)
		default:
			t.state = stateComment
		}
	case stateComment:
		if b == '-' {
			t.pos++
			t.state = stateCommentEndDash
			return
		}
		t.pos++
	case stateCommentEndDash:
		if b == '-' {
			t.pos++
			t.state = stateCommentEnd
			return
		}
		t.state = stateComment
	case stateCommentEnd:
		switch b {
		case '>':
			t.emitComment(t.commentDataStart, t.pos-2, t.pos+1)
		case '!':
			t.pos++
			t.state = stateCommentEndBang
		case '-':
			t.pos++
			// stay in stateCommentEnd; a run of dashes still counts as
			// "pending end", only '>' actually closes it.
		default:
			t.state = stateComment
		}
	case stateCommentEndBang:
		switch b {
		case '-':
			t.pos++
			t.state = stateCommentEndDash
		case '>':
			t.emitComment(t.commentDataStart, t.pos-3, t.pos+1)
		default:
			t.state = stateComment
		}
	}
}

// stepCdataSection consumes bytes up to "]]>" and emits a CdataLexeme
// spanning the whole "<![CDATA[...]]>" construct; the capturer/controller
// sees it as opaque content (CDATA has no mutation surface per §6).
func (t *Tokenizer) stepCdataSection(b byte) {
	rest := t.chunk.Bytes[t.pos:]
	if hasPrefix(rest, "]]>") {
		end := t.pos + 3
		t.sink.HandleNonTagLexeme(NonTagContentLexeme{
			Range:   Range{Start: t.tokenStart, End: end},
			Outline: NonTagOutline{Kind: CdataLexeme},
		})
		t.pos = end
		t.tokenStart = t.pos
		t.state = t.dataEntryState()
		return
	}
	if !t.chunk.LastChunk && couldBePrefix(rest, "]]>") {
		t.needMoreBytes = true
		return
	}
	t.pos++
}
