package rewriter

// stepDoctype implements the DOCTYPE states. MarkupDeclarationOpen already
// consumed the literal "DOCTYPE" keyword before entering stateDoctype, so
// this only has to find the name and optional PUBLIC/SYSTEM identifiers.
func (t *Tokenizer) stepDoctype(b byte) {
	switch t.state {
	case stateDoctype:
		if isASCIIWhitespace(b) {
			t.pos++
		}
		t.state = stateBeforeDoctypeName

	case stateBeforeDoctypeName:
		switch {
		case isASCIIWhitespace(b):
			t.pos++
		case b == '>':
			t.doctype.ForceQuirks = true
			t.emitDoctype(t.pos + 1)
		default:
			t.doctype.NameRange.Start = t.pos
			t.doctype.NamePresent = true
			t.pos++
			t.state = stateDoctypeName
		}

	case stateDoctypeName:
		switch {
		case isASCIIWhitespace(b):
			t.doctype.NameRange.End = t.pos
			t.pos++
			t.state = stateAfterDoctypeName
		case b == '>':
			t.doctype.NameRange.End = t.pos
			t.emitDoctype(t.pos + 1)
		default:
			t.pos++
		}

	case stateAfterDoctypeName:
		t.stepAfterDoctypeName(b)

	case stateBeforeDoctypePublicID:
		switch {
		case isASCIIWhitespace(b):
			t.pos++
		case b == '"':
			t.pos++
			t.doctype.PublicIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.PublicIDPresent = true
			t.state = stateDoctypePublicIDDoubleQuoted
		case b == '\'':
			t.pos++
			t.doctype.PublicIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.PublicIDPresent = true
			t.state = stateDoctypePublicIDSingleQuoted
		case b == '>':
			t.doctype.ForceQuirks = true
			t.emitDoctype(t.pos + 1)
		default:
			t.doctype.ForceQuirks = true
			t.state = stateBogusDoctype
		}

	case stateDoctypePublicIDDoubleQuoted:
		t.stepDoctypeQuotedID(b, '"', &t.doctype.PublicIDRange, stateAfterDoctypePublicID)
	case stateDoctypePublicIDSingleQuoted:
		t.stepDoctypeQuotedID(b, '\'', &t.doctype.PublicIDRange, stateAfterDoctypePublicID)

	case stateAfterDoctypePublicID:
		switch {
		case isASCIIWhitespace(b):
			t.pos++
			t.state = stateBetweenDoctypePublicAndSystem
		case b == '>':
			t.emitDoctype(t.pos + 1)
		case b == '"':
			t.pos++
			t.doctype.SystemIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.SystemIDPresent = true
			t.state = stateDoctypeSystemIDDoubleQuoted
		case b == '\'':
			t.pos++
			t.doctype.SystemIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.SystemIDPresent = true
			t.state = stateDoctypeSystemIDSingleQuoted
		default:
			t.doctype.ForceQuirks = true
			t.state = stateBogusDoctype
		}

	case stateBetweenDoctypePublicAndSystem:
		switch {
		case isASCIIWhitespace(b):
			t.pos++
		case b == '>':
			t.emitDoctype(t.pos + 1)
		case b == '"':
			t.pos++
			t.doctype.SystemIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.SystemIDPresent = true
			t.state = stateDoctypeSystemIDDoubleQuoted
		case b == '\'':
			t.pos++
			t.doctype.SystemIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.SystemIDPresent = true
			t.state = stateDoctypeSystemIDSingleQuoted
		default:
			t.doctype.ForceQuirks = true
			t.state = stateBogusDoctype
		}

	case stateBeforeDoctypeSystemID:
		switch {
		case isASCIIWhitespace(b):
			t.pos++
		case b == '"':
			t.pos++
			t.doctype.SystemIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.SystemIDPresent = true
			t.state = stateDoctypeSystemIDDoubleQuoted
		case b == '\'':
			t.pos++
			t.doctype.SystemIDRange = Range{Start: t.pos, End: t.pos}
			t.doctype.SystemIDPresent = true
			t.state = stateDoctypeSystemIDSingleQuoted
		case b == '>':
			t.doctype.ForceQuirks = true
			t.emitDoctype(t.pos + 1)
		default:
			t.doctype.ForceQuirks = true
			t.state = stateBogusDoctype
		}

	case stateDoctypeSystemIDDoubleQuoted:
		t.stepDoctypeQuotedID(b, '"', &t.doctype.SystemIDRange, stateAfterDoctypeSystemID)
	case stateDoctypeSystemIDSingleQuoted:
		t.stepDoctypeQuotedID(b, '\'', &t.doctype.SystemIDRange, stateAfterDoctypeSystemID)

	case stateAfterDoctypeSystemID:
		switch {
		case isASCIIWhitespace(b):
			t.pos++
		case b == '>':
			t.emitDoctype(t.pos + 1)
		default:
			t.state = stateBogusDoctype
		}

	case stateBogusDoctype:
		if b == '>' {
			t.emitDoctype(t.pos + 1)
			return
		}
		t.pos++
	}
}

func (t *Tokenizer) stepAfterDoctypeName(b byte) {
	switch {
	case isASCIIWhitespace(b):
		t.pos++
	case b == '>':
		t.emitDoctype(t.pos + 1)
	default:
		rest := t.chunk.Bytes[t.pos:]
		switch {
		case hasPrefixFold(rest, "PUBLIC"):
			t.pos += len("PUBLIC")
			t.state = stateBeforeDoctypePublicID
		case !t.chunk.LastChunk && couldBePrefixFold(rest, "PUBLIC"):
			t.needMoreBytes = true
		case hasPrefixFold(rest, "SYSTEM"):
			t.pos += len("SYSTEM")
			t.state = stateBeforeDoctypeSystemID
		case !t.chunk.LastChunk && couldBePrefixFold(rest, "SYSTEM"):
			t.needMoreBytes = true
		default:
			t.doctype.ForceQuirks = true
			t.state = stateBogusDoctype
		}
	}
}

func (t *Tokenizer) stepDoctypeQuotedID(b byte, quote byte, field *Range, next state) {
	if b == quote {
		field.End = t.pos
		t.pos++
		t.state = next
		return
	}
	t.pos++
}

func (t *Tokenizer) emitDoctype(lexemeEnd int) {
	t.sink.HandleNonTagLexeme(NonTagContentLexeme{
		Range:   Range{Start: t.tokenStart, End: lexemeEnd},
		Outline: NonTagOutline{Kind: DoctypeLexeme, Doctype: t.doctype},
	})
	t.pos = lexemeEnd
	t.tokenStart = t.pos
	t.state = t.dataEntryState()
}
