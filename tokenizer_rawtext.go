package rewriter

import "bytes"

// rawTextElement names the HTML5 elements whose content is not parsed as
// markup: everything up to the *appropriate* end tag is opaque text.
type rawTextElement struct {
	name  string
	model ContentModel
}

var rawTextElements = []rawTextElement{
	{"script", ScriptDataContentModel},
	{"style", RawTextContentModel},
	{"textarea", RCDataContentModel},
	{"title", RCDataContentModel},
	{"xmp", RawTextContentModel},
	{"iframe", RawTextContentModel},
	{"noembed", RawTextContentModel},
	{"noframes", RawTextContentModel},
	{"noscript", RawTextContentModel},
	{"plaintext", PlaintextContentModel},
}

// rawTextHashIndex maps a precomputed NameHash to its entry in
// rawTextElements, so the common case (name fits the hashable domain)
// never needs a byte comparison.
var rawTextHashIndex = func() map[NameHash]int {
	idx := make(map[NameHash]int, len(rawTextElements))
	for i, e := range rawTextElements {
		if h, ok := HashName([]byte(e.name)); ok {
			idx[h] = i
		}
	}
	return idx
}()

// rawTextModelForRange reports whether the tag name at nameRange within
// chunk names a raw-text element, and if so, which content model it
// forces. It prefers the perfect hash and falls back to a case-insensitive
// byte comparison only for names hashing couldn't represent (none of the
// raw-text element names are that long, so the fallback path is dead in
// practice, but it keeps the function correct regardless).
func rawTextModelForRange(chunk *Chunk, nameRange Range) (ContentModel, bool) {
	name := chunk.Sub(nameRange)
	if hash, ok := HashName(name); ok {
		if i, found := rawTextHashIndex[hash]; found {
			return rawTextElements[i].model, true
		}
		return 0, false
	}
	for _, e := range rawTextElements {
		if bytes.EqualFold(name, []byte(e.name)) {
			return e.model, true
		}
	}
	return 0, false
}

// stepRawTextLike implements the RAWTEXT/RCDATA/script-data/plaintext
// content models: everything is opaque text until the tokenizer finds
// "</" followed by a name matching the last emitted start tag (the
// "appropriate end tag" rule) followed by a tag-terminating byte.
// PlaintextContentModel never leaves this state (there is no appropriate
// end tag for it).
func (t *Tokenizer) stepRawTextLike(b byte) {
	switch t.state {
	case stateRawTextLike:
		if b == '<' && t.contentModel != PlaintextContentModel {
			t.pos++
			t.state = stateRawTextLikeLessThanSign
			return
		}
		t.pos++

	case stateRawTextLikeLessThanSign:
		if b == '/' {
			t.nameStart = t.pos + 1
			t.nameHasher.reset()
			t.pos++
			t.state = stateRawTextLikeEndTagOpen
			return
		}
		t.state = stateRawTextLike

	case stateRawTextLikeEndTagOpen:
		if isASCIIAlpha(b) {
			t.tagKind = EndTagKind
			t.nameHasher.feed(b)
			t.pos++
			t.state = stateRawTextLikeEndTagName
			return
		}
		t.state = stateRawTextLike

	case stateRawTextLikeEndTagName:
		switch {
		case isASCIIWhitespace(b) || b == '/' || b == '>':
			if t.isAppropriateEndTag() {
				// Flush the raw text accumulated before "</name", then
				// let the ordinary tag-name machinery finish the tag
				// (attributes are technically illegal here but HTML5
				// tolerates and discards them the same way stateTagName
				// does).
				t.emitTextUpTo(t.nameStart - 2) // rewind past "</"
				t.tokenStart = t.nameStart - 2
				t.state = stateTagName
				t.stepTagName(b)
				return
			}
			// Not the appropriate end tag: the whole "</name" sequence is
			// just more raw text; keep scanning from here.
			t.state = stateRawTextLike
		default:
			t.nameHasher.feed(b)
			t.pos++
		}
	}
}

func (t *Tokenizer) isAppropriateEndTag() bool {
	hash, ok := t.nameHasher.finish()
	if t.lastStartTagOK && ok {
		return hash == t.lastStartTagHash
	}
	name := t.chunk.Bytes[t.nameStart:t.pos]
	return bytes.EqualFold(name, t.lastStartTagName)
}
