package rewriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink is a minimal Sink that just records every callback it
// receives, letting tests assert on the tokenizer's raw output without a
// Dispatcher in the loop. directive is returned from every hint/lexeme
// callback, so a test can force the tokenizer to stay in, or escalate out
// of, a given mode.
type recordingSink struct {
	directive   ParserDirective
	hints       []TagHint
	tagLexemes  []TagLexeme
	nonTags     []NonTagContentLexeme
}

func (s *recordingSink) HandleTagHint(hint TagHint) ParserDirective {
	s.hints = append(s.hints, hint)
	return s.directive
}

func (s *recordingSink) HandleTagLexeme(lexeme TagLexeme) ParserDirective {
	s.tagLexemes = append(s.tagLexemes, lexeme)
	return s.directive
}

func (s *recordingSink) HandleNonTagLexeme(lexeme NonTagContentLexeme) {
	s.nonTags = append(s.nonTags, lexeme)
}

func mustChunk(s string, last bool) *Chunk {
	return &Chunk{Bytes: []byte(s), LastChunk: last}
}

func TestTokenizer_ScanModeEmitsHintsOnlyNoText(t *testing.T) {
	sink := &recordingSink{directive: ScanForTags}
	tok := NewTokenizer(sink, nil)

	chunk := mustChunk("text<div>more</div>", true)
	_, blocked, err := tok.Feed(chunk)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.Len(t, sink.hints, 2)
	assert.Equal(t, StartTagKind, sink.hints[0].Kind)
	assert.Equal(t, EndTagKind, sink.hints[1].Kind)
	assert.True(t, sink.hints[0].HashOK)

	name := chunk.Sub(sink.hints[0].NameRange)
	assert.Equal(t, "div", string(name))

	// TagScanner mode never calls HandleNonTagLexeme for leading text; an
	// EOF marker is still delivered once the stream ends.
	require.Len(t, sink.nonTags, 1)
	assert.Equal(t, EofLexeme, sink.nonTags[0].Outline.Kind)
}

func TestTokenizer_LexModeEmitsTextCommentAndTagLexemes(t *testing.T) {
	sink := &recordingSink{directive: Lex}
	tok := NewTokenizer(sink, nil)
	tok.StartInLexMode()

	chunk := mustChunk(`hi<!-- c --><a href="/x">link</a>`, true)
	_, blocked, err := tok.Feed(chunk)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.Len(t, sink.tagLexemes, 2)
	start := sink.tagLexemes[0]
	assert.Equal(t, StartTagKind, start.Outline.Kind)
	assert.Equal(t, "a", string(chunk.Sub(start.Outline.NameRange)))
	require.Len(t, start.Outline.Attributes, 1)
	assert.Equal(t, "href", string(chunk.Sub(start.Outline.Attributes[0].Name)))
	assert.Equal(t, "/x", string(chunk.Sub(start.Outline.Attributes[0].Value)))

	end := sink.tagLexemes[1]
	assert.Equal(t, EndTagKind, end.Outline.Kind)

	var sawComment, sawText bool
	for _, n := range sink.nonTags {
		switch n.Outline.Kind {
		case CommentLexeme:
			sawComment = true
			assert.Equal(t, " c ", string(chunk.Sub(n.Outline.CommentData)))
		case TextLexeme:
			sawText = true
		}
	}
	assert.True(t, sawComment)
	assert.True(t, sawText)
}

func TestTokenizer_ScanModeSwitchesToLexOnDirective(t *testing.T) {
	sink := &recordingSink{directive: ScanForTags}
	tok := NewTokenizer(sink, nil)

	// First tag hint escalates to Lex mode; the second tag is reached
	// while already in Lex mode and so produces a TagLexeme instead of a
	// second hint.
	sink.directive = Lex
	chunk := mustChunk("<div><span>x</span></div>", true)
	_, _, err := tok.Feed(chunk)
	require.NoError(t, err)

	require.Len(t, sink.hints, 1)
	assert.Equal(t, "div", string(chunk.Sub(sink.hints[0].NameRange)))
	// Everything after the first hint ran in FullLexer mode: span/span
	// close/div close all arrive as TagLexemes.
	require.Len(t, sink.tagLexemes, 3)
}

func TestTokenizer_DoctypeOutlineCapturesNameAndPublicSystemIDs(t *testing.T) {
	sink := &recordingSink{directive: Lex}
	tok := NewTokenizer(sink, nil)
	tok.StartInLexMode()

	src := `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`
	chunk := mustChunk(src, true)
	_, _, err := tok.Feed(chunk)
	require.NoError(t, err)

	require.Len(t, sink.nonTags, 2) // doctype + eof
	dt := sink.nonTags[0].Outline.Doctype
	assert.True(t, dt.NamePresent)
	assert.Equal(t, "html", string(chunk.Sub(dt.NameRange)))
	require.True(t, dt.PublicIDPresent)
	assert.Equal(t, "-//W3C//DTD XHTML 1.0//EN", string(chunk.Sub(dt.PublicIDRange)))
	require.True(t, dt.SystemIDPresent)
	assert.False(t, dt.ForceQuirks)
}

func TestTokenizer_BlocksAtChunkBoundaryMidTag(t *testing.T) {
	sink := &recordingSink{directive: Lex}
	tok := NewTokenizer(sink, nil)
	tok.StartInLexMode()

	first := mustChunk(`<a href="/x`, false)
	consumed, blocked, err := tok.Feed(first)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Empty(t, sink.tagLexemes)
	assert.Equal(t, 0, consumed) // tokenStart never advanced past the tag start

	// Simulate the driver appending more bytes to the same growing buffer
	// and feeding the tokenizer again; persisted offsets (pos, nameStart,
	// attrValue.Start) remain valid into the extended slice.
	second := mustChunk(`<a href="/x">ok</a>`, true)
	_, blocked, err = tok.Feed(second)
	require.NoError(t, err)
	assert.False(t, blocked)
	require.Len(t, sink.tagLexemes, 2)
	assert.Equal(t, "/x", string(second.Sub(sink.tagLexemes[0].Outline.Attributes[0].Value)))
}

func TestTokenizer_RebaseShiftsPersistedOffsets(t *testing.T) {
	sink := &recordingSink{directive: Lex}
	tok := NewTokenizer(sink, nil)
	tok.StartInLexMode()

	chunk := mustChunk(`<a href="/x`, false)
	_, blocked, err := tok.Feed(chunk)
	require.NoError(t, err)
	require.True(t, blocked)

	low := tok.LowWaterMark()
	require.Equal(t, 0, low) // tag start is offset 0, nothing to discard yet

	// A non-zero low-water mark is the common case in the driver; exercise
	// Rebase directly with a synthetic shift to confirm every persisted
	// field moves together.
	tok.pos += 5
	tok.tokenStart += 5
	tok.nameStart += 5
	tok.attrValue.Start += 5
	tok.attrValue.End += 5
	tok.Rebase(5)
	assert.Equal(t, 0, tok.tokenStart)
}

func TestTokenizer_RawTextContentModelSuppressesTagParsing(t *testing.T) {
	sink := &recordingSink{directive: Lex}
	tok := NewTokenizer(sink, nil)
	tok.StartInLexMode()
	tok.SetContentModel(ScriptDataContentModel)

	// lastStartTagName must be primed the way the dispatcher primes it
	// after emitting the <script> start tag, so "appropriate end tag"
	// matching has something to compare against.
	tok.lastStartTagName = []byte("script")
	hash, ok := HashName([]byte("script"))
	tok.lastStartTagHash = hash
	tok.lastStartTagOK = ok

	chunk := mustChunk(`if (a<b) {}</script>`, true)
	_, _, err := tok.Feed(chunk)
	require.NoError(t, err)

	require.Len(t, sink.tagLexemes, 1)
	assert.Equal(t, EndTagKind, sink.tagLexemes[0].Outline.Kind)

	var text string
	for _, n := range sink.nonTags {
		if n.Outline.Kind == TextLexeme {
			text += string(chunk.Sub(n.Range))
		}
	}
	assert.Equal(t, "if (a<b) {}", text)
}

func TestTokenizer_OverflowForceFlushesInNonStrictMode(t *testing.T) {
	sink := &recordingSink{directive: Lex}
	tok := NewTokenizer(sink, nil)
	tok.StartInLexMode()
	tok.SetLimits(4, false)

	chunk := mustChunk("hello world", true)
	_, _, err := tok.Feed(chunk)
	require.NoError(t, err)
	// forceFlushOverflow splits the text into multiple lexemes instead of
	// blocking or erroring.
	var total int
	for _, n := range sink.nonTags {
		if n.Outline.Kind == TextLexeme {
			total += n.Range.Len()
		}
	}
	assert.Equal(t, len("hello world"), total)
}

func TestTokenizer_OverflowReturnsErrorInStrictMode(t *testing.T) {
	sink := &recordingSink{directive: Lex}
	tok := NewTokenizer(sink, nil)
	tok.StartInLexMode()
	tok.SetLimits(4, true)

	chunk := mustChunk("hello world", true)
	_, _, err := tok.Feed(chunk)
	require.Error(t, err)
	rerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrMemoryLimitExceeded, rerr.Kind)
}
