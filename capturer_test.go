package rewriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(kind NonTagKind, r Range) NonTagContentLexeme {
	return NonTagContentLexeme{Range: r, Outline: NonTagOutline{Kind: kind}}
}

func TestCapturer_TextIsNotEmittedUntilFlags(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("hello")}
	c := NewCapturer(CaptureNothing, Encoding{})

	toks := c.ConsumeNonTag(lex(TextLexeme, Range{0, 5}), chunk)
	assert.Nil(t, toks)
}

func TestCapturer_CoalescesAdjacentTextRanges(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("hello world")}
	c := NewCapturer(CaptureText, Encoding{})

	toks := c.ConsumeNonTag(lex(TextLexeme, Range{0, 5}), chunk)
	assert.Nil(t, toks) // buffered, not yet emitted

	toks = c.ConsumeNonTag(lex(TextLexeme, Range{5, 11}), chunk)
	assert.Nil(t, toks) // still buffered: adjacent range extends it

	flushed := c.Flush()
	require.Len(t, flushed, 1)
	tc, ok := flushed[0].(*TextChunkToken)
	require.True(t, ok)
	assert.Equal(t, "hello world", tc.AsStr(chunk))
	assert.True(t, tc.LastInTextNode)
}

func TestCapturer_NonAdjacentTextStartsFreshNode(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("abXXcd")}
	c := NewCapturer(CaptureText, Encoding{})

	c.ConsumeNonTag(lex(TextLexeme, Range{0, 2}), chunk) // "ab"
	// A gap (e.g. skipped bytes) before the next text lexeme: "cd" at 4-6
	// does not directly follow "ab" at 0-2, so coalesceText must flush the
	// old node immediately rather than silently dropping it.
	toks := c.ConsumeNonTag(lex(TextLexeme, Range{4, 6}), chunk) // "cd"
	require.Len(t, toks, 1)
	old := toks[0].(*TextChunkToken)
	assert.Equal(t, "ab", old.AsStr(chunk))
	assert.True(t, old.LastInTextNode)

	flushed := c.Flush()
	require.Len(t, flushed, 1)
	tc := flushed[0].(*TextChunkToken)
	assert.Equal(t, "cd", tc.AsStr(chunk))
}

func TestCapturer_CommentFlushesPendingTextFirst(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("hi<!-- c -->")}
	c := NewCapturer(CaptureText|CaptureComments, Encoding{})

	c.ConsumeNonTag(lex(TextLexeme, Range{0, 2}), chunk)
	toks := c.ConsumeNonTag(NonTagContentLexeme{
		Range:   Range{2, 12},
		Outline: NonTagOutline{Kind: CommentLexeme, CommentData: Range{7, 9}},
	}, chunk)

	require.Len(t, toks, 2)
	text, ok := toks[0].(*TextChunkToken)
	require.True(t, ok)
	assert.Equal(t, "hi", text.AsStr(chunk))
	comment, ok := toks[1].(*CommentToken)
	require.True(t, ok)
	assert.NotNil(t, comment)
}

func TestCapturer_CommentSuppressedWhenFlagUnset(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("<!-- c -->")}
	c := NewCapturer(CaptureNothing, Encoding{})

	toks := c.ConsumeNonTag(NonTagContentLexeme{
		Range:   Range{0, 10},
		Outline: NonTagOutline{Kind: CommentLexeme, CommentData: Range{5, 7}},
	}, chunk)
	assert.Nil(t, toks)
}

func TestCapturer_DoctypeRespectsFlag(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("<!doctype html>")}
	outline := NonTagOutline{Kind: DoctypeLexeme, Doctype: DoctypeOutline{
		NameRange: Range{10, 14}, NamePresent: true,
	}}

	withFlag := NewCapturer(CaptureDoctype, Encoding{})
	toks := withFlag.ConsumeNonTag(NonTagContentLexeme{Range: Range{0, 15}, Outline: outline}, chunk)
	require.Len(t, toks, 1)
	dt, ok := toks[0].(*DoctypeToken)
	require.True(t, ok)
	name, present := dt.Name(chunk)
	assert.True(t, present)
	assert.Equal(t, "html", name)

	withoutFlag := NewCapturer(CaptureNothing, Encoding{})
	toks = withoutFlag.ConsumeNonTag(NonTagContentLexeme{Range: Range{0, 15}, Outline: outline}, chunk)
	assert.Nil(t, toks)
}

func TestCapturer_CDATAPassesThroughWithoutAToken(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("<![CDATA[x]]>")}
	c := NewCapturer(CaptureText|CaptureComments|CaptureDoctype, Encoding{})
	toks := c.ConsumeNonTag(lex(CdataLexeme, Range{0, 13}), chunk)
	assert.Nil(t, toks)
}

func TestCapturer_EofFlushesPendingText(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("tail")}
	c := NewCapturer(CaptureText, Encoding{})
	c.ConsumeNonTag(lex(TextLexeme, Range{0, 4}), chunk)

	toks := c.ConsumeNonTag(lex(EofLexeme, Range{4, 4}), chunk)
	require.Len(t, toks, 1)
	tc := toks[0].(*TextChunkToken)
	assert.Equal(t, "tail", tc.AsStr(chunk))
}

func TestCapturer_SetFlagsFlushesPendingTextBeforeChanging(t *testing.T) {
	chunk := &Chunk{Bytes: []byte("before<!-- c -->after")}
	c := NewCapturer(CaptureText, Encoding{})
	c.ConsumeNonTag(lex(TextLexeme, Range{0, 6}), chunk)

	flushed := c.SetFlags(CaptureNothing)
	require.Len(t, flushed, 1)
	assert.Equal(t, "before", flushed[0].(*TextChunkToken).AsStr(chunk))

	// After the flag change, text is no longer captured.
	toks := c.ConsumeNonTag(lex(TextLexeme, Range{17, 22}), chunk)
	assert.Nil(t, toks)
}
