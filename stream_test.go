package rewriter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewrite runs the whole pump loop over src in a single Write, the way most
// callers use it, and returns the rewritten output.
func rewrite(t *testing.T, settings Settings, src string) string {
	t.Helper()
	var out bytes.Buffer
	rw, err := NewRewriter(&out, settings)
	require.NoError(t, err)
	_, err = rw.Write([]byte(src))
	require.NoError(t, err)
	require.NoError(t, rw.End())
	return out.String()
}

// rewriteChunked feeds src split across the given chunk boundaries, proving
// the output is identical regardless of where a Write call happens to land.
func rewriteChunked(t *testing.T, settings Settings, chunks []string) string {
	t.Helper()
	var out bytes.Buffer
	rw, err := NewRewriter(&out, settings)
	require.NoError(t, err)
	for _, c := range chunks {
		_, err := rw.Write([]byte(c))
		require.NoError(t, err)
	}
	require.NoError(t, rw.End())
	return out.String()
}

// Scenario 1: identity passthrough with no handlers at all.
func TestScenario1_NoopIdentity(t *testing.T) {
	got := rewrite(t, Settings{}, "<div>hi</div>")
	assert.Equal(t, "<div>hi</div>", got)
}

type nameOnlyController struct {
	PassthroughController
	tagName string
	onStart func(tok *StartTagToken, chunk *Chunk)
}

func (c *nameOnlyController) HandleElementStartHint(TagHint) HintDecision {
	return HintDecision{Kind: RequestElementModifiersInfo}
}

func (c *nameOnlyController) HandleElementStart(tok *StartTagToken, chunk *Chunk) (ContentSettings, ElementStartResponse, error) {
	if tok.TagName(chunk) == c.tagName {
		c.onStart(tok, chunk)
	}
	return ContentSettings{}, ElementStartResponse{Kind: ElementContinue}, nil
}

// Scenario 2: set_tag_name + after(text) on a matched element.
func TestScenario2_SetTagNameAndAfter(t *testing.T) {
	ctrl := &nameOnlyController{tagName: "body", onStart: func(tok *StartTagToken, chunk *Chunk) {
		tok.SetTagName("body1")
		tok.After("test", ContentText)
	}}
	got := rewrite(t, Settings{Controller: ctrl}, "<body>lots of stuff</body>")
	assert.Equal(t, "<body1>lots of stuff</body1>test", got)
}

// Scenario 3: set_inner_content replaces everything between the tags.
func TestScenario3_SetInnerContent(t *testing.T) {
	ctrl := &nameOnlyController{tagName: "ul", onStart: func(tok *StartTagToken, chunk *Chunk) {
		tok.SetInnerContent("", ContentText)
	}}
	got := rewrite(t, Settings{Controller: ctrl}, "<ul><li>a</li><li>b</li></ul>")
	assert.Equal(t, "<ul></ul>", got)
}

type classMatchController struct {
	PassthroughController
	tagName, class string
}

func (c *classMatchController) HandleElementStartHint(TagHint) HintDecision {
	return HintDecision{Kind: RequestElementModifiersInfo}
}

func (c *classMatchController) HandleElementStart(tok *StartTagToken, chunk *Chunk) (ContentSettings, ElementStartResponse, error) {
	if tok.TagName(chunk) == c.tagName {
		if v, ok := tok.GetAttribute("class"); ok && v == c.class {
			tok.RemoveElement()
		}
	}
	return ContentSettings{}, ElementStartResponse{Kind: ElementContinue}, nil
}

// Scenario 4: a class-selected element is removed entirely, an unmatched
// sibling survives untouched.
func TestScenario4_RemoveByClass(t *testing.T) {
	ctrl := &classMatchController{tagName: "p", class: "x"}
	got := rewrite(t, Settings{Controller: ctrl}, `<p class="x">1</p><p>2</p>`)
	assert.Equal(t, "<p>2</p>", got)
}

// Calling the generic Remove() on a StartTagToken must behave exactly like
// RemoveElement() — dropping the start tag, every descendant, and the end
// tag — not merely suppress the opening tag's own bytes while leaving
// children and the closing tag in the output.
func TestStartTagToken_RemoveDropsWholeElementNotJustOpenTag(t *testing.T) {
	ctrl := &nameOnlyController{tagName: "div", onStart: func(tok *StartTagToken, chunk *Chunk) {
		tok.Remove()
	}}
	got := rewrite(t, Settings{Controller: ctrl}, "<div><span>x</span></div>after")
	assert.Equal(t, "after", got)
}

type attrRewriteController struct {
	PassthroughController
	tagName, attr, newValue string
}

func (c *attrRewriteController) HandleElementStartHint(TagHint) HintDecision {
	return HintDecision{Kind: RequestElementModifiersInfo}
}

func (c *attrRewriteController) HandleElementStart(tok *StartTagToken, chunk *Chunk) (ContentSettings, ElementStartResponse, error) {
	if tok.TagName(chunk) == c.tagName {
		if _, ok := tok.GetAttribute(c.attr); ok {
			tok.SetAttribute(c.attr, c.newValue)
		}
	}
	return ContentSettings{}, ElementStartResponse{Kind: ElementContinue}, nil
}

// Scenario 5: an attribute value split across a chunk boundary is still
// matched and rewritten correctly.
func TestScenario5_AttrSplitAcrossChunks(t *testing.T) {
	ctrl := &attrRewriteController{tagName: "a", attr: "href", newValue: "/n"}
	got := rewriteChunked(t, Settings{Controller: ctrl}, []string{`<a href="`, `/o">t</a>`})
	assert.Equal(t, `<a href="/n">t</a>`, got)
}

type doctypeRecorder struct {
	PassthroughController
	names []string
}

func (c *doctypeRecorder) InitialContentSettings() ContentSettings {
	return ContentSettings{Doctype: true}
}

func (c *doctypeRecorder) HandleDoctype(tok *DoctypeToken, chunk *Chunk) error {
	if name, ok := tok.Name(chunk); ok {
		c.names = append(c.names, name)
	}
	return nil
}

// Scenario 6: a document-level doctype callback records the name exactly
// once, and the document round-trips byte-for-byte since nothing mutates it.
func TestScenario6_DoctypeCallbackRoundTrips(t *testing.T) {
	ctrl := &doctypeRecorder{}
	src := "<!doctype html><x>"
	got := rewrite(t, Settings{Controller: ctrl}, src)
	assert.Equal(t, src, got)
	require.Len(t, ctrl.names, 1)
	assert.Equal(t, "html", ctrl.names[0])
}

func TestRewriter_WriteAfterEndReturnsError(t *testing.T) {
	var out bytes.Buffer
	rw, err := NewRewriter(&out, Settings{})
	require.NoError(t, err)
	require.NoError(t, rw.End())

	_, err = rw.Write([]byte("x"))
	require.Error(t, err)
	rerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrEndOfStreamReached, rerr.Kind)
}

func TestRewriter_UnknownEncodingRejectedAtConstruction(t *testing.T) {
	_, err := NewRewriter(&bytes.Buffer{}, Settings{Encoding: "not-a-real-charset"})
	require.Error(t, err)
	rerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrEncodingUnknown, rerr.Kind)
}

func TestRewriter_MemoryLimitExceeded(t *testing.T) {
	ctrl := PassthroughController{}
	var out bytes.Buffer
	rw, err := NewRewriter(&out, Settings{Controller: ctrl, MaxMemory: 4})
	require.NoError(t, err)
	_, err = rw.Write([]byte("<div>much more than four bytes of text</div>"))
	require.Error(t, err)
	rerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrMemoryLimitExceeded, rerr.Kind)
}
