package selector_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhtml/rewriter"
	"github.com/streamhtml/rewriter/selector"
)

func runRewrite(t *testing.T, m *selector.Matcher, src string) string {
	t.Helper()
	var out bytes.Buffer
	rw, err := rewriter.NewRewriter(&out, rewriter.Settings{Controller: m})
	require.NoError(t, err)
	_, err = rw.Write([]byte(src))
	require.NoError(t, err)
	require.NoError(t, rw.End())
	return out.String()
}

func TestMatcher_TypeSelectorFiresOnEveryMatch(t *testing.T) {
	var names []string
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "p",
		Handlers: selector.ElementHandlers{
			Element: func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error {
				names = append(names, tok.TagName(chunk))
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	runRewrite(t, m, "<div><p>a</p><p>b</p></div>")
	assert.Equal(t, []string{"p", "p"}, names)
}

func TestMatcher_ClassSelectorRemovesMatchedElementOnly(t *testing.T) {
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "p.x",
		Handlers: selector.ElementHandlers{
			Element: func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error {
				tok.RemoveElement()
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	got := runRewrite(t, m, `<p class="x">1</p><p>2</p>`)
	assert.Equal(t, "<p>2</p>", got)
}

func TestMatcher_DescendantCombinatorMatchesAcrossMultipleLevels(t *testing.T) {
	var matched int
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "div span",
		Handlers: selector.ElementHandlers{
			Element: func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error {
				matched++
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	runRewrite(t, m, "<div><section><article><span>x</span></article></section></div>")
	assert.Equal(t, 1, matched)
}

func TestMatcher_ChildCombinatorDoesNotMatchGrandchild(t *testing.T) {
	var matched int
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "div > span",
		Handlers: selector.ElementHandlers{
			Element: func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error {
				matched++
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	runRewrite(t, m, "<div><section><span>x</span></section></div>")
	assert.Equal(t, 0, matched)

	matched = 0
	runRewrite(t, m, "<div><span>x</span></div>")
	assert.Equal(t, 1, matched)
}

func TestMatcher_NthChildSelectsOnlyMatchingPosition(t *testing.T) {
	var matched []int
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "li:nth-child(2)",
		Handlers: selector.ElementHandlers{
			Element: func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error {
				matched = append(matched, 1)
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	runRewrite(t, m, "<ul><li>a</li><li>b</li><li>c</li></ul>")
	assert.Len(t, matched, 1)
}

func TestMatcher_AttributeSelectorSetsHref(t *testing.T) {
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "a[href]",
		Handlers: selector.ElementHandlers{
			Element: func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error {
				tok.SetAttribute("href", "/n")
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	got := runRewrite(t, m, `<a href="/o">t</a>`)
	assert.Equal(t, `<a href="/n">t</a>`, got)
}

func TestMatcher_TextHandlerRunsOnlyForMatchedElement(t *testing.T) {
	var captured []string
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "p.x",
		Handlers: selector.ElementHandlers{
			Text: func(tok *rewriter.TextChunkToken, chunk *rewriter.Chunk) error {
				captured = append(captured, tok.AsStr(chunk))
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	runRewrite(t, m, `<p class="x">matched</p><p>unmatched</p>`)
	assert.Equal(t, []string{"matched"}, captured)
}

func TestMatcher_DocumentDoctypeHandlerFiresOnce(t *testing.T) {
	var names []string
	m, err := selector.NewMatcher(nil, []selector.DocumentHandlers{{
		Doctype: func(tok *rewriter.DoctypeToken, chunk *rewriter.Chunk) error {
			if name, ok := tok.Name(chunk); ok {
				names = append(names, name)
			}
			return nil
		},
	}})
	require.NoError(t, err)

	got := runRewrite(t, m, "<!doctype html><x>")
	assert.Equal(t, "<!doctype html><x>", got)
	require.Len(t, names, 1)
	assert.Equal(t, "html", names[0])
}

func TestMatcher_AddElementHandlersAfterStartedRejected(t *testing.T) {
	m, err := selector.NewMatcher(nil, nil)
	require.NoError(t, err)
	m.HandleElementStartHint(rewriter.TagHint{}) // marks the matcher as started

	err = m.AddElementHandlers("div", selector.ElementHandlers{})
	require.Error(t, err)
	rerr, ok := err.(*rewriter.Error)
	require.True(t, ok)
	assert.Equal(t, rewriter.ErrHandlersAddedAfterWrite, rerr.Kind)
}

func TestMatcher_InvalidSelectorRejectedAtConstruction(t *testing.T) {
	_, err := selector.NewMatcher([]selector.Rule{{Selector: "li:last-child"}}, nil)
	require.Error(t, err)
	rerr, ok := err.(*rewriter.Error)
	require.True(t, ok)
	assert.Equal(t, rewriter.ErrSelectorParse, rerr.Kind)
}

func TestMatcher_NotExcludesMatchingElement(t *testing.T) {
	var names []string
	m, err := selector.NewMatcher([]selector.Rule{{
		Selector: "p:not(.skip)",
		Handlers: selector.ElementHandlers{
			Element: func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error {
				names = append(names, tok.TagName(chunk))
				return nil
			},
		},
	}}, nil)
	require.NoError(t, err)

	runRewrite(t, m, `<p class="skip">a</p><p>b</p>`)
	assert.Equal(t, []string{"p"}, names)
}
