package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhtml/rewriter"
)

func TestParse_TypeSelector(t *testing.T) {
	sel, err := Parse("div")
	require.NoError(t, err)
	require.Len(t, sel.alternatives, 1)
	chain := sel.alternatives[0]
	require.Len(t, chain, 1)
	assert.Equal(t, "div", chain[0].sel.typeName)
}

func TestParse_ClassAndID(t *testing.T) {
	sel, err := Parse("p.x#main")
	require.NoError(t, err)
	step := sel.alternatives[0][0].sel
	assert.Equal(t, "p", step.typeName)
	assert.Equal(t, "main", step.id)
	assert.Equal(t, []string{"x"}, step.classes)
}

func TestParse_UniversalSelector(t *testing.T) {
	sel, err := Parse("*")
	require.NoError(t, err)
	assert.Equal(t, "", sel.alternatives[0][0].sel.typeName)
}

func TestParse_AttributePresence(t *testing.T) {
	sel, err := Parse("a[href]")
	require.NoError(t, err)
	step := sel.alternatives[0][0].sel
	require.Len(t, step.attrs, 1)
	assert.Equal(t, attrPresent, step.attrs[0].op)
	assert.Equal(t, "href", step.attrs[0].name)
}

func TestParse_AttributeEqualsQuoted(t *testing.T) {
	sel, err := Parse(`a[data-x="hi there"]`)
	require.NoError(t, err)
	attr := sel.alternatives[0][0].sel.attrs[0]
	assert.Equal(t, attrEquals, attr.op)
	assert.Equal(t, "hi there", attr.value)
}

func TestParse_AttributeOperators(t *testing.T) {
	cases := map[string]attrOp{
		`[class~="x"]`:    attrIncludes,
		`[lang|="en"]`:    attrDashMatch,
		`[href^="https"]`: attrPrefix,
		`[href$=".png"]`:  attrSuffix,
		`[href*="foo"]`:   attrSubstring,
	}
	for raw, want := range cases {
		sel, err := Parse("div" + raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, sel.alternatives[0][0].sel.attrs[0].op, raw)
	}
}

func TestParse_CaseInsensitiveAttributeFlag(t *testing.T) {
	sel, err := Parse(`[data-x="HI" i]`)
	require.NoError(t, err)
	attr := sel.alternatives[0][0].sel.attrs[0]
	assert.True(t, attr.caseInsensitive)
}

func TestParse_DescendantCombinator(t *testing.T) {
	sel, err := Parse("div p")
	require.NoError(t, err)
	chain := sel.alternatives[0]
	require.Len(t, chain, 2)
	assert.Equal(t, combDescendant, chain[1].comb)
	assert.Equal(t, "p", chain[1].sel.typeName)
}

func TestParse_ChildCombinator(t *testing.T) {
	sel, err := Parse("ul > li")
	require.NoError(t, err)
	chain := sel.alternatives[0]
	require.Len(t, chain, 2)
	assert.Equal(t, combChild, chain[1].comb)
}

func TestParse_CommaSeparatedAlternatives(t *testing.T) {
	sel, err := Parse("h1, h2, h3")
	require.NoError(t, err)
	require.Len(t, sel.alternatives, 3)
}

func TestParse_FirstChild(t *testing.T) {
	sel, err := Parse("li:first-child")
	require.NoError(t, err)
	assert.True(t, sel.alternatives[0][0].sel.firstChild)
}

func TestParse_NthChildOdd(t *testing.T) {
	sel, err := Parse("tr:nth-child(odd)")
	require.NoError(t, err)
	n := sel.alternatives[0][0].sel.nthChild
	require.NotNil(t, n)
	assert.Equal(t, nthExpr{a: 2, b: 1}, *n)
}

func TestParse_NthChildFormula(t *testing.T) {
	sel, err := Parse("tr:nth-child(2n+1)")
	require.NoError(t, err)
	n := sel.alternatives[0][0].sel.nthChild
	require.NotNil(t, n)
	assert.Equal(t, nthExpr{a: 2, b: 1}, *n)
}

func TestParse_NthOfType(t *testing.T) {
	sel, err := Parse("p:nth-of-type(3)")
	require.NoError(t, err)
	n := sel.alternatives[0][0].sel.nthOfType
	require.NotNil(t, n)
	assert.Equal(t, nthExpr{a: 0, b: 3}, *n)
}

func TestParse_Not(t *testing.T) {
	sel, err := Parse("p:not(.x)")
	require.NoError(t, err)
	step := sel.alternatives[0][0].sel
	require.Len(t, step.not, 1)
	assert.Equal(t, []string{"x"}, step.not[0].classes)
}

func TestParse_RejectsLastChild(t *testing.T) {
	_, err := Parse("li:last-child")
	require.Error(t, err)
	rerr, ok := err.(*rewriter.Error)
	require.True(t, ok)
	assert.Equal(t, rewriter.ErrSelectorParse, rerr.Kind)
}

func TestParse_RejectsNthLastChild(t *testing.T) {
	_, err := Parse("li:nth-last-child(2)")
	require.Error(t, err)
}

func TestParse_RejectsNthLastOfType(t *testing.T) {
	_, err := Parse("li:nth-last-of-type(2)")
	require.Error(t, err)
}

func TestParse_RejectsSiblingCombinator(t *testing.T) {
	_, err := Parse("div + p")
	require.Error(t, err)
}

func TestParse_RejectsUnsupportedPseudo(t *testing.T) {
	_, err := Parse("div:hover")
	require.Error(t, err)
}

func TestParse_RejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("div]")
	require.Error(t, err)
}

func TestParse_RejectsNotArgumentWithCombinator(t *testing.T) {
	_, err := Parse("p:not(div p)")
	require.Error(t, err)
}
