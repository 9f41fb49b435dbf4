package selector

import "strings"

// attrOp names one of the attribute-predicate comparison forms this subset
// supports.
type attrOp int

const (
	attrPresent attrOp = iota
	attrEquals
	attrIncludes   // ~=
	attrDashMatch  // |=
	attrPrefix     // ^=
	attrSuffix     // $=
	attrSubstring  // *=
)

type attrPredicate struct {
	name            string
	op              attrOp
	value           string
	caseInsensitive bool
}

func (p attrPredicate) match(got string, present bool) bool {
	if !present {
		return false
	}
	if p.op == attrPresent {
		return true
	}
	v, want := got, p.value
	if p.caseInsensitive {
		v = strings.ToLower(v)
		want = strings.ToLower(want)
	}
	switch p.op {
	case attrEquals:
		return v == want
	case attrIncludes:
		for _, f := range strings.Fields(v) {
			if f == want {
				return true
			}
		}
		return false
	case attrDashMatch:
		return v == want || strings.HasPrefix(v, want+"-")
	case attrPrefix:
		return want != "" && strings.HasPrefix(v, want)
	case attrSuffix:
		return want != "" && strings.HasSuffix(v, want)
	case attrSubstring:
		return want != "" && strings.Contains(v, want)
	default:
		return false
	}
}

// elementInfo is the matching-time snapshot of one open element: enough to
// evaluate every predicate this subset supports without retaining the
// StartTagToken itself (which belongs to the Dispatcher, not the matcher).
type elementInfo struct {
	name                 string
	id                   string
	classes              []string
	getAttr              func(name string) (string, bool)
	indexInParent        int // 1-based, among all element children of its parent so far
	indexOfTypeInParent  int // 1-based, among same-name siblings so far
}

func (e elementInfo) hasClass(c string) bool {
	for _, got := range e.classes {
		if got == c {
			return true
		}
	}
	return false
}

// simpleSelector is one compound selector's flat list of predicates, all of
// which must hold for a match: type, id, classes, attributes, :not
// arguments, and the structural pseudo-classes computable from
// past-only streaming state (see matcher.go for why :last-child is
// rejected at parse time instead of appearing here).
type simpleSelector struct {
	typeName string // "" means no type constraint (universal)

	id      string
	classes []string
	attrs   []attrPredicate
	not     []*simpleSelector

	firstChild bool
	nthChild   *nthExpr
	nthOfType  *nthExpr
}

func (s *simpleSelector) matches(e elementInfo) bool {
	if s.typeName != "" && !strings.EqualFold(s.typeName, e.name) {
		return false
	}
	if s.id != "" && s.id != e.id {
		return false
	}
	for _, c := range s.classes {
		if !e.hasClass(c) {
			return false
		}
	}
	for _, a := range s.attrs {
		v, ok := e.getAttr(a.name)
		if !a.match(v, ok) {
			return false
		}
	}
	if s.firstChild && e.indexInParent != 1 {
		return false
	}
	if s.nthChild != nil && !s.nthChild.matches(e.indexInParent) {
		return false
	}
	if s.nthOfType != nil && !s.nthOfType.matches(e.indexOfTypeInParent) {
		return false
	}
	for _, n := range s.not {
		if n.matches(e) {
			return false
		}
	}
	return true
}

// combinator names the relationship between one compound selector and the
// next one to its right.
type combinator int

const (
	combDescendant combinator = iota
	combChild
)

// compoundStep is one compound selector plus the combinator linking it to
// the step before it (ignored for steps[0], which has no left neighbor).
type compoundStep struct {
	comb combinator
	sel  *simpleSelector
}

// Selector is a parsed, compiled selector: a comma-separated list of
// alternative compound chains (matching any one of them counts as a
// match), each chain a left-to-right sequence of compoundSteps whose last
// element is the subject the selector names.
type Selector struct {
	raw          string
	alternatives [][]compoundStep
}

// String returns the original selector text.
func (s *Selector) String() string { return s.raw }
