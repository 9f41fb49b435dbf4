package selector

import "fmt"

// parser consumes the flat token slice lexSelector produces, in the same
// idx-cursor style as the teacher's template parser: current/consume/
// match/expect helpers over a []token plus an index, no backtracking beyond what a
// caller does manually by saving/restoring idx.
type parser struct {
	toks []token
	idx  int
}

func newParser(toks []token) *parser {
	return &parser{toks: toks}
}

func (p *parser) current() token {
	return p.toks[p.idx]
}

func (p *parser) consume() {
	if p.idx < len(p.toks)-1 {
		p.idx++
	}
}

func (p *parser) match(typ tokenType) (token, bool) {
	if p.current().typ == typ {
		t := p.current()
		p.consume()
		return t, true
	}
	return token{}, false
}

func (p *parser) expect(typ tokenType, what string) (token, error) {
	if t, ok := p.match(typ); ok {
		return t, nil
	}
	return token{}, fmt.Errorf("expected %s at byte %d, got %q", what, p.current().pos, p.current().val)
}

func (p *parser) skipWhitespace() bool {
	skipped := false
	for p.current().typ == tokWhitespace {
		p.consume()
		skipped = true
	}
	return skipped
}

// Parse compiles a selector string into a Selector, rejecting anything
// outside the supported subset at parse time with a *rewriter.Error of
// kind ErrSelectorParse (via newParseError).
func Parse(raw string) (*Selector, error) {
	toks, err := lexSelector(raw)
	if err != nil {
		return nil, newParseError(raw, err)
	}
	p := newParser(toks)

	var alts [][]compoundStep
	for {
		p.skipWhitespace()
		chain, err := p.parseChain()
		if err != nil {
			return nil, newParseError(raw, err)
		}
		alts = append(alts, chain)
		p.skipWhitespace()
		if _, ok := p.match(tokComma); ok {
			continue
		}
		break
	}
	if p.current().typ != tokEOF {
		return nil, newParseError(raw, fmt.Errorf("unexpected trailing input %q at byte %d", p.current().val, p.current().pos))
	}
	return &Selector{raw: raw, alternatives: alts}, nil
}

// parseChain parses one combinator-joined sequence of compound selectors.
func (p *parser) parseChain() ([]compoundStep, error) {
	var steps []compoundStep

	sel, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	steps = append(steps, compoundStep{sel: sel})

	for {
		hadSpace := p.skipWhitespace()
		switch p.current().typ {
		case tokGT:
			p.consume()
			p.skipWhitespace()
			next, err := p.parseCompound()
			if err != nil {
				return nil, err
			}
			steps = append(steps, compoundStep{comb: combChild, sel: next})
		case tokIdent, tokStar, tokHash, tokDot, tokLBrack, tokColon:
			if !hadSpace {
				return nil, fmt.Errorf("expected combinator or end of selector at byte %d", p.current().pos)
			}
			next, err := p.parseCompound()
			if err != nil {
				return nil, err
			}
			steps = append(steps, compoundStep{comb: combDescendant, sel: next})
		default:
			return steps, nil
		}
	}
}

// parseCompound parses one compound selector: an optional type/universal
// head followed by any number of id/class/attribute/pseudo predicates.
func (p *parser) parseCompound() (*simpleSelector, error) {
	sel := &simpleSelector{}
	sawAnything := false

	switch t := p.current(); t.typ {
	case tokIdent:
		sel.typeName = t.val
		p.consume()
		sawAnything = true
	case tokStar:
		p.consume()
		sawAnything = true
	}

	for {
		switch p.current().typ {
		case tokHash:
			p.consume()
			id, err := p.expect(tokIdent, "id name")
			if err != nil {
				return nil, err
			}
			sel.id = id.val
			sawAnything = true
		case tokDot:
			p.consume()
			cls, err := p.expect(tokIdent, "class name")
			if err != nil {
				return nil, err
			}
			sel.classes = append(sel.classes, cls.val)
			sawAnything = true
		case tokLBrack:
			if err := p.parseAttr(sel); err != nil {
				return nil, err
			}
			sawAnything = true
		case tokColon:
			if err := p.parsePseudo(sel); err != nil {
				return nil, err
			}
			sawAnything = true
		default:
			if !sawAnything {
				return nil, fmt.Errorf("expected a selector at byte %d, got %q", p.current().pos, p.current().val)
			}
			return sel, nil
		}
	}
}

func (p *parser) parseAttr(sel *simpleSelector) error {
	p.consume() // '['
	p.skipWhitespace()
	name, err := p.expect(tokIdent, "attribute name")
	if err != nil {
		return err
	}
	p.skipWhitespace()

	pred := attrPredicate{name: name.val, op: attrPresent}

	switch p.current().typ {
	case tokRBrack:
		// presence only
	case tokEquals, tokIncludes, tokDashMatch, tokPrefix, tokSuffix, tokSubstring:
		op := p.current().typ
		p.consume()
		p.skipWhitespace()
		val, ok := p.matchValue()
		if !ok {
			return fmt.Errorf("expected attribute value at byte %d", p.current().pos)
		}
		pred.op = attrOpFor(op)
		pred.value = val
		p.skipWhitespace()
		if id, ok := p.match(tokIdent); ok {
			if id.val != "i" && id.val != "I" {
				return fmt.Errorf("unsupported attribute flag %q at byte %d", id.val, id.pos)
			}
			pred.caseInsensitive = true
			p.skipWhitespace()
		}
	default:
		return fmt.Errorf("unsupported attribute operator at byte %d", p.current().pos)
	}

	if _, err := p.expect(tokRBrack, "']'"); err != nil {
		return err
	}
	sel.attrs = append(sel.attrs, pred)
	return nil
}

func (p *parser) matchValue() (string, bool) {
	if t, ok := p.match(tokString); ok {
		return t.val, true
	}
	if t, ok := p.match(tokIdent); ok {
		return t.val, true
	}
	// An unquoted value that happens to look like a bare number or
	// nth-fragment (e.g. [data-count=1]) lexes as tokOther; accept a
	// single run of it too.
	if t, ok := p.match(tokOther); ok {
		return t.val, true
	}
	return "", false
}

func attrOpFor(t tokenType) attrOp {
	switch t {
	case tokEquals:
		return attrEquals
	case tokIncludes:
		return attrIncludes
	case tokDashMatch:
		return attrDashMatch
	case tokPrefix:
		return attrPrefix
	case tokSuffix:
		return attrSuffix
	case tokSubstring:
		return attrSubstring
	default:
		return attrPresent
	}
}

// parsePseudo parses one ':pseudo' or ':pseudo(arg)' predicate.
// :last-child and :nth-last-* are rejected here: see matcher.go's doc
// comment on why this engine can't support them without buffering an
// element's entire subtree until its parent closes.
func (p *parser) parsePseudo(sel *simpleSelector) error {
	p.consume() // ':'
	name, err := p.expect(tokIdent, "pseudo-class name")
	if err != nil {
		return err
	}

	hasArg := p.current().typ == tokLParen
	var arg string
	if hasArg {
		p.consume()
		p.skipWhitespace()
		start := p.idx
		depth := 1
		for depth > 0 {
			switch p.current().typ {
			case tokLParen:
				depth++
			case tokRParen:
				depth--
				if depth == 0 {
					break
				}
			case tokEOF:
				return fmt.Errorf("unterminated %s(...)", name.val)
			}
			if depth > 0 {
				p.consume()
			}
		}
		for i := start; i < p.idx; i++ {
			arg += p.toks[i].val
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return err
		}
	}

	switch name.val {
	case "not":
		if !hasArg {
			return fmt.Errorf(":not requires an argument")
		}
		inner, err := Parse(arg)
		if err != nil {
			return fmt.Errorf(":not argument: %w", err)
		}
		for _, chain := range inner.alternatives {
			if len(chain) != 1 {
				return fmt.Errorf(":not only supports a simple (combinator-free) argument")
			}
			sel.not = append(sel.not, chain[0].sel)
		}
	case "first-child":
		if hasArg {
			return fmt.Errorf(":first-child takes no argument")
		}
		sel.firstChild = true
	case "last-child", "nth-last-child", "nth-last-of-type":
		return fmt.Errorf("pseudo-class %q is unsupported: it cannot be decided from only the content a streaming rewriter has already seen", name.val)
	case "nth-child":
		n, err := parseNth(arg)
		if err != nil {
			return err
		}
		sel.nthChild = &n
	case "nth-of-type":
		n, err := parseNth(arg)
		if err != nil {
			return err
		}
		sel.nthOfType = &n
	default:
		return fmt.Errorf("unsupported pseudo-class %q", name.val)
	}
	return nil
}
