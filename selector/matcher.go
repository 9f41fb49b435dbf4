package selector

import (
	"strings"

	"github.com/streamhtml/rewriter"
)

// ElementHandlers is the callback set a Rule attaches to its selector: all
// three are optional, mirroring the external "element(cb)/comments(cb)/
// text(cb)" surface.
type ElementHandlers struct {
	Element  func(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) error
	Comments func(tok *rewriter.CommentToken, chunk *rewriter.Chunk) error
	Text     func(tok *rewriter.TextChunkToken, chunk *rewriter.Chunk) error
}

// DocumentHandlers fires for content at the root of the document: stray
// text/comments outside any element, the doctype, and stream end.
type DocumentHandlers struct {
	Doctype  func(tok *rewriter.DoctypeToken, chunk *rewriter.Chunk) error
	Comments func(tok *rewriter.CommentToken, chunk *rewriter.Chunk) error
	Text     func(tok *rewriter.TextChunkToken, chunk *rewriter.Chunk) error
	End      func() error
}

// Rule pairs a selector with the handlers that run for every element it
// matches.
type Rule struct {
	Selector string
	Handlers ElementHandlers
}

// chainRef is one compiled alternative chain, tagged with the rule it
// belongs to (a Rule's comma-separated selector list compiles to one
// chainRef per alternative, all sharing that Rule's handlers).
type chainRef struct {
	ruleIdx int
	steps   []compoundStep
}

// frame is the per-open-element ancestry state the Matcher tracks, mirrored
// 1:1 against the Dispatcher's own elementStack via HandleElementStart/End.
type frame struct {
	progress         []int // parallel to Matcher.chains
	childCount       int
	childCountByType map[string]int
	activeRules      []int // rule indices fully matched by this element
}

// Matcher implements rewriter.TransformController by walking an explicit
// ancestry stack of frames, advancing each compiled chain's match progress
// on every element start the same way a streaming regex engine advances an
// NFA one character at a time — it never builds a DOM, so it can only see
// what it has already streamed past. That constraint is exactly why
// :last-child/:nth-last-child/:nth-last-of-type are rejected at parse time
// (see parser.go's parsePseudo): an element's matching handlers run at its
// start tag, before any following sibling (or its parent's end tag) has
// even been tokenized, so "is this the last child" is structurally
// undecidable here without buffering the rest of the subtree — which would
// defeat the whole point of a streaming rewriter.
type Matcher struct {
	rules []Rule
	docs  []DocumentHandlers

	chains []chainRef

	// universalChain is true if some chain step anywhere has no type name
	// (a universal "*" or an attribute/class/id/pseudo-only compound),
	// meaning no tag name can be safely excluded from full lexing.
	universalChain bool
	interesting    map[rewriter.NameHash]bool

	// unsafeForSettle names every hash that appears, anywhere, in a chain
	// step carrying a predicate beyond its type name (id/class/attrs/
	// :not/structural pseudo), or as part of a rule whose Element handler
	// needs the element's real attributes to run. A hint naming anything
	// else in interesting is provably a bare type match with no Element
	// handler depending on its attributes, so HandleElementStartHint can
	// settle it without ever lexing the tag.
	unsafeForSettle map[rewriter.NameHash]bool

	root  frame // virtual parent for top-level elements
	stack []frame

	started bool
}

// NewMatcher compiles rules and docHandlers into a ready-to-use Matcher.
// Selectors are parsed once, up front, so a bad selector fails at
// construction time rather than mid-stream.
func NewMatcher(rules []Rule, docHandlers []DocumentHandlers) (*Matcher, error) {
	m := &Matcher{
		rules:           rules,
		docs:            docHandlers,
		interesting:     make(map[rewriter.NameHash]bool),
		unsafeForSettle: make(map[rewriter.NameHash]bool),
	}
	m.root.childCountByType = make(map[string]int)

	for ruleIdx, r := range rules {
		sel, err := Parse(r.Selector)
		if err != nil {
			return nil, err
		}
		for _, steps := range sel.alternatives {
			m.chains = append(m.chains, chainRef{ruleIdx: ruleIdx, steps: steps})
			m.indexChain(ruleIdx, steps)
		}
	}
	return m, nil
}

// AddElementHandlers is an incremental alternative to passing every Rule to
// NewMatcher up front; it parses and appends immediately. Like every
// registration method, it must not be called once matching has begun.
func (m *Matcher) AddElementHandlers(selectorStr string, h ElementHandlers) error {
	if m.started {
		return newAlreadyStartedError(selectorStr)
	}
	sel, err := Parse(selectorStr)
	if err != nil {
		return err
	}
	ruleIdx := len(m.rules)
	m.rules = append(m.rules, Rule{Selector: selectorStr, Handlers: h})
	for _, steps := range sel.alternatives {
		m.chains = append(m.chains, chainRef{ruleIdx: ruleIdx, steps: steps})
		m.indexChain(ruleIdx, steps)
	}
	return nil
}

// indexChain records one compiled chain's fast-path exclusion data: which
// type names could ever advance it, and whether it needs every element (not
// just name-matched ones) tracked as a real ancestry frame.
//
// A plain descendant chain is safe to fast-path: an uninteresting element
// between two selector steps can be skipped via HandleElementStartHint
// without ever becoming a Matcher frame, because a descendant combinator
// only cares that some matching ancestor exists, never which element is
// the immediate parent or what position it holds among its siblings. A
// child combinator
// or a structural pseudo-class (:first-child, :nth-child, :nth-of-type)
// breaks that: getting the immediate parent or a 1-based sibling index
// right requires every sibling to push/pop a frame, named or not, so such a
// chain forces universalChain instead of populating interesting.
func (m *Matcher) indexChain(ruleIdx int, steps []compoundStep) {
	needsEveryElement := false
	for i, step := range steps {
		if i > 0 && step.comb == combChild {
			needsEveryElement = true
		}
		if step.sel.firstChild || step.sel.nthChild != nil || step.sel.nthOfType != nil {
			needsEveryElement = true
		}
	}
	if needsEveryElement {
		m.universalChain = true
		return
	}
	hasElementHandler := m.rules[ruleIdx].Handlers.Element != nil
	for _, step := range steps {
		if step.sel.typeName == "" {
			m.universalChain = true
			continue
		}
		h, ok := rewriter.HashName([]byte(strings.ToLower(step.sel.typeName)))
		if !ok {
			// A type name outside the hashable domain (longer than any real
			// HTML tag name) can't be cheaply excluded at hint time; fall
			// back to always lexing.
			m.universalChain = true
			continue
		}
		m.interesting[h] = true
		if hasPredicateBeyondType(step.sel) || hasElementHandler {
			m.unsafeForSettle[h] = true
		}
	}
}

// hasPredicateBeyondType reports whether a compound selector needs any
// attribute-derived information (id, class, attribute predicates, :not)
// beyond the element's bare tag name to decide a match. firstChild/
// nthChild/nthOfType never reach here: any step using one already forced
// universalChain earlier in indexChain, before this is ever consulted.
func hasPredicateBeyondType(sel *simpleSelector) bool {
	return sel.id != "" || len(sel.classes) > 0 || len(sel.attrs) > 0 || len(sel.not) > 0
}

// OnDocument registers one more DocumentHandlers set.
func (m *Matcher) OnDocument(h DocumentHandlers) error {
	if m.started {
		return newAlreadyStartedError("OnDocument")
	}
	m.docs = append(m.docs, h)
	return nil
}

// ---- rewriter.TransformController ----

// markStarted flips started on the first real matching-time call the
// Dispatcher makes against this Matcher. It deliberately does NOT happen
// in InitialContentSettings: that is called synchronously during
// NewDispatcher/NewRewriter construction, before any Write, so flipping it
// there would reject AddElementHandlers/OnDocument calls made right after
// construction but before the first Write — stricter than the "after the
// first write" lifecycle ErrHandlersAddedAfterWrite's name promises.
func (m *Matcher) markStarted() {
	m.started = true
}

func (m *Matcher) InitialContentSettings() rewriter.ContentSettings {
	var s rewriter.ContentSettings
	for _, d := range m.docs {
		if d.Text != nil {
			s.Text = true
		}
		if d.Comments != nil {
			s.Comments = true
		}
		if d.Doctype != nil {
			s.Doctype = true
		}
	}
	return s
}

// HandleElementStartHint answers the scanner-mode fast path. A hint whose
// name can't possibly be any chain's type constraint, and isn't shadowed
// by a universal/attribute-only compound, settles immediately with empty
// ContentSettings — the same "nothing here could ever matter" fast path
// this engine has always taken. A hint naming a known void element that is
// additionally provable safe (bare type match, no Element handler
// depending on its attributes — see unsafeForSettle) also settles
// directly, skipping the attribute lex and the HandleElementStart round
// trip entirely: void elements have no children and no closing tag to
// reconcile, so there is nothing a full lex could have told us that
// changes the outcome. Every other hint defers to a full lex, which is
// always correct, just slower.
func (m *Matcher) HandleElementStartHint(hint rewriter.TagHint) rewriter.HintDecision {
	m.markStarted()
	if m.universalChain || !hint.HashOK {
		return rewriter.HintDecision{Kind: rewriter.RequestElementModifiersInfo}
	}
	if !m.interesting[hint.NameHash] {
		return rewriter.HintDecision{Kind: rewriter.SettledContentSettings}
	}
	if !m.unsafeForSettle[hint.NameHash] && rewriter.IsVoidElementHash(hint.NameHash, hint.HashOK) {
		return rewriter.HintDecision{Kind: rewriter.SettledContentSettings}
	}
	return rewriter.HintDecision{Kind: rewriter.RequestElementModifiersInfo}
}

func (m *Matcher) parent() *frame {
	if n := len(m.stack); n > 0 {
		return &m.stack[n-1]
	}
	return &m.root
}

func (m *Matcher) HandleElementStart(tok *rewriter.StartTagToken, chunk *rewriter.Chunk) (rewriter.ContentSettings, rewriter.ElementStartResponse, error) {
	m.markStarted()
	name := tok.TagName(chunk)

	parent := m.parent()
	parent.childCount++
	if parent.childCountByType == nil {
		parent.childCountByType = make(map[string]int)
	}
	parent.childCountByType[strings.ToLower(name)]++

	info := elementInfo{
		name:                name,
		getAttr:             func(n string) (string, bool) { return tok.GetAttribute(n) },
		indexInParent:       parent.childCount,
		indexOfTypeInParent: parent.childCountByType[strings.ToLower(name)],
	}
	if id, ok := tok.GetAttribute("id"); ok {
		info.id = id
	}
	if cls, ok := tok.GetAttribute("class"); ok {
		info.classes = strings.Fields(cls)
	}

	parentProgress := parent.progress

	f := frame{
		progress:         make([]int, len(m.chains)),
		childCountByType: make(map[string]int),
	}

	var settings rewriter.ContentSettings
	for i, c := range m.chains {
		var inherited int
		if i < len(parentProgress) {
			inherited = parentProgress[i]
		}
		achieved := advanceChain(inherited, c.steps, info)
		if achieved == len(c.steps) {
			f.activeRules = appendUniqueInt(f.activeRules, c.ruleIdx)
		}
		f.progress[i] = carryProgress(inherited, achieved, c.steps)
	}
	for _, ri := range f.activeRules {
		h := m.rules[ri].Handlers
		if h.Text != nil {
			settings.Text = true
		}
		if h.Comments != nil {
			settings.Comments = true
		}
	}

	for _, ri := range f.activeRules {
		if h := m.rules[ri].Handlers.Element; h != nil {
			if err := h(tok, chunk); err != nil {
				return settings, rewriter.ElementStartResponse{}, err
			}
		}
	}

	m.stack = append(m.stack, f)
	return settings, rewriter.ElementStartResponse{Kind: rewriter.ElementContinue}, nil
}

func (m *Matcher) HandleElementEnd(tok *rewriter.EndTagToken, chunk *rewriter.Chunk) error {
	if n := len(m.stack); n > 0 {
		m.stack = m.stack[:n-1]
	}
	return nil
}

func (m *Matcher) HandleText(tok *rewriter.TextChunkToken, chunk *rewriter.Chunk) error {
	m.markStarted()
	if n := len(m.stack); n > 0 {
		top := &m.stack[n-1]
		for _, ri := range top.activeRules {
			if h := m.rules[ri].Handlers.Text; h != nil {
				if err := h(tok, chunk); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, d := range m.docs {
		if d.Text != nil {
			if err := d.Text(tok, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Matcher) HandleComment(tok *rewriter.CommentToken, chunk *rewriter.Chunk) error {
	m.markStarted()
	if n := len(m.stack); n > 0 {
		top := &m.stack[n-1]
		for _, ri := range top.activeRules {
			if h := m.rules[ri].Handlers.Comments; h != nil {
				if err := h(tok, chunk); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, d := range m.docs {
		if d.Comments != nil {
			if err := d.Comments(tok, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Matcher) HandleDoctype(tok *rewriter.DoctypeToken, chunk *rewriter.Chunk) error {
	m.markStarted()
	for _, d := range m.docs {
		if d.Doctype != nil {
			if err := d.Doctype(tok, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

// End runs every registered document End callback; call it once after
// rewriter.Rewriter.End succeeds.
func (m *Matcher) End() error {
	for _, d := range m.docs {
		if d.End != nil {
			if err := d.End(); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendUniqueInt(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// advanceChain computes the match progress a new element achieves for one
// compiled chain, given the progress its parent carried (inherited): the
// number of the chain's leading steps already satisfied by some valid
// ancestor under the relevant combinators. Every element is also tried
// fresh at step 0, since the leftmost compound in a chain has no ancestor
// requirement of its own (e.g. "div p" matches any div, anywhere).
func advanceChain(inherited int, steps []compoundStep, info elementInfo) int {
	best := 0
	if steps[0].sel.matches(info) {
		best = 1
	}
	if inherited > 0 && inherited < len(steps) {
		next := steps[inherited]
		if next.sel.matches(info) && inherited+1 > best {
			best = inherited + 1
		}
	}
	return best
}

// carryProgress is what advanceChain's caller propagates to an element's
// own children for each chain: inherited itself survives through a
// descendant combinator regardless of whether this element advanced it,
// capped by whatever the element itself achieved.
func carryProgress(inherited, achieved int, steps []compoundStep) int {
	carry := 0
	if inherited > 0 && inherited < len(steps) && steps[inherited].comb == combDescendant {
		carry = inherited
	}
	if achieved > carry {
		return achieved
	}
	return carry
}
