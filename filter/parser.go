package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CompileOptions configures compilation of a filter expression.
// SimilarityThreshold is the default threshold for the =*/!* operators
// and corresponds to the CLI's --strsim-threshold flag.
type CompileOptions struct {
	SimilarityThreshold float64
}

// DefaultSimilarityThreshold is used when CompileOptions is the zero
// value.
const DefaultSimilarityThreshold = 0.8

// Compile parses and type-checks src, returning an immutable, reusable
// Expr. Regexes are compiled eagerly, so a malformed pattern is a
// compile-time error, not a per-record failure.
func Compile(src string, opts CompileOptions) (*Expr, error) {
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	p := &parser{src: src, opts: opts}
	root, err := p.parseOr(nil)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, &ParseError{Column: p.pos, Message: "unexpected trailing input"}
	}
	return &Expr{root: root}, nil
}

type parser struct {
	src  string
	pos  int
	opts CompileOptions
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() (byte, bool) {
	if p.eof() {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &ParseError{Column: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) typef(format string, args ...interface{}) error {
	return &TypeError{Column: p.pos, Message: fmt.Sprintf(format, args...)}
}

// consumeByte advances past b if it is the next byte.
func (p *parser) consumeByte(b byte) bool {
	if c, ok := p.peek(); ok && c == b {
		p.pos++
		return true
	}
	return false
}

// consumeStr advances past s if the source continues with it exactly.
func (p *parser) consumeStr(s string) bool {
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) expectByte(b byte) error {
	if !p.consumeByte(b) {
		return p.errf("expected %q", string(b))
	}
	return nil
}

// --- grammar: Expr := Or ---

func (p *parser) parseOr(scope *fieldSel) (node, error) {
	left, err := p.parseAnd(scope)
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.consumeStr("||") {
			right, err := p.parseAnd(scope)
			if err != nil {
				return nil, err
			}
			left = orNode{left, right}
			continue
		}
		break
	}
	return left, nil
}

func (p *parser) parseAnd(scope *fieldSel) (node, error) {
	left, err := p.parseNot(scope)
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.consumeStr("&&") {
			right, err := p.parseNot(scope)
			if err != nil {
				return nil, err
			}
			left = andNode{left, right}
			continue
		}
		break
	}
	return left, nil
}

func (p *parser) parseNot(scope *fieldSel) (node, error) {
	p.skipSpace()
	if p.consumeByte('!') {
		inner, err := p.parseNot(scope)
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary(scope)
}

func (p *parser) parsePrimary(scope *fieldSel) (node, error) {
	p.skipSpace()
	if p.consumeByte('(') {
		inner, err := p.parseOr(scope)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expectByte(')'); err != nil {
			return nil, err
		}
		return inner, nil
	}
	if scope != nil {
		return p.parseScopedCompare(*scope)
	}
	return p.parseTopLevelCompare()
}

// parseScopedCompare handles the restricted grammar inside a "{ ... }"
// subfield-local scope: a bare SubfieldSel, either as an existence
// test or as the LHS of a Compare.
func (p *parser) parseScopedCompare(scope fieldSel) (node, error) {
	sel, err := p.parseSubfieldSel()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.consumeByte('?') {
		return subfieldExistsNode{sel: sel}, nil
	}
	op, negate, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseRHS()
	if err != nil {
		return nil, err
	}
	return p.buildCompare(lhsSubfieldLocal{sub: sel}, op, negate, rhs)
}

// parseTopLevelCompare handles LeaderSlot | ControlTag | FieldSel "." SubfieldSel
// | FieldSel "{" Expr "}", plus the Exists production FieldSel "?".
func (p *parser) parseTopLevelCompare() (node, error) {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "ldr.") {
		p.pos += len("ldr.")
		name, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		if !isKnownLeaderSlot(name) {
			return nil, p.errf("unknown leader slot %q", name)
		}
		op, negate, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		rhs, err := p.parseRHS()
		if err != nil {
			return nil, err
		}
		return p.buildCompare(lhsLeaderSlot{name: name}, op, negate, rhs)
	}

	tag, err := p.parseTagPattern()
	if err != nil {
		return nil, err
	}
	ind := "**"
	hasInd := false
	if p.consumeByte('/') {
		hasInd = true
		ind, err = p.parseIndPattern()
		if err != nil {
			return nil, err
		}
	}
	sel := fieldSel{tag: tag, ind: ind}

	p.skipSpace()
	switch {
	case p.consumeByte('?'):
		return fieldExistsNode{sel: sel}, nil
	case p.consumeByte('.'):
		sub, err := p.parseSubfieldSel()
		if err != nil {
			return nil, err
		}
		op, negate, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		rhs, err := p.parseRHS()
		if err != nil {
			return nil, err
		}
		return p.buildCompare(lhsData{sel: sel, sub: sub}, op, negate, rhs)
	case p.consumeByte('{'):
		inner, err := p.parseOr(&sel)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expectByte('}'); err != nil {
			return nil, err
		}
		return scopeNode{sel: sel, inner: inner}, nil
	default:
		if hasInd {
			return nil, p.errf("indicator pattern is only valid on a data field selector, not a control field compare")
		}
		op, negate, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		rhs, err := p.parseRHS()
		if err != nil {
			return nil, err
		}
		return p.buildCompare(lhsControl{tag: tag}, op, negate, rhs)
	}
}

func isKnownLeaderSlot(name string) bool {
	switch name {
	case "length", "status", "type", "bibliographic_level", "control_type",
		"character_coding", "encoding_level", "descriptive_cataloging_form",
		"multipart_resource_record_level":
		return true
	default:
		return false
	}
}

func (p *parser) parseWord() (string, error) {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errf("expected an identifier")
	}
	return p.src[start:p.pos], nil
}

// parseTagPattern reads exactly 3 characters from [0-9.].
func (p *parser) parseTagPattern() (string, error) {
	if p.pos+3 > len(p.src) {
		return "", p.errf("expected a 3-character tag pattern")
	}
	tag := p.src[p.pos : p.pos+3]
	for i := 0; i < 3; i++ {
		c := tag[i]
		if !(c == '.' || (c >= '0' && c <= '9')) {
			return "", p.errf("invalid tag pattern %q: position %d must be a digit or '.'", tag, i)
		}
	}
	p.pos += 3
	return tag, nil
}

// parseIndPattern reads exactly 2 characters from [0-9a-z#*].
func (p *parser) parseIndPattern() (string, error) {
	if p.pos+2 > len(p.src) {
		return "", p.errf("expected a 2-character indicator pattern")
	}
	ind := p.src[p.pos : p.pos+2]
	for i := 0; i < 2; i++ {
		c := ind[i]
		if !(c == '#' || c == '*' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
			return "", p.errf("invalid indicator pattern %q: position %d is not one of [0-9a-z#*]", ind, i)
		}
	}
	p.pos += 2
	return ind, nil
}

// parseSubfieldSel reads a lowercase letter, a digit, "[" code+ "]", or "*".
func (p *parser) parseSubfieldSel() (subfieldSel, error) {
	c, ok := p.peek()
	if !ok {
		return subfieldSel{}, p.errf("expected a subfield selector")
	}
	switch {
	case c == '*':
		p.pos++
		return subfieldSel{any: true}, nil
	case c == '[':
		p.pos++
		start := p.pos
		for {
			c, ok := p.peek()
			if !ok {
				return subfieldSel{}, p.errf("unterminated subfield code class")
			}
			if c == ']' {
				break
			}
			p.pos++
		}
		set := p.src[start:p.pos]
		if set == "" {
			return subfieldSel{}, p.errf("empty subfield code class")
		}
		p.pos++ // consume ']'
		return subfieldSel{set: set}, nil
	case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
		p.pos++
		return subfieldSel{single: c}, nil
	default:
		return subfieldSel{}, p.errf("invalid subfield selector %q", string(c))
	}
}

// --- operators ---

var multiByteOps = []string{"==", "!=", ">=", "<=", "=?", "!?", "=~", "!~", "=^", "!^", "=$", "!$", "=*", "!*"}

// baseOpFor maps a surface operator token to its base comparison and
// whether it is the negated ("dual quantifier") form.
func baseOpFor(tok string) (base string, negate bool) {
	switch tok {
	case "==":
		return "==", false
	case "!=":
		return "==", true
	case ">":
		return ">", false
	case ">=":
		return ">=", false
	case "<":
		return "<", false
	case "<=":
		return "<=", false
	case "=?":
		return "substr", false
	case "!?":
		return "substr", true
	case "=~":
		return "regex", false
	case "!~":
		return "regex", true
	case "=^":
		return "prefix", false
	case "!^":
		return "prefix", true
	case "=$":
		return "suffix", false
	case "!$":
		return "suffix", true
	case "=*":
		return "simscore", false
	case "!*":
		return "simscore", true
	case "in":
		return "member", false
	case "not in":
		return "member", true
	default:
		return "", false
	}
}

func (p *parser) parseOp() (tok string, negate bool, err error) {
	p.skipSpace()
	if p.consumeStr("not") {
		save := p.pos
		p.skipSpace()
		if p.consumeStr("in") && p.wordBoundary() {
			_, neg := baseOpFor("not in")
			return "not in", neg, nil
		}
		p.pos = save - len("not")
	}
	if p.matchesWord("in") {
		p.pos += 2
		_, neg := baseOpFor("in")
		return "in", neg, nil
	}
	for _, op := range multiByteOps {
		if p.consumeStr(op) {
			_, neg := baseOpFor(op)
			return op, neg, nil
		}
	}
	if c, ok := p.peek(); ok && (c == '>' || c == '<') {
		p.pos++
		return string(c), false, nil
	}
	return "", false, p.errf("expected a comparison operator")
}

func (p *parser) matchesWord(w string) bool {
	if !strings.HasPrefix(p.src[p.pos:], w) {
		return false
	}
	end := p.pos + len(w)
	if end < len(p.src) {
		c := p.src[end]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func (p *parser) wordBoundary() bool {
	if p.eof() {
		return true
	}
	c := p.src[p.pos]
	return !(c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'))
}

// --- RHS ---

type rhsValue struct {
	isList    bool
	isNumeric bool
	strs      []string
	nums      []int
}

func (p *parser) parseRHS() (rhsValue, error) {
	p.skipSpace()
	if p.consumeByte('[') {
		var out rhsValue
		out.isList = true
		first := true
		for {
			p.skipSpace()
			s, n, isNum, err := p.parseScalar()
			if err != nil {
				return rhsValue{}, err
			}
			if first {
				out.isNumeric = isNum
				first = false
			} else if isNum != out.isNumeric {
				return rhsValue{}, p.typef("cannot mix string and numeric literals in the same list")
			}
			if isNum {
				out.nums = append(out.nums, n)
			} else {
				out.strs = append(out.strs, s)
			}
			p.skipSpace()
			if p.consumeByte(',') {
				continue
			}
			break
		}
		if err := p.expectByte(']'); err != nil {
			return rhsValue{}, err
		}
		return out, nil
	}
	s, n, isNum, err := p.parseScalar()
	if err != nil {
		return rhsValue{}, err
	}
	if isNum {
		return rhsValue{isNumeric: true, nums: []int{n}}, nil
	}
	return rhsValue{strs: []string{s}}, nil
}

func (p *parser) parseScalar() (str string, num int, isNumeric bool, err error) {
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return "", 0, false, p.errf("expected a string or numeric literal")
	}
	if c == '"' {
		s, err := p.parseStringLiteral()
		return s, 0, false, err
	}
	if c >= '0' && c <= '9' {
		n, err := p.parseNumberLiteral()
		return "", n, true, err
	}
	return "", 0, false, p.errf("expected a string or numeric literal")
}

func (p *parser) parseStringLiteral() (string, error) {
	if !p.consumeByte('"') {
		return "", p.errf("expected a string literal")
	}
	var b strings.Builder
	for {
		c, ok := p.peek()
		if !ok {
			return "", p.errf("unterminated string literal")
		}
		if c == '"' {
			p.pos++
			return b.String(), nil
		}
		if c == '\\' {
			p.pos++
			e, ok := p.peek()
			if !ok {
				return "", p.errf("unterminated escape sequence")
			}
			p.pos++
			switch e {
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				return "", p.errf("unknown escape sequence \\%c", e)
			}
			continue
		}
		p.pos++
		b.WriteByte(c)
	}
}

func (p *parser) parseNumberLiteral() (int, error) {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return 0, p.errf("expected an unsigned decimal literal")
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, p.errf("invalid numeric literal: %v", err)
	}
	return n, nil
}

// --- compile-time type checking ---

func (p *parser) buildCompare(l lhs, opTok string, negate bool, rhs rhsValue) (node, error) {
	base, _ := baseOpFor(opTok)
	numericDomain := isNumericLHS(l)

	switch base {
	case ">", ">=", "<", "<=":
		if !numericDomain {
			return nil, p.typef("operator %q is only valid against ldr.length", opTok)
		}
		if rhs.isList || !rhs.isNumeric {
			return nil, p.typef("operator %q requires a single numeric literal", opTok)
		}
		return compareNode{lhs: l, base: base, negate: negate, numeric: true, numScalar: rhs.nums[0]}, nil

	case "==":
		if numericDomain {
			if rhs.isList || !rhs.isNumeric {
				return nil, p.typef("ldr.length requires a numeric literal")
			}
			return compareNode{lhs: l, base: base, negate: negate, numeric: true, numScalar: rhs.nums[0]}, nil
		}
		if rhs.isList || rhs.isNumeric {
			return nil, p.typef("operator %q requires a single string literal", opTok)
		}
		return compareNode{lhs: l, base: base, negate: negate, strScalar: rhs.strs[0]}, nil

	case "substr", "prefix", "suffix":
		if numericDomain || rhs.isNumeric {
			return nil, p.typef("operator %q is only valid against byte-string selectors", opTok)
		}
		return compareNode{lhs: l, base: base, negate: negate, strList: rhs.strs}, nil

	case "regex":
		if numericDomain || rhs.isNumeric {
			return nil, p.typef("operator %q is only valid against byte-string selectors", opTok)
		}
		regexes := make([]*regexp.Regexp, 0, len(rhs.strs))
		for _, pat := range rhs.strs {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, &RegexErr{Column: p.pos, Pattern: pat, Cause: err}
			}
			regexes = append(regexes, re)
		}
		return compareNode{lhs: l, base: base, negate: negate, regexes: regexes}, nil

	case "simscore":
		if numericDomain || rhs.isNumeric || rhs.isList {
			return nil, p.typef("operator %q requires a single string literal", opTok)
		}
		return compareNode{lhs: l, base: base, negate: negate, strScalar: rhs.strs[0], threshold: p.opts.SimilarityThreshold}, nil

	case "member":
		if numericDomain {
			if !rhs.isNumeric {
				return nil, p.typef("%q against ldr.length requires a numeric list", opTok)
			}
			set := make(map[int]struct{}, len(rhs.nums))
			for _, n := range rhs.nums {
				set[n] = struct{}{}
			}
			return compareNode{lhs: l, base: base, negate: negate, numeric: true, numSet: set}, nil
		}
		if rhs.isNumeric {
			return nil, p.typef("%q requires a string list", opTok)
		}
		set := make(map[string]struct{}, len(rhs.strs))
		for _, s := range rhs.strs {
			set[s] = struct{}{}
		}
		return compareNode{lhs: l, base: base, negate: negate, strSet: set}, nil
	}
	return nil, p.typef("unsupported operator %q", opTok)
}

func isNumericLHS(l lhs) bool {
	slot, ok := l.(lhsLeaderSlot)
	return ok && slot.name == "length"
}
