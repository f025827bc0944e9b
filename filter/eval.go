package filter

import (
	"strings"

	"github.com/deutsche-nationalbibliothek/marc21/marc"
)

// Matches reports whether rec satisfies the compiled expression.
func (e *Expr) Matches(rec *marc.Record) bool {
	return evalNode(e.root, rec, nil)
}

// A non-nil scopeBinding restricts LHS evaluation of any
// lhsSubfieldLocal or subfieldExistsNode to the subfields of a single
// bound field, implementing the "{ ... }" subfield-local scope. It is
// threaded down instead of living on the node, since the same compiled
// subtree is re-evaluated once per candidate field.
type scopeBinding struct {
	field *marc.Field
}

func evalNode(n node, rec *marc.Record, scope *scopeBinding) bool {
	switch v := n.(type) {
	case orNode:
		return evalNode(v.left, rec, scope) || evalNode(v.right, rec, scope)
	case andNode:
		return evalNode(v.left, rec, scope) && evalNode(v.right, rec, scope)
	case notNode:
		return !evalNode(v.inner, rec, scope)
	case fieldExistsNode:
		for i := range rec.Fields() {
			f := &rec.Fields()[i]
			if fieldMatches(f, v.sel) {
				return true
			}
		}
		return false
	case subfieldExistsNode:
		if scope == nil || !scope.field.IsData() {
			return false
		}
		for _, sf := range scope.field.Subfields() {
			if v.sel.matches(sf.Code) {
				return true
			}
		}
		return false
	case scopeNode:
		fields := rec.Fields()
		for i := range fields {
			f := &fields[i]
			if !fieldMatches(f, v.sel) {
				continue
			}
			if evalNode(v.inner, rec, &scopeBinding{field: f}) {
				return true
			}
		}
		return false
	case compareNode:
		return evalCompare(v, rec, scope)
	default:
		return false
	}
}

func fieldMatches(f *marc.Field, sel fieldSel) bool {
	if !tagMatches(f.Tag(), sel.tag) {
		return false
	}
	if sel.ind == "" || sel.ind == "**" {
		return true
	}
	if !f.IsData() {
		return false
	}
	ind := f.Indicators()
	return indByteMatches(ind[0], sel.ind[0]) && indByteMatches(ind[1], sel.ind[1])
}

func tagMatches(tag, pattern string) bool {
	for i := 0; i < 3; i++ {
		if pattern[i] == '.' {
			continue
		}
		if pattern[i] != tag[i] {
			return false
		}
	}
	return true
}

func indByteMatches(actual, pattern byte) bool {
	switch pattern {
	case '*':
		return true
	case '#':
		return actual == ' '
	default:
		return actual == pattern
	}
}

// quantifier picks how a Compare node folds the bindings its LHS
// selects into one boolean. quantifierAny is the plain operator form:
// true if at least one binding satisfies the base predicate.
// quantifierAll is what a negated operator (!=, !?, !~, ...) actually
// asks — true unless some binding satisfies the base predicate — so
// that negation reads as "not any, i.e. all fail", which is the
// opposite of "any binding fails the un-negated predicate" whenever a
// selector yields zero or several bindings at once (De Morgan's law).
// A LHS with zero bindings has zero predicate successes, which
// quantifierAll counts as a pass, matching the "missing field" reading
// of e.g. "500.a != ...".
type quantifier int

const (
	quantifierAny quantifier = iota
	quantifierAll
)

func evalCompare(c compareNode, rec *marc.Record, scope *scopeBinding) bool {
	q := quantifierAny
	if c.negate {
		q = quantifierAll
	}

	if c.numeric {
		n, ok := gatherNumericBinding(c.lhs, rec)
		if !ok {
			return q == quantifierAll
		}
		return numericPredicate(c, n) == (q == quantifierAny)
	}

	values := gatherStringBindings(c.lhs, rec, scope)
	if len(values) == 0 {
		return q == quantifierAll
	}
	switch q {
	case quantifierAny:
		for _, v := range values {
			if stringPredicate(c, v) {
				return true
			}
		}
		return false
	default: // quantifierAll: true unless some binding satisfies the predicate
		for _, v := range values {
			if stringPredicate(c, v) {
				return false
			}
		}
		return true
	}
}

func gatherNumericBinding(l lhs, rec *marc.Record) (int, bool) {
	slot, ok := l.(lhsLeaderSlot)
	if !ok || slot.name != "length" {
		return 0, false
	}
	return rec.Leader().Length(), true
}

// gatherStringBindings returns the zero-or-more byte-string operands
// selected by l against rec (and, for lhsSubfieldLocal, the active
// scope binding).
func gatherStringBindings(l lhs, rec *marc.Record, scope *scopeBinding) [][]byte {
	switch v := l.(type) {
	case lhsLeaderSlot:
		b, ok := rec.Leader().Slot(v.name)
		if !ok {
			return nil
		}
		return [][]byte{{b}}
	case lhsControl:
		val, ok := rec.ControlField(v.tag)
		if !ok {
			return nil
		}
		return [][]byte{val}
	case lhsData:
		var out [][]byte
		fields := rec.Fields()
		for i := range fields {
			f := &fields[i]
			if !fieldMatches(f, v.sel) || !f.IsData() {
				continue
			}
			for _, sf := range f.Subfields() {
				if v.sub.matches(sf.Code) {
					out = append(out, sf.Value)
				}
			}
		}
		return out
	case lhsSubfieldLocal:
		if scope == nil || !scope.field.IsData() {
			return nil
		}
		var out [][]byte
		for _, sf := range scope.field.Subfields() {
			if v.sub.matches(sf.Code) {
				out = append(out, sf.Value)
			}
		}
		return out
	default:
		return nil
	}
}

func numericPredicate(c compareNode, n int) bool {
	switch c.base {
	case "==":
		return n == c.numScalar
	case ">":
		return n > c.numScalar
	case ">=":
		return n >= c.numScalar
	case "<":
		return n < c.numScalar
	case "<=":
		return n <= c.numScalar
	case "member":
		_, ok := c.numSet[n]
		return ok
	default:
		return false
	}
}

func stringPredicate(c compareNode, value []byte) bool {
	s := string(value)
	switch c.base {
	case "==":
		return s == c.strScalar
	case "substr":
		return containsAny(s, c.strList)
	case "prefix":
		return hasPrefixAny(s, c.strList)
	case "suffix":
		return hasSuffixAny(s, c.strList)
	case "regex":
		for _, re := range c.regexes {
			if re.Match(value) {
				return true
			}
		}
		return false
	case "simscore":
		return similarity(s, c.strScalar) > c.threshold
	case "member":
		_, ok := c.strSet[s]
		return ok
	default:
		return false
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasSuffixAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
