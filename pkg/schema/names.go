/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: names.go
Description: Identifier tokenising and normalisation used to match legacy field names
across entities and to derive modern property and route names.
*/

package schema

import (
	"sort"
	"strings"
	"unicode"
)

// Tokenize splits a legacy identifier into upper-case tokens at separators and case
// changes. "CUST_ID", "CustId" and "cust-id" all give [CUST ID]; "CUSTID" stays whole.
func Tokenize(name string) []string {
	var (
		tokens  []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, strings.ToUpper(string(current)))
			current = current[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && len(current) > 0 && startsToken(runes, i) {
			flush()
		}
		current = append(current, r)
	}
	flush()
	return tokens
}

// startsToken reports a lower-to-upper transition or the end of an acronym
func startsToken(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if unicode.IsUpper(r) && unicode.IsLower(prev) {
		return true
	}
	return unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

// CamelCase renders a legacy name as a lower camel case property name
func CamelCase(name string) string {
	tokens := Tokenize(name)
	var b strings.Builder
	for i, t := range tokens {
		lower := strings.ToLower(t)
		if i == 0 {
			b.WriteString(lower)
			continue
		}
		b.WriteString(strings.ToUpper(lower[:1]) + lower[1:])
	}
	return b.String()
}

// Kebab renders a legacy name as lower kebab case
func Kebab(name string) string {
	tokens := Tokenize(name)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return strings.Join(tokens, "-")
}

// Plural returns the English plural of a lower-case word
func Plural(word string) string {
	switch {
	case word == "":
		return word
	case strings.HasSuffix(word, "s"), strings.HasSuffix(word, "x"), strings.HasSuffix(word, "z"),
		strings.HasSuffix(word, "ch"), strings.HasSuffix(word, "sh"):
		return word + "es"
	case strings.HasSuffix(word, "y") && len(word) > 1 && !strings.ContainsRune("aeiou", rune(word[len(word)-2])):
		return word[:len(word)-1] + "ies"
	default:
		return word + "s"
	}
}

// normalizer reduces names to a comparable stem
type normalizer struct {
	prefixes []string
	suffixes []string
}

func newNormalizer(prefixes, suffixes []string) normalizer {
	n := normalizer{}
	for _, p := range prefixes {
		n.prefixes = append(n.prefixes, strings.ToUpper(p))
	}
	for _, s := range suffixes {
		n.suffixes = append(n.suffixes, strings.ToUpper(s))
	}
	// longest suffix wins
	sort.SliceStable(n.suffixes, func(i, j int) bool {
		return len(n.suffixes[i]) > len(n.suffixes[j])
	})
	return n
}

// joined drops reference prefix tokens and joins the rest
func (n normalizer) joined(name string) string {
	tokens := Tokenize(name)
	for len(tokens) > 1 && contains(n.prefixes, tokens[0]) {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, "")
}

// stem strips one reference suffix. It returns "" when nothing but the suffix remains.
func (n normalizer) stem(name string) string {
	s := n.joined(name)
	for _, suffix := range n.suffixes {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
