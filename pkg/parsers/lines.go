/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: lines.go
Description: Line helpers shared by the parsers. Parsers work on immutable line arrays
and address text by character column.
*/

package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// line is a non-blank source line with its 1-based number
type line struct {
	No   int
	Text string
}

// nonBlank returns every non-blank line of the input, numbered from 1
func nonBlank(lines []string) []line {
	out := make([]line, 0, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, line{No: i + 1, Text: l})
	}
	return out
}

// texts returns the text of each line
func texts(ls []line) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Text
	}
	return out
}

// sample returns at most n lines
func sample(ls []line, n int) []line {
	if n > 0 && len(ls) > n {
		return ls[:n]
	}
	return ls
}

// column returns the characters [from, from+length) of s, clipped to its length
func column(s []rune, from, length int) string {
	if from >= len(s) || length <= 0 {
		return ""
	}
	to := from + length
	if to > len(s) || length < 0 {
		to = len(s)
	}
	return string(s[from:to])
}

// at returns the character at index i or a space
func at(s []rune, i int) rune {
	if i < 0 || i >= len(s) {
		return ' '
	}
	return s[i]
}

var nameCleaner = regexp.MustCompile(`[^A-Za-z0-9]+`)

// labelToName converts a screen label into an upper-case identifier
func labelToName(label string) string {
	name := nameCleaner.ReplaceAllString(strings.TrimSpace(label), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return ""
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "F_" + name
	}
	return strings.ToUpper(name)
}

// uniqueNames makes names unique by appending _2, _3... to repeats
type uniqueNames map[string]int

func (u uniqueNames) claim(name string) (string, bool) {
	key := strings.ToUpper(name)
	u[key]++
	if u[key] == 1 {
		return name, false
	}
	for {
		candidate := name + "_" + strconv.Itoa(u[key])
		if _, taken := u[strings.ToUpper(candidate)]; !taken {
			u[strings.ToUpper(candidate)] = 1
			return candidate, true
		}
		u[key]++
	}
}

// positionalName returns field_N
func positionalName(ordinal int) string {
	return "field_" + strconv.Itoa(ordinal)
}
