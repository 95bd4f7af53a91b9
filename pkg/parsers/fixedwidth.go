/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fixedwidth.go
Description: Fixed-width flat file parser. Uses explicit column boundaries when they are
supplied, otherwise infers them from whitespace gutters that are stable across a sample
of rows.
*/

package parsers

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// FixedWidthParser parses fixed-width flat files
type FixedWidthParser struct{}

// NewFixedWidthParser creates a new fixed-width parser
func NewFixedWidthParser() *FixedWidthParser {
	return &FixedWidthParser{}
}

// Kind implements Parser
func (p *FixedWidthParser) Kind() core.FormatKind {
	return core.FormatFixedWidth
}

// Signatures implements Parser
func (p *FixedWidthParser) Signatures() []Signature {
	return []Signature{{
		Name:     "fixed_width.alignment",
		Kind:     core.FormatFixedWidth,
		Priority: PriorityFixedWidth,
		Score:    fixedWidthScore,
	}}
}

// fixedWidthScore rewards samples whose rows share a stable gutter set and length
func fixedWidthScore(lines []string, opts Options) float64 {
	if len(lines) == 0 {
		return 0
	}
	opts = opts.withDefaults()
	rows := make([][]rune, 0, len(lines))
	minLen, maxLen := -1, 0
	for _, l := range sample(toLines(lines), opts.SampleSize) {
		r := []rune(l.Text)
		rows = append(rows, r)
		if minLen < 0 || len(r) < minLen {
			minLen = len(r)
		}
		if len(r) > maxLen {
			maxLen = len(r)
		}
	}
	if len(inferBoundaries(rows, opts.SingleRowGutter)) < 2 {
		return 0
	}
	if float64(minLen) >= 0.9*float64(maxLen) {
		return 0.75
	}
	return 0.3
}

func toLines(ss []string) []line {
	out := make([]line, len(ss))
	for i, s := range ss {
		out[i] = line{No: i + 1, Text: s}
	}
	return out
}

// ParseHeader implements Parser
func (p *FixedWidthParser) ParseHeader(in *core.RawInput, opts Options) (*Header, error) {
	opts = opts.withDefaults()
	all := in.Lines()
	body := nonBlank(all)
	header := &Header{Variant: "inferred"}

	var names []string
	if opts.HasHeader != nil && *opts.HasHeader && len(body) > 0 {
		names = append(names, body[0].Text)
		header.BodyStart = body[0].No
		body = body[1:]
	}

	if len(opts.Columns) > 0 {
		header.Variant = "explicit"
		seen := uniqueNames{}
		for i, c := range opts.Columns {
			name := c.Name
			if name == "" {
				name = positionalName(i + 1)
			}
			if unique, renamed := seen.claim(name); renamed {
				header.Warnings.Add(core.WarnDuplicateName, 0, "", "column %q renamed to %q", name, unique)
				name = unique
			}
			header.Fields = append(header.Fields, core.FieldDescriptor{
				Name:    name,
				Ordinal: i + 1,
				Offset:  c.Offset,
				Length:  c.Length,
			})
		}
		return header, nil
	}

	sampled := sample(body, opts.SampleSize)
	rows := make([][]rune, len(sampled))
	width := 0
	for i, l := range sampled {
		rows[i] = []rune(l.Text)
		if len(rows[i]) > width {
			width = len(rows[i])
		}
	}

	starts := inferBoundaries(rows, opts.SingleRowGutter)
	if len(starts) < 2 {
		line := 0
		if len(sampled) > 0 {
			line = sampled[0].No
		}
		return nil, core.NewInputError(core.ErrAmbiguousColumnBoundaries, in, line,
			fmt.Sprintf("found %d stable field(s) in %d sample line(s)", len(starts), len(sampled)))
	}

	var headerRow []rune
	if len(names) > 0 {
		headerRow = []rune(names[0])
	}
	seen := uniqueNames{}
	for i, start := range starts {
		end := width
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		name := positionalName(i + 1)
		if headerRow != nil {
			if label := labelToName(column(headerRow, start, end-start)); label != "" {
				name = label
			}
		}
		if unique, renamed := seen.claim(name); renamed {
			header.Warnings.Add(core.WarnDuplicateName, 0, "", "column %q renamed to %q", name, unique)
			name = unique
		}
		header.Fields = append(header.Fields, core.FieldDescriptor{
			Name:    name,
			Ordinal: i + 1,
			Offset:  start,
			Length:  end - start,
		})
	}
	return header, nil
}

// ParseRecords implements Parser
func (p *FixedWidthParser) ParseRecords(in *core.RawInput, header *Header, opts Options) ([]core.Record, core.Warnings, error) {
	all := in.Lines()
	openEnded := header.Variant == "inferred"
	last := len(header.Fields) - 1

	var records []core.Record
	for i := header.BodyStart; i < len(all); i++ {
		if strings.TrimSpace(all[i]) == "" {
			continue
		}
		row := []rune(all[i])
		values := make([]string, len(header.Fields))
		for j, f := range header.Fields {
			length := f.Length
			if openEnded && j == last {
				length = len(row) - f.Offset
			}
			values[j] = strings.TrimSpace(column(row, f.Offset, length))
		}
		records = append(records, core.Record{Line: i + 1, Values: values})
	}
	return records, nil, nil
}

// inferBoundaries returns the start column of every field. A boundary is the end of a
// run of columns blank in every row, a column where every row switches from a digit to
// a letter, or the digits after a short letter code such as a state in NY10001.
// Single-row samples need a wider gutter unless digits flank a single blank.
func inferBoundaries(rows [][]rune, singleRowGutter int) []int {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil
	}

	blank := make([]bool, width)
	for c := 0; c < width; c++ {
		blank[c] = true
		for _, r := range rows {
			if at(r, c) != ' ' {
				blank[c] = false
				break
			}
		}
	}

	first := -1
	for c := 0; c < width; c++ {
		if !blank[c] {
			first = c
			break
		}
	}
	if first < 0 {
		return nil
	}

	required := 1
	single := len(rows) == 1
	if single {
		required = singleRowGutter
	}

	starts := []int{first}
	for c := first + 1; c < width; {
		if !blank[c] {
			if digitToLetter(rows, c) || codeToDigits(rows, c) {
				starts = append(starts, c)
			}
			c++
			continue
		}
		s := c
		for c < width && blank[c] {
			c++
		}
		if c == width {
			break
		}
		run := c - s
		if run >= required || (single && run == 1 && unicode.IsDigit(at(rows[0], s-1)) && unicode.IsDigit(at(rows[0], c))) {
			starts = append(starts, c)
		}
	}
	return starts
}

// digitToLetter reports whether every row has a digit before column c and a letter at c
func digitToLetter(rows [][]rune, c int) bool {
	for _, r := range rows {
		if !unicode.IsDigit(at(r, c-1)) || !unicode.IsLetter(at(r, c)) {
			return false
		}
	}
	return true
}

// codeToDigits reports whether every row has a code of at most two letters before column
// c, directly after a blank, followed by at least three digits. Longer letter runs such
// as the CUST in CUST001 stay part of one identifier.
func codeToDigits(rows [][]rune, c int) bool {
	code := -1
	for _, r := range rows {
		if !unicode.IsLetter(at(r, c-1)) {
			return false
		}
		j := c - 1
		for j >= 0 && unicode.IsLetter(r[j]) {
			j--
		}
		if j < 0 || r[j] != ' ' || c-1-j > 2 {
			return false
		}
		if code >= 0 && c-1-j != code {
			return false
		}
		code = c - 1 - j
		for k := c; k < c+3; k++ {
			if !unicode.IsDigit(at(r, k)) {
				return false
			}
		}
	}
	return code > 0
}
