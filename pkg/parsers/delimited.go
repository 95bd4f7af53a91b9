/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: delimited.go
Description: Delimited flat file parser. Chooses the delimiter by field-count
consistency over a sample, detects an optional header row and pads or truncates
ragged rows within a configured tolerance.
*/

package parsers

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// delimiterCandidates in tie-break order
var delimiterCandidates = []rune{',', '|', '\t', ';'}

var headerToken = regexp.MustCompile(`^[A-Za-z_#@$][A-Za-z0-9_ #@$.\-]*$`)

// DelimitedParser parses delimited flat files
type DelimitedParser struct{}

// NewDelimitedParser creates a new delimited parser
func NewDelimitedParser() *DelimitedParser {
	return &DelimitedParser{}
}

// Kind implements Parser
func (p *DelimitedParser) Kind() core.FormatKind {
	return core.FormatDelimited
}

// Signatures implements Parser
func (p *DelimitedParser) Signatures() []Signature {
	return []Signature{
		{
			Name:     "delimited.header",
			Kind:     core.FormatDelimited,
			Priority: PriorityDelimitedHeader,
			Score:    delimitedHeaderScore,
		},
		{
			Name:     "delimited.frequency",
			Kind:     core.FormatDelimited,
			Priority: PriorityDelimitedFrequency,
			Score:    delimitedFrequencyScore,
		},
	}
}

// delimiterStats summarises how one candidate splits a sample
type delimiterStats struct {
	delim       rune
	mode        int     // Most common field count
	consistency float64 // Share of rows with the mode count
	rows        [][]string
}

func delimitedHeaderScore(lines []string, opts Options) float64 {
	opts = opts.withDefaults()
	ls := sample(toLines(lines), opts.SampleSize)
	stats, ok := chooseDelimiter(ls, 0)
	if !ok || len(stats.rows) < 2 {
		return 0
	}
	if 1-stats.consistency > opts.ColumnTolerance {
		return 0
	}
	if !looksLikeHeader(stats.rows) {
		return 0
	}
	return 0.9
}

func delimitedFrequencyScore(lines []string, opts Options) float64 {
	opts = opts.withDefaults()
	stats, ok := chooseDelimiter(sample(toLines(lines), opts.SampleSize), 0)
	if !ok {
		return 0
	}
	return 0.6 + 0.3*stats.consistency
}

// tokenize splits one line, honouring quotes
func tokenize(text string, delim rune) []string {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return strings.Split(text, string(delim))
	}
	return fields
}

// chooseDelimiter scores every candidate over the sample. The winner has a mode field
// count above one and the best consistency, then the higher mode, then candidate order.
func chooseDelimiter(ls []line, forced rune) (delimiterStats, bool) {
	candidates := delimiterCandidates
	if forced != 0 {
		candidates = []rune{forced}
	}

	var best delimiterStats
	found := false
	for _, d := range candidates {
		st := delimiterStats{delim: d}
		counts := map[int]int{}
		for _, l := range ls {
			if !strings.ContainsRune(l.Text, d) {
				st.rows = append(st.rows, []string{l.Text})
				counts[1]++
				continue
			}
			row := tokenize(l.Text, d)
			st.rows = append(st.rows, row)
			counts[len(row)]++
		}
		for n, c := range counts {
			if c > counts[st.mode] || (c == counts[st.mode] && n > st.mode) {
				st.mode = n
			}
		}
		if st.mode <= 1 || len(ls) == 0 {
			continue
		}
		st.consistency = float64(counts[st.mode]) / float64(len(ls))
		if !found || st.consistency > best.consistency ||
			(st.consistency == best.consistency && st.mode > best.mode) {
			best = st
			found = true
		}
	}
	return best, found
}

// looksLikeHeader reports whether the first row names the columns. Every token must be
// a distinct name, and with data rows present at least one column must hold digits
// where its header token has none.
func looksLikeHeader(rows [][]string) bool {
	if len(rows) == 0 {
		return false
	}
	seen := map[string]bool{}
	for _, tok := range rows[0] {
		tok = strings.TrimSpace(tok)
		if !headerToken.MatchString(tok) || seen[strings.ToUpper(tok)] {
			return false
		}
		seen[strings.ToUpper(tok)] = true
	}
	if len(rows) == 1 {
		return true
	}
	for j, tok := range rows[0] {
		if hasDigit(tok) {
			continue
		}
		for _, row := range rows[1:] {
			if j < len(row) && hasDigit(row[j]) {
				return true
			}
		}
	}
	return false
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

// ParseHeader implements Parser
func (p *DelimitedParser) ParseHeader(in *core.RawInput, opts Options) (*Header, error) {
	opts = opts.withDefaults()
	body := nonBlank(in.Lines())
	if len(body) == 0 {
		return nil, core.NewInputError(core.ErrInconsistentColumnCount, in, 0, "input has no rows")
	}

	stats, ok := chooseDelimiter(sample(body, opts.SampleSize), opts.Delimiter)
	if !ok {
		return nil, core.NewInputError(core.ErrInconsistentColumnCount, in, body[0].No,
			"no delimiter candidate splits the sample into more than one column")
	}

	hasHeader := looksLikeHeader(stats.rows)
	if opts.HasHeader != nil {
		hasHeader = *opts.HasHeader
	}

	header := &Header{
		Variant:   "positional",
		Delimiter: stats.delim,
		BodyStart: body[0].No - 1,
	}
	count := stats.mode
	var names []string
	if hasHeader {
		header.Variant = "header"
		names = stats.rows[0]
		count = len(names)
		header.BodyStart = body[0].No
	}

	seen := uniqueNames{}
	for i := 0; i < count; i++ {
		name := positionalName(i + 1)
		if hasHeader {
			if n := strings.TrimSpace(names[i]); n != "" {
				name = n
			}
		}
		if unique, renamed := seen.claim(name); renamed {
			header.Warnings.Add(core.WarnDuplicateName, body[0].No, body[0].Text, "column %q renamed to %q", name, unique)
			name = unique
		}
		header.Fields = append(header.Fields, core.FieldDescriptor{Name: name, Ordinal: i + 1})
	}
	return header, nil
}

// ParseRecords implements Parser
func (p *DelimitedParser) ParseRecords(in *core.RawInput, header *Header, opts Options) ([]core.Record, core.Warnings, error) {
	opts = opts.withDefaults()
	all := in.Lines()
	want := len(header.Fields)

	var (
		records  []core.Record
		warnings core.Warnings
		ragged   []line
	)
	total := 0
	for i := header.BodyStart; i < len(all); i++ {
		if strings.TrimSpace(all[i]) == "" {
			continue
		}
		total++
		row := tokenize(all[i], header.Delimiter)
		if len(row) != want {
			ragged = append(ragged, line{No: i + 1, Text: all[i]})
			if len(row) < want {
				warnings.Add(core.WarnRaggedRow, i+1, all[i], "row has %d fields, padded to %d", len(row), want)
				row = append(row, make([]string, want-len(row))...)
			} else {
				warnings.Add(core.WarnRaggedRow, i+1, all[i], "row has %d fields, truncated to %d", len(row), want)
				row = row[:want]
			}
		}
		values := make([]string, want)
		for j, v := range row {
			values[j] = strings.TrimSpace(v)
		}
		records = append(records, core.Record{Line: i + 1, Values: values})
	}

	if total > 0 && float64(len(ragged))/float64(total) > opts.ColumnTolerance {
		err := core.NewInputError(core.ErrInconsistentColumnCount, in, ragged[0].No,
			fmt.Sprintf("%d of %d rows do not have %d fields", len(ragged), total, want))
		for _, l := range ragged {
			if len(err.Lines) == 3 {
				break
			}
			err.Lines = append(err.Lines, core.Excerpt(l.Text))
		}
		return nil, nil, err
	}
	return records, warnings, nil
}
