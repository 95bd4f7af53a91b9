/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dds.go
Description: DDS parser for physical and logical file definitions. A-spec lines are read
by fixed column where possible and by token where sources are loosely aligned. Malformed
lines are skipped with a warning so partial schemas survive. SQL CREATE TABLE sources
are routed through the same parser.
*/

package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

var (
	// length, optional type code, optional decimals, optional keywords
	ddsFieldRe = regexp.MustCompile(`^\s*(\d{1,5})([A-Z])?(?:\s*(\d{1,2}))?(?:\s+(.*))?$`)
	// reference field with no length of its own
	ddsRefRe = regexp.MustCompile(`^\s*R(?:\s+(.*))?$`)
	// date, time and timestamp fields take their length from the type
	ddsDateRe = regexp.MustCompile(`^\s*([LTZ])(?:\s+(.*))?$`)
	ddsNameRe = regexp.MustCompile(`^[A-Za-z#@$][A-Za-z0-9_#@$]*$`)
	// keyword with optional parenthesised arguments
	ddsKeywordRe = regexp.MustCompile(`(?i)([A-Z][A-Z0-9]*)(\((?:'(?:[^']|'')*'|[^()'])*\))?`)
	ddsQuotedRe  = regexp.MustCompile(`'((?:[^']|'')*)'`)
	conditionRe  = regexp.MustCompile(`^N?\d{1,2}$`)
	ddsMarkerRe  = regexp.MustCompile(`(?i)\b(TEXT|COLHDG|REFFLD|ALWNULL|UNIQUE|PFILE|JFILE|EDTCDE|VALUES|RANGE)\b`)
)

// ddsTypes is the set of valid DDS data type codes
const ddsTypes = "APSBFHLTZGJEO"

// bareKeywords are DDS keywords that take no arguments
var bareKeywords = map[string]bool{
	"UNIQUE": true, "ALWNULL": true, "FIFO": true, "LIFO": true, "FCFO": true,
	"DESCEND": true, "ABSVAL": true, "SIGNED": true, "UNSIGNED": true, "ZONE": true,
	"DIGIT": true, "NOALTSEQ": true, "VARLEN": true, "DYNSLT": true, "ALL": true,
}

// aspec is one A-spec line split into its areas
type aspec struct {
	base     int    // Column of the A form type
	comment  bool   // Comment line
	nameType rune   // R, K, S, O, J or blank
	name     string // Field, record or key name
	rest     string // Text following the name
}

// splitASpec locates the A form type and splits the line. Sequence numbers and blanks
// may precede the A; column 7 carries the comment marker.
func splitASpec(text string) (aspec, bool) {
	r := []rune(text)
	base := -1
	for i, c := range r {
		if c == ' ' || (i < 5 && unicode.IsDigit(c)) {
			continue
		}
		if (c == 'A' || c == 'a') && i <= 10 && (i+1 == len(r) || r[i+1] == ' ' || r[i+1] == '*') {
			base = i
		}
		break
	}
	if base < 0 {
		return aspec{}, false
	}
	spec := aspec{base: base, nameType: ' '}
	if at(r, base+1) == '*' {
		spec.comment = true
		return spec, true
	}

	body := string(r[base+1:])
	tokens := tokenRe.FindAllStringIndex(body, -1)
	i := 0
	// conditioning indicators occupy columns 7-16
	for i < len(tokens) && tokens[i][0] < 10 && conditionRe.MatchString(body[tokens[i][0]:tokens[i][1]]) {
		i++
	}
	if i >= len(tokens) {
		return spec, true
	}

	tok := body[tokens[i][0]:tokens[i][1]]
	if len(tok) == 1 && strings.ContainsAny(strings.ToUpper(tok), "RKSOJ") && tokens[i][0] <= 11 && i+1 < len(tokens) {
		spec.nameType = rune(strings.ToUpper(tok)[0])
		i++
		tok = body[tokens[i][0]:tokens[i][1]]
	}
	// names sit in columns 19-28, well before the keyword area
	if isKeywordToken(tok) || tokens[i][0] >= 30 || !ddsNameRe.MatchString(tok) {
		spec.rest = body[tokens[i][0]:]
		return spec, true
	}
	spec.name = tok
	spec.rest = body[tokens[i][1]:]
	return spec, true
}

var tokenRe = regexp.MustCompile(`\S+`)

func isKeywordToken(tok string) bool {
	if strings.Contains(tok, "(") {
		return true
	}
	return bareKeywords[strings.ToUpper(tok)]
}

// DDSParser parses DDS physical/logical file definitions and SQL DDL
type DDSParser struct{}

// NewDDSParser creates a new DDS parser
func NewDDSParser() *DDSParser {
	return &DDSParser{}
}

// Kind implements Parser
func (p *DDSParser) Kind() core.FormatKind {
	return core.FormatDDS
}

// Signatures implements Parser
func (p *DDSParser) Signatures() []Signature {
	return []Signature{{
		Name:     "dds.aspec",
		Kind:     core.FormatDDS,
		Priority: PriorityDDS,
		Score:    ddsScore,
	}}
}

func ddsScore(lines []string, opts Options) float64 {
	if len(lines) == 0 {
		return 0
	}
	if createTableRe.MatchString(strings.Join(lines, "\n")) {
		return 0.95
	}
	specs, keywords, records := 0, 0.0, 0.0
	for _, l := range lines {
		spec, ok := splitASpec(l)
		if !ok {
			continue
		}
		specs++
		if spec.nameType == 'R' {
			records = 1
		}
		if ddsMarkerRe.MatchString(spec.rest) || ddsFieldRe.MatchString(spec.rest) {
			keywords = 1
		}
	}
	if specs == 0 {
		return 0
	}
	score := 0.6*float64(specs)/float64(len(lines)) + 0.3*keywords + 0.1*records
	if isDisplayFile(lines) {
		score *= 0.5
	}
	return score
}

// ddsState accumulates a DDS parse
type ddsState struct {
	header  *Header
	current int // index of the field receiving keyword lines, -1 for file level
	offset  int
	records int
	pending string // keyword text continued on the next line
	names   uniqueNames
}

// ParseHeader implements Parser
func (p *DDSParser) ParseHeader(in *core.RawInput, opts Options) (*Header, error) {
	if createTableRe.MatchString(in.Text()) {
		return parseSQL(in)
	}

	st := &ddsState{header: &Header{Variant: "dds"}, current: -1, names: uniqueNames{}}
	for i, text := range in.Lines() {
		no := i + 1
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		spec, ok := splitASpec(text)
		if !ok {
			st.header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "not an A-spec line")
			continue
		}
		if spec.comment {
			continue
		}
		st.line(no, text, spec)
	}
	return st.header, nil
}

func (st *ddsState) line(no int, text string, spec aspec) {
	h := st.header
	switch spec.nameType {
	case 'R':
		st.records++
		if st.records == 1 {
			h.Entity = spec.name
			st.current = -1
			st.keywords(strings.TrimSpace(spec.rest))
			return
		}
		if st.records == 2 {
			h.Warnings.Add(core.WarnExtraRecordFormat, no, text,
				"record format %s ignored, only %s is described", spec.name, h.Entity)
		}
		return
	case 'K':
		if st.records > 1 {
			return
		}
		for i := range h.Fields {
			if strings.EqualFold(h.Fields[i].Name, spec.name) {
				h.Fields[i].Key = true
				return
			}
		}
		h.Warnings.Add(core.WarnUnknownKey, no, text, "key field %s is not declared", spec.name)
		return
	case 'S', 'O', 'J':
		// select/omit and join specifications describe access paths, not fields
		return
	}
	if st.records > 1 {
		return
	}

	if spec.name == "" {
		st.keywords(strings.TrimSpace(spec.rest))
		return
	}

	field := core.FieldDescriptor{Name: spec.name, Group: h.Entity}
	if m := ddsRefRe.FindStringSubmatch(spec.rest); m != nil {
		st.add(no, text, field, m[1])
		return
	}
	var (
		length   int
		code     string
		keywords string
	)
	scale := -1
	if m := ddsFieldRe.FindStringSubmatch(spec.rest); m != nil {
		length, _ = strconv.Atoi(m[1])
		code, keywords = m[2], m[4]
		if m[3] != "" {
			scale, _ = strconv.Atoi(m[3])
		}
	} else if m := ddsDateRe.FindStringSubmatch(spec.rest); m != nil {
		code, keywords = m[1], m[2]
		length = dateLengths[code]
	} else {
		h.Warnings.Add(core.WarnMalformedDeclaration, no, text, "field %s has no valid length", spec.name)
		return
	}
	if code == "" {
		code = "A"
		if scale >= 0 {
			code = "P"
		}
	}
	if !strings.Contains(ddsTypes, code) {
		h.Warnings.Add(core.WarnMalformedDeclaration, no, text, "field %s has invalid type code %q", spec.name, code)
		return
	}
	if scale < 0 {
		scale = 0
	}
	if length == 0 {
		h.Warnings.Add(core.WarnMalformedDeclaration, no, text, "field %s has zero length", spec.name)
		return
	}
	kind, format := ddsKind(code, scale)
	field.Declared = &core.DeclaredType{Code: code, Kind: kind, Length: length, Scale: scale, Format: format}
	field.Length = length
	field.Offset = st.offset
	st.offset += length
	st.add(no, text, field, keywords)
}

var dateLengths = map[string]int{"L": 10, "T": 8, "Z": 26}

func (st *ddsState) add(no int, text string, field core.FieldDescriptor, keywords string) {
	h := st.header
	if unique, renamed := st.names.claim(field.Name); renamed {
		h.Warnings.Add(core.WarnDuplicateName, no, text, "field %s renamed to %s", field.Name, unique)
		field.Name = unique
	}
	field.Ordinal = len(h.Fields) + 1
	h.Fields = append(h.Fields, field)
	st.current = len(h.Fields) - 1
	st.pending = ""
	st.keywords(strings.TrimSpace(keywords))
}

// keywords applies keyword text to the current field, joining quoted strings that
// continue onto the next line with + or -.
func (st *ddsState) keywords(text string) {
	if text == "" {
		return
	}
	if st.pending != "" {
		text = st.pending + text
		st.pending = ""
	}
	if strings.Count(text, "'")%2 == 1 {
		st.pending = strings.TrimRight(strings.TrimSuffix(strings.TrimSuffix(text, "+"), "-"), " ")
		if strings.HasSuffix(text, "+") {
			st.pending += " "
		}
		return
	}
	if st.current < 0 {
		return
	}
	f := &st.header.Fields[st.current]
	for _, m := range ddsKeywordRe.FindAllStringSubmatch(text, -1) {
		switch strings.ToUpper(m[1]) {
		case "TEXT":
			if q := quoted(m[2]); len(q) > 0 {
				f.Description = q[0]
			}
		case "COLHDG":
			if f.Description == "" {
				f.Description = strings.Join(quoted(m[2]), " ")
			}
		case "ALWNULL":
			if f.Declared != nil {
				f.Declared.Nullable = true
			}
		}
	}
}

// quoted returns the quoted strings in a keyword argument list
func quoted(args string) []string {
	var out []string
	for _, m := range ddsQuotedRe.FindAllStringSubmatch(args, -1) {
		out = append(out, strings.TrimSpace(strings.ReplaceAll(m[1], "''", "'")))
	}
	return out
}

// ddsKind maps a DDS type code to its semantic kind
func ddsKind(code string, scale int) (core.TypeKind, string) {
	switch code {
	case "P", "S", "B":
		if scale > 0 {
			return core.KindDecimal, ""
		}
		return core.KindInteger, ""
	case "F":
		return core.KindDecimal, ""
	case "L":
		return core.KindDate, "date"
	case "Z":
		return core.KindDate, "timestamp"
	case "T":
		return core.KindString, "time"
	default:
		return core.KindString, ""
	}
}

// ParseRecords implements Parser. Definitions carry no data rows.
func (p *DDSParser) ParseRecords(in *core.RawInput, header *Header, opts Options) ([]core.Record, core.Warnings, error) {
	return nil, nil, nil
}
