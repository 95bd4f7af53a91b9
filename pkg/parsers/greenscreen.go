/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: greenscreen.go
Description: Green-screen parser. Reads display-file DDS (fields with usage and screen
position, labels taken from constants on the same row) and rendered screen captures
(bracketed input fields, dotted-leader output fields and "Label: value" pairs).
*/

package parsers

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// screenLabel is a run of words separated by single spaces
const screenLabel = `([A-Za-z][A-Za-z0-9#/&'()-]*(?: [A-Za-z0-9#/&'()-]+)*)`

var (
	// Label: [value]
	bracketFieldRe = regexp.MustCompile(screenLabel + `\s*(?:\.\s*)*:\s*\[([^\]]*)\]`)
	// Label . . . . :  value
	dottedFieldRe = regexp.MustCompile(screenLabel + `\s*(?:\.\s*){2,}:\s+(\S(?:.*?\S)?)(?:\s{2,}|$)`)
	// Label:  value
	plainFieldRe = regexp.MustCompile(`(?:^\s*|\s{2,})` + screenLabel + `:\s+(\S+)`)
	fkeyLegendRe = regexp.MustCompile(`\bF\d{1,2}=\S`)
	// length, type, decimals, usage, row, column, keywords
	displayFieldRe = regexp.MustCompile(`^\s*(\d{1,5})([A-Z])?\s*(\d{1,2})?\s*([BIOHMP])?\s+(\d{1,3})\s+(\d{1,3})(?:\s+(.*))?$`)
	// hidden and message fields carry no position
	displayHiddenRe = regexp.MustCompile(`^\s*(\d{1,5})([A-Z])?\s*(\d{1,2})?\s*([HMP])(?:\s+(.*))?$`)
	displayConstRe  = regexp.MustCompile(`^\s*(\d{1,3})\s+(\d{1,3})\s*'((?:[^']|'')*)'`)
	displayMarkerRe = regexp.MustCompile(`(?i)\b(DSPSIZ|DSPATR|CF\d{2}|CA\d{2}|SFL|SFLCTL|ERASE|BLINK|COLOR|CHECK|OVERLAY|INDARA)\b`)
)

// displayTypes are the keyboard shift and data type codes valid on display files
const displayTypes = "AXNWIDMYSFLTZ"

// isDisplayFile reports whether A-spec lines describe a display file
func isDisplayFile(lines []string) bool {
	markers, positioned := 0, 0
	for _, l := range lines {
		spec, ok := splitASpec(l)
		if !ok || spec.comment {
			continue
		}
		if displayMarkerRe.MatchString(spec.rest) {
			markers++
		}
		if spec.name != "" && displayFieldRe.MatchString(spec.rest) {
			positioned++
		}
		if spec.name == "" && displayConstRe.MatchString(spec.rest) {
			positioned++
		}
	}
	return markers > 0 || positioned > 0
}

// GreenScreenParser parses display-file DDS and rendered screen captures
type GreenScreenParser struct{}

// NewGreenScreenParser creates a new green-screen parser
func NewGreenScreenParser() *GreenScreenParser {
	return &GreenScreenParser{}
}

// Kind implements Parser
func (p *GreenScreenParser) Kind() core.FormatKind {
	return core.FormatGreenScreen
}

// Signatures implements Parser
func (p *GreenScreenParser) Signatures() []Signature {
	return []Signature{{
		Name:     "green_screen.fields",
		Kind:     core.FormatGreenScreen,
		Priority: PriorityGreenScreen,
		Score:    greenScreenScore,
	}}
}

func greenScreenScore(lines []string, opts Options) float64 {
	if len(lines) == 0 {
		return 0
	}
	aspecs := 0
	for _, l := range lines {
		if _, ok := splitASpec(l); ok {
			aspecs++
		}
	}
	if aspecs*2 > len(lines) {
		if isDisplayFile(lines) {
			return 0.95
		}
		return 0
	}

	fieldLines, legend := 0, 0.0
	for _, l := range lines {
		if bracketFieldRe.MatchString(l) || dottedFieldRe.MatchString(l) {
			fieldLines++
		}
		if fkeyLegendRe.MatchString(l) {
			legend = 0.1
		}
	}
	if fieldLines == 0 {
		return 0
	}
	score := 0.5 + 0.5*float64(fieldLines)/float64(len(lines)) + legend
	if score > 1 {
		score = 1
	}
	return score
}

// ParseHeader implements Parser
func (p *GreenScreenParser) ParseHeader(in *core.RawInput, opts Options) (*Header, error) {
	lines := in.Lines()
	if isDisplayFile(texts(nonBlank(lines))) {
		return parseDisplayFile(lines), nil
	}
	return parseCapture(in.Name, lines), nil
}

// screenField is a field located on a rendered screen
type screenField struct {
	label  string
	row    int
	col    int
	length int
}

// parseCapture locates fields on a rendered screen. Bracketed input fields take their
// width from the brackets, output fields from the displayed value.
func parseCapture(name string, lines []string) *Header {
	header := &Header{Variant: "capture", Entity: screenTitle(lines)}
	if header.Entity == "" {
		header.Entity = labelToName(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	}

	var found []screenField
	for i, text := range lines {
		row := i + 1
		if locs := bracketFieldRe.FindAllStringSubmatchIndex(text, -1); len(locs) > 0 {
			for _, m := range locs {
				found = append(found, screenField{
					label:  text[m[2]:m[3]],
					row:    row,
					col:    len([]rune(text[:m[4]])),
					length: len([]rune(text[m[4]:m[5]])),
				})
			}
			continue
		}
		if locs := dottedFieldRe.FindAllStringSubmatchIndex(text, -1); len(locs) > 0 {
			for _, m := range locs {
				found = append(found, screenField{
					label:  text[m[2]:m[3]],
					row:    row,
					col:    len([]rune(text[:m[4]])),
					length: len([]rune(text[m[4]:m[5]])),
				})
			}
			continue
		}
		if fkeyLegendRe.MatchString(text) {
			continue
		}
		for _, m := range plainFieldRe.FindAllStringSubmatchIndex(text, -1) {
			found = append(found, screenField{
				label:  text[m[2]:m[3]],
				row:    row,
				col:    len([]rune(text[:m[4]])),
				length: len([]rune(text[m[4]:m[5]])),
			})
		}
	}

	names := uniqueNames{}
	for _, f := range found {
		name := labelToName(f.label)
		if name == "" {
			name = positionalName(len(header.Fields) + 1)
		}
		if unique, renamed := names.claim(name); renamed {
			header.Warnings.Add(core.WarnDuplicateName, f.row, lines[f.row-1], "field %s renamed to %s", name, unique)
			name = unique
		}
		header.Fields = append(header.Fields, core.FieldDescriptor{
			Name:        name,
			Ordinal:     len(header.Fields) + 1,
			Row:         f.row,
			Offset:      f.col,
			Length:      f.length,
			Description: strings.TrimSpace(f.label),
		})
	}
	return header
}

// screenTitle returns the first line without fields, used as the screen name
func screenTitle(lines []string) string {
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" || strings.Contains(t, ":") || fkeyLegendRe.MatchString(t) {
			continue
		}
		if strings.Trim(t, "-=_* ") == "" {
			continue
		}
		return labelToName(t)
	}
	return ""
}

// screenConst is a literal drawn on a display file
type screenConst struct {
	row, col int
	text     string
}

// parseDisplayFile reads display-file DDS
func parseDisplayFile(lines []string) *Header {
	header := &Header{Variant: "display"}
	names := uniqueNames{}
	var consts []screenConst
	records := 0
	hidden := 0

	for i, text := range lines {
		no := i + 1
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "*") {
			continue
		}
		spec, ok := splitASpec(text)
		if !ok {
			header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "not an A-spec line")
			continue
		}
		if spec.comment {
			continue
		}
		switch spec.nameType {
		case 'R':
			records++
			if records == 1 {
				header.Entity = spec.name
			} else if records == 2 {
				header.Warnings.Add(core.WarnExtraRecordFormat, no, text,
					"record format %s ignored, only %s is described", spec.name, header.Entity)
			}
			continue
		case ' ':
		default:
			continue
		}
		if records > 1 {
			continue
		}

		if spec.name == "" {
			if m := displayConstRe.FindStringSubmatch(spec.rest); m != nil {
				row, _ := strconv.Atoi(m[1])
				col, _ := strconv.Atoi(m[2])
				consts = append(consts, screenConst{row: row, col: col, text: strings.ReplaceAll(m[3], "''", "'")})
			}
			continue
		}

		var (
			length, scale, row, col int
			code, usage, decimals   string
		)
		if m := displayFieldRe.FindStringSubmatch(spec.rest); m != nil {
			length, _ = strconv.Atoi(m[1])
			code, decimals, usage = m[2], m[3], m[4]
			row, _ = strconv.Atoi(m[5])
			col, _ = strconv.Atoi(m[6])
			if row < 1 || col < 1 {
				header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "field %s is placed at row %d column %d", spec.name, row, col)
				continue
			}
		} else if m := displayHiddenRe.FindStringSubmatch(spec.rest); m != nil {
			length, _ = strconv.Atoi(m[1])
			code, decimals, usage = m[2], m[3], m[4]
		} else {
			header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "field %s has no length or screen position", spec.name)
			continue
		}
		if decimals != "" {
			scale, _ = strconv.Atoi(decimals)
		}
		if code == "" {
			code = "A"
			if decimals != "" {
				code = "S"
			}
		}
		if !strings.Contains(displayTypes, code) || length == 0 {
			header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "field %s has invalid type code %q", spec.name, code)
			continue
		}
		if usage == "" {
			usage = "B"
		}

		name := spec.name
		if unique, renamed := names.claim(name); renamed {
			header.Warnings.Add(core.WarnDuplicateName, no, text, "field %s renamed to %s", name, unique)
			name = unique
		}
		kind, format := displayKind(code, scale)
		// hidden fields have no position and are laid out in buffer order
		offset := hidden
		if row > 0 {
			offset = col - 1
		} else {
			hidden += length
		}
		header.Fields = append(header.Fields, core.FieldDescriptor{
			Name:        name,
			Ordinal:     len(header.Fields) + 1,
			Row:         row,
			Offset:      offset,
			Length:      length,
			Description: usageNames[usage],
			Declared:    &core.DeclaredType{Code: code, Kind: kind, Length: length, Scale: scale, Format: format},
		})
	}

	labelFields(header.Fields, consts)
	arrange(header)
	return header
}

var usageNames = map[string]string{
	"B": "input/output",
	"I": "input",
	"O": "output",
	"H": "hidden",
	"M": "message",
	"P": "program-to-system",
}

// labelFields describes each field with the nearest constant to its left on the same row
func labelFields(fields []core.FieldDescriptor, consts []screenConst) {
	for i := range fields {
		f := &fields[i]
		best := -1
		for j, c := range consts {
			if c.row != f.Row || c.col-1 >= f.Offset {
				continue
			}
			if best < 0 || c.col > consts[best].col {
				best = j
			}
		}
		if best >= 0 {
			f.Description = strings.TrimRight(strings.TrimSpace(consts[best].text), ".: ")
		}
	}
}

// arrange sorts positioned fields by row then column, drops fields that share screen
// positions under different conditioning and renumbers ordinals. Hidden fields keep
// their declaration order after the positioned ones.
func arrange(header *Header) {
	fields := header.Fields
	sort.SliceStable(fields, func(i, j int) bool {
		a, b := fields[i], fields[j]
		if (a.Row == 0) != (b.Row == 0) {
			return b.Row == 0
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Offset < b.Offset
	})

	kept := fields[:0]
	end := map[int]int{}
	for _, f := range fields {
		if f.Row > 0 {
			if e, ok := end[f.Row]; ok && f.Offset < e {
				header.Warnings.Add(core.WarnOverlappingField, 0, "",
					"field %s overlaps another field on row %d and is not listed", f.Name, f.Row)
				continue
			}
			end[f.Row] = f.Offset + f.Length
		}
		f.Ordinal = len(kept) + 1
		kept = append(kept, f)
	}
	header.Fields = kept
}

// displayKind maps a display-file type to its semantic kind
func displayKind(code string, scale int) (core.TypeKind, string) {
	switch code {
	case "Y", "S", "D", "N", "F":
		if scale > 0 {
			return core.KindDecimal, ""
		}
		return core.KindInteger, ""
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

// ParseRecords implements Parser. A rendered capture yields one record holding the
// displayed values; display-file definitions carry none.
func (p *GreenScreenParser) ParseRecords(in *core.RawInput, header *Header, opts Options) ([]core.Record, core.Warnings, error) {
	if header.Variant != "capture" || len(header.Fields) == 0 {
		return nil, nil, nil
	}
	lines := in.Lines()
	values := make([]string, len(header.Fields))
	for i, f := range header.Fields {
		if f.Row < 1 || f.Row > len(lines) {
			continue
		}
		values[i] = strings.TrimSpace(column([]rune(lines[f.Row-1]), f.Offset, f.Length))
	}
	return []core.Record{{Line: header.Fields[0].Row, Values: values}}, nil, nil
}
