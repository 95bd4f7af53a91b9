/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sql.go
Description: SQL CREATE TABLE support for the DDS parser. Column definitions become
declared descriptors, NOT NULL and PRIMARY KEY constraints become nullability and key
markers.
*/

package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

var (
	createTableRe = regexp.MustCompile(`(?is)\bCREATE\s+(?:OR\s+REPLACE\s+)?TABLE\s+((?:[\w$#@]+|"[^"]+")(?:\.(?:[\w$#@]+|"[^"]+"))?)\s*\(`)
	sqlColumnRe   = regexp.MustCompile(`(?is)^("[^"]+"|[\w$#@]+)\s+([A-Za-z]+(?:\s+VARYING)?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?(.*)$`)
	sqlKeyColsRe  = regexp.MustCompile(`(?is)PRIMARY\s+KEY\s*\(([^)]*)\)`)
	sqlCommentRe  = regexp.MustCompile(`--[^\n]*`)
	sqlNotNullRe  = regexp.MustCompile(`(?i)\bNOT\s+NULL\b`)
	sqlInlineKey  = regexp.MustCompile(`(?i)\bPRIMARY\s+KEY\b`)
)

// sqlType describes how a SQL type name maps onto the canonical model
type sqlType struct {
	kind          core.TypeKind
	format        string
	defaultLength int
	scaled        bool // DECIMAL-like: kind depends on scale
}

var sqlTypes = map[string]sqlType{
	"CHAR":              {kind: core.KindString, defaultLength: 1},
	"CHARACTER":         {kind: core.KindString, defaultLength: 1},
	"VARCHAR":           {kind: core.KindString},
	"CHAR VARYING":      {kind: core.KindString},
	"CHARACTER VARYING": {kind: core.KindString},
	"NCHAR":             {kind: core.KindString, defaultLength: 1},
	"NVARCHAR":          {kind: core.KindString},
	"GRAPHIC":           {kind: core.KindString, defaultLength: 1},
	"VARGRAPHIC":        {kind: core.KindString},
	"CLOB":              {kind: core.KindString},
	"TEXT":              {kind: core.KindString},
	"BINARY":            {kind: core.KindString, defaultLength: 1},
	"VARBINARY":         {kind: core.KindString},
	"DECIMAL":           {kind: core.KindDecimal, defaultLength: 5, scaled: true},
	"DEC":               {kind: core.KindDecimal, defaultLength: 5, scaled: true},
	"NUMERIC":           {kind: core.KindDecimal, defaultLength: 5, scaled: true},
	"SMALLINT":          {kind: core.KindInteger, defaultLength: 5},
	"INTEGER":           {kind: core.KindInteger, defaultLength: 10},
	"INT":               {kind: core.KindInteger, defaultLength: 10},
	"BIGINT":            {kind: core.KindInteger, defaultLength: 19},
	"REAL":              {kind: core.KindDecimal, defaultLength: 15},
	"FLOAT":             {kind: core.KindDecimal, defaultLength: 15},
	"DOUBLE":            {kind: core.KindDecimal, defaultLength: 15},
	"DECFLOAT":          {kind: core.KindDecimal, defaultLength: 34},
	"DATE":              {kind: core.KindDate, format: "date", defaultLength: 10},
	"TIMESTAMP":         {kind: core.KindDate, format: "timestamp", defaultLength: 26},
	"TIME":              {kind: core.KindString, format: "time", defaultLength: 8},
	"BOOLEAN":           {kind: core.KindBoolean, defaultLength: 1},
}

// parseSQL reads the first CREATE TABLE statement of the input
func parseSQL(in *core.RawInput) (*Header, error) {
	text := strings.ReplaceAll(in.Text(), "\r\n", "\n")
	text = sqlCommentRe.ReplaceAllStringFunc(text, func(s string) string {
		return strings.Repeat(" ", len(s))
	})
	header := &Header{Variant: "sql"}

	locs := createTableRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return header, nil
	}
	loc := locs[0]
	header.Entity = unqualify(text[loc[2]:loc[3]])
	for _, extra := range locs[1:] {
		no := lineOf(text, extra[0])
		header.Warnings.Add(core.WarnExtraRecordFormat, no, "", "table %s ignored, only %s is described",
			unqualify(text[extra[2]:extra[3]]), header.Entity)
	}

	open := loc[1] - 1
	end := matchParen(text, open)
	if end < 0 {
		header.Warnings.Add(core.WarnMalformedDeclaration, lineOf(text, open), "", "table %s has no closing parenthesis", header.Entity)
		end = len(text)
	}

	var keyCols []string
	names := uniqueNames{}
	offset := 0
	for _, item := range splitTopLevel(text, open+1, end) {
		def := strings.TrimSpace(text[item[0]:item[1]])
		if def == "" {
			continue
		}
		no := lineOf(text, item[0]+strings.Index(text[item[0]:item[1]], def))
		upper := strings.ToUpper(def)

		if strings.HasPrefix(upper, "CONSTRAINT") || strings.HasPrefix(upper, "PRIMARY") ||
			strings.HasPrefix(upper, "FOREIGN") || strings.HasPrefix(upper, "UNIQUE") || strings.HasPrefix(upper, "CHECK") {
			if m := sqlKeyColsRe.FindStringSubmatch(def); m != nil {
				for _, c := range strings.Split(m[1], ",") {
					keyCols = append(keyCols, strings.Trim(strings.TrimSpace(c), `"`))
				}
			}
			continue
		}

		m := sqlColumnRe.FindStringSubmatch(def)
		if m == nil {
			header.Warnings.Add(core.WarnMalformedDeclaration, no, def, "column definition not understood")
			continue
		}
		typeName := strings.ToUpper(strings.Join(strings.Fields(m[2]), " "))
		st, ok := sqlTypes[typeName]
		if !ok {
			header.Warnings.Add(core.WarnMalformedDeclaration, no, def, "unsupported column type %s", typeName)
			continue
		}

		length := st.defaultLength
		if m[3] != "" {
			length, _ = strconv.Atoi(m[3])
		}
		scale := 0
		if m[4] != "" {
			scale, _ = strconv.Atoi(m[4])
		}
		kind := st.kind
		if st.scaled && scale == 0 {
			kind = core.KindInteger
		}

		name := strings.Trim(m[1], `"`)
		if unique, renamed := names.claim(name); renamed {
			header.Warnings.Add(core.WarnDuplicateName, no, def, "column %s renamed to %s", name, unique)
			name = unique
		}
		field := core.FieldDescriptor{
			Name:    name,
			Ordinal: len(header.Fields) + 1,
			Group:   header.Entity,
			Declared: &core.DeclaredType{
				Code:     typeName,
				Kind:     kind,
				Length:   length,
				Scale:    scale,
				Nullable: !sqlNotNullRe.MatchString(m[5]),
				Format:   st.format,
			},
			Key: sqlInlineKey.MatchString(m[5]),
		}
		if field.Key {
			field.Declared.Nullable = false
		}
		if length > 0 {
			field.Offset = offset
			field.Length = length
			offset += length
		}
		header.Fields = append(header.Fields, field)
	}

	for _, col := range keyCols {
		found := false
		for i := range header.Fields {
			if strings.EqualFold(header.Fields[i].Name, col) {
				header.Fields[i].Key = true
				header.Fields[i].Declared.Nullable = false
				found = true
			}
		}
		if !found {
			header.Warnings.Add(core.WarnUnknownKey, 0, "", "primary key column %s is not declared", col)
		}
	}
	return header, nil
}

// unqualify strips a schema qualifier and identifier quotes
func unqualify(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.Trim(name, `"`)
}

// lineOf returns the 1-based line containing byte offset pos
func lineOf(text string, pos int) int {
	if pos > len(text) {
		pos = len(text)
	}
	return strings.Count(text[:pos], "\n") + 1
}

// matchParen returns the index of the parenthesis closing the one at open
func matchParen(text string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits text[from:to] at commas outside parentheses and quotes
func splitTopLevel(text string, from, to int) [][2]int {
	var out [][2]int
	depth := 0
	inQuote := false
	start := from
	for i := from; i < to; i++ {
		switch c := text[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, [2]int{start, i})
			start = i + 1
		}
	}
	return append(out, [2]int{start, to})
}
