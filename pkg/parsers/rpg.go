/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: rpg.go
Description: RPG source parser. Recovers file declarations and data structure subfields
from fixed-form F- and D-specs and from free-form DCL statements. Calculation specs and
procedural code are never interpreted.
*/

package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

var (
	rpgLenTypeRe   = regexp.MustCompile(`^(\d+)([A-Za-z*])$`)
	rpgNumberRe    = regexp.MustCompile(`^\d+$`)
	rpgAdjustRe    = regexp.MustCompile(`^[+-]\d+$`)
	rpgLikeRe      = regexp.MustCompile(`(?i)\bLIKE\(\s*([\w#@$]+)\s*\)`)
	rpgPosRe       = regexp.MustCompile(`(?i)\bPOS\(\s*(\d+)\s*\)`)
	rpgUsageRe     = regexp.MustCompile(`(?i)\bUSAGE\(([^)]*)\)`)
	rpgFreeStmtRe  = regexp.MustCompile(`(?is)^(DCL-F|DCL-DS|DCL-SUBF|DCL-S|DCL-C|DCL-PR|DCL-PI|DCL-PARM|END-DS|END-PR|END-PI|CTL-OPT)\b\s*(.*)$`)
	rpgFreeTypeRe  = regexp.MustCompile(`(?i)^(CHAR|VARCHAR|GRAPH|VARGRAPH|UCS2|VARUCS2|PACKED|ZONED|BINDEC|INT|UNS|FLOAT|DATE|TIMESTAMP|TIME|IND|POINTER|OBJECT|LIKE)\b(?:\(([^)]*)\))?`)
	rpgFreeStartRe = regexp.MustCompile(`(?i)^\s*(DCL-|END-|CTL-OPT)`)
	rpgCommentRe   = regexp.MustCompile(`//.*$`)
)

// rpgSpecs are the fixed-form specification letters in column 6
const rpgSpecs = "HFDICOP"

// rpgTypes are the valid fixed-form internal data types
const rpgTypes = "ABCDFGINOPSTUZ*"

var rpgBareKeywords = map[string]bool{
	"QUALIFIED": true, "TEMPLATE": true, "VARYING": true, "NOOPT": true, "EXPORT": true,
	"IMPORT": true, "STATIC": true, "ASCEND": true, "DESCEND": true, "ALIGN": true,
}

// fixedSpec returns the specification letter of a fixed-form line
func fixedSpec(text string) (rune, bool) {
	r := []rune(text)
	if len(r) < 6 {
		return 0, false
	}
	for _, c := range r[:5] {
		if c != ' ' && (c < '0' || c > '9') {
			return 0, false
		}
	}
	spec := r[5]
	if spec >= 'a' && spec <= 'z' {
		spec -= 'a' - 'A'
	}
	if !strings.ContainsRune(rpgSpecs, spec) {
		return 0, false
	}
	return spec, true
}

// RPGParser parses RPG III/IV source
type RPGParser struct{}

// NewRPGParser creates a new RPG parser
func NewRPGParser() *RPGParser {
	return &RPGParser{}
}

// Kind implements Parser
func (p *RPGParser) Kind() core.FormatKind {
	return core.FormatRPG
}

// Signatures implements Parser
func (p *RPGParser) Signatures() []Signature {
	return []Signature{{
		Name:     "rpg.specs",
		Kind:     core.FormatRPG,
		Priority: PriorityRPG,
		Score:    rpgScore,
	}}
}

func rpgScore(lines []string, opts Options) float64 {
	total, specs := 0, 0
	declares := 0.0
	free := 0.0
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if i == 0 && strings.HasPrefix(strings.ToUpper(trimmed), "**FREE") {
			return 0.95
		}
		if spec, ok := fixedSpec(l); ok {
			total++
			if at([]rune(l), 6) == '*' {
				continue
			}
			specs++
			if spec == 'F' || spec == 'D' {
				declares = 1
			}
			continue
		}
		if strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		total++
		if rpgFreeStmtRe.MatchString(trimmed) && strings.HasPrefix(strings.ToUpper(trimmed), "DCL-") {
			free = 0.9
		}
	}
	if total == 0 {
		return 0
	}
	fixed := 0.9*float64(specs)/float64(total) + 0.1*declares
	if specs == 0 {
		fixed = 0
	}
	if free > fixed {
		return free
	}
	return fixed
}

// rpgState accumulates an RPG parse
type rpgState struct {
	header      *Header
	inDS        bool
	freeDS      bool // current data structure was opened by DCL-DS
	inProto     bool
	dsGroup     string // name of the open data structure, DS#n when unnamed
	dsCount     int
	dsOffset    int
	pendingName string
	declared    map[string]*core.DeclaredType // standalone fields and subfields for LIKE
	names       uniqueNames
}

// ParseHeader implements Parser
func (p *RPGParser) ParseHeader(in *core.RawInput, opts Options) (*Header, error) {
	st := &rpgState{
		header:   &Header{Variant: "fixed"},
		declared: map[string]*core.DeclaredType{},
		names:    uniqueNames{},
	}

	freeAll := false
	var stmt strings.Builder
	stmtLine := 0
	for i, text := range in.Lines() {
		no := i + 1
		trimmed := strings.TrimSpace(text)
		if i == 0 && strings.HasPrefix(strings.ToUpper(trimmed), "**FREE") {
			freeAll = true
			st.header.Variant = "free"
			continue
		}
		if trimmed == "" {
			continue
		}
		if !freeAll && stmt.Len() == 0 {
			if spec, ok := fixedSpec(text); ok {
				if at([]rune(text), 6) == '*' {
					continue
				}
				switch spec {
				case 'F':
					st.fSpec(no, text)
				case 'D':
					st.dSpec(no, text)
				}
				continue
			}
			if !rpgFreeStartRe.MatchString(text) && !(st.inDS && st.freeDS) {
				continue
			}
			if st.header.Variant == "fixed" {
				st.header.Variant = "mixed"
			}
		}

		code := strings.TrimSpace(rpgCommentRe.ReplaceAllString(text, ""))
		if code == "" {
			continue
		}
		if stmt.Len() == 0 {
			stmtLine = no
		}
		for code != "" {
			semi := strings.Index(code, ";")
			if semi < 0 {
				stmt.WriteString(code)
				stmt.WriteString(" ")
				break
			}
			stmt.WriteString(code[:semi])
			st.freeStatement(stmtLine, strings.TrimSpace(stmt.String()))
			stmt.Reset()
			stmtLine = no
			code = strings.TrimSpace(code[semi+1:])
		}
	}
	if stmt.Len() > 0 {
		st.header.Warnings.Add(core.WarnMalformedDeclaration, stmtLine, stmt.String(), "statement is not terminated")
	}
	return st.header, nil
}

// fSpec records a fixed-form file declaration
func (st *rpgState) fSpec(no int, text string) {
	r := []rune(text)
	name := strings.TrimSpace(column(r, 6, 10))
	if name == "" {
		st.header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "file specification has no file name")
		return
	}
	st.header.Files = append(st.header.Files, FileRef{
		Name:     name,
		Usage:    strings.TrimSpace(column(r, 16, 1)),
		Device:   strings.TrimSpace(column(r, 35, 7)),
		External: at(r, 21) == 'E' || at(r, 21) == 'e',
		Keyed:    at(r, 33) == 'K' || at(r, 33) == 'k',
	})
}

// dspec is a fixed-form definition split into its entries
type dspec struct {
	name     string
	decl     string
	from, to int
	length   int
	typ      string
	dec      int
	hasDec   bool
	keywords string
}

// dSpec handles a fixed-form definition line. Entries are read by token because source
// members are often re-indented; the name area still has to start within columns 7-21.
func (st *rpgState) dSpec(no int, text string) {
	r := []rune(text)
	body := string(r[6:])
	tokens := tokenRe.FindAllStringIndex(body, -1)

	var d dspec
	i := 0
	if i < len(tokens) && tokens[i][0] < 15 {
		tok := body[tokens[i][0]:tokens[i][1]]
		if !rpgNumberRe.MatchString(tok) && !strings.Contains(tok, "(") {
			d.name = tok
			i++
		}
	}
	if strings.HasSuffix(d.name, "...") {
		st.pendingName += strings.TrimSuffix(d.name, "...")
		return
	}
	if st.pendingName != "" {
		d.name = st.pendingName + d.name
		st.pendingName = ""
	}

	var positional []string
	for ; i < len(tokens); i++ {
		tok := body[tokens[i][0]:tokens[i][1]]
		if strings.Contains(tok, "(") || rpgBareKeywords[strings.ToUpper(tok)] {
			d.keywords = body[tokens[i][0]:]
			break
		}
		positional = append(positional, tok)
	}
	if len(positional) > 0 && strings.EqualFold(positional[0], "E") {
		positional = positional[1:]
	}
	if len(positional) > 0 {
		switch strings.ToUpper(positional[0]) {
		case "DS", "SDS", "UDS", "S", "C", "PR", "PI":
			d.decl = strings.ToUpper(positional[0])
			positional = positional[1:]
		}
	}
	if !d.entries(positional) {
		st.header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "definition %s has unreadable length entries", d.name)
		return
	}

	switch d.decl {
	case "DS", "SDS", "UDS":
		st.openDS(d.name)
		st.freeDS = false
	case "S":
		st.inDS, st.inProto = false, false
		if dt := st.declaredType(d, false); dt != nil {
			st.declared[strings.ToUpper(d.name)] = dt
		}
	case "C":
		st.inDS, st.inProto = false, false
	case "PR", "PI":
		st.inDS, st.inProto = false, true
	default:
		if st.inProto {
			return
		}
		if !st.inDS {
			st.header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "subfield %s is outside a data structure", d.name)
			return
		}
		st.subfield(no, text, d)
	}
}

// entries reads from/to, length, type and decimal entries
func (d *dspec) entries(tokens []string) bool {
	if len(tokens) == 1 && rpgAdjustRe.MatchString(tokens[0]) {
		return true
	}
	var nums []int
	for i, tok := range tokens {
		if m := rpgLenTypeRe.FindStringSubmatch(tok); m != nil && d.typ == "" {
			n, _ := strconv.Atoi(m[1])
			nums = append(nums, n)
			d.typ = strings.ToUpper(m[2])
			rest := tokens[i+1:]
			switch {
			case len(rest) == 0:
			case len(rest) == 1 && rpgNumberRe.MatchString(rest[0]):
				d.dec, _ = strconv.Atoi(rest[0])
				d.hasDec = true
			default:
				return false
			}
			break
		}
		if !rpgNumberRe.MatchString(tok) {
			return false
		}
		n, _ := strconv.Atoi(tok)
		nums = append(nums, n)
	}

	switch {
	case len(nums) == 0:
	case len(nums) == 1:
		d.length = nums[0]
	case len(nums) == 2 && d.typ != "":
		d.from, d.to = nums[0], nums[1]
	case len(nums) == 2 && nums[1] >= nums[0]:
		d.from, d.to = nums[0], nums[1]
	case len(nums) == 2:
		d.length = nums[0]
		d.dec, d.hasDec = nums[1], true
	case len(nums) == 3 && d.typ == "":
		d.from, d.to = nums[0], nums[1]
		d.dec, d.hasDec = nums[2], true
	default:
		return false
	}
	return d.typ == "" || strings.Contains(rpgTypes, d.typ)
}

// openDS starts a data structure. Each one owns its storage, so subfields are grouped
// per structure and unnamed structures get a numbered group of their own.
func (st *rpgState) openDS(name string) {
	st.inDS, st.inProto = true, false
	st.dsCount++
	st.dsOffset = 0
	if name == "" || strings.EqualFold(name, "*N") {
		st.dsGroup = "DS#" + strconv.Itoa(st.dsCount)
		return
	}
	st.dsGroup = name
	if st.header.Entity == "" {
		st.header.Entity = name
	}
}

// declaredType resolves the declared type of a definition, following LIKE
func (st *rpgState) declaredType(d dspec, inDS bool) *core.DeclaredType {
	if m := rpgLikeRe.FindStringSubmatch(d.keywords); m != nil {
		if base, ok := st.declared[strings.ToUpper(m[1])]; ok {
			dt := *base
			return &dt
		}
		return nil
	}

	code := d.typ
	digits := d.length
	if d.to > 0 {
		digits = fromBytes(code, d.to-d.from+1)
	}
	if digits == 0 {
		return nil
	}
	if code == "" {
		switch {
		case d.hasDec && inDS:
			code = "S"
		case d.hasDec:
			code = "P"
		default:
			code = "A"
		}
	}
	kind, format := rpgKind(code, d.dec)
	return &core.DeclaredType{Code: code, Kind: kind, Length: digits, Scale: d.dec, Format: format}
}

// subfield adds a data structure subfield
func (st *rpgState) subfield(no int, text string, d dspec) {
	dt := st.declaredType(d, true)
	if dt == nil {
		st.header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "subfield %s has no resolvable length or type", d.name)
		return
	}
	if d.name == "" {
		st.header.Warnings.Add(core.WarnMalformedDeclaration, no, text, "subfield has no name")
		return
	}

	offset := st.dsOffset
	size := storageBytes(dt.Code, dt.Length)
	if d.to > 0 {
		offset, size = d.from-1, d.to-d.from+1
	}
	if m := rpgPosRe.FindStringSubmatch(d.keywords); m != nil {
		pos, _ := strconv.Atoi(m[1])
		offset = pos - 1
	}
	st.addField(no, text, d.name, offset, size, dt)
}

func (st *rpgState) addField(no int, text, name string, offset, size int, dt *core.DeclaredType) {
	st.declared[strings.ToUpper(name)] = dt
	if offset < st.dsOffset {
		st.header.Warnings.Add(core.WarnOverlappingField, no, text,
			"subfield %s overlays storage of an earlier subfield and is not listed", name)
		return
	}
	if unique, renamed := st.names.claim(name); renamed {
		st.header.Warnings.Add(core.WarnDuplicateName, no, text, "subfield %s renamed to %s", name, unique)
		name = unique
	}
	st.header.Fields = append(st.header.Fields, core.FieldDescriptor{
		Name:     name,
		Ordinal:  len(st.header.Fields) + 1,
		Offset:   offset,
		Length:   size,
		Group:    st.dsGroup,
		Declared: dt,
	})
	st.dsOffset = offset + size
}

// freeStatement handles one free-form statement without its semicolon
func (st *rpgState) freeStatement(no int, stmt string) {
	m := rpgFreeStmtRe.FindStringSubmatch(stmt)
	if m == nil {
		if st.inDS {
			st.freeSubfield(no, stmt)
		}
		return
	}
	op, rest := strings.ToUpper(m[1]), strings.TrimSpace(m[2])
	switch op {
	case "DCL-F":
		st.freeFile(no, rest)
	case "DCL-DS":
		name, kw := splitName(rest)
		upper := strings.ToUpper(kw)
		if strings.Contains(upper, "LIKEDS") || strings.Contains(upper, "LIKEREC") || strings.Contains(upper, "END-DS") {
			if st.header.Entity == "" && name != "" && !strings.EqualFold(name, "*N") {
				st.header.Entity = name
			}
			st.inDS = false
			return
		}
		st.openDS(name)
		st.freeDS = true
	case "DCL-SUBF":
		if st.inDS {
			st.freeSubfield(no, rest)
		}
	case "DCL-S":
		st.inDS, st.inProto = false, false
		name, kw := splitName(rest)
		if dt := st.freeType(kw); dt != nil {
			st.declared[strings.ToUpper(name)] = dt
		}
	case "END-DS":
		st.inDS = false
	case "DCL-PR", "DCL-PI":
		st.inDS, st.inProto = false, true
	case "END-PR", "END-PI":
		st.inProto = false
	}
}

func (st *rpgState) freeFile(no int, rest string) {
	name, kw := splitName(rest)
	if name == "" {
		st.header.Warnings.Add(core.WarnMalformedDeclaration, no, rest, "file declaration has no name")
		return
	}
	ref := FileRef{Name: name, Usage: "*INPUT", Device: "DISK", External: true}
	upper := strings.ToUpper(kw)
	if m := rpgUsageRe.FindStringSubmatch(kw); m != nil {
		ref.Usage = strings.ToUpper(strings.TrimSpace(m[1]))
	}
	for _, dev := range []string{"DISK", "WORKSTN", "PRINTER", "SPECIAL", "SEQ"} {
		if i := strings.Index(upper, dev); i >= 0 {
			ref.Device = dev
			ref.External = !strings.HasPrefix(upper[i+len(dev):], "(") || strings.HasPrefix(upper[i+len(dev):], "(*EXT")
		}
	}
	ref.Keyed = strings.Contains(upper, "KEYED")
	st.header.Files = append(st.header.Files, ref)
}

func (st *rpgState) freeSubfield(no int, stmt string) {
	name, kw := splitName(stmt)
	dt := st.freeType(kw)
	if dt == nil {
		st.header.Warnings.Add(core.WarnMalformedDeclaration, no, stmt, "subfield %s has no recognised type", name)
		return
	}
	offset := st.dsOffset
	if m := rpgPosRe.FindStringSubmatch(kw); m != nil {
		pos, _ := strconv.Atoi(m[1])
		offset = pos - 1
	}
	st.addField(no, stmt, name, offset, storageBytes(dt.Code, dt.Length), dt)
}

// freeType reads a free-form data type keyword such as PACKED(7:2)
func (st *rpgState) freeType(kw string) *core.DeclaredType {
	m := rpgFreeTypeRe.FindStringSubmatch(strings.TrimSpace(kw))
	if m == nil {
		return nil
	}
	args := strings.Split(m[2], ":")
	num := func(i int) int {
		if i >= len(args) {
			return 0
		}
		n, _ := strconv.Atoi(strings.TrimSpace(args[i]))
		return n
	}

	var code string
	length, scale := num(0), num(1)
	switch strings.ToUpper(m[1]) {
	case "CHAR", "VARCHAR":
		code = "A"
	case "GRAPH", "VARGRAPH":
		code = "G"
	case "UCS2", "VARUCS2":
		code = "C"
	case "PACKED":
		code = "P"
	case "ZONED":
		code = "S"
	case "BINDEC":
		code = "B"
	case "INT":
		code = "I"
	case "UNS":
		code = "U"
	case "FLOAT":
		code = "F"
	case "DATE":
		code, length, scale = "D", 10, 0
	case "TIME":
		code, length, scale = "T", 8, 0
	case "TIMESTAMP":
		code, length, scale = "Z", 26, 0
	case "IND":
		code, length = "N", 1
	case "POINTER":
		code, length = "*", 16
	case "OBJECT":
		code, length = "O", 16
	case "LIKE":
		if base, ok := st.declared[strings.ToUpper(strings.TrimSpace(m[2]))]; ok {
			dt := *base
			return &dt
		}
		return nil
	}
	if length == 0 {
		return nil
	}
	kind, format := rpgKind(code, scale)
	return &core.DeclaredType{Code: code, Kind: kind, Length: length, Scale: scale, Format: format}
}

// splitName splits "name rest" into its parts
func splitName(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// rpgKind maps an RPG internal data type to its semantic kind
func rpgKind(code string, scale int) (core.TypeKind, string) {
	switch code {
	case "P", "S", "B":
		if scale > 0 {
			return core.KindDecimal, ""
		}
		return core.KindInteger, ""
	case "I", "U":
		return core.KindInteger, ""
	case "F":
		return core.KindDecimal, ""
	case "N":
		return core.KindBoolean, ""
	case "D":
		return core.KindDate, "date"
	case "Z":
		return core.KindDate, "timestamp"
	case "T":
		return core.KindString, "time"
	default:
		return core.KindString, ""
	}
}

// storageBytes returns the bytes occupied by a value of the given type and digits
func storageBytes(code string, digits int) int {
	switch code {
	case "P":
		return digits/2 + 1
	case "B":
		if digits <= 4 {
			return 2
		}
		return 4
	case "I", "U":
		switch {
		case digits <= 3:
			return 1
		case digits <= 5:
			return 2
		case digits <= 10:
			return 4
		default:
			return 8
		}
	default:
		return digits
	}
}

// fromBytes converts a from/to byte span into digits or characters
func fromBytes(code string, size int) int {
	switch code {
	case "P":
		return size*2 - 1
	case "B":
		if size <= 2 {
			return 4
		}
		return 9
	case "I", "U":
		switch size {
		case 1:
			return 3
		case 2:
			return 5
		case 4:
			return 10
		default:
			return 20
		}
	default:
		return size
	}
}

// ParseRecords implements Parser. Source members carry no data rows.
func (p *RPGParser) ParseRecords(in *core.RawInput, header *Header, opts Options) ([]core.Record, core.Warnings, error) {
	return nil, nil, nil
}
