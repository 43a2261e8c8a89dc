// File: internal/intake/parse.go
package intake

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minLineNameLength = 3

// summaryWords open footer lines that end in an amount but are not items.
var summaryWords = map[string]bool{
	"total":     true,
	"subtotal":  true,
	"neto":      true,
	"iva":       true,
	"descuento": true,
}

var (
	// trailing quantity: "12", "1.000" (thousands), "12,00" or "12.0"
	quantityPattern = regexp.MustCompile(`^(.*?)\s+(\d{1,3}(?:\.\d{3})+|\d{1,6})(?:,0+|\.0{1,2})?$`)
	codePattern     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{2,49}$`)
	spaces          = regexp.MustCompile(`\s+`)
)

// ParseLines turns extracted document text into item lines. A line counts as
// an item when it ends in a positive quantity and what precedes it holds a
// name of at least three characters. A leading token with a digit in it is
// taken as the supplier's product code.
func ParseLines(text string) []Line {
	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		if line, ok := parseLine(raw); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseLine(raw string) (Line, bool) {
	clean := strings.TrimSpace(spaces.ReplaceAllString(raw, " "))
	m := quantityPattern.FindStringSubmatch(clean)
	if m == nil {
		return Line{}, false
	}
	qty, err := strconv.Atoi(strings.ReplaceAll(m[2], ".", ""))
	if err != nil || qty <= 0 {
		return Line{}, false
	}

	rest := strings.TrimSpace(m[1])
	var code *string
	if first, tail, found := strings.Cut(rest, " "); found && isCode(first) {
		c := first
		code = &c
		rest = strings.TrimSpace(tail)
	}
	if !hasName(rest) || isSummary(rest) {
		return Line{}, false
	}
	return Line{Code: code, Name: rest, Quantity: qty, Raw: clean}, true
}

func isCode(token string) bool {
	return codePattern.MatchString(token) && strings.IndexFunc(token, unicode.IsDigit) >= 0
}

func hasName(s string) bool {
	return utf8.RuneCountInString(s) >= minLineNameLength && strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func isSummary(name string) bool {
	first, _, _ := strings.Cut(name, " ")
	return summaryWords[strings.ToLower(strings.TrimRight(first, ":"))]
}
