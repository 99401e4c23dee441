// Package amount is the single place where monetary text is turned into a
// number and a number is rendered for display.
package amount

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numericRun = regexp.MustCompile(`[\d.,]+`)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// Parse extracts an amount from free text written with either Brazilian
// (1.234,56) or English (1234.56) separators. It returns 0 when nothing can be
// parsed; callers must treat 0 as a rejection, not as a free expense.
func Parse(text string) float64 {
	// A run may end with sentence punctuation: "gastei 50.00."
	run := strings.TrimRight(longestRun(text), ".,")
	if run == "" {
		return 0
	}
	if strings.Contains(run, ",") {
		run = strings.ReplaceAll(run, ".", "")
		run = strings.ReplaceAll(run, ",", ".")
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Remainder returns the text following the longest numeric run, trimmed. It
// is used to recover the item of "gastei 45,90 almoço".
func Remainder(text string) string {
	loc := longestRunIndex(text)
	if loc == nil {
		return ""
	}
	return strings.TrimSpace(text[loc[1]:])
}

// FormatBRL renders v as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	return "R$ " + brPrinter.Sprintf("%.2f", v)
}

func longestRun(text string) string {
	loc := longestRunIndex(text)
	if loc == nil {
		return ""
	}
	return text[loc[0]:loc[1]]
}

func longestRunIndex(text string) []int {
	var best []int
	for _, loc := range numericRun.FindAllStringIndex(text, -1) {
		if best == nil || loc[1]-loc[0] > best[1]-best[0] {
			best = loc
		}
	}
	return best
}
