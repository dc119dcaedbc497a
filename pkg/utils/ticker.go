package utils

import (
	"strings"
)

// Company names and common shorthands mapped to their listed symbols.
var tickerAliases = map[string]string{
	"APPLE":           "AAPL",
	"TESLA":           "TSLA",
	"NVIDIA":          "NVDA",
	"GOOGLE":          "GOOGL",
	"ALPHABET":        "GOOGL",
	"AMAZON":          "AMZN",
	"MICROSOFT":       "MSFT",
	"FACEBOOK":        "META",
	"FB":              "META",
	"META PLATFORMS":  "META",
	"NETFLIX":         "NFLX",
	"ALIBABA":         "BABA",
	"BANK OF AMERICA": "BAC",
	"BOFA":            "BAC",
	"RIPPLE":          "XRP",
}

// NormalizeTicker normalizes a user-input ticker to its canonical symbol.
// It handles aliases, uppercasing, and whitespace.
func NormalizeTicker(ticker string) string {
	ticker = strings.Join(strings.Fields(strings.ToUpper(ticker)), " ")

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// NormalizeSymbols normalizes every ticker in list, dropping blanks and
// duplicates while keeping first-seen order.
func NormalizeSymbols(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, raw := range list {
		sym := NormalizeTicker(raw)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// SplitSymbols parses a comma- or whitespace-separated symbol list such as
// "aapl, msft tsla". A comma-separated entry that names a company as a whole
// ("bank of america, nvda") is kept together.
func SplitSymbols(s string) []string {
	var fields []string
	for _, part := range strings.Split(s, ",") {
		if _, ok := tickerAliases[NormalizeTicker(part)]; ok {
			fields = append(fields, part)
			continue
		}
		fields = append(fields, strings.Fields(part)...)
	}
	return NormalizeSymbols(fields)
}
