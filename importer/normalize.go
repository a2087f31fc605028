package importer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitName treats the last whitespace-separated token as the surname and
// everything before it as the first name. A single token has no surname.
func SplitName(fullName string) (string, *string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	}
	last := parts[len(parts)-1]
	return strings.Join(parts[:len(parts)-1], " "), &last
}

// Titleize upper-cases the first letter of every word and leaves the rest
// of each word untouched. Words are re-joined with single spaces.
func Titleize(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError && size <= 1 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// SplitList splits a comma separated cell, dropping blank entries.
// Order and duplicates are preserved.
func SplitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
