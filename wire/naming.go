package wire

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ToCamel converts a snake_case name to lowerCamel. The first word is kept
// verbatim; every following word is capitalized and lower-cased.
func ToCamel(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) == 1 {
		return name
	}
	var b strings.Builder
	b.Grow(len(name))
	b.WriteString(parts[0])
	for _, word := range parts[1:] {
		b.WriteString(capitalize(word))
	}
	return b.String()
}

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
}

func isInternalName(name string) bool {
	return strings.HasPrefix(name, "_")
}
