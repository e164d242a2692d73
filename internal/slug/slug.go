// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
// Accented Latin letters are folded to ASCII, Cyrillic is transliterated and
// Chinese characters are replaced by their pinyin.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonWord matches anything that isn't an ASCII letter, digit, underscore,
	// whitespace or hyphen.
	nonWord = regexp.MustCompile(`[^a-z0-9_\s-]`)
	// separators collapses runs of whitespace and hyphens into one hyphen.
	separators = regexp.MustCompile(`[\s-]+`)
)

var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Fallback = func(r rune, a pinyin.Args) []string { return []string{string(r)} }
	return a
}()

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

// fold strips combining marks after canonical decomposition, so "é" becomes "e".
var fold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := transliterate(strings.ToLower(strings.TrimSpace(s)))
	if folded, _, err := transform.String(fold, result); err == nil {
		result = folded
	}
	result = nonWord.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-_")
}

// Truncate shortens a slug to at most max bytes, cutting at the last hyphen
// inside the limit when there is one.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	if i := strings.LastIndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	return strings.Trim(s, "-")
}

// transliterate replaces Cyrillic letters and Han characters with Latin
// spellings. Han runs are separated from neighbouring text by spaces so
// each syllable becomes its own slug segment.
func transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			syllables := pinyin.SinglePinyin(r, pinyinArgs)
			if len(syllables) > 0 {
				b.WriteByte(' ')
				b.WriteString(syllables[0])
				b.WriteByte(' ')
			}
		case unicode.Is(unicode.Cyrillic, r):
			if latin, ok := cyrillic[unicode.ToLower(r)]; ok {
				b.WriteString(latin)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
