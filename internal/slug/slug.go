// Package slug canonicalizes names and paths into URL-safe identifiers.
package slug

import (
	"strings"
	"unicode"
)

// Make lowercases s and collapses every run of characters that are not
// Unicode letters or digits into a single '-', trimming leading and trailing
// dashes. Letters outside ASCII are kept as they are.
//
//	Make("Joe Bloggs")   == "joe-bloggs"
//	Make("Simple--Post") == "simple-post"
//	Make("Café Crème")   == "café-crème"
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// Path canonicalizes every segment of a slash separated path. It returns ""
// if any segment has no letters or digits.
func Path(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = Make(seg)
		if segments[i] == "" {
			return ""
		}
	}
	return strings.Join(segments, "/")
}

// Title turns a slug segment into a display name: "simple-post" -> "Simple Post".
func Title(segment string) string {
	words := strings.FieldsFunc(segment, func(r rune) bool { return r == '-' || r == '_' || unicode.IsSpace(r) })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Chain returns the ancestor paths of p, outermost first, excluding p itself.
//
//	Chain("a/b/post") == []string{"a", "a/b"}
func Chain(p string) []string {
	segments := strings.Split(p, "/")
	if len(segments) < 2 {
		return nil
	}
	chain := make([]string, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		chain = append(chain, strings.Join(segments[:i], "/"))
	}
	return chain
}

// Parent returns p without its last segment, or "" for a top-level path.
func Parent(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// Base returns the last segment of p.
func Base(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
