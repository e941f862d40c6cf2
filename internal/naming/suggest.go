package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SuggestToken folds s into the token character set: accents are stripped,
// every other disallowed rune becomes '-', and runs of '-' are collapsed.
// An empty string is returned when nothing usable remains.
func SuggestToken(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	dash := false
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SuggestFileName proposes a canonical name for an arbitrary file name by
// folding each token. It returns false when no project and step survive.
func SuggestFileName(name string) (string, bool) {
	if id, err := DecomposeFileName(name); err == nil {
		composed, err := ComposeFileName(id)
		return composed, err == nil
	}

	base, ext := name, ""
	if dot := strings.LastIndex(name, "."); dot > 0 {
		base, ext = name[:dot], SuggestToken(name[dot+1:])
	}
	if ext == "" {
		return "", false
	}
	var tokens []string
	for _, raw := range strings.Split(base, separator) {
		if token := SuggestToken(raw); token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) < 2 {
		return "", false
	}
	candidate := strings.Join(tokens, separator) + "." + ext
	if _, err := DecomposeFileName(candidate); err != nil {
		return "", false
	}
	return candidate, true
}
