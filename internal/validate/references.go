package validate

import (
	"regexp"
	"strings"
)

var (
	callRe       = regexp.MustCompile(`\b([A-Za-z_]\w*)\(`)
	camelRe      = regexp.MustCompile(`\b(?:[a-z]+[A-Z]\w*|[A-Z][a-z]+[A-Z]\w*)\b`)
	snakeRe      = regexp.MustCompile(`\b[A-Za-z]\w*_\w+\b`)
	filePathRe   = regexp.MustCompile(`[\w./-]+\.(?:go|ts|tsx|js|jsx|py|rb|rs|java|kt|md|json|yaml|yml|toml|css|html|sql|sh)\b`)
	wordRe       = regexp.MustCompile(`[A-Za-z]+`)
	implWordRe   = regexp.MustCompile(`(?i)\b(?:function|class|const|let|var|export|func|def)\b`)
	completionRe = regexp.MustCompile(`(?i)\b(?:implemented|done|completed|finished|resolved)\b`)
	markerLineRe = regexp.MustCompile(`\b(?:TODO|FIXME|HACK|XXX|BUG|NOTE)\b|(?i:\b(?:todo|fixme|hack)\s*:)`)
)

// minKeywordLength is the exclusive lower bound on keyword length
const minKeywordLength = 4

// minStemLength keeps stemming from reducing a keyword to a fragment
const minStemLength = 4

// hedgeWords never serve as implementation keywords
var hedgeWords = map[string]bool{
	"should": true, "could": true, "would": true, "might": true, "maybe": true,
	"need": true, "want": true, "please": true, "there": true, "their": true,
	"about": true, "which": true, "these": true, "those": true, "other": true,
	"still": true,
	// Action verbs describe the work, not the thing being built
	"implement": true, "implementation": true, "create": true, "build": true,
	"update": true, "refactor": true, "support": true, "handle": true,
}

// stemSuffixes are stripped longest-first to get a keyword's stem
var stemSuffixes = []string{"ality", "ness", "ment", "ion", "ing", "ed", "es", "s"}

// implementationWords mark code that defines something
var implementationWords = map[string]bool{
	"function": true, "class": true, "const": true, "let": true,
	"var": true, "export": true, "func": true, "def": true,
}

// References are the code-level anchors found in a TODO's text
type References struct {
	Files       []string // File paths, in order of appearance
	Identifiers []string // Called names, camelCase and snake_case identifiers
	Keywords    []string // Plain words used for supersession search
}

// Empty reports whether nothing checkable was found
func (r References) Empty() bool {
	return len(r.Files) == 0 && len(r.Identifiers) == 0 && len(r.Keywords) == 0
}

// ExtractReferences finds file paths, identifiers and keywords in content
func ExtractReferences(content string) References {
	var refs References

	seenFile := make(map[string]bool)
	for _, f := range filePathRe.FindAllString(content, -1) {
		if !seenFile[f] {
			seenFile[f] = true
			refs.Files = append(refs.Files, f)
		}
	}

	// Identifiers inside file paths are not code references
	rest := filePathRe.ReplaceAllString(content, " ")

	seenIdent := make(map[string]bool)
	addIdent := func(name string) {
		key := strings.ToLower(name)
		if seenIdent[key] || implementationWords[key] {
			return
		}
		seenIdent[key] = true
		refs.Identifiers = append(refs.Identifiers, name)
	}
	for _, m := range callRe.FindAllStringSubmatch(rest, -1) {
		addIdent(m[1])
	}
	for _, m := range camelRe.FindAllString(rest, -1) {
		addIdent(m)
	}
	for _, m := range snakeRe.FindAllString(rest, -1) {
		addIdent(m)
	}

	seenWord := make(map[string]bool)
	for _, w := range wordRe.FindAllString(rest, -1) {
		lower := strings.ToLower(w)
		if len(lower) <= minKeywordLength || hedgeWords[lower] || seenIdent[lower] || seenWord[lower] {
			continue
		}
		if implementationWords[lower] || implementationWords[stem(lower)] || isIdentifierPart(lower, refs.Identifiers) {
			continue
		}
		seenWord[lower] = true
		refs.Keywords = append(refs.Keywords, lower)
	}

	return refs
}

// isIdentifierPart reports whether word is a fragment of an identifier
// (e.g. "user" in user_id), which the identifier check already covers
func isIdentifierPart(word string, identifiers []string) bool {
	for _, id := range identifiers {
		for _, part := range strings.Split(strings.ToLower(id), "_") {
			if part == word {
				return true
			}
		}
	}
	return false
}

// stem strips the first matching suffix as long as the remainder stays
// at least minStemLength long
func stem(word string) string {
	word = strings.ToLower(word)
	for _, suffix := range stemSuffixes {
		if strings.HasSuffix(word, suffix) && len(word)-len(suffix) >= minStemLength {
			return strings.TrimSuffix(word, suffix)
		}
	}
	return word
}

// isMarkerLine reports whether a line carries a TODO-style marker. Such a
// line describes pending work and is never evidence that the work exists.
func isMarkerLine(line string) bool {
	return markerLineRe.MatchString(line)
}

// hasImplementationContext reports whether text defines code and mentions
// the stem
func hasImplementationContext(text, wordStem string) bool {
	return implWordRe.MatchString(text) && strings.Contains(strings.ToLower(text), wordStem)
}
