package symbols

import (
	"regexp"
	"strings"

	"github.com/ppiankov/todolens/internal/codebase"
)

// linePattern recognizes one kind of definition on a single line.
// The last capture group is the symbol name.
type linePattern struct {
	re   *regexp.Regexp
	kind string
}

var (
	jsFunction = linePattern{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`), codebase.KindFunction}
	jsArrow    = linePattern{regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*(?::[^=]+)?=>`), codebase.KindFunction}
	jsMethod   = linePattern{regexp.MustCompile(`^\s+(?:public\s+|private\s+|protected\s+)?(?:static\s+)?(?:async\s+)?([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*(?::[^{]+)?\{`), codebase.KindMethod}
	jsClass    = linePattern{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`), codebase.KindClass}
)

var linePatterns = map[Language][]linePattern{
	LangGo: {
		{regexp.MustCompile(`^func\s+\([^)]*\)\s*([A-Za-z_]\w*)\s*[\[(]`), codebase.KindMethod},
		{regexp.MustCompile(`^func\s+([A-Za-z_]\w*)\s*[\[(]`), codebase.KindFunction},
		{regexp.MustCompile(`^type\s+([A-Za-z_]\w*)(?:\[[^\]]*\])?\s+(?:struct|interface)\b`), codebase.KindClass},
	},
	LangJavaScript: {jsClass, jsFunction, jsArrow, jsMethod},
	LangTypeScript: {jsClass, jsFunction, jsArrow, jsMethod},
	LangTSX:        {jsClass, jsFunction, jsArrow, jsMethod},
	LangPython: {
		{regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`), codebase.KindClass},
		{regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`), codebase.KindFunction},
	},
	LangRust: {
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+([A-Za-z_]\w*)`), codebase.KindClass},
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`), codebase.KindFunction},
	},
	LangRuby: {
		{regexp.MustCompile(`^\s*(?:class|module)\s+([A-Z]\w*)`), codebase.KindClass},
		{regexp.MustCompile(`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!]?)`), codebase.KindFunction},
	},
	LangJava: {
		{regexp.MustCompile(`^\s*(?:(?:public|private|protected|abstract|final|static)\s+)*(?:class|interface|enum|record)\s+([A-Za-z_]\w*)`), codebase.KindClass},
		{regexp.MustCompile(`^\s*(?:(?:public|private|protected|abstract|final|static|synchronized)\s+)+[\w<>\[\], ]+\s+([A-Za-z_]\w*)\s*\([^)]*\)\s*(?:throws\s+[\w., ]+)?\{?\s*$`), codebase.KindMethod},
	},
}

// controlWords are never method names even though they look like calls
var controlWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "else": true,
}

// scanSymbols extracts definitions line by line. Block ends are found by
// brace balance or, for indentation languages, by dedent.
func scanSymbols(file string, lang Language, source []byte) *codebase.FileSymbols {
	result := &codebase.FileSymbols{File: file}
	patterns, ok := linePatterns[lang]
	if !ok {
		return result
	}

	lines := strings.Split(strings.ReplaceAll(string(source), "\r\n", "\n"), "\n")
	for i, line := range lines {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[len(m)-1]
			if controlWords[name] {
				continue
			}

			sym := codebase.Symbol{
				Name:    name,
				Kind:    p.kind,
				Line:    i + 1,
				EndLine: blockEnd(lines, i, lang) + 1,
			}
			if sym.Kind == codebase.KindClass {
				result.Classes = append(result.Classes, sym)
			} else {
				result.Functions = append(result.Functions, sym)
			}
			break
		}
	}
	return result
}

// blockEnd returns the 0-based index of the last line of the block opened at start
func blockEnd(lines []string, start int, lang Language) int {
	if lang.braced() {
		return braceEnd(lines, start)
	}
	return dedentEnd(lines, start)
}

// braceEnd follows brace depth from start. Declarations without a body
// within a few lines end on their own line.
func braceEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, r := range stripStrings(lines[i]) {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i
		}
		if !opened && i-start >= 2 {
			return start
		}
	}
	if !opened {
		return start
	}
	return len(lines) - 1
}

// dedentEnd returns the last non-blank line indented deeper than start
func dedentEnd(lines []string, start int) int {
	base := indentOf(lines[start])
	end := start
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentOf(lines[i]) <= base {
			if strings.TrimSpace(lines[i]) == "end" && indentOf(lines[i]) == base {
				end = i
			}
			break
		}
		end = i
	}
	return end
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// stripStrings removes quoted literals and line comments so braces inside
// them do not count
func stripStrings(line string) string {
	var b strings.Builder
	var quote rune
	escaped := false
	prev := rune(0)
	for _, r := range line {
		switch {
		case quote != 0:
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		case r == '/' && prev == '/':
			return b.String()
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
