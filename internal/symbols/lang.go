// Package symbols extracts function and class definitions from source
// files. With cgo it parses Go, JavaScript, TypeScript and Python through
// tree-sitter; other languages and !cgo builds use a line-oriented scanner.
package symbols

import (
	"path/filepath"
	"strings"
)

// Language identifies a source language
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangRuby       Language = "ruby"
	LangJava       Language = "java"
)

// LanguageFromPath maps a file extension to a language
func LanguageFromPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".rb":
		return LangRuby, true
	case ".java":
		return LangJava, true
	}
	return "", false
}

// braced reports whether blocks in lang are delimited by braces
func (l Language) braced() bool {
	return l != LangPython && l != LangRuby
}
