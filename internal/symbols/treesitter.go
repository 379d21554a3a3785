//go:build cgo

package symbols

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/ppiankov/todolens/internal/codebase"
)

// Extractor extracts symbols from source files using tree-sitter
type Extractor struct{}

// NewExtractor creates a new symbol extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the function and class definitions of one file.
// Languages without a grammar use the line scanner; unknown files yield
// an empty result.
func (e *Extractor) Extract(ctx context.Context, file string, source []byte) (*codebase.FileSymbols, error) {
	lang, ok := LanguageFromPath(file)
	if !ok {
		return &codebase.FileSymbols{File: file}, nil
	}

	grammar := getLanguage(lang)
	if grammar == nil {
		return scanSymbols(file, lang, source), nil
	}

	// Parsers are not safe for concurrent use, so each call gets its own
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	defer tree.Close()

	result := &codebase.FileSymbols{File: file}
	walk(tree.RootNode(), func(n *sitter.Node) {
		kind, ok := nodeKind(lang, n)
		if !ok {
			return
		}
		name := nodeName(lang, n, source)
		if name == "" {
			return
		}
		sym := codebase.Symbol{
			Name:    name,
			Kind:    kind,
			Line:    int(n.StartPoint().Row) + 1,
			EndLine: int(n.EndPoint().Row) + 1,
		}
		if kind == codebase.KindClass {
			result.Classes = append(result.Classes, sym)
		} else {
			result.Functions = append(result.Functions, sym)
		}
	})

	return result, nil
}

// getLanguage returns the grammar for lang, or nil when none is bundled
func getLanguage(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	}
	return nil
}

// nodeKind classifies definition nodes
func nodeKind(lang Language, n *sitter.Node) (string, bool) {
	switch lang {
	case LangGo:
		switch n.Type() {
		case "function_declaration":
			return codebase.KindFunction, true
		case "method_declaration":
			return codebase.KindMethod, true
		case "type_spec":
			if t := n.ChildByFieldName("type"); t != nil && (t.Type() == "struct_type" || t.Type() == "interface_type") {
				return codebase.KindClass, true
			}
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		switch n.Type() {
		case "function_declaration", "generator_function_declaration":
			return codebase.KindFunction, true
		case "method_definition":
			return codebase.KindMethod, true
		case "class_declaration", "abstract_class_declaration", "interface_declaration":
			return codebase.KindClass, true
		case "variable_declarator":
			if v := n.ChildByFieldName("value"); v != nil && (v.Type() == "arrow_function" || v.Type() == "function" || v.Type() == "function_expression") {
				return codebase.KindFunction, true
			}
		}
	case LangPython:
		switch n.Type() {
		case "function_definition":
			return codebase.KindFunction, true
		case "class_definition":
			return codebase.KindClass, true
		}
	}
	return "", false
}

func nodeName(lang Language, n *sitter.Node, source []byte) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(source)
	}
	if lang == LangGo {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); child != nil && child.Type() == "identifier" {
				return child.Content(source)
			}
		}
	}
	return ""
}

// walk visits n and all its named descendants depth-first
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}
