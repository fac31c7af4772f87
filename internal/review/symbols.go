package review

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SymbolSummary is the top-level shape a review brief renders for one
// changed file: what kind of declarations moved, not a raw diff.
type SymbolSummary struct {
	Path     string
	Language string
	Symbols  []string // e.g. "func Spawn", "type Manager struct", "class Repository"
}

var languageByExt = map[string]string{
	".go":  "go",
	".py":  "python",
	".rs":  "rust",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
}

// classifyChangedFile parses content with the tree-sitter grammar matching
// path's extension and extracts the names of its top-level declarations.
// Unsupported extensions (markdown, yaml, plain config) return a summary
// with no symbols rather than an error - the review brief just lists the
// path on its own in that case.
func classifyChangedFile(path string, content []byte) (SymbolSummary, error) {
	lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return SymbolSummary{Path: path}, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()

	var grammar *sitter.Language
	switch lang {
	case "go":
		grammar = golang.GetLanguage()
	case "python":
		grammar = python.GetLanguage()
	case "rust":
		grammar = rust.GetLanguage()
	case "javascript":
		grammar = javascript.GetLanguage()
	case "typescript":
		grammar = typescript.GetLanguage()
	}
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return SymbolSummary{}, err
	}
	defer tree.Close()

	summary := SymbolSummary{Path: path, Language: lang}
	summary.Symbols = extractTopLevelSymbols(lang, tree.RootNode(), content)
	return summary, nil
}

// extractTopLevelSymbols walks the root node's direct children only - a
// review brief wants "what new functions/types/classes appeared", not a
// full symbol graph, so this stops at depth one unlike the teacher's
// world-model indexer which walks the whole tree.
func extractTopLevelSymbols(lang string, root *sitter.Node, content []byte) []string {
	getText := func(n *sitter.Node) string {
		if n == nil {
			return ""
		}
		return n.Content(content)
	}

	var symbols []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch lang {
		case "go":
			switch n.Type() {
			case "function_declaration":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "func "+name)
				}
			case "method_declaration":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "method "+name)
				}
			case "type_declaration":
				for j := 0; j < int(n.NamedChildCount()); j++ {
					spec := n.NamedChild(j)
					if spec.Type() == "type_spec" {
						if name := getText(spec.ChildByFieldName("name")); name != "" {
							symbols = append(symbols, "type "+name)
						}
					}
				}
			}
		case "python":
			switch n.Type() {
			case "function_definition":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "def "+name)
				}
			case "class_definition":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "class "+name)
				}
			}
		case "rust":
			switch n.Type() {
			case "function_item":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "fn "+name)
				}
			case "struct_item":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "struct "+name)
				}
			case "impl_item":
				if name := getText(n.ChildByFieldName("type")); name != "" {
					symbols = append(symbols, "impl "+name)
				}
			}
		case "javascript", "typescript":
			switch n.Type() {
			case "function_declaration":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "function "+name)
				}
			case "class_declaration":
				if name := getText(n.ChildByFieldName("name")); name != "" {
					symbols = append(symbols, "class "+name)
				}
			case "lexical_declaration":
				for j := 0; j < int(n.NamedChildCount()); j++ {
					decl := n.NamedChild(j)
					if decl.Type() == "variable_declarator" {
						if name := getText(decl.ChildByFieldName("name")); name != "" {
							symbols = append(symbols, "const "+name)
						}
					}
				}
			}
		}
	}
	return symbols
}
