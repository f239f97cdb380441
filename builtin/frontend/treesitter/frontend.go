// Package treesitter builds declaration trees from Kotlin sources using Tree-sitter.
package treesitter

import (
	"context"
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/kotlin"

	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// Frontend parses Kotlin files into declaration trees.
// Parsers are created per call, so a Frontend is safe for concurrent use.
type Frontend struct{}

// New creates a new Tree-sitter frontend.
func New() *Frontend {
	return &Frontend{}
}

// Name returns the frontend name.
func (f *Frontend) Name() string {
	return "treesitter"
}

// getParser returns a parser for the given language.
func (f *Frontend) getParser(lang string) (*sitter.Parser, bool) {
	var language *sitter.Language

	switch lang {
	case "kotlin", "kt", "kts":
		language = kotlin.GetLanguage()
	default:
		return nil, false
	}

	parser := sitter.NewParser()
	parser.SetLanguage(language)
	return parser, true
}

// Parse builds the declaration tree of one file.
func (f *Frontend) Parse(ctx context.Context, file *types.SourceFile) (*types.Unit, error) {
	parser, ok := f.getParser(file.Language)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, file.Language)
	}
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrParseError, file.Path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		// Unknown subtrees are still scanned for references.
		slog.Warn("syntax errors in file, results may be incomplete", "file", file.Path)
	}

	ub := newUnitBuilder(file)
	ub.sourceFile(root)
	return ub.b.Unit(), nil
}

// SupportedLanguages returns languages supported by this frontend.
func (f *Frontend) SupportedLanguages() []string {
	return []string{"kotlin", "kt", "kts"}
}

// SupportsLanguage checks if a language is supported.
func (f *Frontend) SupportsLanguage(lang string) bool {
	switch lang {
	case "kotlin", "kt", "kts":
		return true
	}
	return false
}

// Close releases resources.
func (f *Frontend) Close() error {
	return nil
}

// Ensure Frontend implements the Frontend interface
var _ provider.Frontend = (*Frontend)(nil)
