// Package provider defines interfaces for pluggable components.
package provider

import (
	"context"

	"github.com/spetr/unusedmember/pkg/types"
)

// Frontend parses source files into declaration trees.
type Frontend interface {
	// Name returns the frontend name (e.g., "treesitter").
	Name() string

	// Parse builds the declaration tree of one compilation unit.
	Parse(ctx context.Context, file *types.SourceFile) (*types.Unit, error)

	// SupportedLanguages returns languages this frontend supports.
	SupportedLanguages() []string

	// SupportsLanguage checks if a language is supported.
	SupportsLanguage(lang string) bool

	// Close releases any resources.
	Close() error
}

// FrontendConfig contains configuration for frontends.
type FrontendConfig struct {
	Name string // "treesitter"
}
