package scan

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spetr/unusedmember/pkg/types"
)

// WriteText prints one "path:line:col: message [rule]" line per finding.
// Paths are made relative to base when possible.
func WriteText(w io.Writer, findings []types.Finding, base string) error {
	for _, f := range findings {
		path := f.Location.Path
		if base != "" {
			if rel, err := filepath.Rel(base, path); err == nil {
				path = rel
			}
		}
		_, err := fmt.Fprintf(w, "%s:%d:%d: %s [%s]\n",
			path, f.Location.StartLine, f.Location.StartCol, f.Message, f.RuleID)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON prints the report as indented JSON.
func WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
