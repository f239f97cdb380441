package analysis

import (
	"fmt"
	"sort"

	"github.com/spetr/unusedmember/pkg/types"
)

// emit converts the remaining candidates into findings ordered by location.
func (a *unitAnalysis) emit(sets []*candidateSet) []types.Finding {
	seen := make(map[types.DeclID]bool)
	var findings []types.Finding

	for _, set := range sets {
		for _, id := range set.remaining() {
			if seen[id] {
				continue
			}
			seen[id] = true

			d := a.unit.Decl(id)
			findings = append(findings, types.Finding{
				RuleID:  a.ruleID,
				DeclID:  d.ID,
				Name:    d.Name,
				Kind:    d.Kind,
				Message: Message(a.unit, d),
				Location: types.Location{
					Path: a.unit.Path,
					Span: d.Span,
				},
			})
		}
	}

	SortFindings(findings)
	return findings
}

// Message returns the finding message for an unused declaration.
func Message(unit *types.Unit, d *types.Declaration) string {
	switch d.Kind {
	case types.DeclParameter:
		owner := unit.Owner(d.Scope)
		switch {
		case owner != nil && owner.Kind == types.DeclClass && d.Member:
			return fmt.Sprintf("Private property `%s` is unused.", d.Name)
		case owner != nil && (owner.Kind == types.DeclClass || owner.Modifiers.Has(types.ModConstructor)):
			return fmt.Sprintf("Constructor parameter `%s` is unused.", d.Name)
		default:
			return fmt.Sprintf("Function parameter `%s` is unused.", d.Name)
		}
	case types.DeclProperty:
		if d.IsLocal() {
			return fmt.Sprintf("Local property `%s` is unused.", d.Name)
		}
		return fmt.Sprintf("Private property `%s` is unused.", d.Name)
	case types.DeclFunction:
		if d.IsLocal() {
			return fmt.Sprintf("Local function `%s` is unused.", d.Name)
		}
		return fmt.Sprintf("Private function `%s` is unused.", d.Name)
	default:
		return fmt.Sprintf("`%s` is unused.", d.Name)
	}
}

// SortFindings orders findings by file, line, column and declaration.
func SortFindings(findings []types.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i].Location, findings[j].Location
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.StartCol != b.StartCol {
			return a.StartCol < b.StartCol
		}
		return findings[i].DeclID < findings[j].DeclID
	})
}
