package analysis

import (
	"regexp"

	"github.com/spetr/unusedmember/pkg/types"
)

// suppressAnnotations are the annotation names whose arguments suppress findings.
var suppressAnnotations = map[string]bool{
	"Suppress":                   true,
	"SuppressWarnings":           true,
	"kotlin.Suppress":            true,
	"java.lang.SuppressWarnings": true,
}

// suppressor decides whether a declaration is suppressed by itself, by any
// enclosing declaration or by the file.
type suppressor struct {
	unit    *types.Unit
	pattern *regexp.Regexp

	owners map[types.DeclID]bool
	file   *bool
}

func (s *suppressor) suppressed(d *types.Declaration) bool {
	if s.matches(d.Annotations) {
		return true
	}

	found := false
	s.unit.Ancestors(d.Scope, func(sc *types.Scope) bool {
		if owner := s.unit.Decl(sc.Owner); owner != nil && owner.ID != d.ID && s.ownerSuppressed(owner) {
			found = true
			return false
		}
		return true
	})
	return found || s.fileSuppressed()
}

func (s *suppressor) ownerSuppressed(owner *types.Declaration) bool {
	v, ok := s.owners[owner.ID]
	if !ok {
		v = s.matches(owner.Annotations)
		s.owners[owner.ID] = v
	}
	return v
}

func (s *suppressor) fileSuppressed() bool {
	if s.file == nil {
		v := s.matches(s.unit.Annotations)
		s.file = &v
	}
	return *s.file
}

func (s *suppressor) matches(anns []types.Annotation) bool {
	for _, ann := range anns {
		if !suppressAnnotations[ann.Name] {
			continue
		}
		for _, arg := range ann.Args {
			if s.pattern.MatchString(arg) {
				return true
			}
		}
	}
	return false
}
