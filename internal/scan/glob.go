package scan

import (
	"path"
	"strings"
)

// matchAny reports whether relPath matches one of the patterns.
func matchAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		if matchGlob(pattern, relPath) {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated path against a glob pattern where
// "**" spans any number of directories. Patterns without a slash also
// match the base name. A trailing slash on relPath marks a directory, so
// "**/build/**" excludes "build/" itself.
func matchGlob(pattern, relPath string) bool {
	dir := strings.HasSuffix(relPath, "/")
	relPath = strings.TrimSuffix(relPath, "/")

	if !strings.Contains(pattern, "/") {
		if ok, _ := path.Match(pattern, path.Base(relPath)); ok {
			return true
		}
	}

	pat := strings.Split(pattern, "/")
	if dir && len(pat) > 0 && pat[len(pat)-1] == "**" {
		pat = pat[:len(pat)-1]
	}
	return matchSegments(pat, strings.Split(relPath, "/"))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], segs[0]); !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}
