package feature

import (
	stdpath "path"
	"strings"
)

// Selector scores. A higher score means a more specific match.
const (
	ScoreNone     = 0
	ScoreWildcard = 1
	ScoreScheme   = 2
	ScoreLanguage = 3
	ScorePattern  = 4
)

// Selector decides which documents a provider applies to. Every non-empty
// field must match; "*" matches anything at wildcard specificity. The zero
// Selector matches nothing.
type Selector struct {
	Scheme   string `json:"scheme,omitempty" toml:"scheme" yaml:"scheme"`
	Language string `json:"language,omitempty" toml:"language" yaml:"language"`
	Pattern  string `json:"pattern,omitempty" toml:"pattern" yaml:"pattern"`
}

// AnyDocument returns the wildcard selector.
func AnyDocument() Selector {
	return Selector{Language: "*"}
}

// SchemeSelector matches documents whose URI has the given scheme.
func SchemeSelector(scheme string) Selector {
	return Selector{Scheme: scheme}
}

// LanguageSelector matches documents of the given language.
func LanguageSelector(language string) Selector {
	return Selector{Language: language}
}

// PatternSelector matches documents whose URI path matches a glob pattern.
// "**" matches any number of path segments; a pattern without "/" is
// matched against the base name.
func PatternSelector(pattern string) Selector {
	return Selector{Pattern: pattern}
}

// ParseSelector interprets a string selector: "*" is the wildcard, anything
// else is a scheme.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	if s == "*" {
		return AnyDocument()
	}
	return SchemeSelector(s)
}

// IsZero reports whether the selector has no fields set.
func (s Selector) IsZero() bool {
	return s.Scheme == "" && s.Language == "" && s.Pattern == ""
}

// String returns a compact description for logs.
func (s Selector) String() string {
	var parts []string
	if s.Scheme != "" {
		parts = append(parts, "scheme="+s.Scheme)
	}
	if s.Language != "" {
		parts = append(parts, "language="+s.Language)
	}
	if s.Pattern != "" {
		parts = append(parts, "pattern="+s.Pattern)
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Score returns how specifically sel matches doc, or ScoreNone.
func Score(sel Selector, doc Document) int {
	if doc == nil || sel.IsZero() {
		return ScoreNone
	}

	scheme, docPath := splitURI(doc.URI())
	score := ScoreNone

	if sel.Scheme != "" {
		switch {
		case sel.Scheme == "*":
			score = max(score, ScoreWildcard)
		case strings.EqualFold(sel.Scheme, scheme):
			score = max(score, ScoreScheme)
		default:
			return ScoreNone
		}
	}

	if sel.Language != "" {
		switch {
		case sel.Language == "*":
			score = max(score, ScoreWildcard)
		case sel.Language == doc.LanguageID():
			score = max(score, ScoreLanguage)
		default:
			return ScoreNone
		}
	}

	if sel.Pattern != "" {
		if !matchGlob(sel.Pattern, docPath) {
			return ScoreNone
		}
		score = max(score, ScorePattern)
	}

	return score
}

// matchGlob matches a slash-separated path against a glob with "**" support.
func matchGlob(pattern, filePath string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "**" || pattern == "**/*" {
		return true
	}

	if !strings.Contains(pattern, "/") {
		base := filePath[strings.LastIndex(filePath, "/")+1:]
		matched, _ := stdpath.Match(pattern, base)
		return matched
	}

	patSegs := splitSegments(pattern)
	pathSegs := splitSegments(filePath)
	return matchSegments(patSegs, pathSegs)
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
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
		matched, err := stdpath.Match(pat[0], segs[0])
		if err != nil || !matched {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}
