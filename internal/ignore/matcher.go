// Package ignore filters changed file paths with gitignore-style rules.
package ignore

import (
	"regexp"
	"strings"
)

// DefaultRules exclude dbt build output and installed packages, which never
// hold project models.
var DefaultRules = []string{
	".git/",
	"target/",
	"dbt_packages/",
	"dbt_modules/",
	"logs/",
}

type rule struct {
	re       *regexp.Regexp
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher applies gitignore-like rules with "last rule wins" behavior.
type Matcher struct {
	rules []rule
}

// NewMatcher builds a matcher from user-provided exclude rules.
// Default excludes come first and can be overridden by user negation rules.
func NewMatcher(userRules []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(userRules))
	all = append(all, DefaultRules...)
	all = append(all, userRules...)

	m := &Matcher{rules: make([]rule, 0, len(all))}
	for _, line := range all {
		if parsed, ok := parseRule(line); ok {
			m.rules = append(m.rules, parsed)
		}
	}
	return m
}

// Filter splits paths into kept and ignored, preserving order.
func (m *Matcher) Filter(paths []string) (kept, ignored []string) {
	for _, p := range paths {
		if m.ShouldIgnore(p) {
			ignored = append(ignored, p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, ignored
}

// ShouldIgnore reports whether the file at relPath is excluded. A rule that
// matches one of the file's parent directories excludes the file too.
func (m *Matcher) ShouldIgnore(relPath string) bool {
	parts := strings.Split(normalizePath(relPath), "/")
	ignored := false
	for _, r := range m.rules {
		if r.matches(parts) {
			ignored = !r.negated
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	var parsed rule
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = line[1:]
	}
	if strings.HasPrefix(line, "/") {
		parsed.anchored = true
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
	}

	pattern := strings.Trim(normalizePath(line), "/")
	if pattern == "" {
		return rule{}, false
	}
	re, err := regexp.Compile("^" + globToRegex(pattern) + "$")
	if err != nil {
		return rule{}, false
	}
	parsed.re = re
	return parsed, true
}

// matches tries every leading run of path segments: directories only for
// dir rules, the whole path as well otherwise. Unanchored rules may match any
// trailing part of that run.
func (r rule) matches(parts []string) bool {
	last := len(parts)
	if r.dirOnly {
		last--
	}
	for end := 1; end <= last; end++ {
		if r.anchored {
			if r.re.MatchString(strings.Join(parts[:end], "/")) {
				return true
			}
			continue
		}
		for start := end - 1; start >= 0; start-- {
			if r.re.MatchString(strings.Join(parts[start:end], "/")) {
				return true
			}
		}
	}
	return false
}

func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; ch {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	return b.String()
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "/")
}
