// Package ignore decides which workspace files are excluded from
// deployment using gitignore-style rules.
package ignore

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreFile is the name of the per-workspace ignore file
const DefaultIgnoreFile = ".deployignore"

// VCSMetadataDir is always excluded regardless of rules
const VCSMetadataDir = ".git"

// RuleSet is a compiled, immutable set of ignore rules for one deployment
// invocation. Matching is case-insensitive.
type RuleSet struct {
	matcher *gitignore.GitIgnore
}

// Build compiles a rule set from base rules plus the content of the
// workspace ignore file. The VCS metadata directory and the ignore file
// itself are always excluded. Rules follow standard gitignore semantics:
// later rules override earlier ones, a leading "!" re-includes.
func Build(baseRules []string, ignoreFileName, ignoreFileContent string) *RuleSet {
	if ignoreFileName == "" {
		ignoreFileName = DefaultIgnoreFile
	}

	lines := make([]string, 0, len(baseRules)+8)
	lines = append(lines, VCSMetadataDir+"/")
	lines = append(lines, ignoreFileName)
	for _, rule := range baseRules {
		lines = append(lines, strings.ToLower(rule))
	}
	for _, rule := range strings.Split(ignoreFileContent, "\n") {
		rule = strings.TrimRight(rule, "\r")
		if rule == "" {
			continue
		}
		lines = append(lines, strings.ToLower(rule))
	}

	return &RuleSet{matcher: gitignore.CompileIgnoreLines(lines...)}
}

// IsIgnored reports whether the relative path is excluded from deployment
func (r *RuleSet) IsIgnored(relativePath string) bool {
	if relativePath == "" || relativePath == "." {
		return false
	}
	normalized := strings.ToLower(filepath.ToSlash(relativePath))
	return r.matcher.MatchesPath(normalized)
}
