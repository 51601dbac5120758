package source

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultPattern matches the dump file name at any depth.
const DefaultPattern = "recipes*.json"

// fileMatcher matches repository paths case-insensitively against a glob,
// reusing gitignore pattern semantics so "**/" spans any directory depth.
type fileMatcher struct {
	pattern gitignore.Pattern
}

func newFileMatcher(glob string) fileMatcher {
	glob = strings.ToLower(strings.Trim(strings.TrimSpace(glob), "/"))
	if glob == "" {
		glob = DefaultPattern
	}
	return fileMatcher{pattern: gitignore.ParsePattern("**/"+glob, nil)}
}

// Match reports whether p (a slash separated path or bare file name) matches.
func (m fileMatcher) Match(p string) bool {
	p = strings.ToLower(strings.Trim(p, "/"))
	if p == "" {
		return false
	}
	return m.pattern.Match(strings.Split(p, "/"), false) == gitignore.Exclude
}

// underDir reports whether p lies somewhere below a directory named dir.
func underDir(p, dir string) bool {
	dir = strings.ToLower(strings.Trim(dir, "/"))
	if dir == "" {
		return false
	}
	p = strings.ToLower(p)
	return strings.HasPrefix(p, dir+"/") || strings.Contains(p, "/"+dir+"/")
}
