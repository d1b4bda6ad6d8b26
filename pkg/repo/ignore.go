package repo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const ignoreFileName = ".hpnignore"

// Matcher decides whether a work tree path is excluded from snapshots.
// Paths are slash-separated and relative to the work tree root.
type Matcher interface {
	IsIgnored(relPath string, isDir bool) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(relPath string, isDir bool) bool

func (f MatcherFunc) IsIgnored(relPath string, isDir bool) bool {
	return f(relPath, isDir)
}

// IgnoreMatcher evaluates .hpnignore-style patterns. The last matching
// pattern wins, so a later "!pattern" can re-include a path.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	hasSlash bool // pattern contains a slash, so match against full path
	regex    *regexp.Regexp
}

// NewIgnoreMatcher compiles the given patterns. Blank lines and "#"
// comments are skipped.
func NewIgnoreMatcher(patterns ...string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range patterns {
		if p := parseLine(line); p != nil {
			m.patterns = append(m.patterns, *p)
		}
	}
	return m
}

// LoadIgnoreFile reads <root>/.hpnignore. A missing file yields no patterns.
func LoadIgnoreFile(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, ignoreFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", ignoreFileName, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", ignoreFileName, err)
	}
	return lines, nil
}

// parseLine parses a single ignore line. Returns nil if the line is empty or
// a comment.
func parseLine(line string) *ignorePattern {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	// A leading slash anchors the pattern at the root.
	if strings.HasPrefix(line, "/") {
		line = strings.TrimLeft(line, "/")
		p.hasSlash = true
	}
	if line == "" {
		return nil
	}
	p.hasSlash = p.hasSlash || strings.Contains(line, "/")
	p.pattern = line
	if strings.Contains(line, "**") {
		if re, err := regexp.Compile(globToRegex(line)); err == nil {
			p.regex = re
		}
	}
	return p
}

// IsIgnored reports whether relPath is excluded. A path is also excluded
// when any of its parent directories is.
func (m *IgnoreMatcher) IsIgnored(relPath string, isDir bool) bool {
	relPath = strings.Trim(path.Clean(filepath.ToSlash(relPath)), "/")
	if relPath == "." || relPath == "" {
		return false
	}
	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' && m.match(relPath[:i], true) {
			return true
		}
	}
	return m.match(relPath, isDir)
}

func (m *IgnoreMatcher) match(relPath string, isDir bool) bool {
	ignored := false
	for i := range m.patterns {
		p := &m.patterns[i]
		if p.dirOnly && !isDir {
			continue
		}
		if p.matches(relPath) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (p *ignorePattern) matches(relPath string) bool {
	if p.hasSlash {
		return p.match(relPath)
	}
	return p.match(path.Base(relPath))
}

func (p *ignorePattern) match(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}
	matched, _ := path.Match(p.pattern, target)
	return matched
}

func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		if ch == '*' {
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// Globstar directory segment: match zero or more path segments.
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
				continue
			}
			b.WriteString("[^/]*")
			continue
		}
		if ch == '?' {
			b.WriteString("[^/]")
			continue
		}
		if strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)) {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	b.WriteString("$")
	return b.String()
}
