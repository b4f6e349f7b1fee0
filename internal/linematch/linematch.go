// Package linematch compiles the pattern language shared by the grep tool
// operation and the filter argument accepted by cluster and fetch: a
// pattern surrounded by forward slashes is a regular expression,
// otherwise it is a plain substring.
package linematch

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher tests a line against a compiled pattern.
type Matcher struct {
	substr string
	re     *regexp.Regexp
}

// Compile builds a Matcher from pattern. An empty pattern matches every
// line. A malformed regex (pattern wrapped in slashes) surfaces as an
// error, to be returned as an {error} tool result rather than a panic.
func Compile(pattern string) (Matcher, error) {
	if pattern == "" {
		return Matcher{}, nil
	}

	if len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		expr := pattern[1 : len(pattern)-1]
		re, err := regexp.Compile(expr)
		if err != nil {
			return Matcher{}, fmt.Errorf("invalid regex: %w", err)
		}
		return Matcher{re: re}, nil
	}

	return Matcher{substr: pattern}, nil
}

// Match reports whether line satisfies the compiled pattern.
func (m Matcher) Match(line string) bool {
	if m.re != nil {
		return m.re.MatchString(line)
	}
	if m.substr != "" {
		return strings.Contains(line, m.substr)
	}
	return true
}
