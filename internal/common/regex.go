package common

import (
	"fmt"
	"regexp"
	"strings"
)

// CompilePrefixPattern compiles pattern as a case-insensitive match
// anchored at the start of the input. A leading "^" is added when missing.
func CompilePrefixPattern(pattern string) (*regexp.Regexp, error) {
	expr := pattern
	if !strings.HasPrefix(expr, "^") {
		expr = "^" + expr
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
