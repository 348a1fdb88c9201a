package aggregate

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Filter reports whether a numeric column takes part in a table.
type Filter func(name string) bool

func HasSuffix(suffix string) Filter {
	return func(name string) bool { return strings.HasSuffix(name, suffix) }
}

// MatchGlob matches column names against a shell pattern such as "*Jobs".
// A malformed pattern matches nothing.
func MatchGlob(pattern string) Filter {
	return func(name string) bool {
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
}

func MatchRegexp(expr string) (Filter, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("column pattern %q: %w", expr, err)
	}
	return re.MatchString, nil
}

// OneOf keeps exactly the listed columns.
func OneOf(names ...string) Filter {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}
