package cache

import "strings"

// compilePattern turns a key pattern into a matcher.
// '*' matches any substring, possibly empty; every other rune is literal and the whole key must match.
func compilePattern(pattern string) func(key string) bool {
	if !strings.Contains(pattern, "*") {
		return func(key string) bool { return key == pattern }
	}

	parts := strings.Split(pattern, "*")
	first, last := parts[0], parts[len(parts)-1]
	middle := parts[1 : len(parts)-1]

	literal := 0
	for _, p := range parts {
		literal += len(p)
	}

	return func(key string) bool {
		// a shorter key would need the prefix and the suffix to overlap
		if len(key) < literal || !strings.HasPrefix(key, first) || !strings.HasSuffix(key, last) {
			return false
		}
		rest := key[len(first) : len(key)-len(last)]
		for _, m := range middle {
			i := strings.Index(rest, m)
			if i < 0 {
				return false
			}
			rest = rest[i+len(m):]
		}
		return true
	}
}
