package cert

import (
	"sort"
	"strings"
)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitOutsideQuotes splits s on sep, ignoring separators inside double quotes
func splitOutsideQuotes(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == sep && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	return append(parts, cur.String())
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return strings.Replace(v, `\,`, ",", -1)
}

// parseName parses a distinguished name in either of the OpenSSL one-line forms,
// "C = US, O = Let's Encrypt, CN = R3" or "/C=US/O=Let's Encrypt/CN=R3".
// Segments without '=' are skipped, and the first value for a key wins.
func parseName(s string, into *Name) {
	s = strings.TrimSpace(s)
	sep := ','
	if strings.HasPrefix(s, "/") {
		sep = '/'
	}
	for _, part := range splitOutsideQuotes(s, sep) {
		i := strings.Index(part, "=")
		if i < 0 {
			continue
		}
		into.set(strings.TrimSpace(part[:i]), unquote(part[i+1:]))
	}
}
