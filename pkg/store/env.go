package store

import (
	"fmt"
	"sort"
	"strings"
)

// parseEnv decodes line-oriented key=value text. Blank lines and lines
// starting with '#' are ignored; the value is everything after the
// first '=', verbatim, so values may contain '=' and keep their
// whitespace.
func parseEnv(text string) map[string]string {
	env := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// formatEnv encodes an environment map as key=value lines, sorted by
// key so rewrites are deterministic.
func formatEnv(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, env[k])
	}
	return b.String()
}
