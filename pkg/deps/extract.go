// Package deps extracts third-party package references from function
// source text and provisions isolated per-function dependency
// directories.
package deps

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Node's standard library. Imports of these never become dependencies.
var builtinModules = map[string]struct{}{
	"assert": {}, "async_hooks": {}, "buffer": {}, "child_process": {},
	"cluster": {}, "console": {}, "constants": {}, "crypto": {}, "dgram": {},
	"dns": {}, "domain": {}, "events": {}, "fs": {}, "http": {}, "http2": {},
	"https": {}, "inspector": {}, "module": {}, "net": {}, "os": {},
	"path": {}, "perf_hooks": {}, "process": {}, "punycode": {},
	"querystring": {}, "readline": {}, "repl": {}, "stream": {},
	"string_decoder": {}, "timers": {}, "tls": {}, "trace_events": {},
	"tty": {}, "url": {}, "util": {}, "v8": {}, "vm": {},
	"worker_threads": {}, "zlib": {},
}

var (
	// An explicit manifest in a documentation comment, e.g.
	//   /** @dependencies {"left-pad": "1.3.0"} */
	manifestRe = regexp.MustCompile(`@dependencies\s+(\{[^}]*\})`)

	requireRe       = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	dynamicImportRe = regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`)
	staticImportRe  = regexp.MustCompile(`(?m)^\s*import\s+(?:[^'"]+?\s+from\s+)?['"]([^'"]+)['"]`)
)

// Extract returns the dependency manifest for a source file. An
// explicit @dependencies manifest comment is authoritative and wins
// outright; otherwise import/require call sites are scanned and each
// entry is pinned to "latest". Relative specifiers and Node built-ins
// never appear in the result.
func Extract(source string) map[string]string {
	if m := manifestRe.FindStringSubmatch(source); m != nil {
		var manifest map[string]string
		if err := json.Unmarshal([]byte(m[1]), &manifest); err == nil {
			return manifest
		}
	}

	deps := make(map[string]string)
	for _, re := range []*regexp.Regexp{requireRe, dynamicImportRe, staticImportRe} {
		for _, match := range re.FindAllStringSubmatch(source, -1) {
			if name, ok := packageName(match[1]); ok {
				deps[name] = "latest"
			}
		}
	}
	return deps
}

// packageName reduces a module specifier to an installable package
// name. Relative and absolute paths, and standard-library modules
// (including the node: prefix), are excluded.
func packageName(specifier string) (string, bool) {
	if specifier == "" || strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return "", false
	}
	if strings.HasPrefix(specifier, "node:") {
		return "", false
	}

	parts := strings.Split(specifier, "/")
	var name string
	if strings.HasPrefix(specifier, "@") {
		// Scoped packages keep two path segments.
		if len(parts) < 2 {
			return "", false
		}
		name = parts[0] + "/" + parts[1]
	} else {
		name = parts[0]
	}

	if _, builtin := builtinModules[name]; builtin {
		return "", false
	}
	return name, true
}
