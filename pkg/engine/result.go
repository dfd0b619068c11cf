package engine

import (
	"encoding/json"
	"strings"
)

// splitResult separates the sentinel-delimited result region from the
// interleaved user log lines in the child's stdout. The region holds
// one compact-JSON line; everything outside it is returned as output.
// When the sentinels never appeared (user exit before returning, or a
// crash) the value is nil and the whole stream is output.
func splitResult(stdout, begin, end string) (json.RawMessage, string) {
	var (
		output   []string
		value    []string
		inResult bool
		found    bool
	)

	for _, line := range strings.Split(stdout, "\n") {
		switch {
		case strings.TrimSpace(line) == begin:
			inResult = true
		case strings.TrimSpace(line) == end:
			inResult = false
			found = true
		case inResult:
			value = append(value, line)
		default:
			output = append(output, line)
		}
	}

	out := strings.TrimRight(strings.Join(output, "\n"), "\n")
	if !found {
		return nil, out
	}

	raw := strings.TrimSpace(strings.Join(value, "\n"))
	if raw == "" || !json.Valid([]byte(raw)) {
		return nil, out
	}
	return json.RawMessage(raw), out
}
