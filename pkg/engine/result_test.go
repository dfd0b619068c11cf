package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitResult(t *testing.T) {
	begin := "----pyre:result:begin:abc----"
	end := "----pyre:result:end:abc----"

	tests := []struct {
		name   string
		stdout string
		value  json.RawMessage
		output string
	}{
		{
			name:   "value only",
			stdout: begin + "\n{\"ok\":true}\n" + end + "\n",
			value:  json.RawMessage(`{"ok":true}`),
			output: "",
		},
		{
			name:   "logs interleaved around the result",
			stdout: "starting up\n" + begin + "\n42\n" + end + "\nshutting down\n",
			value:  json.RawMessage("42"),
			output: "starting up\nshutting down",
		},
		{
			name:   "no sentinels yields nil value",
			stdout: "just some logging\n",
			value:  nil,
			output: "just some logging",
		},
		{
			name:   "begin without end yields nil value",
			stdout: "log line\n" + begin + "\n{\"partial\":1}\n",
			value:  nil,
			output: "log line",
		},
		{
			name:   "invalid json inside region discarded",
			stdout: begin + "\nnot json\n" + end + "\n",
			value:  nil,
			output: "",
		},
		{
			name:   "null result preserved",
			stdout: begin + "\nnull\n" + end + "\n",
			value:  json.RawMessage("null"),
			output: "",
		},
		{
			name:   "empty stream",
			stdout: "",
			value:  nil,
			output: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, output := splitResult(tt.stdout, begin, end)
			assert.Equal(t, tt.value, value)
			assert.Equal(t, tt.output, output)
		})
	}
}
