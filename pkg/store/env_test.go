package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected map[string]string
	}{
		{
			name:     "simple pairs",
			text:     "A=1\nB=2\n",
			expected: map[string]string{"A": "1", "B": "2"},
		},
		{
			name:     "blank lines and comments ignored",
			text:     "\n# comment\nA=1\n\n# another\nB=2\n",
			expected: map[string]string{"A": "1", "B": "2"},
		},
		{
			name:     "value may contain equals",
			text:     "URL=postgres://u:p@host?sslmode=disable\n",
			expected: map[string]string{"URL": "postgres://u:p@host?sslmode=disable"},
		},
		{
			name:     "empty value",
			text:     "EMPTY=\n",
			expected: map[string]string{"EMPTY": ""},
		},
		{
			name:     "value whitespace preserved",
			text:     "PAD=  spaced out  \n",
			expected: map[string]string{"PAD": "  spaced out  "},
		},
		{
			name:     "line without equals ignored",
			text:     "garbage\nA=1\n",
			expected: map[string]string{"A": "1"},
		},
		{
			name:     "empty input",
			text:     "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseEnv(tt.text))
		})
	}
}

func TestEnvRoundTrip(t *testing.T) {
	env := map[string]string{
		"A":      "1",
		"URL":    "a=b=c",
		"REGION": "eu-west-1",
		"EMPTY":  "",
		"TRAIL":  "value with trailing space ",
		"LEAD":   " value with leading space",
	}

	assert.Equal(t, env, parseEnv(formatEnv(env)))
}

func TestFormatEnvDeterministic(t *testing.T) {
	env := map[string]string{"B": "2", "A": "1", "C": "3"}
	assert.Equal(t, "A=1\nB=2\nC=3\n", formatEnv(env))
}
