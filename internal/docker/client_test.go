package docker

import (
	"strings"
	"testing"
)

func TestStderrTail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty stderr",
			input: "",
			want:  "no stderr output",
		},
		{
			name:  "whitespace only",
			input: "  \n\t",
			want:  "no stderr output",
		},
		{
			name:  "short message",
			input: "pg_dumpall: error: connection failed\n",
			want:  "pg_dumpall: error: connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stderrTail([]byte(tt.input)); got != tt.want {
				t.Errorf("stderrTail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStderrTailTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", stderrTailLimit*2)
	got := stderrTail([]byte(long))
	if len(got) != stderrTailLimit {
		t.Errorf("stderrTail() returned %d bytes, want %d", len(got), stderrTailLimit)
	}
}
