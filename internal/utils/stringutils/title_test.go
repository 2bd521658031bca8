package stringutils

import (
	"strings"
	"testing"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short text returned unmodified",
			content: "short text",
			want:    "short text",
		},
		{
			name:    "four words kept",
			content: "one two three four",
			want:    "one two three four",
		},
		{
			name:    "fifth word dropped",
			content: "a b c d e",
			want:    "a b c d",
		},
		{
			name:    "long content cut at 25 chars",
			content: "abcdefghijklmnopqrstuvwxyz",
			want:    "abcdefghijklmnopqrstuvwxy...",
		},
		{
			name:    "long content wins over word limit",
			content: "supercalifragilisticexpialidocious indeed",
			want:    "supercalifragilisticexpia...",
		},
		{
			name:    "empty content",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateTitle(tt.content); got != tt.want {
				t.Errorf("GenerateTitle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestGenerateTitle_Boundary(t *testing.T) {
	content := strings.Repeat("x", 26)
	got := GenerateTitle(content)
	want := strings.Repeat("x", 25) + "..."
	if got != want {
		t.Errorf("GenerateTitle(26 chars) = %q, want %q", got, want)
	}

	content = strings.Repeat("x", 25)
	if got := GenerateTitle(content); got != content {
		t.Errorf("GenerateTitle(25 chars) = %q, want unmodified input", got)
	}
}

func TestTruncatePreview(t *testing.T) {
	short := "start a new conversation"
	if got := TruncatePreview(short); got != short {
		t.Errorf("TruncatePreview(%q) = %q, want unmodified input", short, got)
	}

	long := strings.Repeat("a", 51)
	got := TruncatePreview(long)
	want := strings.Repeat("a", 50) + "..."
	if got != want {
		t.Errorf("TruncatePreview(51 chars) = %q, want %q", got, want)
	}

	exact := strings.Repeat("b", 50)
	if got := TruncatePreview(exact); got != exact {
		t.Errorf("TruncatePreview(50 chars) = %q, want unmodified input", got)
	}
}
