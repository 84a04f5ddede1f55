package parse

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain number", "总186", "总186"},
		{"emoji stripped", "💰总186🎉", "总186"},
		{"latin letters stripped", "abc总186def", "总186"},
		{"multiplication glyph", "总60×2", "总60*2"},
		{"whitespace collapsed", "总  60\t*\n2", "总 60 * 2"},
		{"trimmed", "  总186  ", "总186"},
		{"punctuation kept", "总186，谢谢！", "总186，谢谢！"},
		{"operators kept", "总(60+2)*3=186", "总(60+2)*3=186"},
		{"mixed noise", "🚀 总 2+3*4 👍", "总 2+3*4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
