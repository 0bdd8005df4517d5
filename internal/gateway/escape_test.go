package gateway

import "testing"

func TestEscapeLine(t *testing.T) {
	tests := []struct {
		payload string
		wire    string
	}{
		{"PING", "PING"},
		{"a\nb", `a\nb`},
		{"a\n\nb", `a\n\nb`},
		{"crlf\r\nend", `crlf\r\nend`},
		{`C:\temp`, `C:\\temp`},
		{"trailing\n", `trailing\n`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := escapeLine(tt.payload); got != tt.wire {
			t.Errorf("escapeLine(%q) = %q, want %q", tt.payload, got, tt.wire)
		}
		if got := unescapeLine(tt.wire); got != tt.payload {
			t.Errorf("unescapeLine(%q) = %q, want %q", tt.wire, got, tt.payload)
		}
	}
}

func TestUnescapeLine_Lenient(t *testing.T) {
	tests := map[string]string{
		`a\tb`:   `a\tb`,
		`end\`:   `end\`,
		`\\n`:    `\n`,
		`x\\\ny`: "x\\\ny",
		`no-esc`: "no-esc",
	}

	for wire, want := range tests {
		if got := unescapeLine(wire); got != want {
			t.Errorf("unescapeLine(%q) = %q, want %q", wire, got, want)
		}
	}
}
