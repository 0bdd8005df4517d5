package gateway

import "strings"

// Payloads may span several lines. On the wire every line is one payload:
// a newline inside it travels as `\n`, a carriage return as `\r` and a
// backslash as `\\`.
var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

// escapeLine encodes payload as a single wire line.
func escapeLine(payload string) string {
	return escaper.Replace(payload)
}

// unescapeLine decodes a wire line back into its payload. Unknown escapes
// and a trailing lone backslash are kept verbatim.
func unescapeLine(line string) string {
	if !strings.Contains(line, `\`) {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch != '\\' || i+1 == len(line) {
			b.WriteByte(ch)
			continue
		}
		switch line[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(ch)
			continue
		}
		i++
	}
	return b.String()
}
