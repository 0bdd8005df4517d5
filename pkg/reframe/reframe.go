package reframe

import "strings"

// HeaderTokens is the number of space-delimited tokens that form a frame
// header (type tag, identifier, field name).
const HeaderTokens = 3

// Lines converts one notification payload into protocol lines.
//
// A payload without a line break is returned unchanged as a single line.
// Otherwise the header is the first HeaderTokens space-delimited tokens of the
// payload and every line of the remaining text is emitted as header + " " + line.
// Header tokens are taken from the first line only, so a payload with k line
// breaks always yields k+1 lines and no returned line contains a line break.
// A first line with fewer than HeaderTokens tokens becomes a shorter header as-is.
func Lines(notification string) []string {
	if !strings.Contains(notification, "\n") {
		return []string{notification}
	}

	header, body := Split(notification)
	parts := strings.Split(body, "\n")
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = header + " " + part
	}
	return out
}

// Split returns the frame header of a payload and the text following it.
// The single space separating header and body is not part of either.
func Split(notification string) (header, body string) {
	first, _, _ := strings.Cut(notification, "\n")

	tokens := strings.SplitN(first, " ", HeaderTokens+1)
	if len(tokens) <= HeaderTokens {
		// Degenerate: the whole first line is the header.
		return first, notification[len(first):]
	}

	header = strings.Join(tokens[:HeaderTokens], " ")
	return header, notification[len(header)+1:]
}
