// Package reframe splits multiline notifications into self-contained lines.
//
// The messaging endpoint prefixes only the first line of a multiline
// notification with its header, for example:
//
//	CHATMESSAGE 42 BODY first line
//	second line
//
// A line-oriented client cannot attribute "second line" to anything. Lines
// re-applies the header to every line so each one parses on its own:
//
//	CHATMESSAGE 42 BODY first line
//	CHATMESSAGE 42 BODY second line
//
// The package is pure: no I/O, no shared state.
package reframe
