// Package repl runs the interactive side of imrelay-cli connect.
//
// Lines typed by the user are sent to the relay as commands; lines the
// relay sends back are printed as they arrive. exit, quit or end of input
// leave the session. Sent commands are kept in ~/.imrelay/history.
package repl
