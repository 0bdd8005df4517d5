// Package output formats imrelay-cli results as a table, JSON or YAML,
// and draws a spinner on stderr while a command waits on the network.
package output
