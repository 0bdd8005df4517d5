// Package config defines the imrelay-cli configuration file.
//
// The file lives at ~/.imrelay/cli.yaml and holds connection defaults so
// that commands can be run without repeating flags:
//
//	relay:
//	  addr: relay.example.com:2727
//	  username: alice
//	  ca_file: /etc/imrelay/ca.pem
//	admin_socket: /run/imrelay/admin.sock
//	metrics_url: http://127.0.0.1:9127
//	output: table
//
// Passwords are never stored.
package config
