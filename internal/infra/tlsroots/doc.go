// Package tlsroots provides TLS material for imrelay.
//
//   - keypair.go: the relay certificate, reloaded via fsnotify when the
//     key or cert file changes
//   - roots.go: trust pools and client configs for dialing the relay
package tlsroots
