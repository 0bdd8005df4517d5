// Package command provides the imrelay-cli commands.
//
// Commands are built with urfave/cli/v2:
//
//   - root.go: application, global flags, CLI config loading
//   - connect.go: interactive relay session
//   - status.go: status, drop and health against a running relay
//   - hash.go: password digests for the server config
//   - config.go: CLI config display and server config checking
//   - version.go: build information
//
// Commands write to App.Writer and read from App.Reader so they can be
// driven in tests.
package command
