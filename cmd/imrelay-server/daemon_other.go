//go:build !unix

package main

import "errors"

func isDaemonChild() bool {
	return false
}

func daemonize() (int, error) {
	return 0, errors.New("background mode is not supported on this platform, use --nofork")
}
