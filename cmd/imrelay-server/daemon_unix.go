//go:build unix

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// envDaemonChild marks the re-executed background process.
const envDaemonChild = "IMRELAY_DAEMON_CHILD"

func isDaemonChild() bool {
	return os.Getenv(envDaemonChild) == "1"
}

// daemonize starts this binary again in a new session with its standard
// streams on /dev/null and returns the child's pid.
func daemonize() (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), envDaemonChild+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return 0, err
	}
	return pid, nil
}
