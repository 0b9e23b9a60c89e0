//go:build unix

package tts

import (
	"os/exec"
	"syscall"
)

// stopProcess asks the eSpeak process to terminate on Unix systems
func stopProcess(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
