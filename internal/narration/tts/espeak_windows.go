//go:build windows

package tts

import "os/exec"

// stopProcess kills the eSpeak process on Windows
// Note: Windows has no SIGTERM equivalent for console processes
func stopProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
