//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// KillTree terminates pid and its child processes with taskkill /T.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	// Error ignored: the launcher's own Kill runs afterwards.
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run() // #nosec G204 -- pid is numeric
}
