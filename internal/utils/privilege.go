package utils

import (
	"os"
	"runtime"
)

// RunningAsRoot reports whether the process has uid 0. Always false on
// Windows, where the euid concept does not apply.
func RunningAsRoot() bool {
	if runtime.GOOS == "windows" {
		return false
	}
	return os.Geteuid() == 0
}
