//go:build windows
// +build windows

package product

import (
	"os"
	"runtime"
)

// hostMachine follows the Windows convention of reporting x86 or
// AMD64.
func hostMachine() string {
	if arch := os.Getenv("PROCESSOR_ARCHITECTURE"); arch != "" {
		return arch
	}

	switch runtime.GOARCH {
	case "386":
		return "x86"
	case "amd64":
		return "AMD64"
	}
	return runtime.GOARCH
}

func hostSystem() string {
	return "Windows"
}
