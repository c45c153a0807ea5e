//go:build !unix && !windows
// +build !unix,!windows

package product

import "runtime"

func hostMachine() string {
	return runtime.GOARCH
}

func hostSystem() string {
	return runtime.GOOS
}
