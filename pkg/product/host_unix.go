//go:build unix
// +build unix

package product

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// hostMachine is the hardware name reported by uname, eg: x86_64.
func hostMachine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOARCH
	}
	return unix.ByteSliceToString(u.Machine[:])
}

// hostSystem is the kernel name reported by uname, eg: Linux.
func hostSystem() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOOS
	}
	return unix.ByteSliceToString(u.Sysname[:])
}
