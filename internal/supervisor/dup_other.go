//go:build !linux

package supervisor

import "golang.org/x/sys/unix"

// dupFD makes newfd a copy of oldfd.
func dupFD(oldfd, newfd int) error {
	return unix.Dup2(oldfd, newfd)
}
