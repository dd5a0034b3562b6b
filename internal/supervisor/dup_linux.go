package supervisor

import "golang.org/x/sys/unix"

// dupFD makes newfd a copy of oldfd. Some linux ports have no dup2.
func dupFD(oldfd, newfd int) error {
	return unix.Dup3(oldfd, newfd, 0)
}
