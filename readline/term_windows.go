//go:build windows

// Package readline - Ctrl+Z-Behandlung unter Windows

package readline

// handleCharCtrlZ ist unter Windows ein No-Op, dort gibt es kein
// SIGSTOP
func handleCharCtrlZ(fd uintptr, termios any) (string, error) {
	return "", nil
}
