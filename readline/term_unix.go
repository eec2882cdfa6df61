//go:build !windows

// Package readline - Ctrl+Z-Behandlung auf Unix-Systemen

package readline

import (
	"syscall"
)

// handleCharCtrlZ legt den Prozess per SIGSTOP schlafen. Vorher wird
// der Cooked-Mode wiederhergestellt, damit die Shell ein brauchbares
// Terminal vorfindet.
func handleCharCtrlZ(fd uintptr, termios any) (string, error) {
	if err := UnsetRawMode(fd, termios); err != nil {
		return "", err
	}

	//nolint:errcheck
	syscall.Kill(0, syscall.SIGSTOP)

	// Ab hier laeuft der Prozess weiter; der Aufrufer startet den
	// Raw-Mode beim naechsten Readline neu
	return "", nil
}
