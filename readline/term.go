// Package readline - Raw-Mode-Modul
//
// Dieses Modul schaltet das Terminal zwischen Cooked- und Raw-Mode um.
// Der gespeicherte Zustand wandert als opaker Wert durch die Instance.

package readline

import (
	"golang.org/x/term"
)

// SetRawMode versetzt das Terminal in den Raw-Mode und gibt den
// vorherigen Zustand zurueck
func SetRawMode(fd uintptr) (any, error) {
	return term.MakeRaw(int(fd))
}

// UnsetRawMode stellt den gespeicherten Terminal-Zustand wieder her
func UnsetRawMode(fd uintptr, termios any) error {
	state, ok := termios.(*term.State)
	if !ok {
		return nil
	}

	return term.Restore(int(fd), state)
}
