// Package readline - Konstanten-Modul
//
// Dieses Modul definiert die Steuerzeichen, Escape-Sequenzen und
// ANSI-Codes fuer die Terminal-Interaktion.
//
// Hauptkomponenten:
// - Char*: Steuerzeichen im Raw-Mode
// - Key*/Meta*: Codes erweiterter Escape-Sequenzen
// - Cursor*/Clear*/Color*: ANSI-Ausgabesequenzen

package readline

import (
	"errors"
	"fmt"
)

// ErrInterrupt signalisiert einen Abbruch per Ctrl+C
var ErrInterrupt = errors.New("Interrupt")

const (
	CharNull      = 0
	CharLineStart = 1
	CharBackward  = 2
	CharInterrupt = 3
	CharDelete    = 4
	CharLineEnd   = 5
	CharForward   = 6
	CharBell      = 7
	CharCtrlH     = 8
	CharTab       = 9
	CharCtrlJ     = 10
	CharKill      = 11
	CharCtrlL     = 12
	CharEnter     = 13
	CharNext      = 14
	CharPrev      = 16
	CharBckSearch = 18
	CharFwdSearch = 19
	CharTranspose = 20
	CharCtrlU     = 21
	CharCtrlW     = 23
	CharCtrlY     = 25
	CharCtrlZ     = 26
	CharEsc       = 27
	CharSpace     = 32
	CharEscapeEx  = 91
	CharBackspace = 127
)

const (
	KeyDel    = 51
	KeyUp     = 65
	KeyDown   = 66
	KeyRight  = 67
	KeyLeft   = 68
	MetaEnd   = 70
	MetaStart = 72
)

// CharBracketedPaste ist das erste Zeichen nach ESC[ einer
// Bracketed-Paste-Sequenz; die restlichen drei Zeichen unterscheiden
// Start und Ende
const (
	CharBracketedPaste      = 50
	CharBracketedPasteStart = "00~"
	CharBracketedPasteEnd   = "01~"
)

const (
	CursorUp    = "\033[1A"
	CursorDown  = "\033[1B"
	CursorRight = "\033[1C"
	CursorLeft  = "\033[1D"

	CursorBOL  = "\033[1G"
	CursorHide = "\033[?25l"
	CursorShow = "\033[?25h"

	ClearToEOL  = "\033[K"
	ClearLine   = "\033[2K"
	ClearScreen = "\033[2J"
	CursorReset = "\033[0;0f"

	ColorGrey    = "\033[38;5;245m"
	ColorDefault = "\033[0m"

	StartBracketedPaste = "\033[?2004h"
	EndBracketedPaste   = "\033[?2004l"
)

// CursorUpN bewegt den Cursor n Zeilen nach oben
func CursorUpN(n int) string {
	return fmt.Sprintf("\033[%dA", n)
}

// CursorDownN bewegt den Cursor n Zeilen nach unten
func CursorDownN(n int) string {
	return fmt.Sprintf("\033[%dB", n)
}

// CursorRightN bewegt den Cursor n Spalten nach rechts
func CursorRightN(n int) string {
	return fmt.Sprintf("\033[%dC", n)
}

// CursorLeftN bewegt den Cursor n Spalten nach links
func CursorLeftN(n int) string {
	return fmt.Sprintf("\033[%dD", n)
}
