// Package readline - History-Modul
//
// Dieses Modul verwaltet die Eingabe-History mit Persistenz in einer
// Datei im Benutzerverzeichnis.
//
// Hauptkomponenten:
// - History: Puffer mit Navigation und Datei-Persistenz
// - NewHistory: Konstruktor, laedt vorhandene Eintraege

package readline

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emirpasic/gods/v2/lists/arraylist"
)

// History haelt die bisherigen Eingabezeilen. Pos zeigt hinter den
// letzten Eintrag, solange nicht navigiert wird.
type History struct {
	Buf      *arraylist.List[string]
	Autosave bool
	Pos      int
	Limit    int
	Filename string
	Enabled  bool
}

// NewHistory erstellt eine History und laedt vorhandene Eintraege
func NewHistory() (*History, error) {
	h := &History{
		Buf:      arraylist.New[string](),
		Limit:    100,
		Autosave: true,
		Enabled:  true,
	}

	if err := h.Init(); err != nil {
		return nil, err
	}

	return h, nil
}

// Init bestimmt den Dateipfad und laedt die gespeicherten Zeilen
func (h *History) Init() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	path := filepath.Join(home, ".peftllama", "history")
	h.Filename = path

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		h.Buf.Add(line)
	}

	h.Pos = h.Size()
	return nil
}

// Size gibt die Anzahl der Eintraege zurueck
func (h *History) Size() int {
	return h.Buf.Size()
}

// Add haengt eine Zeile an, verwirft Duplikate am Ende und speichert
// bei aktivierter History
func (h *History) Add(s string) {
	if latest, _ := h.Buf.Get(h.Size() - 1); latest != s {
		h.Buf.Add(s)
		h.Compact()

		if h.Autosave && h.Enabled {
			//nolint:errcheck
			h.Save()
		}
	}
	h.Pos = h.Size()
}

// Compact entfernt die aeltesten Eintraege ueber dem Limit
func (h *History) Compact() {
	for h.Buf.Size() > h.Limit {
		h.Buf.Remove(0)
	}
}

// Prev liefert den vorherigen Eintrag
func (h *History) Prev() string {
	if h.Pos > 0 {
		h.Pos -= 1
	}

	line, _ := h.Buf.Get(h.Pos)
	return line
}

// Next liefert den naechsten Eintrag; hinter dem letzten Eintrag
// kommt die leere Zeile
func (h *History) Next() string {
	if h.Pos < h.Buf.Size() {
		h.Pos += 1
	}

	line, _ := h.Buf.Get(h.Pos)
	return line
}

// Save schreibt alle Eintraege in die History-Datei
func (h *History) Save() error {
	if !h.Enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(h.Filename), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(h.Filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < h.Buf.Size(); i++ {
		line, _ := h.Buf.Get(i)
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}

	return w.Flush()
}
