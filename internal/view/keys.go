package view

import "unicode/utf8"

// Key is one input event, named the way terminal libraries name key
// presses: "up", "enter", "ctrl+c", or the typed character itself.
type Key string

// Named keys.
const (
	KeyUp        Key = "up"
	KeyDown      Key = "down"
	KeyLeft      Key = "left"
	KeyRight     Key = "right"
	KeyEnter     Key = "enter"
	KeyEsc       Key = "esc"
	KeyTab       Key = "tab"
	KeyBackspace Key = "backspace"
	KeyHome      Key = "home"
	KeyEnd       Key = "end"
	KeyPgUp      Key = "pgup"
	KeyPgDown    Key = "pgdown"
	KeySpace     Key = " "
	KeyCtrlC     Key = "ctrl+c"
	KeyCtrlS     Key = "ctrl+s"
)

// Rune reports whether k is a single printable character and returns it.
func (k Key) Rune() (rune, bool) {
	s := string(k)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError || r < ' ' || r == 0x7f {
		return 0, false
	}
	return r, true
}
