// Package picker implements a fullscreen terminal list selector.
// It knows nothing about what the items mean; callers get back the index
// of the chosen item.
package picker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// ErrCancelled is returned when the user backs out without choosing.
var ErrCancelled = errors.New("selection cancelled")

// Pick shows items under a title and blocks until the user selects one
// (Enter) or cancels (Esc, q, Ctrl-C). It returns the selected index.
func Pick(title string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, errors.New("nothing to pick from")
	}
	s, err := tcell.NewScreen()
	if err != nil {
		return 0, fmt.Errorf("screen init: %w", err)
	}
	if err := s.Init(); err != nil {
		return 0, fmt.Errorf("screen init: %w", err)
	}
	s.DisableMouse()
	defer func() {
		s.Fini()
		fmt.Print("\033[?1049l\033[?25h")
	}()

	sel := 0
	for {
		draw(s, title, items, sel)
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEnter:
				return sel, nil
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
				return 0, ErrCancelled
			case ev.Key() == tcell.KeyUp, ev.Key() == tcell.KeyRune && ev.Rune() == 'k':
				if sel > 0 {
					sel--
				}
			case ev.Key() == tcell.KeyDown, ev.Key() == tcell.KeyRune && ev.Rune() == 'j':
				if sel < len(items)-1 {
					sel++
				}
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				return 0, ErrCancelled
			}
		case *tcell.EventResize:
			s.Sync()
		case nil:
			return 0, ErrCancelled
		}
	}
}

func draw(s tcell.Screen, title string, items []string, sel int) {
	s.Clear()
	w, h := s.Size()

	putStr(s, 0, 0, tcell.StyleDefault, strings.Repeat("═", w))
	centerX := (w - len(title)) / 2
	if centerX < 0 {
		centerX = 0
	}
	putStr(s, centerX, 0, tcell.StyleDefault.Bold(true), " "+title+" ")

	for i, item := range items {
		y := i + 2
		if y >= h-2 {
			break
		}
		style := tcell.StyleDefault
		prefix := "   "
		if i == sel {
			style = style.Reverse(true)
			prefix = " > "
		}
		putStr(s, 0, y, style, prefix+item)
	}

	putStr(s, 0, h-1, tcell.StyleDefault.Dim(true),
		"↑/↓ move   Enter select   Esc cancel")
	s.Show()
}

func putStr(s tcell.Screen, x, y int, style tcell.Style, str string) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		pos := x + i
		if pos >= w {
			break
		}
		s.SetContent(pos, y, r, nil, style)
	}
}
