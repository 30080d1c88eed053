package ui

import (
	"github.com/gdamore/tcell/v2"
)

// onMapKeyPress handles the map and view shortcuts of the node list.
func (a *App) onMapKeyPress(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() != tcell.KeyRune {
		return event
	}
	switch event.Rune() {
	case 'f':
		a.TogglePin()
		return nil
	case 'o':
		a.ToggleOrphans()
		return nil
	case 'c':
		a.CycleCategories()
		return nil
	case '+', '=':
		a.ZoomIn()
		return nil
	case '-':
		a.ZoomOut()
		return nil
	case 's':
		a.OpenSaveViewDialog()
		return nil
	case 'n':
		a.NewView()
		return nil
	case 'v':
		a.showViewsDialog()
		return nil
	case 'x':
		a.ExportViews()
		return nil
	}
	return event
}
