package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/plumber-cd/ez-netmap/internal/domain"
)

const viewsPageName = "*views*"

func (a *App) setupLayout() {
	a.TviewApp = tview.NewApplication()
	a.Pages = tview.NewPages()
	rootFlex := tview.NewFlex().SetDirection(tview.FlexRow)

	a.PositionLine = tview.NewTextView()
	a.PositionLine.SetBorder(true)
	a.PositionLine.SetTitle("Route")
	a.PositionLine.SetText(newViewRoute)
	rootFlex.AddItem(a.PositionLine, 3, 1, false)

	middleFlex := tview.NewFlex().SetDirection(tview.FlexColumn)
	rootFlex.AddItem(middleFlex, 0, 2, false)

	a.NavPanel = tview.NewList()
	a.NavPanel.ShowSecondaryText(false)
	a.NavPanel.SetBorder(true).SetTitle("Nodes")
	middleFlex.AddItem(a.NavPanel, 0, 1, false)

	a.DetailsFlex = tview.NewFlex().SetDirection(tview.FlexRow)
	middleFlex.AddItem(a.DetailsFlex, 0, 2, false)

	a.DetailsPanel = tview.NewTextView()
	a.DetailsPanel.SetBorder(true).SetTitle("Details")
	a.DetailsFlex.AddItem(a.DetailsPanel, 0, 1, false)

	a.KeysLine = tview.NewTextView()
	a.KeysLine.SetBorder(false)
	a.UpdateKeysLine()
	rootFlex.AddItem(a.KeysLine, 1, 1, false)

	a.StatusLine = tview.NewTextView()
	a.StatusLine.SetBorder(true)
	a.StatusLine.SetTitle("Status")
	a.StatusLine.SetWrap(true)
	a.StatusLine.SetWordWrap(true)
	a.StatusLine.SetChangedFunc(func() {
		a.resizeStatusLine()
	})
	a.DetailsFlex.AddItem(a.StatusLine, 3, 0, false)

	a.Pages.AddPage(mainPageName, rootFlex, true, true)

	// Redirect focus from non-interactive panels to nav panel.
	a.PositionLine.SetFocusFunc(func() { a.TviewApp.SetFocus(a.NavPanel) })
	a.DetailsPanel.SetFocusFunc(func() { a.TviewApp.SetFocus(a.NavPanel) })
	a.StatusLine.SetFocusFunc(func() { a.TviewApp.SetFocus(a.NavPanel) })
	a.KeysLine.SetFocusFunc(func() { a.TviewApp.SetFocus(a.NavPanel) })

	// Mouse capture: single click only highlights, double click pins.
	a.NavPanel.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		switch action {
		case tview.MouseLeftClick:
			a.mouseSelectArmed = false
		case tview.MouseLeftDoubleClick:
			a.mouseSelectArmed = true
			return tview.MouseLeftClick, event
		}
		return action, event
	})

	a.NavPanel.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		a.onNodeChanged(index)
		a.UpdateKeysLine()
	})

	// Enter / double-click pins the node.
	a.NavPanel.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if !a.mouseSelectArmed {
			a.mouseSelectArmed = true
			return
		}
		a.TogglePin()
	})

	a.NavPanel.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlU:
			return tcell.NewEventKey(tcell.KeyPgUp, 0, tcell.ModNone)
		case tcell.KeyCtrlD:
			return tcell.NewEventKey(tcell.KeyPgDn, 0, tcell.ModNone)
		case tcell.KeyRune:
			switch event.Rune() {
			case 'j':
				return tcell.NewEventKey(tcell.KeyDown, tcell.RuneDArrow, tcell.ModNone)
			case 'k':
				return tcell.NewEventKey(tcell.KeyUp, tcell.RuneUArrow, tcell.ModNone)
			case 'q':
				a.Pages.ShowPage(quitPageName)
				a.quitDialog.SetFocus(1)
				a.TviewApp.SetFocus(a.quitDialog)
				return nil
			case '?':
				a.showHelpPopup()
				return nil
			}
		}
		return a.onMapKeyPress(event)
	})

	// Quit dialog.
	{
		a.quitDialog = tview.NewModal().SetText("Do you want to quit? Unsaved view changes will be lost.").
			AddButtons([]string{"Quit", "Cancel"}).
			SetDoneFunc(func(buttonIndex int, buttonLabel string) {
				switch buttonLabel {
				case "Quit":
					a.TviewApp.Stop()
				case "Cancel":
					fallthrough
				default:
					a.Pages.SwitchToPage(mainPageName)
					a.TviewApp.SetFocus(a.NavPanel)
				}
			})
		a.Pages.AddPage(quitPageName, a.quitDialog, true, false)
	}

	// Root setup.
	a.TviewApp.SetRoot(a.Pages, true)
	a.TviewApp.EnableMouse(true)
	a.TviewApp.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		a.resizeStatusLine()
		a.UpdateKeysLine()
		return false
	})
	a.TviewApp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Test sentinel: if a sentinel channel is set and the sentinel key is received,
		// signal completion and consume the event.
		if a.SentinelCh != nil && event.Key() == tcell.KeyF63 {
			ch := a.SentinelCh
			a.SentinelCh = nil
			close(ch)
			return nil
		}
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Pages.ShowPage(quitPageName)
			a.quitDialog.SetFocus(1)
			a.TviewApp.SetFocus(a.quitDialog)
			return nil
		case tcell.KeyCtrlR:
			a.ReloadGraph()
			return nil
		case tcell.KeyCtrlQ:
			a.TviewApp.Stop()
			return nil
		}
		return event
	})
	a.Pages.SwitchToPage(mainPageName)
	a.TviewApp.SetFocus(a.NavPanel)
}

// mouseBlocker returns a box that absorbs mouse events (prevents clicking through dialog overlays).
func mouseBlocker() *tview.Box {
	box := tview.NewBox()
	box.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		return action, nil
	})
	return box
}

// createDialogPage wraps a form or content primitive in a centered dialog overlay.
func (a *App) createDialogPage(content tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(mouseBlocker(), 0, 1, false).
		AddItem(
			tview.NewFlex().SetDirection(tview.FlexRow).
				AddItem(mouseBlocker(), 0, 1, false).
				AddItem(content, height, 1, false).
				AddItem(mouseBlocker(), 0, 1, false),
			width, 1, false).
		AddItem(mouseBlocker(), 0, 1, false)
}

// submitPrimaryFormButton programmatically activates the first button in a form.
func submitPrimaryFormButton(form *tview.Form, setFocus func(p tview.Primitive)) {
	if form.GetButtonCount() == 0 {
		return
	}
	handler := form.GetButton(0).InputHandler()
	if handler == nil {
		return
	}
	handler(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), setFocus)
}

// WireDialogForm sets up standard keyboard handling for a dialog form.
func (a *App) WireDialogForm(form *tview.Form, onCancel func()) {
	form.SetCancelFunc(onCancel)
	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		formItemIndex, buttonIndex := form.GetFocusedItemIndex()
		var focusedFormItem tview.FormItem
		if formItemIndex >= 0 {
			focusedFormItem = form.GetFormItem(formItemIndex)
			if _, ok := focusedFormItem.(*tview.DropDown); ok {
				return event
			}
		}

		switch event.Key() {
		case tcell.KeyEscape:
			onCancel()
			return nil
		case tcell.KeyCtrlE:
			textArea, ok := focusedFormItem.(*hintedTextArea)
			if !ok {
				return event
			}
			updatedText, err := a.openInExternalEditor(textArea.GetText())
			if err != nil {
				a.setStatus("Failed to open external editor: " + err.Error())
				return nil
			}
			textArea.SetText(updatedText, true)
			return nil
		case tcell.KeyEnter:
			if buttonIndex >= 0 {
				return event
			}
			if formItemIndex >= 0 {
				if _, ok := focusedFormItem.(*hintedTextArea); ok {
					return event
				}
				if _, ok := focusedFormItem.(*tview.Checkbox); ok {
					// Toggle checkbox on Enter.
					return tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)
				}
			}
			submitPrimaryFormButton(form, func(p tview.Primitive) {
				a.TviewApp.SetFocus(p)
			})
			return nil
		}
		return event
	})
}

// ShowDialog puts form on top as a centered dialog page and focuses it. A page of the
// same name is replaced.
func (a *App) ShowDialog(pageName string, form *tview.Form) {
	focusIndex, buttonIndex := form.GetFocusedItemIndex()
	a.Pages.RemovePage(pageName)
	a.Pages.AddPage(pageName, a.createDialogPage(form, computeFormDialogWidth(form), computeFormDialogHeight(form)), true, true)
	switch {
	case focusIndex >= 0:
		form.SetFocus(focusIndex)
	case buttonIndex >= 0:
		form.SetFocus(form.GetFormItemCount() + buttonIndex)
	default:
		form.SetFocus(0)
	}
	a.TviewApp.SetFocus(form)
}

// DismissDialog removes a dialog page and returns to main.
func (a *App) DismissDialog(pageName string) {
	a.dismissDialog(pageName)
}

func (a *App) dismissDialog(pageName string) {
	a.Pages.RemovePage(pageName)
	a.Pages.SwitchToPage(mainPageName)
	a.TviewApp.SetFocus(a.NavPanel)
}

// showViewsDialog lists saved views and navigates to the chosen one.
func (a *App) showViewsDialog() {
	ctx, cancel := a.requestContext()
	defer cancel()
	views, err := a.views.ListViews(ctx)
	if err != nil {
		a.setStatus("Error listing views: " + err.Error())
		return
	}
	if len(views) == 0 {
		a.setStatus("No saved views yet. Press s to save one.")
		return
	}

	options := make([]string, 0, len(views))
	selection := 0
	for i, v := range views {
		options = append(options, tview.Escape(v.DisplayID()))
		if v.ViewID == a.View.ID() {
			selection = i
		}
	}

	form := tview.NewForm().SetButtonsAlign(tview.AlignCenter)
	form.AddDropDown("View", options, selection, func(option string, optionIndex int) {
		if optionIndex >= 0 {
			selection = optionIndex
		}
	})
	form.AddButton("Open", func() {
		a.dismissDialog(viewsPageName)
		if selection >= 0 && selection < len(views) {
			a.Navigate(domain.ViewPath(views[selection].ViewID))
		}
	})
	form.AddButton("Cancel", func() {
		a.dismissDialog(viewsPageName)
	})

	// Suppress rune keys in the dropdown to prevent accidental typing.
	viewDropdown := getFormItemByLabel(form, "View").(*tview.DropDown)
	viewDropdown.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			return nil
		}
		return event
	})

	form.SetBorder(true).SetTitle("Saved views")
	a.WireDialogForm(form, func() { a.dismissDialog(viewsPageName) })
	a.ShowDialog(viewsPageName, form)
}
