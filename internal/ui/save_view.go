package ui

import (
	"context"
	"strings"

	"github.com/rivo/tview"

	"github.com/plumber-cd/ez-netmap/internal/domain"
)

const (
	saveViewPageName = "*save_view*"

	missingInputNotice  = "Missing graph data or view properties, cannot save!"
	persistErrorNotice  = "Error while saving view, try again"
	saveNewViewLabel    = "Save new view"
	saveViewLabel       = "Save view"
	saveNewViewTitle    = "Save new view"
	updateViewTitle     = "Update view"
	titleFieldLabel     = "Title"
	descriptionLabel    = "Description"
	publicCheckboxLabel = "Public"
)

// Notifier shows a blocking notice.
type Notifier interface {
	Alert(text string)
}

// Navigator switches the visible route, e.g. netmap/<id>.
type Navigator interface {
	Navigate(path string)
}

// DialogHost is what a dialog needs from the application that opens it.
type DialogHost interface {
	Notifier
	Navigator
	ShowDialog(pageName string, content *tview.Form)
	DismissDialog(pageName string)
	WireDialogForm(form *tview.Form, onCancel func())
	Persister() domain.Persister
}

// DialogState is the lifecycle stage of a dialog.
type DialogState int

const (
	DialogConstructed DialogState = iota
	DialogRendered
	DialogClosed
)

func (s DialogState) String() string {
	switch s {
	case DialogConstructed:
		return "constructed"
	case DialogRendered:
		return "rendered"
	case DialogClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SaveViewDialog saves the current map arrangement as a named view. It borrows the
// view record from the application while open and releases it on Close.
type SaveViewDialog struct {
	host  DialogHost
	graph *domain.Graph
	view  *domain.View

	form  *tview.Form
	state DialogState

	unsubscribeChange  func()
	unsubscribeDestroy func()
}

// NewSaveViewDialog builds the dialog for view over graph. When either is nil the user is
// told so and the dialog is returned already closed. A view that is already destroyed
// closes the dialog right away.
func NewSaveViewDialog(host DialogHost, graph *domain.Graph, view *domain.View) *SaveViewDialog {
	d := &SaveViewDialog{host: host, graph: graph, view: view}
	if graph == nil || view == nil {
		host.Alert(missingInputNotice)
		d.Close()
		return d
	}

	d.form = d.buildForm(view.Attributes(), view.IsNew())
	d.unsubscribeChange = view.OnChange(func(*domain.View) { d.Render() })
	d.unsubscribeDestroy = view.OnDestroy(func(*domain.View) { d.Close() })
	return d
}

// State reports where the dialog is in its lifecycle.
func (d *SaveViewDialog) State() DialogState {
	return d.state
}

// Form returns the dialog form, nil once closed.
func (d *SaveViewDialog) Form() *tview.Form {
	return d.form
}

// Render opens the dialog, refreshing its fields from the view. Calling it again reopens
// the same dialog.
func (d *SaveViewDialog) Render() *SaveViewDialog {
	if d.state == DialogClosed {
		return d
	}
	if d.state == DialogRendered {
		d.refresh()
	}
	d.host.ShowDialog(saveViewPageName, d.form)
	d.state = DialogRendered
	return d
}

// FixedNodes returns the pinned nodes that the saved view will keep in place.
func (d *SaveViewDialog) FixedNodes() []domain.Node {
	return domain.FixedNodes(d.graph)
}

// SaveView writes the form and the pinned nodes onto the view, persists it and closes
// the dialog without waiting for the result. The returned channel is closed once the
// result has been handled.
func (d *SaveViewDialog) SaveView() <-chan struct{} {
	if d.state == DialogClosed {
		done := make(chan struct{})
		close(done)
		return done
	}

	title := strings.TrimSpace(getTextFromInputField(d.form, titleFieldLabel))
	description := strings.TrimSpace(getTextFromTextArea(d.form, descriptionLabel))
	isPublic := getCheckedFromCheckbox(d.form, publicCheckboxLabel)
	nodes := d.FixedNodes()

	view := d.view
	view.Set(func(a *domain.ViewAttributes) {
		a.Title = title
		a.Description = description
		a.IsPublic = isPublic
		a.Nodes = nodes
		// Flips on every save. Kept as the saved-view format has always behaved.
		a.DisplayOrphans = !a.DisplayOrphans
	})

	notifier := Notifier(d.host)
	navigator := Navigator(d.host)
	done := view.Save(context.Background(), d.host.Persister(), domain.SaveOptions{
		Wait: true,
		OnError: func(*domain.View, error) {
			notifier.Alert(persistErrorNotice)
		},
		OnSuccess: func(v *domain.View, response string) {
			v.Set(func(a *domain.ViewAttributes) { a.ViewID = response })
			navigator.Navigate(domain.ViewPath(response))
		},
	})

	d.Close()
	return done
}

// Close removes the dialog and detaches it from the view. Further calls do nothing.
func (d *SaveViewDialog) Close() {
	if d.state == DialogClosed {
		return
	}
	wasShown := d.state == DialogRendered
	d.state = DialogClosed

	if d.unsubscribeChange != nil {
		d.unsubscribeChange()
	}
	if d.unsubscribeDestroy != nil {
		d.unsubscribeDestroy()
	}
	if wasShown {
		d.host.DismissDialog(saveViewPageName)
	}
	d.form = nil
	d.view = nil
	d.graph = nil
}

func (d *SaveViewDialog) buildForm(attrs domain.ViewAttributes, isNew bool) *tview.Form {
	title, button := updateViewTitle, saveViewLabel
	if isNew {
		title, button = saveNewViewTitle, saveNewViewLabel
	}

	form := tview.NewForm().SetButtonsAlign(tview.AlignCenter)
	form.AddInputField(titleFieldLabel, attrs.Title, FormFieldWidth, nil, nil)
	form.AddFormItem(newHintedTextArea(descriptionLabel, attrs.Description, FormFieldWidth, 3, descriptionHint))
	form.AddCheckbox(publicCheckboxLabel, attrs.IsPublic, nil)
	form.AddButton(button, func() { d.SaveView() })
	form.AddButton("Cancel", d.Close)
	form.SetBorder(true).SetTitle(title)
	d.host.WireDialogForm(form, d.Close)
	return form
}

// refresh rebuilds the open form from the view attributes. InputField.SetText does not
// replace the text of a field that has never been drawn, so fields are not edited in place.
func (d *SaveViewDialog) refresh() {
	d.form = d.buildForm(d.view.Attributes(), d.view.IsNew())
}
