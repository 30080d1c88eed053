package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/plumber-cd/ez-netmap/internal/domain"
)

const (
	mainPageName  = "*main*"
	quitPageName  = "*quit*"
	helpPageName  = "*help*"
	alertPageName = "*alert*"

	FormFieldWidth          = 42
	descriptionHint         = "Ctrl+E: edit in $EDITOR"
	maxDialogViewportHeight = 23

	newViewRoute   = "netmap/new"
	defaultTimeout = 10 * time.Second
)

var GlobalKeys = []string{"<q> Quit", "<s> Save view", "<v> Views"}

// Options wires the application to its collaborators.
type Options struct {
	DataDir   string
	Persister domain.Persister
	Views     domain.ViewReader
	Graphs    domain.GraphSource
	Logger    *zap.Logger
	Timeout   time.Duration
}

// App holds all UI state for the EZ-NETMAP application.
type App struct {
	// Graph is the topology snapshot being browsed. It carries the user's pins.
	Graph *domain.Graph
	// View is the working view record. The application owns it; dialogs borrow it.
	View    *domain.View
	DataDir string

	persister domain.Persister
	views     domain.ViewReader
	graphs    domain.GraphSource
	logger    *zap.Logger
	timeout   time.Duration

	TviewApp *tview.Application
	Pages    *tview.Pages

	// Layout widgets.
	PositionLine *tview.TextView
	NavPanel     *tview.List
	DetailsPanel *tview.TextView
	StatusLine   *tview.TextView
	KeysLine     *tview.TextView
	DetailsFlex  *tview.Flex

	// Navigation state.
	Route            string
	CurrentNodeID    string
	CurrentFocusKeys []string
	menuNodeIDs      []string

	// mouseSelectArmed distinguishes single-click (highlight) from double-click
	// (pin). tview translates DoubleClick -> Click before calling SetSelectedFunc,
	// so we suppress the single click's selected callback.
	mouseSelectArmed bool

	quitDialog *tview.Modal
	saveDialog *SaveViewDialog

	unsubscribeView func()
	// navigation counts Navigate calls so that late results of older ones are dropped.
	navigation int

	// Test synchronization: if non-nil, closed when a sentinel key is received.
	SentinelCh chan struct{}
}

// New creates a new App, loads the graph snapshot and sets up the UI.
func New(opts Options) (*App, error) {
	if opts.Persister == nil || opts.Views == nil || opts.Graphs == nil {
		return nil, errors.New("persister, view reader and graph source are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	a := &App{
		DataDir:          opts.DataDir,
		persister:        opts.Persister,
		views:            opts.Views,
		graphs:           opts.Graphs,
		logger:           opts.Logger,
		timeout:          opts.Timeout,
		mouseSelectArmed: true,
	}

	ctx, cancel := a.requestContext()
	defer cancel()
	g, err := a.graphs.Graph(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	a.Graph = g

	a.setupLayout()
	a.replaceView(domain.NewDefaultView(g), newViewRoute)

	return a, nil
}

// Run starts the tview application loop.
func (a *App) Run() error {
	return a.TviewApp.Run()
}

// Stop stops the application.
func (a *App) Stop() {
	if a.TviewApp != nil {
		a.TviewApp.Stop()
	}
}

// Persister is where the working view is saved.
func (a *App) Persister() domain.Persister {
	return a.persister
}

// dispatch runs fn on the UI event loop and redraws.
func (a *App) dispatch(fn func()) {
	a.TviewApp.QueueUpdateDraw(fn)
}

func (a *App) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

// setStatus updates the status line text.
func (a *App) setStatus(text string) {
	a.StatusLine.Clear()
	a.StatusLine.SetText(text)
}

// Alert shows a blocking notice with a single OK button.
func (a *App) Alert(text string) {
	a.logger.Info("alert", zap.String("text", text))

	modal := tview.NewModal().SetText(text).AddButtons([]string{"OK"})
	modal.SetDoneFunc(func(int, string) {
		a.dismissDialog(alertPageName)
	})
	a.Pages.RemovePage(alertPageName)
	a.Pages.AddPage(alertPageName, modal, true, true)
	a.TviewApp.SetFocus(modal)
}

// Navigate opens the saved view behind a netmap/<id> route. The view is fetched off the
// event loop; only the latest navigation is applied when several overlap.
func (a *App) Navigate(path string) {
	id, ok := domain.ParseViewPath(path)
	if !ok {
		a.setStatus("Unknown route: " + path)
		return
	}

	a.navigation++
	seq := a.navigation
	a.setStatus("Loading view " + id + "...")

	go func() {
		ctx, cancel := a.requestContext()
		defer cancel()
		attrs, err := a.views.GetView(ctx, id)
		a.TviewApp.QueueUpdateDraw(func() {
			if seq != a.navigation {
				a.logger.Debug("dropping stale navigation", zap.String("view_id", id))
				return
			}
			a.openView(id, attrs, err)
		})
	}()
}

func (a *App) openView(id string, attrs domain.ViewAttributes, err error) {
	if err != nil {
		a.logger.Error("load view failed", zap.String("view_id", id), zap.Error(err))
		a.setStatus("Error loading view " + id + ": " + err.Error())
		return
	}

	a.Graph.ApplyFixed(attrs.Nodes)
	a.replaceView(domain.NewView(attrs), domain.ViewPath(id))
	a.setStatus("Opened view " + attrs.DisplayID())
}

// replaceView makes v the working view, destroying the previous one.
func (a *App) replaceView(v *domain.View, route string) {
	if a.unsubscribeView != nil {
		a.unsubscribeView()
		a.unsubscribeView = nil
	}
	if a.View != nil {
		a.View.Destroy()
	}

	v.SetDispatcher(a.dispatch)
	a.View = v
	a.unsubscribeView = v.OnChange(func(*domain.View) { a.onViewChanged() })

	a.Route = route
	a.PositionLine.Clear()
	a.PositionLine.SetText(route)
	a.onViewChanged()
}

// openInExternalEditor opens the text in $EDITOR and returns the result.
func (a *App) openInExternalEditor(currentText string) (string, error) {
	tmpFile, err := os.CreateTemp("", "ez-netmap-*.txt")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmpFile.Name()) }()

	if _, err := tmpFile.WriteString(currentText); err != nil {
		_ = tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	editor := strings.TrimSpace(os.Getenv("VISUAL"))
	if editor == "" {
		editor = strings.TrimSpace(os.Getenv("EDITOR"))
	}
	if editor == "" {
		editor = "vi"
	}

	var runErr error
	ok := a.TviewApp.Suspend(func() {
		cmd := exec.Command("sh", "-c", editor+` "$@"`, "ez-netmap-editor", tmpFile.Name())
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		runErr = cmd.Run()
	})
	if !ok {
		return "", fmt.Errorf("failed to suspend terminal UI")
	}
	if runErr != nil {
		return "", runErr
	}

	updatedText, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", err
	}
	return string(updatedText), nil
}

// UpdateKeysLine refreshes the keyboard shortcuts help line.
func (a *App) UpdateKeysLine() {
	if a.KeysLine == nil {
		return
	}

	mandatoryHelpKey := "<?> Help"
	keys := append(append([]string{}, GlobalKeys...), a.CurrentFocusKeys...)
	visibleKeys := append(append([]string{}, keys...), mandatoryHelpKey)
	text := " " + strings.Join(visibleKeys, " | ")

	_, _, innerWidth, _ := a.KeysLine.GetInnerRect()
	if innerWidth > 0 {
		for len(visibleKeys) > 1 && len(text) > innerWidth {
			visibleKeys = visibleKeys[:len(visibleKeys)-2]
			visibleKeys = append(visibleKeys, mandatoryHelpKey)
			text = " " + strings.Join(visibleKeys, " | ")
		}
		if len(visibleKeys) == 1 {
			text = " " + mandatoryHelpKey
		}
	}

	a.KeysLine.SetText(text)
}

func (a *App) showHelpPopup() {
	var content strings.Builder
	content.WriteString("Full keyboard shortcuts\n\n")
	content.WriteString("Navigation\n")
	content.WriteString("- j / Down Arrow: Move down\n")
	content.WriteString("- k / Up Arrow: Move up\n")
	content.WriteString("- Ctrl+U: Page up\n")
	content.WriteString("- Ctrl+D: Page down\n\n")
	content.WriteString("Map\n")
	content.WriteString("- f / Enter: Pin or unpin the focused node\n")
	content.WriteString("- o: Show or hide orphans\n")
	content.WriteString("- c: Cycle category filter\n")
	content.WriteString("- + / -: Zoom in / out\n")
	content.WriteString("- Ctrl+R: Reload graph\n\n")
	content.WriteString("Views\n")
	content.WriteString("- s: Save view\n")
	content.WriteString("- n: New view from the current one\n")
	content.WriteString("- v: Open a saved view\n")
	content.WriteString("- x: Export views to " + exportFileName + "\n\n")
	content.WriteString("Global\n")
	content.WriteString("- q: Quit (with confirmation)\n")
	content.WriteString("- Ctrl+Q: Force quit\n")
	content.WriteString("- ?: Show this help\n")

	helpText := tview.NewTextView().
		SetText(content.String()).
		SetScrollable(true).
		SetWrap(true).
		SetWordWrap(true)
	helpText.SetBorder(true).SetTitle("Keyboard Shortcuts (scroll: Up/Down, PgUp/PgDn)")
	helpText.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyEnter, tcell.KeyBS, tcell.KeyBackspace2:
			a.dismissDialog(helpPageName)
			return nil
		}
		return event
	})

	dialogWidth := 58
	dialogHeight := 20

	a.Pages.RemovePage(helpPageName)
	a.Pages.AddPage(helpPageName, a.createDialogPage(helpText, dialogWidth, dialogHeight), true, true)
	a.Pages.ShowPage(helpPageName)
	a.TviewApp.SetFocus(helpText)
}

// resizeStatusLine adjusts the status panel height to fit its text content.
func (a *App) resizeStatusLine() {
	if a.StatusLine == nil || a.DetailsFlex == nil {
		return
	}

	_, _, innerWidth, _ := a.StatusLine.GetInnerRect()
	if innerWidth <= 0 {
		a.DetailsFlex.ResizeItem(a.StatusLine, 3, 0)
		return
	}

	text := a.StatusLine.GetText(false)
	requiredLines := wrappedLineCount(text, innerWidth)
	height := requiredLines + 2 // top and bottom border
	if height < 3 {
		height = 3
	}
	a.DetailsFlex.ResizeItem(a.StatusLine, height, 0)
}

// wrappedLineCount returns the number of visual lines after word wrapping.
func wrappedLineCount(text string, width int) int {
	if width <= 0 {
		return 1
	}
	totalLines := 0
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			totalLines++
			continue
		}
		wrapped := tview.WordWrap(line, width)
		if len(wrapped) == 0 {
			totalLines++
			continue
		}
		totalLines += len(wrapped)
	}
	if totalLines < 1 {
		return 1
	}
	return totalLines
}

// hintedTextArea keeps a textarea and its hint in one FormItem.
type hintedTextArea struct {
	*tview.TextArea
	hint       string
	labelWidth int
}

func newHintedTextArea(label, text string, fieldWidth, fieldHeight int, hint string) *hintedTextArea {
	textArea := tview.NewTextArea().SetLabel(label).SetSize(fieldHeight, fieldWidth)
	textArea.SetText(text, false)
	return &hintedTextArea{
		TextArea: textArea,
		hint:     hint,
	}
}

func (h *hintedTextArea) GetFieldHeight() int {
	return h.TextArea.GetFieldHeight()
}

func (h *hintedTextArea) SetFormAttributes(labelWidth int, labelColor, bgColor, fieldTextColor, fieldBgColor tcell.Color) tview.FormItem {
	h.labelWidth = labelWidth
	h.TextArea.SetFormAttributes(labelWidth, labelColor, bgColor, fieldTextColor, fieldBgColor)
	return h
}

func (h *hintedTextArea) Draw(screen tcell.Screen) {
	x, y, width, height := h.GetRect()
	if height <= 0 {
		return
	}
	h.SetRect(x, y, width, max(height-1, 0))
	h.TextArea.Draw(screen)

	fieldX := x + h.labelWidth
	fieldW := max(width-h.labelWidth, 0)
	tview.Print(screen, h.hint, fieldX, y+height-1, fieldW, tview.AlignLeft, tcell.ColorGray)
}
