package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/plumber-cd/ez-netmap/internal/domain"
	"github.com/plumber-cd/ez-netmap/internal/store"
)

const sentinelSyncKey = tcell.KeyF63

type testHarness struct {
	t      *testing.T
	app    *App
	store  *store.ViewStore
	screen tcell.SimulationScreen
	dir    string
	runErr chan error
	once   sync.Once
}

// harnessGraph has a switch pair, an elink between them and one orphan.
func harnessGraph() *domain.Graph {
	return &domain.Graph{
		Nodes: []domain.Node{
			{ID: "gw1", X: 10, Y: 10, Data: domain.NodeData{Category: "GW", Sysname: "gw1.example.org"}},
			{ID: "sw1", X: 20, Y: 20, Data: domain.NodeData{Category: "SW", Sysname: "sw1.example.org"}},
			{ID: "e1", X: 15, Y: 15, Data: domain.NodeData{Category: domain.CategoryElink}},
			{ID: "lonely", X: 99, Y: 99, Data: domain.NodeData{Category: "SW", Sysname: "lonely.example.org"}},
		},
		Links: []domain.Link{
			{Source: "gw1", Target: "e1"},
			{Source: "e1", Target: "sw1"},
		},
	}
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	return newTestHarnessWith(t, nil)
}

// newTestHarnessWith starts the app on a fresh data dir. configure may swap the
// collaborators the store fills in.
func newTestHarnessWith(t *testing.T, configure func(s *store.ViewStore, opts *Options)) *testHarness {
	t.Helper()

	dir := t.TempDir()
	if err := store.SaveGraph(dir, harnessGraph()); err != nil {
		t.Fatalf("save graph: %v", err)
	}
	s, err := store.Load(dir)
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	opts := Options{
		DataDir:   dir,
		Persister: s,
		Views:     s,
		Graphs:    s,
		Logger:    zap.NewNop(),
		Timeout:   2 * time.Second,
	}
	if configure != nil {
		configure(s, &opts)
	}

	app, err := New(opts)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	screen.SetSize(100, 30)
	app.TviewApp.SetScreen(screen)

	h := &testHarness{
		t:      t,
		app:    app,
		store:  s,
		screen: screen,
		dir:    dir,
		runErr: make(chan error, 1),
	}
	t.Cleanup(h.Close)

	go func() {
		h.runErr <- app.Run()
	}()

	h.WaitForDraw()
	return h
}

func (h *testHarness) Close() {
	h.once.Do(func() {
		h.app.Stop()
		select {
		case err := <-h.runErr:
			if err != nil {
				h.t.Errorf("app run failed: %v", err)
			}
		case <-time.After(2 * time.Second):
		}
	})
}

func (h *testHarness) WaitForDraw() {
	h.t.Helper()
	done := make(chan struct{})
	h.app.TviewApp.QueueUpdateDraw(func() {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for draw")
	}
}

// OnUI runs fn on the event loop and waits for it.
func (h *testHarness) OnUI(fn func()) {
	h.t.Helper()
	done := make(chan struct{})
	h.app.TviewApp.QueueUpdateDraw(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for UI update")
	}
}

func (h *testHarness) PressKey(key tcell.Key, r rune, mod tcell.ModMask) {
	h.t.Helper()
	done := make(chan struct{})
	h.OnUI(func() { h.app.SentinelCh = done })

	h.screen.InjectKey(key, r, mod)
	h.screen.InjectKey(sentinelSyncKey, 0, tcell.ModNone)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for key processing")
	}
	h.WaitForDraw()
}

func (h *testHarness) PressRune(r rune) {
	h.t.Helper()
	h.PressKey(tcell.KeyRune, r, tcell.ModNone)
}

func (h *testHarness) TypeText(s string) {
	h.t.Helper()
	for _, r := range s {
		h.PressRune(r)
	}
}

func (h *testHarness) PressEnter() {
	h.t.Helper()
	h.PressKey(tcell.KeyEnter, 0, tcell.ModNone)
}

func (h *testHarness) PressEscape() {
	h.t.Helper()
	h.PressKey(tcell.KeyEscape, 0, tcell.ModNone)
}

// Eventually polls cond on the event loop until it holds.
func (h *testHarness) Eventually(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		h.OnUI(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	h.DumpScreen()
	h.t.Fatalf("timed out waiting for %s", what)
}

// NavigateTo opens a saved view and waits until it is the working view.
func (h *testHarness) NavigateTo(id string) {
	h.t.Helper()
	h.OnUI(func() { h.app.Navigate(domain.ViewPath(id)) })
	h.Eventually("view "+id+" to open", func() bool {
		return h.app.Route == domain.ViewPath(id)
	})
	h.WaitForDraw()
}

// Status returns the status line text.
func (h *testHarness) Status() string {
	h.t.Helper()
	var status string
	h.OnUI(func() { status = h.app.StatusLine.GetText(true) })
	return status
}

func (h *testHarness) Route() string {
	h.t.Helper()
	var route string
	h.OnUI(func() { route = h.app.Route })
	return route
}

func (h *testHarness) GetScreenText() string {
	cells, width, height := h.screen.GetContents()
	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			cell := cells[row*width+col]
			if len(cell.Runes) > 0 && cell.Runes[0] != 0 {
				sb.WriteRune(cell.Runes[0])
			} else {
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

func (h *testHarness) DumpScreen() {
	h.t.Logf("\n%s", h.GetScreenText())
}

func (h *testHarness) AssertScreenContains(substr string) {
	h.t.Helper()
	if !strings.Contains(h.GetScreenText(), substr) {
		h.DumpScreen()
		h.t.Fatalf("screen does not contain %q", substr)
	}
}

func (h *testHarness) AssertScreenNotContains(substr string) {
	h.t.Helper()
	if strings.Contains(h.GetScreenText(), substr) {
		h.DumpScreen()
		h.t.Fatalf("screen unexpectedly contains %q", substr)
	}
}
