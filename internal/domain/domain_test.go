package domain

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func testGraph() *Graph {
	return &Graph{
		Nodes: []Node{
			{ID: "gw", Fixed: true, X: 10, Y: 20, Data: NodeData{Category: "GW", Sysname: "gw.example.org"}},
			{ID: "link-1", Fixed: true, Data: NodeData{Category: CategoryElink}},
			{ID: "sw", Fixed: false, Data: NodeData{Category: "SW", Sysname: "sw.example.org"}},
			{ID: "srv", Fixed: true, X: -5, Y: 3, Data: NodeData{Category: "SRV"}},
			{ID: "lonely", Data: NodeData{Category: "SW"}},
		},
		Links: []Link{
			{Source: "gw", Target: "sw"},
			{Source: "sw", Target: "srv"},
			{Source: "gw", Target: "link-1"},
		},
	}
}

type fakePersister struct {
	mu    sync.Mutex
	calls []ViewAttributes
	id    string
	err   error
	gate  chan struct{}
}

func (p *fakePersister) SaveView(_ context.Context, attrs ViewAttributes) (string, error) {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, attrs)
	return p.id, p.err
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for save continuation")
	}
}

// ---------- graph.go ----------

func TestFixedNodes(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		want  []string
	}{
		{"nil graph", nil, nil},
		{"empty graph", &Graph{}, nil},
		{"mixed", testGraph(), []string{"gw", "srv"}},
		{
			"example from the map",
			&Graph{Nodes: []Node{
				{ID: "a", Fixed: true, Data: NodeData{Category: "host"}},
				{ID: "b", Fixed: true, Data: NodeData{Category: "elink"}},
				{ID: "c", Fixed: false, Data: NodeData{Category: "host"}},
			}},
			[]string{"a"},
		},
		{
			"unpinned elink",
			&Graph{Nodes: []Node{{ID: "e", Data: NodeData{Category: "elink"}}}},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FixedNodes(tt.graph)
			if got == nil {
				t.Fatal("FixedNodes() returned nil, want empty slice")
			}
			ids := make([]string, 0, len(got))
			for _, n := range got {
				ids = append(ids, n.ID)
			}
			if len(ids) != len(tt.want) || (len(ids) > 0 && !slices.Equal(ids, tt.want)) {
				t.Errorf("FixedNodes() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestFixedNodesDoesNotMutateGraph(t *testing.T) {
	g := testGraph()
	before := g.Clone()
	nodes := FixedNodes(g)
	nodes[0].X = 999
	if !slices.Equal(g.Nodes, before.Nodes) {
		t.Error("FixedNodes() result aliases the graph")
	}
}

func TestGraphToggleFixed(t *testing.T) {
	g := testGraph()
	fixed, ok := g.ToggleFixed("sw")
	if !ok || !fixed {
		t.Fatalf("ToggleFixed(sw) = %v, %v; want true, true", fixed, ok)
	}
	fixed, ok = g.ToggleFixed("sw")
	if !ok || fixed {
		t.Fatalf("ToggleFixed(sw) second time = %v, %v; want false, true", fixed, ok)
	}
	if _, ok := g.ToggleFixed("missing"); ok {
		t.Error("ToggleFixed(missing) reported ok")
	}
}

func TestGraphApplyFixed(t *testing.T) {
	g := testGraph()
	g.ApplyFixed([]Node{{ID: "sw", X: 1, Y: 2}, {ID: "gone", X: 3, Y: 4}})
	for _, n := range g.Nodes {
		if n.ID == "sw" {
			if !n.Fixed || n.X != 1 || n.Y != 2 {
				t.Errorf("sw = %+v, want pinned at 1,2", n)
			}
			continue
		}
		if n.Fixed {
			t.Errorf("%s still pinned", n.ID)
		}
	}
}

func TestGraphCategoriesAndVisible(t *testing.T) {
	g := testGraph()
	if got, want := g.Categories(), []string{"GW", "SRV", "SW", "elink"}; !slices.Equal(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
	if !g.IsOrphan("lonely") || g.IsOrphan("sw") {
		t.Error("IsOrphan() mismatch")
	}
	if got, want := g.Neighbors("sw"), []string{"gw", "srv"}; !slices.Equal(got, want) {
		t.Errorf("Neighbors(sw) = %v, want %v", got, want)
	}

	visible := g.Visible([]string{"SW"}, false)
	if len(visible) != 1 || visible[0].ID != "sw" {
		t.Errorf("Visible(SW, no orphans) = %v", visible)
	}
	visible = g.Visible([]string{"SW"}, true)
	if len(visible) != 2 {
		t.Errorf("Visible(SW, orphans) = %v", visible)
	}
	if got := len(g.Visible(nil, true)); got != len(g.Nodes) {
		t.Errorf("Visible(all, orphans) = %d nodes, want %d", got, len(g.Nodes))
	}
}

func TestGraphValidate(t *testing.T) {
	if err := testGraph().Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	g := testGraph()
	g.Links = append(g.Links, Link{Source: "gw", Target: "nowhere"})
	if err := g.Validate(); err == nil {
		t.Error("Validate() accepted a dangling link")
	}
	g = testGraph()
	g.Nodes = append(g.Nodes, Node{ID: "gw"})
	if err := g.Validate(); err == nil {
		t.Error("Validate() accepted a duplicate node")
	}
}

// ---------- helpers.go ----------

func TestParseZoom(t *testing.T) {
	tests := []struct {
		input   string
		want    Zoom
		wantErr bool
	}{
		{"", Zoom{0, 0, 1}, false},
		{"0,0;1", Zoom{0, 0, 1}, false},
		{"-12.5, 40;0.8", Zoom{-12.5, 40, 0.8}, false},
		{"1,2", Zoom{}, true},
		{"1;2", Zoom{}, true},
		{"a,2;1", Zoom{}, true},
		{"1,2;0", Zoom{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseZoom(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseZoom(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseZoom(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestZoomStepsAndString(t *testing.T) {
	z := Zoom{X: 1, Y: -2, Scale: 1}
	if got := z.In().String(); got != "1,-2;1.25" {
		t.Errorf("In() = %q", got)
	}
	if got := z.Out().String(); got != "1,-2;0.8" {
		t.Errorf("Out() = %q", got)
	}
	small := Zoom{Scale: minZoomScale}
	if got := small.Out().Scale; got != minZoomScale {
		t.Errorf("Out() below minimum = %v", got)
	}
}

func TestNextCategoryFilter(t *testing.T) {
	all := []string{"GW", "SW"}
	steps := [][]string{{"GW"}, {"SW"}, {"GW", "SW"}, {"GW"}}
	var current []string
	for i, want := range steps {
		current = NextCategoryFilter(all, current)
		if !slices.Equal(current, want) {
			t.Fatalf("step %d: got %v, want %v", i, current, want)
		}
	}
	if got := NextCategoryFilter(nil, []string{"GW"}); got != nil {
		t.Errorf("NextCategoryFilter(nil) = %v", got)
	}
}

func TestParseViewPath(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"netmap/42", "42", true},
		{"#/netmap/abc", "abc", true},
		{ViewPath("x-y"), "x-y", true},
		{"netmap/", "", false},
		{"netmap/a/b", "", false},
		{"other/1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseViewPath(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseViewPath(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ---------- validation.go ----------

func TestViewAttributesValidate(t *testing.T) {
	valid := ViewAttributes{Title: "Core", Topology: TopologyLayer2, Zoom: DefaultZoom}
	tests := []struct {
		name    string
		mutate  func(a *ViewAttributes)
		wantErr string
	}{
		{"valid", func(*ViewAttributes) {}, ""},
		{"missing title", func(a *ViewAttributes) { a.Title = "" }, "title is required"},
		{"long title", func(a *ViewAttributes) { a.Title = strings.Repeat("x", 101) }, "title must be at most 100"},
		{"bad topology", func(a *ViewAttributes) { a.Topology = 4 }, "topology must be one of"},
		{"bad zoom", func(a *ViewAttributes) { a.Zoom = "nope" }, "invalid zoom"},
		{"pinned elink", func(a *ViewAttributes) {
			a.Nodes = []Node{{ID: "l", Data: NodeData{Category: CategoryElink}}}
		}, "cannot be pinned"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid.Clone()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// ---------- view.go ----------

func TestViewObservers(t *testing.T) {
	v := NewView(ViewAttributes{Title: "a"})
	changes := 0
	unsubscribe := v.OnChange(func(*View) { changes++ })

	v.Set(func(a *ViewAttributes) { a.Title = "b" })
	if changes != 1 {
		t.Fatalf("changes = %d, want 1", changes)
	}
	unsubscribe()
	unsubscribe()
	v.Set(func(a *ViewAttributes) { a.Title = "c" })
	if changes != 1 {
		t.Fatalf("changes after unsubscribe = %d, want 1", changes)
	}
	if got := v.Attributes().Title; got != "c" {
		t.Errorf("Title = %q, want c", got)
	}
}

func TestViewDestroy(t *testing.T) {
	v := NewView(ViewAttributes{})
	destroyed := 0
	v.OnDestroy(func(*View) { destroyed++ })
	changed := 0
	v.OnChange(func(*View) { changed++ })

	v.Destroy()
	v.Destroy()
	if destroyed != 1 {
		t.Fatalf("destroy observers ran %d times, want 1", destroyed)
	}
	v.Set(func(a *ViewAttributes) { a.Title = "x" })
	if changed != 0 {
		t.Errorf("change observer survived Destroy")
	}
	v.OnChange(func(*View) { changed++ })()
}

func TestViewOnDestroyAfterDestroy(t *testing.T) {
	v := NewView(ViewAttributes{})
	v.Destroy()

	destroyed := 0
	unsubscribe := v.OnDestroy(func(*View) { destroyed++ })
	if destroyed != 1 {
		t.Fatalf("late destroy observer ran %d times, want 1", destroyed)
	}
	unsubscribe()
	unsubscribe()
	v.Destroy()
	if destroyed != 1 {
		t.Errorf("late destroy observer ran %d times after a second Destroy, want 1", destroyed)
	}
}

func TestViewAttributesAreCopies(t *testing.T) {
	v := NewView(ViewAttributes{Nodes: []Node{{ID: "a"}}, Categories: []string{"GW"}})
	attrs := v.Attributes()
	attrs.Nodes[0].ID = "mutated"
	attrs.Categories[0] = "mutated"
	again := v.Attributes()
	if again.Nodes[0].ID != "a" || again.Categories[0] != "GW" {
		t.Errorf("Attributes() leaked internal slices: %+v", again)
	}
}

func TestViewSaveSuccess(t *testing.T) {
	v := NewView(ViewAttributes{Title: "core"})
	p := &fakePersister{id: "17"}

	changes := 0
	v.OnChange(func(*View) { changes++ })

	var gotResponse string
	done := v.Save(context.Background(), p, SaveOptions{
		Wait:    true,
		OnError: func(*View, error) { t.Error("OnError called") },
		OnSuccess: func(view *View, response string) {
			if changes != 1 {
				t.Errorf("changes before OnSuccess = %d, want 1", changes)
			}
			gotResponse = response
			view.Set(func(a *ViewAttributes) { a.ViewID = response })
		},
	})
	waitDone(t, done)

	if gotResponse != "17" || v.ID() != "17" || v.IsNew() {
		t.Fatalf("response %q, id %q, new %v", gotResponse, v.ID(), v.IsNew())
	}
	if len(p.calls) != 1 || p.calls[0].Title != "core" {
		t.Errorf("persister calls = %+v", p.calls)
	}
}

func TestViewSaveWithoutWaitNotifiesImmediately(t *testing.T) {
	v := NewView(ViewAttributes{})
	p := &fakePersister{id: "1", gate: make(chan struct{})}
	changes := 0
	v.OnChange(func(*View) { changes++ })

	done := v.Save(context.Background(), p, SaveOptions{})
	if changes != 1 {
		t.Fatalf("changes = %d before the save completed, want 1", changes)
	}
	close(p.gate)
	waitDone(t, done)
	if changes != 1 {
		t.Errorf("changes = %d after completion, want 1", changes)
	}
}

func TestViewSaveFailureKeepsLocalState(t *testing.T) {
	v := NewView(ViewAttributes{Title: "local"})
	p := &fakePersister{err: errors.New("boom")}

	var gotErr error
	done := v.Save(context.Background(), p, SaveOptions{
		Wait:      true,
		OnError:   func(_ *View, err error) { gotErr = err },
		OnSuccess: func(*View, string) { t.Error("OnSuccess called") },
	})
	waitDone(t, done)

	if !errors.Is(gotErr, ErrPersist) {
		t.Fatalf("error = %v, want ErrPersist", gotErr)
	}
	if !v.IsNew() || v.Attributes().Title != "local" {
		t.Errorf("view changed after failed save: %+v", v.Attributes())
	}
}

func TestViewSaveUsesDispatcher(t *testing.T) {
	v := NewView(ViewAttributes{})
	queue := make(chan func(), 1)
	v.SetDispatcher(func(fn func()) { queue <- fn })

	ran := false
	done := v.Save(context.Background(), &fakePersister{id: "1"}, SaveOptions{
		OnSuccess: func(*View, string) { ran = true },
	})

	select {
	case fn := <-queue:
		if ran {
			t.Fatal("continuation ran before dispatch")
		}
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("continuation never dispatched")
	}
	waitDone(t, done)
	if !ran {
		t.Error("continuation did not run")
	}
}

func TestNewDefaultView(t *testing.T) {
	v := NewDefaultView(testGraph())
	attrs := v.Attributes()
	if !v.IsNew() || attrs.Topology != TopologyLayer2 || attrs.Zoom != DefaultZoom {
		t.Errorf("NewDefaultView() = %+v", attrs)
	}
	if len(attrs.Categories) != 4 {
		t.Errorf("Categories = %v", attrs.Categories)
	}
}
