package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plumber-cd/ez-netmap/internal/domain"
	"go.uber.org/zap"
)

func Test_safeFileNameSegment(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", "simple"},
		{"Hello World", "Hello_World"},
		{"a/b\\c", "a_b_c"},
		{"  spaces  ", "spaces"},
		{"", "item"},
		{"   ", "item"},
		{"6f1c2a0e-9b1d-4d7e-8a43-5f2b8e9c0d11", "6f1c2a0e-9b1d-4d7e-8a43-5f2b8e9c0d11"},
		{"../../etc/passwd", "etc_passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := safeFileNameSegment(tt.input)
			if got != tt.want {
				t.Errorf("safeFileNameSegment(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func newTestStore(t *testing.T, dir string) *ViewStore {
	t.Helper()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	next := 0
	s.newID = func() string {
		next++
		return "view-" + string(rune('0'+next))
	}
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := newTestStore(t, dir)

	core := domain.ViewAttributes{
		Title:       "Core",
		Description: "Core routers",
		IsPublic:    true,
		Nodes: []domain.Node{
			{ID: "gw", X: 10, Y: 20, Fixed: true, Data: domain.NodeData{Category: "GW"}},
		},
		Topology:       domain.TopologyLayer3,
		Categories:     []string{"GW", "SW"},
		Zoom:           "1,2;1.5",
		DisplayOrphans: true,
	}
	id, err := s.SaveView(ctx, core)
	if err != nil {
		t.Fatalf("SaveView() error: %v", err)
	}
	if id != "view-1" {
		t.Fatalf("SaveView() id = %q, want view-1", id)
	}
	if _, err := s.SaveView(ctx, domain.ViewAttributes{Title: "access", Topology: 2, Zoom: domain.DefaultZoom}); err != nil {
		t.Fatalf("SaveView() second error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, DataDirName, viewsDirName, "view-1.yaml")); err != nil {
		t.Fatalf("view file missing: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got, err := loaded.GetView(ctx, "view-1")
	if err != nil {
		t.Fatalf("GetView() error: %v", err)
	}
	if got.Title != "Core" || !got.IsPublic || got.Topology != 3 || got.Zoom != "1,2;1.5" || !got.DisplayOrphans {
		t.Errorf("GetView() = %+v", got)
	}
	if len(got.Nodes) != 1 || got.Nodes[0].X != 10 || !got.Nodes[0].Fixed {
		t.Errorf("Nodes = %+v", got.Nodes)
	}
	if !got.LastModified.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("LastModified = %v", got.LastModified)
	}

	views, err := loaded.ListViews(ctx)
	if err != nil {
		t.Fatalf("ListViews() error: %v", err)
	}
	if len(views) != 2 || views[0].Title != "access" || views[1].Title != "Core" {
		t.Errorf("ListViews() order = %v", views)
	}
}

func TestSaveViewUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())

	id, err := s.SaveView(ctx, domain.ViewAttributes{Title: "a", Topology: 2, Zoom: domain.DefaultZoom})
	if err != nil {
		t.Fatalf("SaveView() error: %v", err)
	}
	updatedID, err := s.SaveView(ctx, domain.ViewAttributes{ViewID: id, Title: "b", Topology: 2, Zoom: domain.DefaultZoom})
	if err != nil {
		t.Fatalf("SaveView() update error: %v", err)
	}
	if updatedID != id {
		t.Errorf("update returned %q, want %q", updatedID, id)
	}
	got, _ := s.GetView(ctx, id)
	if got.Title != "b" {
		t.Errorf("Title = %q, want b", got.Title)
	}

	_, err = s.SaveView(ctx, domain.ViewAttributes{ViewID: "unknown", Title: "c", Topology: 2, Zoom: domain.DefaultZoom})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update of unknown view error = %v, want ErrNotFound", err)
	}
}

func TestSaveViewRejectsInvalid(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	if _, err := s.SaveView(context.Background(), domain.ViewAttributes{Topology: 2}); err == nil {
		t.Fatal("SaveView() accepted a view without title")
	}
	views, _ := s.ListViews(context.Background())
	if len(views) != 0 {
		t.Errorf("invalid view was stored: %v", views)
	}
}

func TestDeleteView(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := newTestStore(t, dir)
	id, err := s.SaveView(ctx, domain.ViewAttributes{Title: "a", Topology: 2, Zoom: domain.DefaultZoom})
	if err != nil {
		t.Fatalf("SaveView() error: %v", err)
	}
	if err := s.DeleteView(ctx, id); err != nil {
		t.Fatalf("DeleteView() error: %v", err)
	}
	if _, err := s.GetView(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetView() after delete error = %v", err)
	}
	if err := s.DeleteView(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second DeleteView() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DataDirName, viewsDirName, id+".yaml")); !os.IsNotExist(err) {
		t.Errorf("view file still present: %v", err)
	}
}

func TestLoadRejectsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	viewsDir := filepath.Join(dir, DataDirName, viewsDirName)
	if err := os.MkdirAll(viewsDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(viewsDir, "x.yaml"), []byte("title: no id\ntopology: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load() accepted a view without id")
	}
}

func TestGraphRoundTrip(t *testing.T) {
	dir := t.TempDir()

	empty, err := LoadGraph(dir)
	if err != nil {
		t.Fatalf("LoadGraph() on missing file error: %v", err)
	}
	if len(empty.Nodes) != 0 {
		t.Errorf("missing graph has nodes: %v", empty.Nodes)
	}

	g := &domain.Graph{
		Nodes: []domain.Node{
			{ID: "a", Data: domain.NodeData{Category: "GW", Sysname: "a.example.org"}},
			{ID: "b", Data: domain.NodeData{Category: "SW"}},
		},
		Links: []domain.Link{{Source: "a", Target: "b", Data: domain.LinkData{Speed: "10G"}}},
	}
	if err := SaveGraph(dir, g); err != nil {
		t.Fatalf("SaveGraph() error: %v", err)
	}
	loaded, err := LoadGraph(dir)
	if err != nil {
		t.Fatalf("LoadGraph() error: %v", err)
	}
	if len(loaded.Nodes) != 2 || loaded.Nodes[0].Data.Sysname != "a.example.org" || loaded.Links[0].Data.Speed != "10G" {
		t.Errorf("LoadGraph() = %+v", loaded)
	}

	if err := SaveGraph(dir, &domain.Graph{Links: []domain.Link{{Source: "x", Target: "y"}}}); err == nil {
		t.Error("SaveGraph() accepted an invalid graph")
	}
}

func TestParseGraphAcceptsJSON(t *testing.T) {
	g, err := ParseGraph([]byte(`{"nodes":[{"id":"a","fixed":true,"data":{"category":"GW"}}],"links":[]}`))
	if err != nil {
		t.Fatalf("ParseGraph() error: %v", err)
	}
	if len(g.Nodes) != 1 || !g.Nodes[0].Fixed {
		t.Errorf("ParseGraph() = %+v", g)
	}
}

func TestWatchGraph(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *domain.Graph, 4)
	watchErr := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		watchErr <- WatchGraph(ctx, dir, zap.NewNop(), func(g *domain.Graph) {
			select {
			case reloaded <- g:
			default:
			}
		})
	}()
	<-ready

	// The watcher registers asynchronously; keep writing until it reports.
	g := &domain.Graph{Nodes: []domain.Node{{ID: "a", Data: domain.NodeData{Category: "GW"}}}}
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case got := <-reloaded:
			if len(got.Nodes) != 1 || got.Nodes[0].ID != "a" {
				t.Fatalf("reloaded graph = %+v", got)
			}
			cancel()
			if err := <-watchErr; err != nil {
				t.Fatalf("WatchGraph() error: %v", err)
			}
			return
		case <-ticker.C:
			if err := SaveGraph(dir, g); err != nil {
				t.Fatalf("SaveGraph() error: %v", err)
			}
		case <-deadline:
			t.Fatal("graph change was not reported")
		}
	}
}
