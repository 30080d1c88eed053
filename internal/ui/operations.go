package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/plumber-cd/ez-netmap/internal/domain"
	"github.com/plumber-cd/ez-netmap/internal/export"
	"github.com/plumber-cd/ez-netmap/internal/store"
)

const exportFileName = store.MarkdownFileName

// TogglePin pins or unpins the focused node.
func (a *App) TogglePin() {
	if a.CurrentNodeID == "" {
		a.setStatus("No node selected.")
		return
	}
	fixed, ok := a.Graph.ToggleFixed(a.CurrentNodeID)
	if !ok {
		a.setStatus("Node " + a.CurrentNodeID + " is no longer in the graph.")
		return
	}
	a.ReloadMenu(a.CurrentNodeID)
	if fixed {
		a.setStatus("Pinned " + a.CurrentNodeID)
	} else {
		a.setStatus("Unpinned " + a.CurrentNodeID)
	}
}

// ToggleOrphans shows or hides nodes without links in the working view.
func (a *App) ToggleOrphans() {
	a.View.Set(func(attrs *domain.ViewAttributes) {
		attrs.DisplayOrphans = !attrs.DisplayOrphans
	})
}

// CycleCategories steps the category filter of the working view.
func (a *App) CycleCategories() {
	all := a.Graph.Categories()
	a.View.Set(func(attrs *domain.ViewAttributes) {
		attrs.Categories = domain.NextCategoryFilter(all, attrs.Categories)
	})
	a.setStatus("Categories: " + domain.RenderCategories(a.View.Attributes().Categories))
}

// ZoomIn scales the working view up one step.
func (a *App) ZoomIn() {
	a.zoom(domain.Zoom.In)
}

// ZoomOut scales the working view down one step.
func (a *App) ZoomOut() {
	a.zoom(domain.Zoom.Out)
}

func (a *App) zoom(step func(domain.Zoom) domain.Zoom) {
	current, err := domain.ParseZoom(a.View.Attributes().Zoom)
	if err != nil {
		a.logger.Warn("resetting unreadable zoom", zap.Error(err))
		current, _ = domain.ParseZoom(domain.DefaultZoom)
	}
	next := step(current).String()
	a.View.Set(func(attrs *domain.ViewAttributes) {
		attrs.Zoom = next
	})
	a.setStatus("Zoom: " + next)
}

// OpenSaveViewDialog opens the save dialog for the working view.
func (a *App) OpenSaveViewDialog() {
	if a.saveDialog != nil {
		a.saveDialog.Close()
	}
	a.saveDialog = NewSaveViewDialog(a, a.Graph, a.View).Render()
}

// NewView starts an unsaved view that keeps the current filters, zoom and pins.
func (a *App) NewView() {
	attrs := a.View.Attributes()
	attrs.ViewID = ""
	attrs.Title = ""
	attrs.Description = ""
	attrs.IsPublic = false
	attrs.LastModified = time.Time{}
	// A view still loading must not replace this one.
	a.navigation++
	a.replaceView(domain.NewView(attrs), newViewRoute)
	a.setStatus("Started a new view.")
}

// ReloadGraph fetches a fresh graph snapshot.
func (a *App) ReloadGraph() {
	ctx, cancel := a.requestContext()
	defer cancel()
	g, err := a.graphs.Graph(ctx)
	if err != nil {
		a.logger.Error("reload graph failed", zap.Error(err))
		a.setStatus("Error reloading graph: " + err.Error())
		return
	}
	a.SetGraph(g)
}

// QueueGraph hands a graph loaded on another goroutine to the UI loop.
func (a *App) QueueGraph(g *domain.Graph) {
	a.TviewApp.QueueUpdateDraw(func() {
		a.SetGraph(g)
	})
}

// SetGraph replaces the graph snapshot, keeping the pins of nodes that survive.
func (a *App) SetGraph(g *domain.Graph) {
	var pinned []domain.Node
	for _, n := range a.Graph.Nodes {
		if n.Fixed {
			pinned = append(pinned, n)
		}
	}
	g.ApplyFixed(pinned)
	a.Graph = g
	a.ReloadMenu(a.CurrentNodeID)
	p := message.NewPrinter(language.English)
	a.setStatus(p.Sprintf("Graph reloaded: %d nodes, %d links.", len(g.Nodes), len(g.Links)))
}

// ExportViews renders the saved views to the markdown report in the data dir.
func (a *App) ExportViews() {
	ctx, cancel := a.requestContext()
	defer cancel()
	views, err := a.views.ListViews(ctx)
	if err != nil {
		a.setStatus("Error listing views: " + err.Error())
		return
	}

	md, err := export.RenderMarkdown(views, a.Graph)
	if err != nil {
		a.setStatus("Error rendering markdown: " + err.Error())
		return
	}
	mdPath := filepath.Join(a.DataDir, exportFileName)
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		a.setStatus("Error writing markdown: " + err.Error())
		return
	}

	a.setStatus(fmt.Sprintf("Exported %d views to %s", len(views), exportFileName))
}
