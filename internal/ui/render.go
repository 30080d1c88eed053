package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/tview"

	"github.com/plumber-cd/ez-netmap/internal/domain"
)

// onViewChanged redraws everything that depends on the working view.
func (a *App) onViewChanged() {
	a.ReloadMenu(a.CurrentNodeID)
}

// ReloadMenu rebuilds the node list from the nodes the working view shows, keeping focus
// on focusedID when it is still listed.
func (a *App) ReloadMenu(focusedID string) {
	attrs := a.View.Attributes()
	visible := a.Graph.Visible(attrs.Categories, attrs.DisplayOrphans)

	// Clear and AddItem fire the changed callback; keep the node index consistent first.
	a.menuNodeIDs = make([]string, 0, len(visible))
	for _, n := range visible {
		a.menuNodeIDs = append(a.menuNodeIDs, n.ID)
	}

	a.NavPanel.Clear()
	fromIndex := -1
	for i, n := range visible {
		if n.ID == focusedID {
			fromIndex = i
		}
		a.NavPanel.AddItem(tview.Escape(n.DisplayID()), n.ID, 0, nil)
	}

	if fromIndex >= 0 {
		a.NavPanel.SetCurrentItem(fromIndex)
	}
	a.onNodeChanged(a.NavPanel.GetCurrentItem())
	a.NavPanel.SetTitle(fmt.Sprintf("Nodes (%d/%d)", len(visible), len(a.Graph.Nodes)))
}

// onNodeChanged is called when nav panel focus moves to the node at index.
func (a *App) onNodeChanged(index int) {
	if index < 0 || index >= len(a.menuNodeIDs) {
		a.CurrentNodeID = ""
		a.CurrentFocusKeys = nil
		a.renderDetails(nil)
		return
	}
	a.CurrentNodeID = a.menuNodeIDs[index]
	n := a.Graph.NodeByID(a.CurrentNodeID)
	if n != nil && n.Fixed {
		a.CurrentFocusKeys = []string{"<f> Unpin"}
	} else {
		a.CurrentFocusKeys = []string{"<f> Pin"}
	}
	a.renderDetails(n)
}

// renderDetails shows the focused node followed by the working view.
func (a *App) renderDetails(n *domain.Node) {
	a.DetailsPanel.Clear()
	var sb strings.Builder
	if n != nil {
		sb.WriteString(a.renderNode(n))
		sb.WriteString("\n")
	}
	sb.WriteString(a.renderView(a.View.Attributes()))
	a.DetailsPanel.SetText(sb.String())
}

func (a *App) renderNode(n *domain.Node) string {
	neighbors := a.Graph.Neighbors(n.ID)
	neighborsText := "<none>"
	if len(neighbors) > 0 {
		neighborsText = strings.Join(neighbors, ", ")
	}
	return fmt.Sprintf(
		"Node                 : %s\nSysname              : %s\nLabel                : %s\nCategory             : %s\nPinned               : %s\nPosition             : %s, %s\nNeighbors            : %s\n",
		n.ID,
		defaultIfEmpty(n.Data.Sysname, "-"),
		defaultIfEmpty(n.Data.Label, "-"),
		defaultIfEmpty(n.Data.Category, "-"),
		yesNo(n.Fixed),
		strconv.FormatFloat(n.X, 'f', -1, 64),
		strconv.FormatFloat(n.Y, 'f', -1, 64),
		neighborsText,
	)
}

func (a *App) renderView(attrs domain.ViewAttributes) string {
	id := attrs.ViewID
	if id == "" {
		id = "<unsaved>"
	}
	return fmt.Sprintf(
		"View                 : %s\nView ID              : %s\nPublic               : %s\nTopology             : %s\nCategories           : %s\nZoom                 : %s\nOrphans              : %s\nPinned nodes         : %d\n",
		defaultIfEmpty(attrs.Title, "<untitled>"),
		id,
		yesNo(attrs.IsPublic),
		domain.RenderTopology(attrs.Topology),
		domain.RenderCategories(attrs.Categories),
		defaultIfEmpty(attrs.Zoom, domain.DefaultZoom),
		yesNo(attrs.DisplayOrphans),
		len(domain.FixedNodes(a.Graph)),
	)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
