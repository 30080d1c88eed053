package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// CategoryElink marks nodes that stand in for a link between two devices rather than a device.
const CategoryElink = "elink"

// Topology layers a view can be drawn on.
const (
	TopologyLayer2 = 2
	TopologyLayer3 = 3
)

// DefaultZoom is the zoom of a map that has never been panned or scaled.
const DefaultZoom = "0,0;1"

var (
	// ErrMissingInput is returned when a dialog is opened without a graph or a view.
	ErrMissingInput = errors.New("missing graph data or view properties")
	// ErrPersist wraps every failure of the remote save.
	ErrPersist = errors.New("persist view")
	// ErrNotFound is returned for unknown view ids.
	ErrNotFound = errors.New("not found")
)

// Persister stores a view and returns its id. New views (empty ViewID) get a fresh id,
// existing views keep theirs.
type Persister interface {
	SaveView(ctx context.Context, attrs ViewAttributes) (string, error)
}

// ViewReader reads back persisted views.
type ViewReader interface {
	GetView(ctx context.Context, id string) (ViewAttributes, error)
	ListViews(ctx context.Context) ([]ViewAttributes, error)
}

// GraphSource provides the current topology snapshot.
type GraphSource interface {
	Graph(ctx context.Context) (*Graph, error)
}

// NodeData carries the device metadata of a node.
type NodeData struct {
	Category string `json:"category"`
	Sysname  string `json:"sysname,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Node is a single vertex of the topology graph.
type Node struct {
	ID    string   `json:"id"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Fixed bool     `json:"fixed"`
	Data  NodeData `json:"data"`
}

// DisplayID is the text a node is listed by.
func (n Node) DisplayID() string {
	name := n.Data.Sysname
	if name == "" {
		name = n.ID
	}
	if n.Fixed {
		return fmt.Sprintf("%s [%s] *", name, n.Data.Category)
	}
	return fmt.Sprintf("%s [%s]", name, n.Data.Category)
}

// LinkData carries the interface metadata of a link.
type LinkData struct {
	Speed     string `json:"speed,omitempty"`
	Interface string `json:"interface,omitempty"`
}

// Link connects two nodes by id.
type Link struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Data   LinkData `json:"data,omitempty"`
}

// ViewAttributes is the persisted representation of a saved map arrangement.
type ViewAttributes struct {
	ViewID         string    `json:"viewid,omitempty"`
	Title          string    `json:"title" validate:"required,max=100"`
	Description    string    `json:"description" validate:"max=1000"`
	IsPublic       bool      `json:"is_public"`
	Nodes          []Node    `json:"nodes"`
	Topology       int       `json:"topology" validate:"oneof=2 3"`
	Categories     []string  `json:"categories"`
	Zoom           string    `json:"zoom"`
	DisplayOrphans bool      `json:"display_orphans"`
	LastModified   time.Time `json:"last_modified,omitempty"`
}

// Clone returns a deep copy.
func (a ViewAttributes) Clone() ViewAttributes {
	a.Nodes = slices.Clone(a.Nodes)
	a.Categories = slices.Clone(a.Categories)
	return a
}

// DisplayID is the text a view is listed by.
func (a ViewAttributes) DisplayID() string {
	if a.IsPublic {
		return a.Title + " (public)"
	}
	return a.Title
}

// ViewPath returns the route of a saved view.
func ViewPath(id string) string {
	return "netmap/" + id
}

// ParseViewPath extracts the view id from a netmap/<id> route.
func ParseViewPath(path string) (string, bool) {
	id, ok := strings.CutPrefix(strings.Trim(path, "/#"), "netmap/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
