package store

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plumber-cd/ez-netmap/internal/domain"
	"sigs.k8s.io/yaml"
)

const (
	DataDirName      = ".ez-netmap"
	MarkdownFileName = "EZ-NETMAP.md"
	GraphFileName    = "graph.yaml"

	viewsDirName = "views"
)

// ViewStore keeps saved views as one YAML file each under the data directory.
// It implements domain.Persister, domain.ViewReader and domain.GraphSource.
type ViewStore struct {
	dir   string
	mu    sync.RWMutex
	views map[string]domain.ViewAttributes

	now   func() time.Time
	newID func() string
}

// Load reads all views from dir and returns a populated store.
func Load(dir string) (*ViewStore, error) {
	s := &ViewStore{
		dir:   dir,
		views: make(map[string]domain.ViewAttributes),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}

	viewsDir := filepath.Join(dir, DataDirName, viewsDirName)
	files, err := os.ReadDir(viewsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s directory: %w", viewsDir, err)
		}
		if err := os.MkdirAll(viewsDir, 0755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", viewsDir, err)
		}
		return s, nil
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".yaml" {
			continue
		}
		bytes, err := os.ReadFile(filepath.Join(viewsDir, f.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name(), err)
		}
		var attrs domain.ViewAttributes
		if err := yaml.Unmarshal(bytes, &attrs); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", f.Name(), err)
		}
		if attrs.ViewID == "" {
			return nil, fmt.Errorf("view in %s has no id", f.Name())
		}
		if err := attrs.Validate(); err != nil {
			return nil, fmt.Errorf("validate view %s: %w", attrs.ViewID, err)
		}
		s.views[attrs.ViewID] = attrs
	}

	return s, nil
}

// Dir returns the directory the store was loaded from.
func (s *ViewStore) Dir() string {
	return s.dir
}

// SaveView creates the view when it has no id and updates it otherwise.
func (s *ViewStore) SaveView(_ context.Context, attrs domain.ViewAttributes) (string, error) {
	attrs = attrs.Clone()
	if err := attrs.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if attrs.ViewID == "" {
		attrs.ViewID = s.newID()
	} else if _, ok := s.views[attrs.ViewID]; !ok {
		return "", fmt.Errorf("view %s: %w", attrs.ViewID, domain.ErrNotFound)
	}
	attrs.LastModified = s.now().UTC()

	if err := writeYAML(s.viewFileName(attrs.ViewID), attrs); err != nil {
		return "", err
	}
	s.views[attrs.ViewID] = attrs
	return attrs.ViewID, nil
}

// GetView returns the view with the given id.
func (s *ViewStore) GetView(_ context.Context, id string) (domain.ViewAttributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.views[id]
	if !ok {
		return domain.ViewAttributes{}, fmt.Errorf("view %s: %w", id, domain.ErrNotFound)
	}
	return attrs.Clone(), nil
}

// ListViews returns all views sorted by title, then id.
func (s *ViewStore) ListViews(_ context.Context) ([]domain.ViewAttributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]domain.ViewAttributes, 0, len(s.views))
	for _, attrs := range s.views {
		views = append(views, attrs.Clone())
	}
	slices.SortStableFunc(views, func(a, b domain.ViewAttributes) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
			cmp.Compare(a.ViewID, b.ViewID),
		)
	})
	return views, nil
}

// DeleteView removes a view.
func (s *ViewStore) DeleteView(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[id]; !ok {
		return fmt.Errorf("view %s: %w", id, domain.ErrNotFound)
	}
	if err := os.Remove(s.viewFileName(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove view %s: %w", id, err)
	}
	delete(s.views, id)
	return nil
}

// Graph reads the topology snapshot from the data directory.
func (s *ViewStore) Graph(_ context.Context) (*domain.Graph, error) {
	return LoadGraph(s.dir)
}

func (s *ViewStore) viewFileName(id string) string {
	return filepath.Join(s.dir, DataDirName, viewsDirName, safeFileNameSegment(id)+".yaml")
}

// LoadGraph reads graph.yaml from the data directory. A missing file is an empty graph.
func LoadGraph(dir string) (*domain.Graph, error) {
	path := filepath.Join(dir, DataDirName, GraphFileName)
	bytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.Graph{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseGraph(bytes)
}

// ParseGraph decodes and validates a YAML or JSON graph document.
func ParseGraph(bytes []byte) (*domain.Graph, error) {
	g := &domain.Graph{}
	if err := yaml.Unmarshal(bytes, g); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate graph: %w", err)
	}
	return g, nil
}

// SaveGraph writes the graph to graph.yaml in the data directory.
func SaveGraph(dir string, g *domain.Graph) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("validate graph: %w", err)
	}
	dataDir := filepath.Join(dir, DataDirName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dataDir, err)
	}
	return writeYAML(filepath.Join(dataDir, GraphFileName), g)
}

// writeYAML writes v next to fileName and renames it into place.
func writeYAML(fileName string, v interface{}) error {
	bytes, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	tmpFileName := fileName + ".tmp"
	if err := os.WriteFile(tmpFileName, bytes, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmpFileName, err)
	}
	if err := os.Rename(tmpFileName, fileName); err != nil {
		_ = os.Remove(tmpFileName)
		return fmt.Errorf("rename %s to %s: %w", tmpFileName, fileName, err)
	}
	return nil
}

// safeFileNameSegment sanitizes a string for use as a filename.
func safeFileNameSegment(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "item"
	}
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, trimmed)
	return strings.Trim(safe, "_")
}
