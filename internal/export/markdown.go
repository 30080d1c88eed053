package export

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/plumber-cd/ez-netmap/internal/domain"
)

//go:embed markdown.tmpl
var markdownTmpl string

var tmpl = template.Must(template.New("markdown").Parse(markdownTmpl))

// RenderMarkdown generates the markdown report of saved views. g resolves pinned node
// names and may be nil.
func RenderMarkdown(views []domain.ViewAttributes, g *domain.Graph) (string, error) {
	summaryRows := []map[string]string{}
	viewRows := []map[string]any{}

	for _, view := range views {
		if view.ViewID == "" {
			return "", fmt.Errorf("view %q has no id", view.Title)
		}
		anchor := "view-" + anchorSegment(view.ViewID)
		title := defaultIfEmpty(view.Title, "-")
		public := yesNo(view.IsPublic)
		topology := domain.RenderTopology(view.Topology)

		summaryRows = append(summaryRows, map[string]string{
			"Title":        markdownTableCell(title),
			"Anchor":       anchor,
			"Public":       public,
			"Topology":     topology,
			"Pinned":       strconv.Itoa(len(view.Nodes)),
			"LastModified": renderTime(view.LastModified),
		})

		nodes := []map[string]string{}
		for _, n := range view.Nodes {
			name := n.ID
			category := n.Data.Category
			if g != nil {
				if current := g.NodeByID(n.ID); current != nil {
					name = current.DisplayID()
					category = current.Data.Category
				}
			}
			nodes = append(nodes, map[string]string{
				"Name":     markdownCode(name),
				"Category": markdownTableCell(defaultIfEmpty(category, "-")),
				"X":        strconv.FormatFloat(n.X, 'f', -1, 64),
				"Y":        strconv.FormatFloat(n.Y, 'f', -1, 64),
			})
		}

		viewRows = append(viewRows, map[string]any{
			"Anchor":      anchor,
			"Title":       markdownInline(title),
			"Description": markdownBlockquote(strings.TrimSpace(view.Description)),
			"ID":          markdownCode(view.ViewID),
			"Route":       markdownCode(domain.ViewPath(view.ViewID)),
			"Public":      public,
			"Topology":    topology,
			"Zoom":        markdownCode(defaultIfEmpty(view.Zoom, domain.DefaultZoom)),
			"Categories":  markdownInline(domain.RenderCategories(view.Categories)),
			"Orphans":     yesNo(view.DisplayOrphans),
			"Nodes":       nodes,
		})
	}

	input := map[string]any{
		"Summary": summaryRows,
		"Views":   viewRows,
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, input); err != nil {
		return "", fmt.Errorf("execute markdown template: %w", err)
	}
	return sb.String(), nil
}

func markdownInline(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "|", "\\|")
	return value
}

func markdownCode(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "`", "'")
	return "`" + value + "`"
}

func markdownBlockquote(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")
	value = strings.ReplaceAll(value, "\n", "\n>\n> ")
	return value
}

func markdownTableCell(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", "<br>")
	return value
}

func anchorSegment(value string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

func renderTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
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
