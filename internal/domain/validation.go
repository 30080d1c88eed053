package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the invariants of a view before it is stored.
func (a *ViewAttributes) Validate() error {
	if err := validate.Struct(a); err != nil {
		return formatValidationError(err)
	}
	if _, err := ParseZoom(a.Zoom); err != nil {
		return err
	}
	for _, n := range a.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node id must be set")
		}
		if n.Data.Category == CategoryElink {
			return fmt.Errorf("node %s: %s nodes cannot be pinned", n.ID, CategoryElink)
		}
	}
	return nil
}

// Validate checks that links only reference known nodes and that node ids are unique.
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node id must be set")
		}
		if _, ok := seen[n.ID]; ok {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, l := range g.Links {
		if _, ok := seen[l.Source]; !ok {
			return fmt.Errorf("link %s -> %s: unknown source", l.Source, l.Target)
		}
		if _, ok := seen[l.Target]; !ok {
			return fmt.Errorf("link %s -> %s: unknown target", l.Source, l.Target)
		}
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
