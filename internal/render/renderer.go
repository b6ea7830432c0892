// Package render defines the document-renderer contract consumed by the
// schedule engine, a registry of known templates, and a plain-text
// renderer used when no richer backend is wired in.
package render

import (
	"context"
	"fmt"
)

// Request carries everything a renderer needs to produce one sheet.
type Request struct {
	StudentName string
	StudentID   string
	ModuleCode  string
	ModuleName  string
	// SheetLabel is the formatted label, e.g. "Practical 01".
	SheetLabel string
	// TemplateID selects the layout; opaque to the schedule engine and
	// resolved only here.
	TemplateID string
	OutputDir  string
}

// Renderer produces a sheet document and returns the path it was written to.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// Template describes one registered sheet layout.
type Template struct {
	ID          string
	Name        string
	Description string
}

// Registry holds the known template set. The schedule engine treats
// template ids as opaque strings; only renderers resolve them here.
type Registry struct {
	templates map[string]Template
	order     []string
}

// NewRegistry returns a registry pre-populated with the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template)}
	r.Register(Template{ID: "classic", Name: "Classic", Description: "Plain university lab sheet layout"})
	r.Register(Template{ID: "sliit", Name: "SLIIT", Description: "SLIIT branded lab sheet layout"})
	return r
}

// Register adds or replaces a template.
func (r *Registry) Register(t Template) {
	if _, exists := r.templates[t.ID]; !exists {
		r.order = append(r.order, t.ID)
	}
	r.templates[t.ID] = t
}

// Get returns the template with the given id.
func (r *Registry) Get(id string) (Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// Validate returns an error when the template id is unknown.
func (r *Registry) Validate(id string) error {
	if _, ok := r.templates[id]; !ok {
		return fmt.Errorf("unknown template %q", id)
	}
	return nil
}

// List returns all templates in registration order.
func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id])
	}
	return out
}
