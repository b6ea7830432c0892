package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TextRenderer writes a minimal plain-text sheet. It exists so the engine
// is runnable end to end without a document backend; richer renderers
// satisfy the same interface.
type TextRenderer struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewTextRenderer creates a text renderer validating template ids against
// the given registry.
func NewTextRenderer(registry *Registry, logger zerolog.Logger) *TextRenderer {
	return &TextRenderer{
		registry: registry,
		logger:   logger.With().Str("component", "text_renderer").Logger(),
	}
}

// Render writes the sheet to "<module_code>_<sheet_label>.txt" in the
// request's output directory and returns the full path.
func (r *TextRenderer) Render(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := r.registry.Validate(req.TemplateID); err != nil {
		return "", err
	}
	if req.OutputDir == "" {
		return "", fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmpl, _ := r.registry.Get(req.TemplateID)

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", req.ModuleCode, req.ModuleName)
	fmt.Fprintf(&b, "%s\n\n", req.SheetLabel)
	fmt.Fprintf(&b, "Name:       %s\n", req.StudentName)
	fmt.Fprintf(&b, "Student ID: %s\n", req.StudentID)
	fmt.Fprintf(&b, "Template:   %s\n", tmpl.Name)
	fmt.Fprintf(&b, "Generated:  %s\n", time.Now().Format("2006-01-02 15:04"))

	name := fmt.Sprintf("%s_%s.txt", req.ModuleCode, strings.ReplaceAll(req.SheetLabel, " ", "_"))
	path := filepath.Join(req.OutputDir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write sheet: %w", err)
	}

	r.logger.Info().Str("path", path).Str("template", req.TemplateID).Msg("sheet rendered")
	return path, nil
}
