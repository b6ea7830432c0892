package render

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"classic", "sliit"} {
		if _, ok := r.Get(id); !ok {
			t.Errorf("expected built-in template %q", id)
		}
		if err := r.Validate(id); err != nil {
			t.Errorf("Validate(%q) = %v", id, err)
		}
	}

	if err := r.Validate("missing"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRegistryListOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Template{ID: "custom", Name: "Custom"})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].ID != "classic" || list[1].ID != "sliit" || list[2].ID != "custom" {
		t.Errorf("unexpected order: %v", list)
	}

	// re-registering replaces without duplicating
	r.Register(Template{ID: "custom", Name: "Custom v2"})
	list = r.List()
	if len(list) != 3 {
		t.Fatalf("len after replace = %d, want 3", len(list))
	}
	if list[2].Name != "Custom v2" {
		t.Errorf("replace did not take: %v", list[2])
	}
}

func TestTextRendererRender(t *testing.T) {
	dir := t.TempDir()
	r := NewTextRenderer(NewRegistry(), zerolog.Nop())

	path, err := r.Render(context.Background(), Request{
		StudentName: "Jane Perera",
		StudentID:   "IT21000000",
		ModuleCode:  "SE3040",
		ModuleName:  "Application Frameworks",
		SheetLabel:  "Practical 01",
		TemplateID:  "classic",
		OutputDir:   dir,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !strings.HasSuffix(path, "SE3040_Practical_01.txt") {
		t.Errorf("unexpected path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	content := string(data)
	for _, want := range []string{"SE3040 - Application Frameworks", "Practical 01", "Jane Perera", "IT21000000"} {
		if !strings.Contains(content, want) {
			t.Errorf("sheet missing %q:\n%s", want, content)
		}
	}
}

func TestTextRendererUnknownTemplate(t *testing.T) {
	r := NewTextRenderer(NewRegistry(), zerolog.Nop())

	_, err := r.Render(context.Background(), Request{
		ModuleCode: "SE3040",
		SheetLabel: "Practical 01",
		TemplateID: "missing",
		OutputDir:  t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestTextRendererMissingOutputDir(t *testing.T) {
	r := NewTextRenderer(NewRegistry(), zerolog.Nop())

	_, err := r.Render(context.Background(), Request{
		ModuleCode: "SE3040",
		SheetLabel: "Practical 01",
		TemplateID: "classic",
	})
	if err == nil {
		t.Fatal("expected error for missing output directory")
	}
}

func TestTextRendererCancelledContext(t *testing.T) {
	r := NewTextRenderer(NewRegistry(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, Request{TemplateID: "classic", OutputDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected context error")
	}
}
