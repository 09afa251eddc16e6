package prompt

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/artisanhub/craft-ai-bridge/schema"
)

func registerStoryContract(t *testing.T) {
	t.Helper()
	schema.Reset()
	t.Cleanup(schema.Reset)
	schema.MustRegister(&schema.Contract{
		Name: "refineProductStory",
		Input: []schema.FieldSpec{
			{Name: "originalStory", Type: schema.FieldString, Required: true},
			{Name: "refinementInstruction", Type: schema.FieldString, Required: true},
		},
	})
}

func TestTemplate_Placeholders(t *testing.T) {
	tpl := Template{Text: "Story: {{originalStory}}\nInstruction: {{ refinementInstruction }}\nAgain: {{originalStory}}"}
	got := tpl.Placeholders()
	want := []string{"originalStory", "refinementInstruction"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders() = %v, want %v", got, want)
	}
}

func TestTemplate_Render(t *testing.T) {
	tpl := Template{Text: "Cost {{materialCost}} over {{hoursOfWork}} hours."}
	got := tpl.Render(schema.Record{"materialCost": 12.5, "hoursOfWork": 3.0})
	want := "Cost 12.5 over 3 hours."
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRegister_RejectsUnknownContract(t *testing.T) {
	schema.Reset()
	t.Cleanup(schema.Reset)
	Reset()
	t.Cleanup(Reset)

	err := Register(Template{Contract: "missing", Text: "hello"})
	if err == nil {
		t.Fatal("expected error for unknown contract")
	}
}

func TestRegister_RejectsUnboundPlaceholder(t *testing.T) {
	registerStoryContract(t)
	Reset()
	t.Cleanup(Reset)

	err := Register(Template{
		Contract: "refineProductStory",
		Text:     "Rewrite {{originalStory}} in the voice of {{artisanName}}.",
	})
	if err == nil {
		t.Fatal("expected error for placeholder that is not a contract field")
	}
}

func TestOverride_ReplacesExisting(t *testing.T) {
	registerStoryContract(t)
	Reset()
	t.Cleanup(Reset)

	MustRegister(Template{Contract: "refineProductStory", Text: "v1 {{originalStory}}"})
	if err := Override(Template{Contract: "refineProductStory", Text: "v2 {{originalStory}}"}); err != nil {
		t.Fatalf("override failed: %v", err)
	}
	tpl, ok := Resolve("refineProductStory")
	if !ok {
		t.Fatal("template not resolvable after override")
	}
	if tpl.Text != "v2 {{originalStory}}" {
		t.Errorf("Text = %q, want override text", tpl.Text)
	}
}

func TestLoadDir_LoadsYAMLOverrides(t *testing.T) {
	registerStoryContract(t)
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	content := "contract: refineProductStory\ntext: |\n  Refine {{originalStory}} following {{refinementInstruction}}.\n"
	if err := os.WriteFile(filepath.Join(dir, "refine.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if loaded != 1 {
		t.Errorf("loaded = %d, want 1", loaded)
	}
	if _, ok := Resolve("refineProductStory"); !ok {
		t.Error("override not registered")
	}
}

func TestLoadDir_UsesFilenameWhenContractOmitted(t *testing.T) {
	registerStoryContract(t)
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	content := "text: |\n  Refine {{originalStory}}.\n"
	if err := os.WriteFile(filepath.Join(dir, "refineProductStory.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if _, ok := Resolve("refineProductStory"); !ok {
		t.Error("template not bound via filename fallback")
	}
}

func TestLoadDir_MissingDirIsNotAnError(t *testing.T) {
	loaded, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != 0 {
		t.Errorf("loaded = %d, want 0", loaded)
	}
}
