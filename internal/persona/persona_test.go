package persona

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	r, err := NewRegistry(Defaults())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}

	ted, err := r.Get("ted")
	if err != nil {
		t.Fatalf("Get(ted): %v", err)
	}
	if ted.Low() != 140 || ted.High() != 170 || ted.Targets.MaxFillersPerMin != 3 {
		t.Errorf("ted targets = %+v", ted.Targets)
	}

	ids := []string{}
	for _, p := range r.List() {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "ted,leader,teacher" {
		t.Errorf("order = %v", ids)
	}
}

func TestRegistry_ListIsCopy(t *testing.T) {
	r, _ := NewRegistry(Defaults())
	list := r.List()
	list[0].Name = "mutated"
	if p, _ := r.Get("ted"); p.Name != "TED Speaker" {
		t.Error("List must not expose internal state")
	}
}

func TestRegistry_Unknown(t *testing.T) {
	r, _ := NewRegistry(Defaults())

	_, err := r.Get("teachr")
	if !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("err = %v, want ErrUnknownPersona", err)
	}
	if !strings.Contains(err.Error(), `did you mean "teacher"`) {
		t.Errorf("expected suggestion in %q", err)
	}

	_, err = r.Get("zzzzzz")
	if !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("err = %v, want ErrUnknownPersona", err)
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("unexpected suggestion in %q", err)
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name     string
		personas []Persona
	}{
		{"empty", nil},
		{"missing id", []Persona{{Name: "x", Targets: Targets{WPM: [2]float64{100, 120}}}}},
		{"inverted band", []Persona{{ID: "a", Name: "A", Targets: Targets{WPM: [2]float64{160, 120}}}}},
		{"zero band", []Persona{{ID: "a", Name: "A"}}},
		{"negative fillers", []Persona{{ID: "a", Name: "A", Targets: Targets{WPM: [2]float64{100, 120}, MaxFillersPerMin: -1}}}},
		{"duplicate", []Persona{
			{ID: "a", Name: "A", Targets: Targets{WPM: [2]float64{100, 120}}},
			{ID: "a", Name: "B", Targets: Targets{WPM: [2]float64{100, 120}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.personas); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFromReader(t *testing.T) {
	const doc = `
personas:
  - id: pitch
    name: Startup Pitch
    description: Fast, punchy, numbers-first.
    targets:
      wpm: [160, 190]
      max_fillers_per_min: 1
    voice:
      id: en-US-ken
      style: Promo
      speed: 1.1
`
	r, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	p, err := r.Get("pitch")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.High() != 190 || p.Voice.ID != "en-US-ken" || p.Voice.Style != "Promo" || p.Voice.Speed != 1.1 {
		t.Errorf("persona = %+v", p)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	const doc = `
personas:
  - id: x
    name: X
    targets:
      wpm: [100, 120]
    colour: blue
`
	if _, err := LoadFromReader(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad(t *testing.T) {
	r, err := Load("")
	if err != nil || r.Len() != 3 {
		t.Fatalf("Load(\"\") = %v, %v", r, err)
	}

	path := filepath.Join(t.TempDir(), "personas.yaml")
	if err := os.WriteFile(path, []byte("personas:\n  - id: a\n    name: A\n    targets:\n      wpm: [100, 120]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err = Load(path)
	if err != nil {
		t.Fatalf("Load(file): %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
