package connector

import "testing"

func TestNormalizeChord(t *testing.T) {
	tests := []struct {
		name  string
		press KeyPress
		want  string
	}{
		{"orders modifiers", KeyPress{Key: "ArrowLeft", Modifiers: []string{"Shift", "Ctrl"}}, "ctrl+shift+arrowleft"},
		{"folds aliases", KeyPress{Key: "T", Modifiers: []string{"Cmd", "Option"}}, "alt+meta+t"},
		{"control alias", KeyPress{Key: "x", Modifiers: []string{"Control"}}, "ctrl+x"},
		{"collapses duplicates", KeyPress{Key: "x", Modifiers: []string{"ctrl", "Control", "CTRL"}}, "ctrl+x"},
		{"drops unknown modifiers", KeyPress{Key: "x", Modifiers: []string{"hyper", "shift"}}, "shift+x"},
		{"bare key", KeyPress{Key: "Escape"}, "escape"},
		{"empty key", KeyPress{Modifiers: []string{"ctrl"}}, ""},
	}
	for _, tt := range tests {
		if got := NormalizeChord(tt.press); got != tt.want {
			t.Errorf("%s: NormalizeChord() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParseChord(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ctrl+Shift+X", "ctrl+shift+x"},
		{"cmd+ArrowRight", "meta+arrowright"},
		{"x", "x"},
		{"", ""},
		{"ctrl+", ""},
	}
	for _, tt := range tests {
		if got := ParseChord(tt.in); got != tt.want {
			t.Errorf("ParseChord(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShortcutMapResolve(t *testing.T) {
	m := NewShortcutMap(map[string]Action{
		"Ctrl+Shift+ArrowLeft": ActionMoveLeft,
		"cmd+f":                ActionToggleFull,
		"broken+":              ActionRemovePane,
	})

	if action, ok := m.Resolve(KeyPress{Key: "arrowleft", Modifiers: []string{"control", "shift"}}); !ok || action != ActionMoveLeft {
		t.Fatalf("Resolve() = %q/%v, want moveLeft", action, ok)
	}
	if action, ok := m.Resolve(KeyPress{Key: "F", Modifiers: []string{"Meta"}}); !ok || action != ActionToggleFull {
		t.Fatalf("Resolve() = %q/%v, want toggleFullPane", action, ok)
	}
	if _, ok := m.Resolve(KeyPress{Key: "q"}); ok {
		t.Fatal("Resolve(unbound) = ok, want miss")
	}
	if len(m) != 2 {
		t.Fatalf("map size = %d, want unparseable chord skipped", len(m))
	}
}
