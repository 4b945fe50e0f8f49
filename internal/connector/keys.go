package connector

import (
	"sort"
	"strings"
)

// Action is an engine operation a forwarded key chord can invoke on the
// pane it was pressed in.
type Action string

const (
	ActionMoveLeft   Action = "moveLeft"
	ActionMoveRight  Action = "moveRight"
	ActionRemovePane Action = "removePane"
	ActionDetachPane Action = "detachPane"
	ActionToggleFull Action = "toggleFullPane"
)

var modifierRank = map[string]int{"ctrl": 0, "alt": 1, "shift": 2, "meta": 3}

func canonicalModifier(m string) string {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "ctrl", "control":
		return "ctrl"
	case "alt", "option":
		return "alt"
	case "shift":
		return "shift"
	case "meta", "cmd", "super", "win":
		return "meta"
	default:
		return ""
	}
}

// NormalizeChord renders a key press as its canonical chord string, for
// example "ctrl+shift+arrowleft". Modifier aliases (cmd, control, option)
// fold to ctrl/alt/shift/meta, duplicates collapse, order is fixed, so
// the same physical chord always yields the same string. An empty key
// yields "".
func NormalizeChord(press KeyPress) string {
	key := strings.ToLower(strings.TrimSpace(press.Key))
	if key == "" {
		return ""
	}

	mods := make([]string, 0, len(press.Modifiers))
	seen := make(map[string]bool, len(press.Modifiers))
	for _, m := range press.Modifiers {
		c := canonicalModifier(m)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		mods = append(mods, c)
	}
	sort.Slice(mods, func(i, j int) bool { return modifierRank[mods[i]] < modifierRank[mods[j]] })

	return strings.Join(append(mods, key), "+")
}

// ParseChord normalizes a chord written config-style as "mod+mod+key".
// Unparseable chords yield "".
func ParseChord(s string) string {
	parts := strings.Split(s, "+")
	press := KeyPress{Key: parts[len(parts)-1], Modifiers: parts[:len(parts)-1]}
	return NormalizeChord(press)
}

// ShortcutMap resolves key presses to actions. Keys are canonical chord
// strings; build one with NewShortcutMap so config spellings normalize.
type ShortcutMap map[string]Action

// NewShortcutMap builds a ShortcutMap from config-style chord strings.
// Chords that do not parse are skipped.
func NewShortcutMap(bindings map[string]Action) ShortcutMap {
	m := make(ShortcutMap, len(bindings))
	for chord, action := range bindings {
		if normalized := ParseChord(chord); normalized != "" {
			m[normalized] = action
		}
	}
	return m
}

// Resolve looks up the action bound to a key press.
func (m ShortcutMap) Resolve(press KeyPress) (Action, bool) {
	action, ok := m[NormalizeChord(press)]
	return action, ok
}
