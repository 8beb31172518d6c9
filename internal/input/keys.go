// File: internal/input/keys.go
package input

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrBadKeyDescriptor signals a key descriptor that cannot be resolved to a
// pressable combination.
var ErrBadKeyDescriptor = errors.New("input: bad key descriptor")

// Modifier is a canonical modifier key name.
type Modifier string

const (
	ModCmd   Modifier = "cmd"
	ModCtrl  Modifier = "ctrl"
	ModAlt   Modifier = "alt"
	ModShift Modifier = "shift"
)

// KeyCombo is a resolved key press: zero or more modifiers plus at most one
// primary key. A combo with an empty Key and non-empty Modifiers means the
// modifiers are tapped individually.
type KeyCombo struct {
	Key       string
	Modifiers []Modifier
}

var modifierAliases = map[string]Modifier{
	"cmd":     ModCmd,
	"command": ModCmd,
	"win":     ModCmd,
	"super":   ModCmd,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
}

// specialKeys maps descriptor names to canonical key names. Canonical names
// follow the common automation vocabulary so drivers can translate them to
// their backend's key identifiers.
var specialKeys = map[string]string{
	"enter":        "enter",
	"return":       "enter",
	"esc":          "esc",
	"escape":       "esc",
	"space":        "space",
	"spacebar":     "space",
	"tab":          "tab",
	"backspace":    "backspace",
	"delete":       "delete",
	"del":          "delete",
	"up":           "up",
	"down":         "down",
	"left":         "left",
	"right":        "right",
	"page_up":      "pageup",
	"pageup":       "pageup",
	"page_down":    "pagedown",
	"pagedown":     "pagedown",
	"home":         "home",
	"end":          "end",
	"insert":       "insert",
	"menu":         "menu",
	"num_lock":     "numlock",
	"numlock":      "numlock",
	"pause":        "pause",
	"print_screen": "printscreen",
	"printscreen":  "printscreen",
	"scroll_lock":  "scrolllock",
	"scrolllock":   "scrolllock",
	"caps_lock":    "capslock",
	"capslock":     "capslock",
}

func init() {
	for i := 1; i <= 20; i++ {
		name := fmt.Sprintf("f%d", i)
		specialKeys[name] = name
	}
}

// ParseCombo resolves a key descriptor like "ctrl+shift+t", "Enter" or
// "cmd" into a KeyCombo. Matching is case-insensitive and whitespace around
// "+" separators is ignored. Rules:
//
//   - each part is first tried as a modifier alias, then as a special key,
//     then as a single printable character;
//   - at most one non-modifier part is allowed;
//   - duplicate modifiers collapse;
//   - an unknown multi-character part is an error.
func ParseCombo(descriptor string) (KeyCombo, error) {
	trimmed := strings.TrimSpace(descriptor)
	if trimmed == "" {
		return KeyCombo{}, fmt.Errorf("%w: empty descriptor", ErrBadKeyDescriptor)
	}

	var combo KeyCombo
	seen := map[Modifier]bool{}
	for _, part := range strings.Split(trimmed, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			return KeyCombo{}, fmt.Errorf("%w: empty part in %q", ErrBadKeyDescriptor, descriptor)
		}
		if mod, ok := modifierAliases[part]; ok {
			if !seen[mod] {
				seen[mod] = true
				combo.Modifiers = append(combo.Modifiers, mod)
			}
			continue
		}
		key, ok := specialKeys[part]
		if !ok {
			if utf8.RuneCountInString(part) != 1 {
				return KeyCombo{}, fmt.Errorf("%w: unknown key %q in %q", ErrBadKeyDescriptor, part, descriptor)
			}
			key = part
		}
		if combo.Key != "" {
			return KeyCombo{}, fmt.Errorf("%w: multiple primary keys in %q", ErrBadKeyDescriptor, descriptor)
		}
		combo.Key = key
	}
	return combo, nil
}

// String renders the combo back to "+"-joined canonical form.
func (c KeyCombo) String() string {
	parts := make([]string, 0, len(c.Modifiers)+1)
	for _, m := range c.Modifiers {
		parts = append(parts, string(m))
	}
	if c.Key != "" {
		parts = append(parts, c.Key)
	}
	return strings.Join(parts, "+")
}
