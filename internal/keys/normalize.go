package keys

import (
	"strings"
	"unicode/utf8"
)

// Pointer button indices in the standard five-button numbering.
const (
	ButtonPrimary   = 0
	ButtonAuxiliary = 1
	ButtonSecondary = 2
	ButtonBack      = 3
	ButtonForward   = 4
)

var namedKeys = map[string]string{
	"Meta":       "win",
	"Control":    "ctrl",
	"Alt":        "alt",
	"Shift":      "shift",
	" ":          "space",
	"+":          "plus",
	"Enter":      "enter",
	"Escape":     "escape",
	"Tab":        "tab",
	"Backspace":  "backspace",
	"Delete":     "delete",
	"Insert":     "insert",
	"Home":       "home",
	"End":        "end",
	"PageUp":     "pageup",
	"PageDown":   "pagedown",
	"ArrowUp":    "arrowup",
	"ArrowDown":  "arrowdown",
	"ArrowLeft":  "arrowleft",
	"ArrowRight": "arrowright",
}

// The primary button is the cancel gesture and has no token.
var buttonTokens = map[int]string{
	ButtonAuxiliary: "mousebutton3",
	ButtonSecondary: "mousebutton2",
	ButtonBack:      "mousebutton4",
	ButtonForward:   "mousebutton5",
}

// Normalize maps a raw key identifier to its canonical token. Unknown
// identifiers fall back to their lowercased form with aliases resolved, so a
// captured token is the same one ParseChord would produce. A "+" inside an
// unknown identifier is spelled out since it separates tokens.
func Normalize(raw string) string {
	if token, ok := namedKeys[raw]; ok {
		return token
	}
	if utf8.RuneCountInString(raw) == 1 {
		return strings.ToLower(raw)
	}
	if isFunctionKey(raw) {
		return strings.ToLower(raw)
	}
	if digit, ok := strings.CutPrefix(raw, "Digit"); ok && digit != "" {
		return digit
	}
	if letter, ok := strings.CutPrefix(raw, "Key"); ok && letter != "" {
		return strings.ToLower(letter)
	}
	token := strings.ReplaceAll(strings.ToLower(raw), Separator, namedKeys[Separator])
	return Resolve(token)
}

// NormalizeButton maps a pointer button index to its canonical token.
func NormalizeButton(button int) (string, bool) {
	token, ok := buttonTokens[button]
	return token, ok
}

// IsModifier reports whether token is one of the ordered modifier tokens.
func IsModifier(token string) bool {
	_, ok := modifierRank[token]
	return ok
}

func isFunctionKey(raw string) bool {
	if len(raw) < 2 || len(raw) > 3 || raw[0] != 'F' {
		return false
	}
	for i := 1; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return false
		}
	}
	return true
}

// Remapper rewrites raw key identifiers before the built-in table applies.
type Remapper interface {
	Remap(raw string) (token string, ok bool)
}

// Normalizer applies an optional Remapper ahead of Normalize.
type Normalizer struct {
	remap Remapper
}

func NewNormalizer(remap Remapper) Normalizer {
	return Normalizer{remap: remap}
}

// Key normalizes a raw key identifier. Remapped tokens that are blank or
// contain the separator are ignored.
func (n Normalizer) Key(raw string) string {
	if n.remap != nil {
		if token, ok := n.remap.Remap(raw); ok {
			token = strings.ToLower(strings.TrimSpace(token))
			if token != "" && !strings.Contains(token, Separator) {
				return Resolve(token)
			}
		}
	}
	return Normalize(raw)
}

// Button normalizes a pointer button index.
func (n Normalizer) Button(button int) (string, bool) {
	return NormalizeButton(button)
}
