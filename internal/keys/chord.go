package keys

import (
	"errors"
	"sort"
	"strings"
)

// Separator joins tokens in a serialized chord.
const Separator = "+"

var ErrEmptyChord = errors.New("chord has no keys")

var modifierRank = map[string]int{
	"win":   0,
	"ctrl":  1,
	"alt":   2,
	"shift": 3,
}

// Chord is the set of tokens held at the same time. Press order is not kept.
type Chord struct {
	tokens map[string]struct{}
}

func NewChord(tokens ...string) *Chord {
	c := &Chord{tokens: make(map[string]struct{}, len(tokens))}
	for _, token := range tokens {
		c.Add(token)
	}
	return c
}

// Add inserts token and reports whether the set changed.
func (c *Chord) Add(token string) bool {
	if token == "" {
		return false
	}
	if c.tokens == nil {
		c.tokens = make(map[string]struct{})
	}
	if _, ok := c.tokens[token]; ok {
		return false
	}
	c.tokens[token] = struct{}{}
	return true
}

func (c *Chord) Has(token string) bool {
	_, ok := c.tokens[token]
	return ok
}

func (c *Chord) Len() int {
	return len(c.tokens)
}

func (c *Chord) Clear() {
	clear(c.tokens)
}

// Tokens returns the tokens modifiers first (win, ctrl, alt, shift), then
// the rest in lexicographic order.
func (c *Chord) Tokens() []string {
	out := make([]string, 0, len(c.tokens))
	for token := range c.tokens {
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iMod := modifierRank[out[i]]
		rj, jMod := modifierRank[out[j]]
		switch {
		case iMod && jMod:
			return ri < rj
		case iMod:
			return true
		case jMod:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// String serializes the chord. An empty chord serializes to "".
func (c *Chord) String() string {
	return strings.Join(c.Tokens(), Separator)
}

var tokenAliases = map[string]string{
	"meta":        "win",
	"super":       "win",
	"control":     "ctrl",
	"menu":        "alt",
	"return":      "enter",
	"esc":         "escape",
	"del":         "delete",
	"ins":         "insert",
	"up":          "arrowup",
	"down":        "arrowdown",
	"left":        "arrowleft",
	"right":       "arrowright",
	"lmb":         "mousebutton1",
	"leftclick":   "mousebutton1",
	"rmb":         "mousebutton2",
	"rightclick":  "mousebutton2",
	"mmb":         "mousebutton3",
	"middleclick": "mousebutton3",
	"mb4":         "mousebutton4",
	"mb5":         "mousebutton5",
}

// Resolve maps a lowercased token to the canonical token it aliases, or
// returns it unchanged.
func Resolve(token string) string {
	if alias, ok := tokenAliases[token]; ok {
		return alias
	}
	return token
}

// ParseChord parses a "+" separated binding, accepting common aliases, and
// returns the chord it names. Empty parts are dropped.
func ParseChord(binding string) (*Chord, error) {
	chord := NewChord()
	for _, part := range strings.Split(binding, Separator) {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			continue
		}
		chord.Add(Resolve(token))
	}
	if chord.Len() == 0 {
		return nil, ErrEmptyChord
	}
	return chord, nil
}

// Canonical parses binding and returns its serialized canonical form.
func Canonical(binding string) (string, error) {
	chord, err := ParseChord(binding)
	if err != nil {
		return "", err
	}
	return chord.String(), nil
}

// SplitBinding splits a serialized binding into its tokens for display.
func SplitBinding(binding string) []string {
	if strings.TrimSpace(binding) == "" {
		return nil
	}
	parts := strings.Split(binding, Separator)
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
