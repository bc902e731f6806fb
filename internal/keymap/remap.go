package keymap

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

type compiledRule interface {
	Match(raw string) (token string, ok bool)
}

// RuleParser parses one line into a compiled remap rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (compiledRule, error)
}

// Remapper rewrites raw key identifiers into canonical tokens using rules
// loaded from a file. The first matching rule wins.
type Remapper struct {
	rules []compiledRule
}

// Load reads and compiles remap rules using the built-in parsers. A blank
// path or a missing file yields an empty Remapper.
func Load(path string) (*Remapper, error) {
	return LoadWithParsers(path, defaultRuleParsers())
}

// LoadWithParsers allows parser extension without remapper changes.
func LoadWithParsers(path string, parsers []RuleParser) (*Remapper, error) {
	if len(parsers) == 0 {
		parsers = defaultRuleParsers()
	}

	if strings.TrimSpace(path) == "" {
		return &Remapper{}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Remapper{}, nil
		}
		return nil, fmt.Errorf("failed to read remap file %q: %w", path, err)
	}

	rules, err := parseRules(string(contents), parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remap file %q: %w", path, err)
	}

	return &Remapper{rules: rules}, nil
}

// Len returns the number of compiled rules.
func (r *Remapper) Len() int {
	return len(r.rules)
}

// Remap returns the token of the first rule matching raw.
func (r *Remapper) Remap(raw string) (string, bool) {
	for _, rule := range r.rules {
		if token, ok := rule.Match(raw); ok {
			return token, true
		}
	}
	return "", false
}

func parseRules(contents string, parsers []RuleParser) ([]compiledRule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]compiledRule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed := false
		for _, parser := range parsers {
			if !parser.CanParse(line) {
				continue
			}
			rule, err := parser.Parse(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", index+1, err)
			}
			rules = append(rules, rule)
			parsed = true
			break
		}

		if !parsed {
			return nil, fmt.Errorf("line %d: unsupported remap format", index+1)
		}
	}

	return rules, nil
}

func defaultRuleParsers() []RuleParser {
	return []RuleParser{regexRuleParser{}, literalRuleParser{}}
}

type literalRuleParser struct{}

func (literalRuleParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (literalRuleParser) Parse(line string) (compiledRule, error) {
	return parseLiteralRule(line)
}

type regexRuleParser struct{}

func (regexRuleParser) CanParse(line string) bool {
	return looksLikeRegexRule(line)
}

func (regexRuleParser) Parse(line string) (compiledRule, error) {
	return parseRegexRule(line)
}

// literalRule matches one raw identifier, ignoring case. A quoted source
// allows identifiers with surrounding spaces such as " ".
type literalRule struct {
	from  string
	token string
}

func parseLiteralRule(line string) (compiledRule, error) {
	parts := strings.SplitN(line, "=>", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid literal rule")
	}
	from := unquote(strings.TrimSpace(parts[0]))
	token := strings.TrimSpace(parts[1])
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}
	if token == "" {
		return nil, errors.New("literal rule token cannot be empty")
	}
	if strings.Contains(token, "+") {
		return nil, fmt.Errorf("token %q must not contain '+'", token)
	}
	return literalRule{from: from, token: token}, nil
}

func (r literalRule) Match(raw string) (string, bool) {
	if strings.EqualFold(raw, r.from) {
		return r.token, true
	}
	return "", false
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
}

func parseRegexRule(line string) (compiledRule, error) {
	if len(line) < 2 {
		return nil, errors.New("invalid regex rule")
	}
	delim := line[1]
	if isAlphaNumericOrSpace(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	pattern, pos, err := parseDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}
	if strings.TrimSpace(replacement) == "" {
		return nil, errors.New("regex replacement cannot be empty")
	}
	flags := strings.TrimSpace(line[pos:])

	caseSensitive := false
	for _, flag := range flags {
		switch flag {
		case 'i':
			caseSensitive = false
		case 'c':
			caseSensitive = true
		case ' ':
			continue
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}

	return regexRule{re: re, replacement: replacement}, nil
}

// Match rewrites the first match within raw. Anchor the pattern to map whole
// identifiers only. A rewrite that is blank or contains the chord separator
// does not match.
func (r regexRule) Match(raw string) (string, bool) {
	loc := r.re.FindStringSubmatchIndex(raw)
	if loc == nil {
		return "", false
	}
	var out []byte
	out = r.re.ExpandString(out, r.replacement, raw, loc)
	token := raw[:loc[0]] + string(out) + raw[loc[1]:]
	if strings.TrimSpace(token) == "" || strings.Contains(token, "+") {
		return "", false
	}
	return token, true
}

func parseDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func unquote(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	return value
}

func isAlphaNumericOrSpace(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == ' ' || char == '\t'
}

func looksLikeRegexRule(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isAlphaNumericOrSpace(line[1])
}
