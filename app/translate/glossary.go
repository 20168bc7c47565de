package translate

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// GlossaryRule replaces every case-insensitive match of Pattern.
type GlossaryRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// Glossary is an ordered list of substitutions. Order matters: longer forms
// ("paleontologists") must come before the shorter forms they contain.
type Glossary struct {
	rules    []GlossaryRule
	compiled []*regexp.Regexp
}

var defaultGlossaryRules = []GlossaryRule{
	{`\bTyrannosaurus\b`, "티라노사우루스"},
	{`\bTriceratops\b`, "트리케라톱스"},
	{`\bStegosaurus\b`, "스테고사우루스"},
	{`\bVelociraptor\b`, "벨로키랍토르"},
	{`\bBrachiosaurus\b`, "브라키오사우루스"},
	{`\bCretaceous\b`, "백악기"},
	{`\bJurassic\b`, "쥐라기"},
	{`\bTriassic\b`, "트라이아스기"},
	{`\bMesozoic\b`, "중생대"},
	{`\bfossils?\b`, "화석"},
	{`\bdinosaurs?\b`, "공룡"},
	{`\bpaleontology\b`, "고생물학"},
	{`\bpaleontologists?\b`, "고생물학자"},
	{`\bextinct(?:ion)?\b`, "멸종"},
	{`\bevolution(?:ary)?\b`, "진화"},
	{`\bspecies\b`, "종"},
	{`\bskeleton\b`, "골격"},
	{`\bbones?\b`, "뼈"},
	{`\bdiscover(?:ed|y)?\b`, "발견"},
	{`\bfound\b`, "발견된"},
	{`\bannounced?\b`, "발표"},
	{`\breveal(?:ed)?\b`, "공개"},
	{`\bstudy\b`, "연구"},
}

func DefaultGlossary() *Glossary {
	g, err := NewGlossary(defaultGlossaryRules)
	if err != nil {
		panic(err)
	}
	return g
}

func NewGlossary(rules []GlossaryRule) (*Glossary, error) {
	g := &Glossary{
		rules:    rules,
		compiled: make([]*regexp.Regexp, 0, len(rules)),
	}

	for i, rule := range rules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glossary pattern at index %d: %w", i, err)
		}
		g.compiled = append(g.compiled, re)
	}

	return g, nil
}

// LoadGlossary reads a YAML list of rules. An empty path yields the default glossary.
func LoadGlossary(path string) (*Glossary, error) {
	if path == "" {
		return DefaultGlossary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file: %w", err)
	}

	var rules []GlossaryRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse glossary YAML: %w", err)
	}

	return NewGlossary(rules)
}

// Apply runs every substitution in order.
func (g *Glossary) Apply(text string) string {
	if g == nil {
		return text
	}
	for i, re := range g.compiled {
		text = re.ReplaceAllLiteralString(text, g.rules[i].Replacement)
	}
	return text
}

func (g *Glossary) Len() int {
	if g == nil {
		return 0
	}
	return len(g.rules)
}
