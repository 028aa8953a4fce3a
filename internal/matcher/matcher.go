// Package matcher maps recognized utterances to controller endpoints.
//
// Matching is substring based so that filler words added by speech
// recognition ("please", "now", "the") do not get in the way. Rules are
// tried in declaration order and the first hit wins; the loose "all"
// patterns only run once every rule has missed.
package matcher

import (
	"regexp"
	"strings"

	"voicelab/internal/domain"
)

// Rule maps a set of synonymous trigger phrases to one endpoint.
type Rule struct {
	Phrases  []string
	Endpoint domain.Endpoint
}

type fallback struct {
	pattern  *regexp.Regexp
	endpoint domain.Endpoint
}

// DefaultRules is the command table, most specific phrases first.
// Every phrase carries the full word "on" or "off" so that on/off forms of
// the same device never contain each other.
var DefaultRules = []Rule{
	{Phrases: []string{"turn everything on", "turn all on", "all on"}, Endpoint: domain.EndpointAllOn},
	{Phrases: []string{"turn everything off", "turn all off", "all off"}, Endpoint: domain.EndpointAllOff},
	{Phrases: []string{"led on", "turn on led", "turn led on"}, Endpoint: domain.EndpointLEDOn},
	{Phrases: []string{"led off", "turn off led", "turn led off"}, Endpoint: domain.EndpointLEDOff},
	{Phrases: []string{"light on", "turn on light", "turn light on"}, Endpoint: domain.EndpointLightOn},
	{Phrases: []string{"light off", "turn off light", "turn light off"}, Endpoint: domain.EndpointLightOff},
	{Phrases: []string{"fan on", "turn on fan"}, Endpoint: domain.EndpointFanOn},
	{Phrases: []string{"fan off", "turn off fan"}, Endpoint: domain.EndpointFanOff},
	{Phrases: []string{"projector on", "turn on projector", "turn projector on"}, Endpoint: domain.EndpointProjectorOn},
	{Phrases: []string{"projector off", "turn off projector", "turn projector off"}, Endpoint: domain.EndpointProjectorOff},
}

var defaultFallbacks = []fallback{
	{pattern: regexp.MustCompile(`(?i)\b(turn|switch) .* all .* on\b`), endpoint: domain.EndpointAllOn},
	{pattern: regexp.MustCompile(`(?i)\b(turn|switch) .* all .* off\b`), endpoint: domain.EndpointAllOff},
}

// Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	rules     []Rule
	fallbacks []fallback
}

func New() *Matcher {
	return NewWithRules(DefaultRules)
}

// NewWithRules builds a matcher over a caller supplied table. Phrases are
// lowercased; the "all" fallback patterns are always appended.
func NewWithRules(rules []Rule) *Matcher {
	own := make([]Rule, 0, len(rules))
	for _, r := range rules {
		phrases := make([]string, 0, len(r.Phrases))
		for _, p := range r.Phrases {
			if p = strings.ToLower(p); p != "" {
				phrases = append(phrases, p)
			}
		}
		own = append(own, Rule{Phrases: phrases, Endpoint: r.Endpoint})
	}
	return &Matcher{rules: own, fallbacks: defaultFallbacks}
}

// Match returns the endpoint for text, or false when nothing matches.
// No match is a normal outcome, not an error.
func (m *Matcher) Match(text string) (domain.Endpoint, bool) {
	text = strings.ToLower(text)

	for _, r := range m.rules {
		for _, p := range r.Phrases {
			if strings.Contains(text, p) {
				return r.Endpoint, true
			}
		}
	}

	for _, f := range m.fallbacks {
		if f.pattern.MatchString(text) {
			return f.endpoint, true
		}
	}

	return "", false
}

// Rules returns a copy of the table in evaluation order.
func (m *Matcher) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	for i, r := range m.rules {
		out[i] = Rule{Phrases: append([]string(nil), r.Phrases...), Endpoint: r.Endpoint}
	}
	return out
}
