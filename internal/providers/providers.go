package providers

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"ccdash/config/models"
)

// Env is the string-valued env mapping of a configuration file.
type Env map[string]string

// Provider recognises its own configurations from their env block
type Provider interface {
	// Name returns the provider's id (e.g., "kimi", "glm")
	Name() string
	// DisplayName returns the label shown in listings
	DisplayName() string
	// Matches reports whether env looks like this provider's configuration
	Matches(env Env) bool
}

// substringProvider matches when one env field contains a fixed substring.
type substringProvider struct {
	name    string
	display string
	field   string
	needle  string
}

func (p substringProvider) Name() string        { return p.name }
func (p substringProvider) DisplayName() string { return p.display }

func (p substringProvider) Matches(env Env) bool {
	return strings.Contains(env[p.field], p.needle)
}

// registry is ordered; the first match wins. The order is load-bearing: a
// Kimi model served from a GLM-looking URL is reported as kimi.
var registry = []Provider{
	substringProvider{name: "kimi", display: "Kimi", field: models.EnvModel, needle: "kimi"},
	substringProvider{name: "minimax", display: "MiniMax", field: models.EnvBaseURL, needle: "minimax"},
	substringProvider{name: "glm", display: "GLM", field: models.EnvBaseURL, needle: "glm"},
}

// displayNames covers ids that have no matching rule of their own.
var displayNames = map[string]string{
	models.DefaultID: "Default",
	"anthropic":      "Anthropic",
}

// Register appends a provider to the end of the match order.
func Register(provider Provider) {
	registry = append(registry, provider)
}

// List returns the provider ids in match order.
func List() []string {
	names := make([]string, 0, len(registry))
	for _, p := range registry {
		names = append(names, p.Name())
	}
	return names
}

// Infer returns the id of the first provider matching env, or the default id.
func Infer(env Env) string {
	for _, p := range registry {
		if p.Matches(env) {
			return p.Name()
		}
	}
	return models.DefaultID
}

// DisplayName maps an id to its label, falling back to the id with its
// first letter upper-cased.
func DisplayName(id string) string {
	for _, p := range registry {
		if p.Name() == id {
			return p.DisplayName()
		}
	}
	if name, ok := displayNames[id]; ok {
		return name
	}
	r, size := utf8.DecodeRuneInString(id)
	if r == utf8.RuneError {
		return id
	}
	return string(unicode.ToUpper(r)) + id[size:]
}
