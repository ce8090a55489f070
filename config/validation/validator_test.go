package validation

import (
	"encoding/json"
	"errors"
	"testing"

	"ccdash/config/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *models.Error
	}{
		{"non-JSON text", `this is not json`, models.ErrMalformedJSON},
		{"empty content", ``, models.ErrMalformedJSON},
		{"top-level array", `[1, 2, 3]`, models.ErrInvalidStructure},
		{"top-level null", `null`, models.ErrInvalidStructure},
		{"env is a string", `{"env": "not an object"}`, models.ErrInvalidStructure},
		{"env is an array", `{"env": ["ANTHROPIC_AUTH_TOKEN"]}`, models.ErrInvalidStructure},
		{"env is null", `{"env": null}`, models.ErrInvalidStructure},
		{"env is an empty array", `{"env": []}`, models.ErrInvalidStructure},
		{"env without token", `{"env": {}}`, models.ErrMissingCredential},
		{"numeric token", `{"env": {"ANTHROPIC_AUTH_TOKEN": 42}}`, models.ErrMissingCredential},
		{"boolean token", `{"env": {"ANTHROPIC_AUTH_TOKEN": true}}`, models.ErrMissingCredential},
		{"env with empty token", `{"env": {"ANTHROPIC_AUTH_TOKEN": ""}}`, models.ErrMissingCredential},
		{"env with token", `{"env": {"ANTHROPIC_AUTH_TOKEN": "x"}}`, nil},
		{"no env at all", `{"alwaysThinkingEnabled": true}`, nil},
		{"unknown fields pass", `{"env": {"ANTHROPIC_AUTH_TOKEN": "x", "FOO": "bar"}, "hooks": {}}`, nil},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.content))
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want kind %s", err, tt.want.Kind)
			}
		})
	}
}

func TestValidateWrapsParserMessage(t *testing.T) {
	err := NewValidator().Validate([]byte(`{"env":`))
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected the json parser error to be wrapped, got %v", err)
	}
}

// Any object whose env carries a non-empty token is accepted, whatever
// other keys ride along.
func TestPropertyTokenBearingConfigsAccepted(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	v := NewValidator()
	properties.Property("non-empty token validates", prop.ForAll(
		func(token string, extraKey string, extraVal string) bool {
			env := map[string]string{models.EnvAuthToken: token}
			if extraKey != "" && extraKey != models.EnvAuthToken {
				env[extraKey] = extraVal
			}
			data, err := json.Marshal(map[string]any{"env": env, "alwaysThinkingEnabled": true})
			if err != nil {
				return false
			}
			return v.Validate(data) == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
