package validation

import (
	"encoding/json"
	"errors"

	"ccdash/config/models"
)

// Validator accepts or rejects a configuration payload before it may become
// active or be stored under a new name. Anything beyond the env credential
// check is left to the Claude CLI, which owns the full schema.
type Validator struct {
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks raw configuration content.
func (v *Validator) Validate(content []byte) error {
	var parsed any
	if err := json.Unmarshal(content, &parsed); err != nil {
		return models.E(models.KindMalformedJSON, "validate", "", err)
	}

	root, ok := parsed.(map[string]any)
	if !ok {
		return models.E(models.KindInvalidStructure, "validate", "", errors.New("configuration must be a JSON object"))
	}

	rawEnv, present := root["env"]
	if !present {
		return nil
	}

	env, ok := rawEnv.(map[string]any)
	if !ok {
		return models.E(models.KindInvalidStructure, "validate", "env", errors.New("env must be a JSON object"))
	}

	// The token must be a non-empty string.
	token, _ := env[models.EnvAuthToken].(string)
	if token == "" {
		return models.E(models.KindMissingCredential, "validate", models.EnvAuthToken, nil)
	}
	return nil
}
