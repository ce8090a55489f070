package validation

import (
	"errors"
	"regexp"
	"strings"

	"ccdash/config/models"
	"ccdash/internal/utils"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// reservedIDs would collide with the canonical slot or with file name
// namespaces the catalog treats specially.
var reservedIDs = map[string]bool{
	models.DefaultID: true,
	"backup":         true,
	models.UnknownID: true,
}

// InputValidator validates user input
type InputValidator struct {
}

// NewInputValidator creates a new InputValidator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateID checks that id can be used as an archive suffix.
func (iv *InputValidator) ValidateID(id string) error {
	if id == "" {
		return models.E(models.KindMissingRequiredField, "create", "id", nil)
	}
	if len(id) > 50 {
		return models.E(models.KindInvalidInput, "create", id, errors.New("id is too long (max 50 characters)"))
	}
	if !idPattern.MatchString(id) {
		return models.E(models.KindInvalidInput, "create", id, errors.New("id may only contain letters, digits, '-' and '_'"))
	}
	if reservedIDs[strings.ToLower(id)] {
		return models.E(models.KindInvalidInput, "create", id, errors.New("id is reserved"))
	}
	return nil
}

// ValidateName checks a display name.
func (iv *InputValidator) ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return models.E(models.KindMissingRequiredField, "create", "name", nil)
	}
	if strings.ContainsAny(name, "<>\"'&/\\") {
		return models.E(models.KindInvalidInput, "create", name, errors.New("name contains invalid characters"))
	}
	if len(name) > 50 {
		return models.E(models.KindInvalidInput, "create", name, errors.New("name is too long (max 50 characters)"))
	}
	return nil
}

// ValidateURL checks if a URL is valid
func (iv *InputValidator) ValidateURL(url string) error {
	if url == "" {
		return models.E(models.KindMissingRequiredField, "create", "baseUrl", nil)
	}
	if !utils.ValidateURL(url) {
		return models.E(models.KindInvalidInput, "create", url, errors.New("invalid URL format"))
	}
	return nil
}

// ValidateModelName checks if a model name is valid
func (iv *InputValidator) ValidateModelName(field, model string) error {
	if model == "" {
		return models.E(models.KindMissingRequiredField, "create", field, nil)
	}
	if strings.ContainsAny(model, "<>\"'&\\") {
		return models.E(models.KindInvalidInput, "create", model, errors.New("model name contains invalid characters"))
	}
	return nil
}

// ValidateCreate checks a whole create request. The model type defaults to
// single when empty.
func (iv *InputValidator) ValidateCreate(req models.CreateRequest) error {
	if err := iv.ValidateID(req.ID); err != nil {
		return err
	}
	if err := iv.ValidateName(req.Name); err != nil {
		return err
	}
	cfg := req.Config
	if err := iv.ValidateURL(cfg.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return models.E(models.KindMissingRequiredField, "create", "apiKey", nil)
	}

	switch cfg.ModelType {
	case models.ModelTypeSingle, "":
		if err := iv.ValidateModelName("model", cfg.Model); err != nil {
			return err
		}
		if cfg.SmallModel != "" {
			if err := iv.ValidateModelName("smallModel", cfg.SmallModel); err != nil {
				return err
			}
		}
	case models.ModelTypeTriple:
		fields := []struct{ name, model string }{
			{"haikuModel", cfg.HaikuModel},
			{"sonnetModel", cfg.SonnetModel},
			{"opusModel", cfg.OpusModel},
		}
		for _, f := range fields {
			if err := iv.ValidateModelName(f.name, f.model); err != nil {
				return err
			}
		}
	default:
		return models.E(models.KindInvalidInput, "create", string(cfg.ModelType), errors.New("modelType must be single or triple"))
	}

	for key := range cfg.ExtraEnv {
		if key == "" || strings.ContainsAny(key, " =\t\n") {
			return models.E(models.KindInvalidInput, "create", key, errors.New("invalid environment variable name"))
		}
	}
	return nil
}
