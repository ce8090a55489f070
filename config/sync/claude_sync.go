package sync

import (
	"fmt"
	"sort"
	"strings"

	"ccdash/config/models"
	"ccdash/internal/providers"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Defaults written into every new configuration's env block.
const (
	DefaultAPITimeoutMS        = "3000000"
	DisableNonessentialTraffic = "1"
)

// metadataKey is the top-level object ccdash owns inside a settings file.
const metadataKey = "ccdash"

// Settings is the part of a configuration file ccdash reads back.
type Settings struct {
	Env  providers.Env
	Meta *models.Metadata
}

// ParseSettings extracts the env block and ccdash metadata from raw content.
// Non-string env values are ignored; the Claude CLI only reads strings there.
func ParseSettings(content []byte) (Settings, error) {
	if !gjson.ValidBytes(content) {
		return Settings{}, fmt.Errorf("invalid JSON content")
	}
	root := gjson.ParseBytes(content)
	if !root.IsObject() {
		return Settings{}, fmt.Errorf("configuration is not a JSON object")
	}

	settings := Settings{Env: providers.Env{}}
	if env := root.Get("env"); env.Exists() {
		if !env.IsObject() {
			return Settings{}, fmt.Errorf("env field is not an object")
		}
		env.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				settings.Env[key.String()] = value.String()
			}
			return true
		})
	}

	if meta := root.Get(metadataKey); meta.IsObject() {
		if id := meta.Get("id").String(); id != "" {
			settings.Meta = &models.Metadata{
				ID:   id,
				Name: meta.Get("name").String(),
			}
		}
	}
	return settings, nil
}

// PreviewOf projects the display preview out of an env block.
func PreviewOf(env providers.Env) models.Preview {
	preview := models.Preview{Model: "unknown", BaseURL: "not set"}
	for _, key := range []string{models.EnvModel, models.EnvSonnetModel, models.EnvHaikuModel} {
		if env[key] != "" {
			preview.Model = env[key]
			break
		}
	}
	if env[models.EnvBaseURL] != "" {
		preview.BaseURL = env[models.EnvBaseURL]
	}
	return preview
}

// BuildPayload renders a create request as an indented settings file. Keys
// are written in a stable order so the file diffs cleanly.
func BuildPayload(req models.CreateRequest) ([]byte, error) {
	cfg := req.Config
	content := []byte(`{}`)

	type field struct {
		path  string
		value any
	}
	fields := []field{
		{envPath(models.EnvAuthToken), cfg.APIKey},
		{envPath(models.EnvBaseURL), cfg.BaseURL},
		{envPath("API_TIMEOUT_MS"), DefaultAPITimeoutMS},
		{envPath("CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC"), DisableNonessentialTraffic},
	}

	if cfg.ModelType == models.ModelTypeTriple {
		fields = append(fields,
			field{envPath(models.EnvHaikuModel), cfg.HaikuModel},
			field{envPath(models.EnvSonnetModel), cfg.SonnetModel},
			field{envPath(models.EnvOpusModel), cfg.OpusModel},
		)
	} else {
		small := cfg.SmallModel
		if small == "" {
			small = cfg.Model
		}
		fields = append(fields,
			field{envPath(models.EnvModel), cfg.Model},
			field{envPath(models.EnvSmallModel), small},
		)
	}

	for _, key := range sortedKeys(cfg.ExtraEnv) {
		fields = append(fields, field{envPath(key), cfg.ExtraEnv[key]})
	}

	fields = append(fields,
		field{"alwaysThinkingEnabled", true},
		field{metadataKey + ".id", req.ID},
		field{metadataKey + ".name", req.Name},
	)

	var err error
	for _, f := range fields {
		content, err = sjson.SetBytes(content, f.path, f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", f.path, err)
		}
	}

	return pretty.PrettyOptions(content, &pretty.Options{Width: 80, Indent: "  "}), nil
}

func envPath(key string) string {
	return "env." + escapePath(key)
}

// escapePath escapes the characters sjson treats as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
