package models

// File names inside the Claude configuration directory.
const (
	// CanonicalName is the file the Claude CLI reads at startup.
	CanonicalName = "settings.json"
	// BackupInfix separates the canonical name from a backup timestamp.
	BackupInfix = ".backup."
	// DefaultID is the id given to an active configuration no rule recognises.
	DefaultID = "default"
	// NoBackup is reported when a switch or backup had nothing to preserve.
	NoBackup = "none"
	// UnknownID is reported as the previous id when nothing was active.
	UnknownID = "unknown"
)

// Preview is the read-only projection shown next to each configuration.
type Preview struct {
	Model   string `json:"model"`
	BaseURL string `json:"baseUrl"`
}

// Summary describes one configuration file discovered on disk.
type Summary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	File     string  `json:"file"`
	IsActive bool    `json:"isActive"`
	Preview  Preview `json:"preview"`
}

// SwitchReceipt is returned by a successful switch.
type SwitchReceipt struct {
	Previous      string `json:"previous"`
	Current       string `json:"current"`
	BackupCreated string `json:"backupCreated"`
}

// ModelType selects how a new configuration declares its models.
type ModelType string

const (
	ModelTypeSingle ModelType = "single"
	ModelTypeTriple ModelType = "triple"
)

// ProviderConfig is the payload of a create request.
type ProviderConfig struct {
	BaseURL     string            `json:"baseUrl"`
	APIKey      string            `json:"apiKey"`
	ModelType   ModelType         `json:"modelType"`
	Model       string            `json:"model,omitempty"`
	SmallModel  string            `json:"smallModel,omitempty"`
	HaikuModel  string            `json:"haikuModel,omitempty"`
	SonnetModel string            `json:"sonnetModel,omitempty"`
	OpusModel   string            `json:"opusModel,omitempty"`
	ExtraEnv    map[string]string `json:"extraEnv,omitempty"`
}

// CreateRequest asks for a new named configuration.
type CreateRequest struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Config ProviderConfig `json:"config"`
}

// Metadata is the ccdash-owned object persisted at the top level of a
// configuration file so its id survives being copied into the canonical slot.
type Metadata struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Environment keys the catalog and the payload builder understand.
const (
	EnvAuthToken   = "ANTHROPIC_AUTH_TOKEN"
	EnvBaseURL     = "ANTHROPIC_BASE_URL"
	EnvModel       = "ANTHROPIC_MODEL"
	EnvSmallModel  = "ANTHROPIC_SMALL_FAST_MODEL"
	EnvHaikuModel  = "ANTHROPIC_DEFAULT_HAIKU_MODEL"
	EnvSonnetModel = "ANTHROPIC_DEFAULT_SONNET_MODEL"
	EnvOpusModel   = "ANTHROPIC_DEFAULT_OPUS_MODEL"
)
