package config

import "sync"

// Config is the root configuration.
type Config struct {
	mu sync.RWMutex

	Server      ServerConfig      `json:"server"`
	Sessions    SessionsConfig    `json:"sessions"`
	Browser     BrowserConfig     `json:"browser"`
	Profiles    ProfilesConfig    `json:"profiles"`
	Bot         BotConfig         `json:"bot"`
	Audio       AudioConfig       `json:"audio"`
	Diarization DiarizationConfig `json:"diarization"`
	Storage     StorageConfig     `json:"storage"`
	Vault       VaultConfig       `json:"vault"`
	Telemetry   TelemetryConfig   `json:"telemetry"`
}

// ServerConfig configures the admission HTTP server.
type ServerConfig struct {
	Host         string `json:"host"`           // bind address
	Port         int    `json:"port"`           // listen port
	RateLimitRPM int    `json:"rate_limit_rpm"` // per-client requests per minute
}

// SessionsConfig bounds the session scheduler.
type SessionsConfig struct {
	MaxConcurrent       int `json:"max_concurrent"`        // live session cap
	StartTimeoutSeconds int `json:"start_timeout_seconds"` // join phase budget
	RosterPollSeconds   int `json:"roster_poll_seconds"`   // roster loop interval
	CaptionPollSeconds  int `json:"caption_poll_seconds"`  // captions loop interval
	ShutdownGraceSecs   int `json:"shutdown_grace_seconds"`
}

// BrowserConfig configures launched browser contexts.
type BrowserConfig struct {
	Headless          bool   `json:"headless"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	NavTimeoutSeconds int    `json:"nav_timeout_seconds"`
	BinPath           string `json:"bin_path"` // optional browser binary override
}

// ProfilesConfig locates persistent browser profiles.
type ProfilesConfig struct {
	Root        string `json:"root"`         // directory holding profile dirs
	DefaultName string `json:"default_name"` // preferred profile
}

// BotConfig identifies the bot's own roster entry.
type BotConfig struct {
	DisplayName        string   `json:"display_name"`
	AccountIdentifiers []string `json:"account_identifiers"`
}

// AudioConfig configures the chunk recorder.
type AudioConfig struct {
	ChunkIntervalSeconds int `json:"chunk_interval_seconds"`
	SampleRate           int `json:"sample_rate"`
}

// DiarizationConfig selects the remote diarizer tier.
type DiarizationConfig struct {
	EndpointURL    string `json:"endpoint_url"` // empty disables the remote tier
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// StorageConfig configures artifact and event persistence.
type StorageConfig struct {
	DataDir        string `json:"data_dir"`
	RemoteEventURL string `json:"remote_event_url"` // ws:// or wss://, empty disables
	RemoteBlobURL  string `json:"remote_blob_url"`  // http(s) base URL, empty disables
	RetentionCron  string `json:"retention_cron"`   // cron expression, empty disables
	RetentionDays  int    `json:"retention_days"`
}

// VaultConfig configures the encrypted cookie store.
type VaultConfig struct {
	Secret string `json:"secret"` // key material for the cookie vault
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	Protocol    string `json:"protocol"` // "grpc" or "http"
	ServiceName string `json:"service_name"`
	Insecure    bool   `json:"insecure"`
}

const secretMask = "***"

// MaskedCopy returns a value copy with secret fields masked.
// Used by the API status surface to avoid exposing secrets.
func (c *Config) MaskedCopy() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := Config{
		Server:      c.Server,
		Sessions:    c.Sessions,
		Browser:     c.Browser,
		Profiles:    c.Profiles,
		Bot:         c.Bot,
		Audio:       c.Audio,
		Diarization: c.Diarization,
		Storage:     c.Storage,
		Vault:       c.Vault,
		Telemetry:   c.Telemetry,
	}
	if cp.Vault.Secret != "" {
		cp.Vault.Secret = secretMask
	}
	return cp
}
