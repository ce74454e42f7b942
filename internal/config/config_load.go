package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         18990,
			RateLimitRPM: 60,
		},
		Sessions: SessionsConfig{
			MaxConcurrent:       10,
			StartTimeoutSeconds: 30,
			RosterPollSeconds:   30,
			CaptionPollSeconds:  5,
			ShutdownGraceSecs:   20,
		},
		Browser: BrowserConfig{
			Headless:          false,
			Width:             1280,
			Height:            720,
			NavTimeoutSeconds: 30,
		},
		Profiles: ProfilesConfig{
			Root:        "~/.meetwatch/profiles",
			DefaultName: "google_main",
		},
		Bot: BotConfig{
			DisplayName:        "Meeting Bot",
			AccountIdentifiers: []string{"meeting bot", "bot"},
		},
		Audio: AudioConfig{
			ChunkIntervalSeconds: 30,
			SampleRate:           16000,
		},
		Diarization: DiarizationConfig{
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			DataDir:       "~/.meetwatch/data",
			RetentionDays: 30,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "meetwatch",
		},
	}
}

// Load reads config from a JSON file, then overlays env vars.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}

	envStr("MEETWATCH_HOST", &c.Server.Host)
	envInt("MEETWATCH_PORT", &c.Server.Port)

	envInt("MEETWATCH_MAX_CONCURRENT_SESSIONS", &c.Sessions.MaxConcurrent)
	envInt("MEETWATCH_SESSION_START_TIMEOUT", &c.Sessions.StartTimeoutSeconds)
	envInt("MEETWATCH_CHUNK_INTERVAL", &c.Audio.ChunkIntervalSeconds)

	if v := os.Getenv("MEETWATCH_HEADLESS"); v != "" {
		c.Browser.Headless = v == "true" || v == "1"
	}
	envStr("MEETWATCH_BROWSER_BIN", &c.Browser.BinPath)

	envStr("MEETWATCH_PROFILES_ROOT", &c.Profiles.Root)
	envStr("MEETWATCH_PROFILE_NAME", &c.Profiles.DefaultName)

	envStr("MEETWATCH_BOT_DISPLAY_NAME", &c.Bot.DisplayName)
	if v := os.Getenv("MEETWATCH_BOT_IDENTIFIERS"); v != "" {
		c.Bot.AccountIdentifiers = strings.Split(v, ",")
	}

	envStr("MEETWATCH_DIARIZATION_URL", &c.Diarization.EndpointURL)

	envStr("MEETWATCH_DATA_DIR", &c.Storage.DataDir)
	envStr("MEETWATCH_REMOTE_EVENT_URL", &c.Storage.RemoteEventURL)
	envStr("MEETWATCH_REMOTE_BLOB_URL", &c.Storage.RemoteBlobURL)

	envStr("MEETWATCH_VAULT_SECRET", &c.Vault.Secret)

	envStr("MEETWATCH_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("MEETWATCH_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("MEETWATCH_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("MEETWATCH_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("MEETWATCH_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for change detection.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// DataDirPath returns the expanded data directory.
func (c *Config) DataDirPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Storage.DataDir)
}

// ProfilesRootPath returns the expanded profiles root.
func (c *Config) ProfilesRootPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Profiles.Root)
}

// BotIdentifiers returns the lowercased identifier list for bot
// classification: display name, account identifiers, env account name.
func (c *Config) BotIdentifiers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		ids = append(ids, s)
	}

	add(c.Bot.DisplayName)
	for _, id := range c.Bot.AccountIdentifiers {
		add(id)
	}
	add(os.Getenv("MEETWATCH_BOT_ACCOUNT_NAME"))
	add("meeting bot")
	add("bot")
	return ids
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
