package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 18990 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Sessions.MaxConcurrent != 10 {
		t.Errorf("default max_concurrent = %d", cfg.Sessions.MaxConcurrent)
	}
	if cfg.Audio.ChunkIntervalSeconds != 30 || cfg.Audio.SampleRate != 16000 {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if cfg.Bot.DisplayName != "Meeting Bot" {
		t.Errorf("default bot name = %q", cfg.Bot.DisplayName)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	// json5: comments and trailing commas are accepted.
	body := `{
		// local override
		"server": {"port": 9000,},
		"sessions": {"max_concurrent": 3},
	}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MEETWATCH_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env must beat file: port = %d", cfg.Server.Port)
	}
	if cfg.Sessions.MaxConcurrent != 3 {
		t.Errorf("file value lost: max_concurrent = %d", cfg.Sessions.MaxConcurrent)
	}
	if cfg.Sessions.StartTimeoutSeconds != 30 {
		t.Errorf("unset field lost its default: %d", cfg.Sessions.StartTimeoutSeconds)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Server.Port = 8123
	cfg.Bot.DisplayName = "Scribe"

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 8123 || loaded.Bot.DisplayName != "Scribe" {
		t.Errorf("roundtrip lost values: port=%d name=%q", loaded.Server.Port, loaded.Bot.DisplayName)
	}
}

func TestBotIdentifiers(t *testing.T) {
	cfg := Default()
	cfg.Bot.DisplayName = "Scribe Bot"
	cfg.Bot.AccountIdentifiers = []string{"scribe@example.com", "Scribe Bot"}

	ids := cfg.BotIdentifiers()
	want := map[string]bool{"scribe bot": false, "scribe@example.com": false, "meeting bot": false, "bot": false}
	for _, id := range ids {
		if _, ok := want[id]; ok {
			want[id] = true
		}
	}
	for id, seen := range want {
		if !seen {
			t.Errorf("identifier %q missing from %v", id, ids)
		}
	}

	// Case-folded duplicates collapse to one entry.
	count := 0
	for _, id := range ids {
		if id == "scribe bot" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate identifier survived: %v", ids)
	}
}

func TestMaskedCopyHidesSecret(t *testing.T) {
	cfg := Default()
	cfg.Vault.Secret = "hunter2"

	masked := cfg.MaskedCopy()
	if masked.Vault.Secret != "***" {
		t.Errorf("secret leaked: %q", masked.Vault.Secret)
	}
	if cfg.Vault.Secret != "hunter2" {
		t.Error("masking mutated the original")
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandHome("~/data"); got != home+"/data" {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ExpandHome(""); got != "" {
		t.Errorf("empty path changed: %q", got)
	}
}
