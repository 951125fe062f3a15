package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadAppliesDefaultsWhenEnvUnset(t *testing.T) {
	withEnv(t, "CHUNK_SIZE_CHARS", "")
	os.Unsetenv("CHUNK_SIZE_CHARS")
	os.Unsetenv("CONFIG_FILE")

	cfg := Load()
	if cfg.ChunkSizeChars != 800 {
		t.Fatalf("expected default chunk size 800, got %d", cfg.ChunkSizeChars)
	}
	if cfg.OpusBitrateKbps != 32 {
		t.Fatalf("expected default opus bitrate 32, got %d", cfg.OpusBitrateKbps)
	}
}

func TestLoadPasswordResetExpiryDefaultsTo15Minutes(t *testing.T) {
	os.Unsetenv("PASSWORD_RESET_EXPIRY")
	os.Unsetenv("CONFIG_FILE")

	cfg := Load()
	if cfg.PasswordResetExpiry != 15*time.Minute {
		t.Fatalf("expected default password reset expiry of 15m, got %v", cfg.PasswordResetExpiry)
	}
}

func TestLoadPasswordResetExpiryHonorsEnvVar(t *testing.T) {
	withEnv(t, "PASSWORD_RESET_EXPIRY", "30")
	os.Unsetenv("CONFIG_FILE")

	cfg := Load()
	if cfg.PasswordResetExpiry != 30*time.Minute {
		t.Fatalf("expected PASSWORD_RESET_EXPIRY=30 to apply, got %v", cfg.PasswordResetExpiry)
	}
}

func TestLoadEnvOverridesFileDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")
	if err := os.WriteFile(path, []byte("chunk_size_chars: 500\nopus_bitrate_kbps: 24\n"), 0o644); err != nil {
		t.Fatalf("write yaml fixture: %v", err)
	}
	withEnv(t, "CONFIG_FILE", path)
	os.Unsetenv("CHUNK_SIZE_CHARS")
	withEnv(t, "OPUS_BITRATE", "48")

	cfg := Load()
	if cfg.ChunkSizeChars != 500 {
		t.Fatalf("expected yaml default 500 to apply when env unset, got %d", cfg.ChunkSizeChars)
	}
	if cfg.OpusBitrateKbps != 48 {
		t.Fatalf("expected env var 48 to override yaml default 24, got %d", cfg.OpusBitrateKbps)
	}
}

func TestLoadFileDefaultsIgnoresMissingFile(t *testing.T) {
	withEnv(t, "CONFIG_FILE", "/nonexistent/path/defaults.yaml")
	fd := loadFileDefaults()
	if fd.ChunkSizeChars != 0 {
		t.Fatalf("expected zero-value defaults for a missing file, got %+v", fd)
	}
}
