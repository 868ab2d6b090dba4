package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Staging.Backend != BackendDisk {
		t.Errorf("Staging.Backend = %q, want %q", cfg.Staging.Backend, BackendDisk)
	}
	if cfg.Staging.Dir != DefaultStagingDir {
		t.Errorf("Staging.Dir = %q, want %q", cfg.Staging.Dir, DefaultStagingDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Error("Expected error for missing config")
	}
	if !strings.Contains(err.Error(), "U043") {
		t.Errorf("Expected U043 error, got: %v", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "server": {
    "port": 9090,
    "host": "127.0.0.1"
  },
  "staging": {
    "backend": "s3",
    "bucket": "staging",
    "region": "eu-west-1"
  },
  "deletion": {
    "retries": 5
  },
  "page": "pages/new.html"
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Address() != "127.0.0.1:9090" {
		t.Errorf("Address() = %q, want %q", cfg.Address(), "127.0.0.1:9090")
	}
	if cfg.Staging.Backend != BackendS3 || cfg.Staging.Bucket != "staging" {
		t.Errorf("Staging = %+v", cfg.Staging)
	}
	if cfg.Deletion.Retries != 5 {
		t.Errorf("Deletion.Retries = %d, want 5", cfg.Deletion.Retries)
	}
	// Unset fields keep their defaults
	if cfg.Session.PageTTL != "30m" {
		t.Errorf("Session.PageTTL = %q, want %q", cfg.Session.PageTTL, "30m")
	}
	if cfg.Deletion.Timeout != "30s" {
		t.Errorf("Deletion.Timeout = %q, want %q", cfg.Deletion.Timeout, "30s")
	}
	if want := filepath.Join(tmpDir, "pages/new.html"); cfg.PagePath() != want {
		t.Errorf("PagePath() = %q, want %q", cfg.PagePath(), want)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	// Write invalid JSON
	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "U041") {
		t.Errorf("Expected U041 error, got: %v", err)
	}
}

func TestLoadOrNew(t *testing.T) {
	cfg, err := LoadOrNew(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrNew error: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	if err := cfg.Save(); err == nil {
		t.Error("Expected error saving without a path")
	}

	cfg.Staging.Dir = "/var/uploads"
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.StagingDir() != "/var/uploads" {
		t.Errorf("StagingDir() = %q, want %q", loaded.StagingDir(), "/var/uploads")
	}
	if loaded.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", loaded.Dir(), tmpDir)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"UPLOADER_PORT":            "7070",
		"UPLOADER_DEV":             "true",
		"UPLOADER_STAGING_BACKEND": "s3",
		"UPLOADER_S3_BUCKET":       "env-bucket",
		"UPLOADER_DELETE_RETRIES":  "0",
		"UPLOADER_EVENT_RATE":      "2.5",
		"UPLOADER_PAGE_TTL":        "1h",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := New()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if !cfg.Server.DevMode {
		t.Error("Server.DevMode should be true")
	}
	if cfg.Staging.Backend != BackendS3 || cfg.Staging.Bucket != "env-bucket" {
		t.Errorf("Staging = %+v", cfg.Staging)
	}
	if cfg.Deletion.Retries != 0 {
		t.Errorf("Deletion.Retries = %d, want 0", cfg.Deletion.Retries)
	}
	if cfg.Session.EventRate != 2.5 {
		t.Errorf("Session.EventRate = %v, want 2.5", cfg.Session.EventRate)
	}
	if Duration(cfg.Session.PageTTL, 0) != time.Hour {
		t.Errorf("Session.PageTTL = %q, want 1h", cfg.Session.PageTTL)
	}
}

func TestApplyEnvFromProcess(t *testing.T) {
	t.Setenv("UPLOADER_HOST", "0.0.0.0")

	cfg := New()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := New()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "UPLOADER_PORT" {
			return "eighty", true
		}
		return "", false
	})
	if err == nil || !strings.Contains(err.Error(), "U042") {
		t.Fatalf("Expected U042 error, got: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port changed to %d", cfg.Server.Port)
	}
}

func TestLoadEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envPath, []byte("UPLOADER_TEST_LOADENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("UPLOADER_TEST_LOADENV") })

	if err := LoadEnv(filepath.Join(tmpDir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnv error: %v", err)
	}
	if got := os.Getenv("UPLOADER_TEST_LOADENV"); got != "from-file" {
		t.Errorf("UPLOADER_TEST_LOADENV = %q, want %q", got, "from-file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown backend", func(c *Config) { c.Staging.Backend = "ftp" }, true},
		{"s3 without bucket", func(c *Config) { c.Staging.Backend = BackendS3 }, true},
		{"s3 with bucket", func(c *Config) {
			c.Staging.Backend = BackendS3
			c.Staging.Bucket = "b"
		}, false},
		{"negative retries", func(c *Config) { c.Deletion.Retries = -1 }, true},
		{"bad duration", func(c *Config) { c.Session.PageTTL = "soon" }, true},
		{"zero duration", func(c *Config) { c.Deletion.Timeout = "0s" }, true},
		{"zero event rate", func(c *Config) { c.Session.EventRate = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "U042") {
				t.Errorf("Expected U042 error, got: %v", err)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("", time.Second); got != time.Second {
		t.Errorf("Duration(\"\") = %v", got)
	}
	if got := Duration("bogus", time.Second); got != time.Second {
		t.Errorf("Duration(bogus) = %v", got)
	}
	if got := Duration("90s", time.Second); got != 90*time.Second {
		t.Errorf("Duration(90s) = %v", got)
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should return false for empty dir")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(tmpDir) {
		t.Error("Exists should return true when config exists")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// Create nested structure
	nested := filepath.Join(tmpDir, "pages", "posts")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}

	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	if actualRoot != expectedRoot {
		t.Errorf("FindProjectRoot = %q, want %q", actualRoot, expectedRoot)
	}
}
