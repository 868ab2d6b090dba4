package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/codz-dev/uploader/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "uploader.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "UPLOADER_"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default bind host. Empty binds every interface.
	DefaultHost = ""

	// DefaultStagingDir is where the disk backend stages uploads.
	DefaultStagingDir = "tmp/uploads"

	// Staging backends.
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// Config represents the complete uploader.json configuration.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Staging contains where uploaded files wait until submission.
	Staging StagingConfig `json:"staging,omitempty"`

	// Deletion contains settings for remote file deletion requests.
	Deletion DeletionConfig `json:"deletion,omitempty"`

	// Session contains live page session settings.
	Session SessionConfig `json:"session,omitempty"`

	// Page is the host page to mount. Empty serves the built-in demo.
	Page string `json:"page,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// DevMode disables client script caching.
	DevMode bool `json:"devMode,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "30s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// StagingConfig contains staging store settings.
type StagingConfig struct {
	// Backend is "disk" or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the disk backend directory.
	Dir string `json:"dir,omitempty"`

	// Bucket, Prefix and Region configure the s3 backend. Credentials come
	// from the standard AWS environment.
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`

	// MaxFileSize is the largest file accepted for staging, in bytes.
	MaxFileSize int64 `json:"maxFileSize,omitempty"`

	// Expiry is how long an unclaimed staged file is kept (e.g., "1h").
	Expiry string `json:"expiry,omitempty"`
}

// DeletionConfig contains deletion request settings.
type DeletionConfig struct {
	// Timeout bounds each deletion request (e.g., "30s").
	Timeout string `json:"timeout,omitempty"`

	// Retries is how often a failed request is retried.
	Retries int `json:"retries,omitempty"`
}

// SessionConfig contains live session settings.
type SessionConfig struct {
	// ReadTimeout is how long a silent client is kept (e.g., "60s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout bounds each frame write (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// EventRate is the sustained client frames per second.
	EventRate float64 `json:"eventRate,omitempty"`

	// EventBurst is how many frames may arrive at once.
	EventBurst int `json:"eventBurst,omitempty"`

	// PreviewTTL is how long a preview link stays valid (e.g., "5m").
	PreviewTTL string `json:"previewTTL,omitempty"`

	// PageTTL is how long a page lives without activity (e.g., "30m").
	PageTTL string `json:"pageTTL,omitempty"`

	// MaxPages is the number of live pages kept.
	MaxPages int `json:"maxPages,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: "30s",
		},
		Staging: StagingConfig{
			Backend:     BackendDisk,
			Dir:         DefaultStagingDir,
			MaxFileSize: 100 << 20,
			Expiry:      "1h",
		},
		Deletion: DeletionConfig{
			Timeout: "30s",
			Retries: 2,
		},
		Session: SessionConfig{
			ReadTimeout:  "60s",
			WriteTimeout: "10s",
			EventRate:    20,
			EventBurst:   40,
			PreviewTTL:   "5m",
			PageTTL:      "30m",
			MaxPages:     1000,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for uploader.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("U043").
				WithDetail("No uploader.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'uploader config init' to write one, or rely on defaults and UPLOADER_* variables")
		}
		return nil, errors.New("U041").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("U041").
			WithDetail("Failed to parse uploader.json: " + err.Error()).
			WithSuggestion("Check that uploader.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadOrNew loads uploader.json from dir, falling back to defaults when
// there is none.
func LoadOrNew(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.HasCode(err, "U043") {
		return New(), nil
	}
	return cfg, err
}

// LoadEnv reads .env style files into the process environment. Missing
// files are skipped; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.New("U041").WithDetail("Failed to read " + f).Wrap(err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from UPLOADER_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var firstErr error
	fail := func(name, v string) {
		if firstErr == nil {
			firstErr = errors.New("U042").
				WithDetail(fmt.Sprintf("%s%s=%q is not a number", EnvPrefix, name, v))
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				fail(name, v)
				return
			}
			*dst = n
		}
	}

	str("HOST", &c.Server.Host)
	integer("PORT", &c.Server.Port)
	if v, ok := lookup(EnvPrefix + "DEV"); ok {
		c.Server.DevMode, _ = strconv.ParseBool(v)
	}
	str("PAGE", &c.Page)

	str("STAGING_BACKEND", &c.Staging.Backend)
	str("STAGING_DIR", &c.Staging.Dir)
	str("S3_BUCKET", &c.Staging.Bucket)
	str("S3_PREFIX", &c.Staging.Prefix)
	str("S3_REGION", &c.Staging.Region)
	if v, ok := lookup(EnvPrefix + "MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			fail("MAX_FILE_SIZE", v)
		} else {
			c.Staging.MaxFileSize = n
		}
	}

	str("DELETE_TIMEOUT", &c.Deletion.Timeout)
	integer("DELETE_RETRIES", &c.Deletion.Retries)

	str("READ_TIMEOUT", &c.Session.ReadTimeout)
	str("WRITE_TIMEOUT", &c.Session.WriteTimeout)
	if v, ok := lookup(EnvPrefix + "EVENT_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail("EVENT_RATE", v)
		} else {
			c.Session.EventRate = f
		}
	}
	str("PREVIEW_TTL", &c.Session.PreviewTTL)
	str("PAGE_TTL", &c.Session.PageTTL)

	return firstErr
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("U041").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("U041").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	// Server
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	// Staging
	if c.Staging.Backend == "" {
		c.Staging.Backend = d.Staging.Backend
	}
	if c.Staging.Dir == "" {
		c.Staging.Dir = d.Staging.Dir
	}
	if c.Staging.MaxFileSize == 0 {
		c.Staging.MaxFileSize = d.Staging.MaxFileSize
	}
	if c.Staging.Expiry == "" {
		c.Staging.Expiry = d.Staging.Expiry
	}

	// Deletion
	if c.Deletion.Timeout == "" {
		c.Deletion.Timeout = d.Deletion.Timeout
	}

	// Session
	if c.Session.ReadTimeout == "" {
		c.Session.ReadTimeout = d.Session.ReadTimeout
	}
	if c.Session.WriteTimeout == "" {
		c.Session.WriteTimeout = d.Session.WriteTimeout
	}
	if c.Session.EventRate == 0 {
		c.Session.EventRate = d.Session.EventRate
	}
	if c.Session.EventBurst == 0 {
		c.Session.EventBurst = d.Session.EventBurst
	}
	if c.Session.PreviewTTL == "" {
		c.Session.PreviewTTL = d.Session.PreviewTTL
	}
	if c.Session.PageTTL == "" {
		c.Session.PageTTL = d.Session.PageTTL
	}
	if c.Session.MaxPages == 0 {
		c.Session.MaxPages = d.Session.MaxPages
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("U042").
			WithDetail("Port must be between 0 and 65535")
	}

	switch c.Staging.Backend {
	case BackendDisk:
		if c.Staging.Dir == "" {
			return errors.New("U042").WithDetail("staging.dir is required for the disk backend")
		}
	case BackendS3:
		if c.Staging.Bucket == "" {
			return errors.New("U042").WithDetail("staging.bucket is required for the s3 backend")
		}
	default:
		return errors.New("U042").
			WithDetail(fmt.Sprintf("Unknown staging backend %q", c.Staging.Backend)).
			WithSuggestion(`Use "disk" or "s3"`)
	}
	if c.Staging.MaxFileSize <= 0 {
		return errors.New("U042").WithDetail("staging.maxFileSize must be positive")
	}

	if c.Deletion.Retries < 0 {
		return errors.New("U042").WithDetail("deletion.retries must not be negative")
	}
	if c.Session.EventRate <= 0 || c.Session.EventBurst <= 0 {
		return errors.New("U042").WithDetail("session.eventRate and session.eventBurst must be positive")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"staging.expiry", c.Staging.Expiry},
		{"deletion.timeout", c.Deletion.Timeout},
		{"session.readTimeout", c.Session.ReadTimeout},
		{"session.writeTimeout", c.Session.WriteTimeout},
		{"session.previewTTL", c.Session.PreviewTTL},
		{"session.pageTTL", c.Session.PageTTL},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil || v <= 0 {
			return errors.New("U042").
				WithDetail(fmt.Sprintf("%s=%q is not a positive duration", d.name, d.value)).
				WithSuggestion(`Use Go duration syntax such as "30s" or "5m"`)
		}
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// PagePath returns the absolute path to the host page, or "" for the demo.
func (c *Config) PagePath() string {
	if c.Page == "" || filepath.IsAbs(c.Page) {
		return c.Page
	}
	return filepath.Join(c.Dir(), c.Page)
}

// StagingDir returns the absolute path to the disk staging directory.
func (c *Config) StagingDir() string {
	path := c.Staging.Dir
	if path == "" {
		path = DefaultStagingDir
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Duration parses a duration field, returning def when it is empty or
// invalid. Validate reports invalid values.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing uploader.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("U043").
				WithDetail("No uploader.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
