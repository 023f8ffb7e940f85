package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent identifies the fetcher to the servers it talks to
	DefaultUserAgent = "UbuntuImageFetcher/1.0 (+community; respectful; educational)"
	// DefaultAccept favours image types while still accepting anything
	DefaultAccept = "image/*, */*;q=0.8"
	// DefaultMaxBytes is the 15 MiB safety cap
	DefaultMaxBytes int64 = 15 * 1024 * 1024
)

// Config holds all configuration options for the image fetcher
type Config struct {
	// Transfer settings
	Fetch FetchConfig `yaml:"fetch" toml:"fetch" json:"fetch"`

	// Metadata pre-check before the full transfer
	Probe ProbeConfig `yaml:"probe" toml:"probe" json:"probe"`

	// Politeness towards the remote servers
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`

	// Retry policy for transient transport failures
	Retry RetryConfig `yaml:"retry" toml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`

	// Terminal output
	UI UIConfig `yaml:"ui" toml:"ui" json:"ui"`
}

// FetchConfig holds the download pipeline settings
type FetchConfig struct {
	OutputDir    string        `yaml:"output_dir" toml:"output_dir" json:"output_dir" validate:"required"`
	ManifestName string        `yaml:"manifest_name" toml:"manifest_name" json:"manifest_name" validate:"required,excludesall=/\\"`
	MaxBytes     int64         `yaml:"max_bytes" toml:"max_bytes" json:"max_bytes" validate:"gt=0"`
	Timeout      time.Duration `yaml:"timeout" toml:"timeout" json:"timeout" validate:"gt=0"`
	ChunkSize    int           `yaml:"chunk_size" toml:"chunk_size" json:"chunk_size" validate:"gt=0,lte=1048576"`
	UserAgent    string        `yaml:"user_agent" toml:"user_agent" json:"user_agent" validate:"required"`
	Accept       string        `yaml:"accept" toml:"accept" json:"accept" validate:"required"`
}

// ProbeConfig holds the metadata probe settings
type ProbeConfig struct {
	Enabled       bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	RangeFallback bool `yaml:"range_fallback" toml:"range_fallback" json:"range_fallback"`
}

// RateLimitConfig holds rate limiting configuration. Zero requests per
// minute disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute" validate:"gte=0,lte=600"`
	Burst             int `yaml:"burst" toml:"burst" json:"burst" validate:"gte=1"`
}

// RetryConfig holds the retry policy. One attempt means no retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay   time.Duration `yaml:"base_delay" toml:"base_delay" json:"base_delay" validate:"gte=0"`
	MaxDelay    time.Duration `yaml:"max_delay" toml:"max_delay" json:"max_delay" validate:"gtefield=BaseDelay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level" validate:"oneof=debug info warn error disabled"`
	File  string `yaml:"file" toml:"file" json:"file"`
	// NoColor mirrors ui.color so console logs follow --no-color and NO_COLOR
	NoColor bool `yaml:"-" toml:"-" json:"-"`
}

// UIConfig holds terminal output preferences
type UIConfig struct {
	Color bool `yaml:"color" toml:"color" json:"color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			OutputDir:    "Fetched_Images",
			ManifestName: "_manifest.json",
			MaxBytes:     DefaultMaxBytes,
			Timeout:      15 * time.Second,
			ChunkSize:    8192,
			UserAgent:    DefaultUserAgent,
			Accept:       DefaultAccept,
		},
		Probe: ProbeConfig{
			Enabled:       true,
			RangeFallback: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		UI: UIConfig{
			Color: true,
		},
	}
}

// ManifestPath returns the manifest location inside the output directory
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Fetch.OutputDir, c.Fetch.ManifestName)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if dir := os.Getenv("IMGFETCH_OUTPUT_DIR"); dir != "" {
		c.Fetch.OutputDir = dir
	}
	if ua := os.Getenv("IMGFETCH_USER_AGENT"); ua != "" {
		c.Fetch.UserAgent = ua
	}
	if v := os.Getenv("IMGFETCH_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGFETCH_MAX_BYTES: %w", err))
		} else {
			c.Fetch.MaxBytes = n
		}
	}
	if v := os.Getenv("IMGFETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGFETCH_TIMEOUT: %w", err))
		} else {
			c.Fetch.Timeout = d
		}
	}
	if v := os.Getenv("IMGFETCH_PROBE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGFETCH_PROBE_ENABLED: %w", err))
		} else {
			c.Probe.Enabled = b
		}
	}
	if v := os.Getenv("IMGFETCH_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGFETCH_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("IMGFETCH_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGFETCH_MAX_ATTEMPTS: %w", err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}
	if level := os.Getenv("IMGFETCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("IMGFETCH_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.UI.Color = false
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML or TOML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgfetch.yaml",
		".imgfetch.yml",
		".imgfetch.toml",
		filepath.Join(home, ".config", "imgfetch", "config.yaml"),
		filepath.Join(home, ".config", "imgfetch", "config.toml"),
		filepath.Join(home, ".imgfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed %q constraint (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Fetch.OutputDir = dir
	}
	if maxBytes, ok := flags["max-bytes"].(int64); ok && maxBytes > 0 {
		c.Fetch.MaxBytes = maxBytes
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Fetch.Timeout = timeout
	}
	if noProbe, ok := flags["no-probe"].(bool); ok && noProbe {
		c.Probe.Enabled = false
	}
	if rangeProbe, ok := flags["range-probe"].(bool); ok && rangeProbe {
		c.Probe.RangeFallback = true
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm >= 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.UI.Color = false
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgfetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	config.Logging.Level = strings.ToLower(config.Logging.Level)
	config.Logging.NoColor = !config.UI.Color

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
