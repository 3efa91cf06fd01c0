package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/Luca89aa/video-analyzer/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Storage  StorageConfig  `yaml:"storage"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Journal  JournalConfig  `yaml:"journal"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port           int           `yaml:"port" envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"90s"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
	// AdminKey guards the operator endpoints. Unset disables them.
	AdminKey string `yaml:"admin_key" envconfig:"ADMIN_KEY"`
}

// SupabaseConfig holds auth provider and credit ledger configuration.
type SupabaseConfig struct {
	URL            string        `yaml:"url" envconfig:"SUPABASE_URL"`
	AnonKey        string        `yaml:"anon_key" envconfig:"SUPABASE_ANON_KEY"`
	ServiceRoleKey string        `yaml:"service_role_key" envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	CookieName     string        `yaml:"cookie_name" envconfig:"SUPABASE_COOKIE_NAME" default:"sb-access-token"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"SUPABASE_TIMEOUT" default:"10s"`
}

// GeminiConfig holds inference provider configuration.
type GeminiConfig struct {
	APIKey        string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	BaseURL       string        `yaml:"base_url" envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	Model         string        `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	FallbackModel string        `yaml:"fallback_model" envconfig:"GEMINI_FALLBACK_MODEL" default:"gemini-1.5-flash"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"GEMINI_TIMEOUT" default:"2m"`
	PollInterval  time.Duration `yaml:"poll_interval" envconfig:"GEMINI_POLL_INTERVAL" default:"4s"`
	PollTimeout   time.Duration `yaml:"poll_timeout" envconfig:"GEMINI_POLL_TIMEOUT" default:"55s"`
}

// StorageConfig holds R2 object storage configuration.
type StorageConfig struct {
	Endpoint        string `yaml:"endpoint" envconfig:"R2_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"R2_SECRET_ACCESS_KEY"`
	Bucket          string `yaml:"bucket" envconfig:"R2_BUCKET_NAME"`
	PublicBaseURL   string `yaml:"public_base_url" envconfig:"R2_PUBLIC_BASE_URL"`
}

// FetchConfig holds media fetch configuration.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout" envconfig:"FETCH_TIMEOUT" default:"30s"`
	MaxBytes     int64         `yaml:"max_bytes" envconfig:"FETCH_MAX_BYTES" default:"209715200"` // 200MB
	InlineMax    int64         `yaml:"inline_max" envconfig:"FETCH_INLINE_MAX" default:"18874368"` // 18MB
	AllowedHosts []string      `yaml:"allowed_hosts" envconfig:"FETCH_ALLOWED_HOSTS"`
	UserAgent    string        `yaml:"user_agent" envconfig:"FETCH_USER_AGENT" default:"video-analyzer/1.0"`
}

// JournalConfig holds reservation journal configuration.
type JournalConfig struct {
	Path string `yaml:"path" envconfig:"JOURNAL_PATH" default:"/data/reservations.db"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required configuration and reports every missing variable
// by name in a single error.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"SUPABASE_URL", c.Supabase.URL},
		{"SUPABASE_ANON_KEY", c.Supabase.AnonKey},
		{"SUPABASE_SERVICE_ROLE_KEY", c.Supabase.ServiceRoleKey},
		{"GEMINI_API_KEY", c.Gemini.APIKey},
		{"R2_ENDPOINT", c.Storage.Endpoint},
		{"R2_ACCESS_KEY_ID", c.Storage.AccessKeyID},
		{"R2_SECRET_ACCESS_KEY", c.Storage.SecretAccessKey},
		{"R2_BUCKET_NAME", c.Storage.Bucket},
		{"R2_PUBLIC_BASE_URL", c.Storage.PublicBaseURL},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &domain.ConfigError{Missing: missing}
	}

	if c.Gemini.PollTimeout >= c.Server.RequestTimeout {
		return fmt.Errorf("GEMINI_POLL_TIMEOUT (%s) must be below SERVER_REQUEST_TIMEOUT (%s)",
			c.Gemini.PollTimeout, c.Server.RequestTimeout)
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
