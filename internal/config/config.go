package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the psdtranslate server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Vendor     VendorConfig
	Translator TranslatorConfig
	Storage    StorageConfig
	Pipeline   PipelineConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	BootstrapAPIKey string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// VendorConfig configures the Photoshop document-edit API and its IMS
// client-credentials token endpoint.
type VendorConfig struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string
	Scopes         []string
	BaseURL        string
	RequestTimeout time.Duration
	PollTimeout    time.Duration
}

type TranslatorConfig struct {
	Provider string
	DeepL    DeepLConfig
	Google   GoogleTranslateConfig
}

type DeepLConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type GoogleTranslateConfig struct {
	CredentialsJSON string
	CredentialsFile string
}

type StorageConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsJSON string
	CredentialsFile string
	UploadTTL       time.Duration
	SourceReadTTL   time.Duration
}

// PipelineConfig carries the orchestrator's fixed delays and limits.
type PipelineConfig struct {
	TranslateDelay time.Duration
	SettleDelay    time.Duration
	DownloadTTL    time.Duration
	DeleteGrace    time.Duration
	MinOutputSize  int64
	SweepInterval  time.Duration
}

var validTranslators = map[string]bool{
	"deepl":  true,
	"google": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("PSDTRANSLATE_PORT", 8080),
			Env:             envString("PSDTRANSLATE_ENV", "development"),
			BootstrapAPIKey: os.Getenv("PSDTRANSLATE_BOOTSTRAP_API_KEY"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Vendor: VendorConfig{
			ClientID:       os.Getenv("ADOBE_CLIENT_ID"),
			ClientSecret:   os.Getenv("ADOBE_CLIENT_SECRET"),
			TokenURL:       envString("ADOBE_IMS_TOKEN_URL", "https://ims-na1.adobelogin.com/ims/token/v3"),
			Scopes:         envList("ADOBE_SCOPES", []string{"AdobeID", "openid"}),
			BaseURL:        envString("ADOBE_API_BASE_URL", "https://image.adobe.io/pie/psdService"),
			RequestTimeout: envDuration("ADOBE_REQUEST_TIMEOUT", 60*time.Second),
			PollTimeout:    envDuration("ADOBE_POLL_TIMEOUT", 30*time.Second),
		},
		Translator: TranslatorConfig{
			Provider: envString("TRANSLATOR_PROVIDER", "deepl"),
			DeepL: DeepLConfig{
				APIKey:  os.Getenv("DEEPL_API_KEY"),
				BaseURL: envString("DEEPL_BASE_URL", "https://api-free.deepl.com"),
				Timeout: envDuration("DEEPL_TIMEOUT", 30*time.Second),
			},
			Google: GoogleTranslateConfig{
				CredentialsJSON: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
				CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			},
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("GCS_BUCKET_NAME"),
			ProjectID:       os.Getenv("GCS_PROJECT_ID"),
			CredentialsJSON: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			UploadTTL:       envDuration("STORAGE_UPLOAD_TTL", 15*time.Minute),
			SourceReadTTL:   envDuration("STORAGE_SOURCE_READ_TTL", 2*time.Hour),
		},
		Pipeline: PipelineConfig{
			TranslateDelay: envDuration("PIPELINE_TRANSLATE_DELAY", time.Second),
			SettleDelay:    envDuration("PIPELINE_SETTLE_DELAY", 3*time.Second),
			DownloadTTL:    envDuration("PIPELINE_DOWNLOAD_TTL", 15*time.Minute),
			DeleteGrace:    envDuration("PIPELINE_DELETE_GRACE", 30*time.Minute),
			MinOutputSize:  int64(envInt("PIPELINE_MIN_OUTPUT_SIZE", 100)),
			SweepInterval:  envDuration("PIPELINE_SWEEP_INTERVAL", time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Vendor.ClientID == "" || c.Vendor.ClientSecret == "" {
		return fmt.Errorf("ADOBE_CLIENT_ID and ADOBE_CLIENT_SECRET are required")
	}
	if !strings.HasPrefix(c.Vendor.BaseURL, "http://") && !strings.HasPrefix(c.Vendor.BaseURL, "https://") {
		return fmt.Errorf("ADOBE_API_BASE_URL must start with http:// or https://, got %q", c.Vendor.BaseURL)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("GCS_BUCKET_NAME is required")
	}

	if !validTranslators[c.Translator.Provider] {
		return fmt.Errorf("TRANSLATOR_PROVIDER must be one of deepl, google; got %q", c.Translator.Provider)
	}
	if c.Translator.Provider == "deepl" && c.Translator.DeepL.APIKey == "" {
		return fmt.Errorf("DEEPL_API_KEY is required when TRANSLATOR_PROVIDER is deepl")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
