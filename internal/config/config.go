package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLocalBaseURL  = "https://dapi.kakao.com/v2/local/search"
	DefaultSearchBaseURL = "https://dapi.kakao.com/v2/search"
	DefaultTimeout       = 10 * time.Second
	DefaultPort          = 8080

	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Transport string        `yaml:"transport"` // "stdio" or "sse"
	Port      int           `yaml:"port"`
	Kakao     KakaoConfig   `yaml:"kakao"`
	Logging   LoggingConfig `yaml:"logging"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// KakaoConfig holds the upstream Kakao API settings.
type KakaoConfig struct {
	APIKey        string        `yaml:"api_key,omitempty"`
	LocalBaseURL  string        `yaml:"local_base_url,omitempty"`
	SearchBaseURL string        `yaml:"search_base_url,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	// PlaceSize is sent as the keyword search "size" parameter (1-15).
	// Zero leaves the upstream default.
	PlaceSize int `yaml:"place_size,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func DefaultConfig() *Config {
	return &Config{
		Transport: TransportSSE,
		Port:      DefaultPort,
		Kakao: KakaoConfig{
			LocalBaseURL:  DefaultLocalBaseURL,
			SearchBaseURL: DefaultSearchBaseURL,
			Timeout:       DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, "kakaomap.yaml")
}

// Load reads .env, the config file next to the executable, and the
// environment, in that order of increasing precedence.
func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath is Load with an explicit config file. A missing file is not
// an error.
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadDotEnv() {
	for _, p := range []string{".env", filepath.Join(getExecutableDir(), ".env")} {
		if _, err := os.Stat(p); err == nil {
			// Existing environment variables win over .env entries.
			_ = godotenv.Load(p)
		}
	}
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("KAKAO_API_KEY"); v != "" {
		c.Kakao.APIKey = v
	}
	if v := os.Getenv("KAKAO_LOCAL_BASE_URL"); v != "" {
		c.Kakao.LocalBaseURL = v
	}
	if v := os.Getenv("KAKAO_SEARCH_BASE_URL"); v != "" {
		c.Kakao.SearchBaseURL = v
	}
	if v := os.Getenv("KAKAO_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KAKAO_TIMEOUT: %w", err)
		}
		c.Kakao.Timeout = d
	}
	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		c.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("MCP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MCP_PORT: %w", err)
		}
		c.Port = p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Kakao.LocalBaseURL == "" {
		c.Kakao.LocalBaseURL = DefaultLocalBaseURL
	}
	if c.Kakao.SearchBaseURL == "" {
		c.Kakao.SearchBaseURL = DefaultSearchBaseURL
	}
	if c.Kakao.Timeout <= 0 {
		c.Kakao.Timeout = DefaultTimeout
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate reports configuration that would keep the server from starting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Kakao.APIKey) == "" {
		return fmt.Errorf("KAKAO_API_KEY environment variable is not set")
	}
	switch c.Transport {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("unknown transport %q (want stdio or sse)", c.Transport)
	}
	if c.Transport == TransportSSE && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Kakao.PlaceSize < 0 || c.Kakao.PlaceSize > 15 {
		return fmt.Errorf("kakao.place_size must be between 1 and 15, got %d", c.Kakao.PlaceSize)
	}
	return nil
}
