package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the entire configuration for the newgpt server.
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	API           APIConfig           `yaml:"api" mapstructure:"api"`
	Redis         RedisConfig         `yaml:"redis" mapstructure:"redis"`
	Capability    CapabilityConfig    `yaml:"capability" mapstructure:"capability"`
	Dataset       DatasetConfig       `yaml:"dataset" mapstructure:"dataset"`
	Orchestration OrchestrationConfig `yaml:"orchestration" mapstructure:"orchestration"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	Mode            string        `yaml:"mode" mapstructure:"mode"` // "debug" or "release"
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// APIConfig holds configuration for API settings.
type APIConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
}

// RedisConfig holds the connection settings for the Redis store. UseMemory
// swaps in the in-process store for local development without a Redis server.
type RedisConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	UseMemory bool   `yaml:"use_memory" mapstructure:"use_memory"`
}

// CapabilityConfig holds the LLM capability provider settings.
type CapabilityConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	Model          string        `yaml:"model" mapstructure:"model"`
	EmbeddingModel string        `yaml:"embedding_model" mapstructure:"embedding_model"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// DatasetConfig holds the external dataset gateway settings.
type DatasetConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	ClientID     string        `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string        `yaml:"client_secret" mapstructure:"client_secret"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OrchestrationConfig tunes the async worker pool and the similarity index.
type OrchestrationConfig struct {
	WorkerCount        int `yaml:"worker_count" mapstructure:"worker_count"`
	QueueSize          int `yaml:"queue_size" mapstructure:"queue_size"`
	SimilarityTopK     int `yaml:"similarity_top_k" mapstructure:"similarity_top_k"`
	SimilarityScanCap  int `yaml:"similarity_scan_cap" mapstructure:"similarity_scan_cap"`
	EmbeddingDimension int `yaml:"embedding_dimension" mapstructure:"embedding_dimension"`
}

// DefaultConfigPath is the default path for the newgpt configuration file.
const DefaultConfigPath = "newgpt.yaml"

// LoadConfig reads the configuration from the given path or default paths.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		altPath := filepath.Join("config", "newgpt.yaml")
		if _, err2 := os.Stat(altPath); err2 == nil {
			configPath = altPath
		} else {
			return nil, fmt.Errorf("configuration file not found at %s or default locations: %w", configPath, err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", configPath, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued fields after unmarshalling.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8001
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 5 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.API.CORS.AllowedOrigins) == 0 {
		c.API.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.API.CORS.AllowedMethods) == 0 {
		c.API.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(c.API.CORS.AllowedHeaders) == 0 {
		c.API.CORS.AllowedHeaders = []string{"*"}
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Capability.BaseURL == "" {
		c.Capability.BaseURL = "https://api.openai.com/v1"
	}
	if c.Capability.Model == "" {
		c.Capability.Model = "gpt-4o-mini"
	}
	if c.Capability.EmbeddingModel == "" {
		c.Capability.EmbeddingModel = "text-embedding-ada-002"
	}
	if c.Capability.Timeout == 0 {
		c.Capability.Timeout = 120 * time.Second
	}
	if c.Capability.MaxRetries == 0 {
		c.Capability.MaxRetries = 2
	}
	if c.Dataset.Timeout == 0 {
		c.Dataset.Timeout = 30 * time.Second
	}
	if c.Orchestration.WorkerCount == 0 {
		c.Orchestration.WorkerCount = 8
	}
	if c.Orchestration.QueueSize == 0 {
		c.Orchestration.QueueSize = 256
	}
	if c.Orchestration.SimilarityTopK == 0 {
		c.Orchestration.SimilarityTopK = 3
	}
	if c.Orchestration.SimilarityScanCap == 0 {
		c.Orchestration.SimilarityScanCap = 100
	}
	if c.Orchestration.EmbeddingDimension == 0 {
		c.Orchestration.EmbeddingDimension = 1536
	}
}
