package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Database  DatabaseConfig  `toml:"database"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Search    SearchConfig    `toml:"search"`
	Observer  ObserverConfig  `toml:"observer"`
}

type ServerConfig struct {
	Addr          string `toml:"addr"`
	MaxUploadSize int64  `toml:"max_upload_size"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
}

type DatabaseConfig struct {
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type ChunkingConfig struct {
	Strategy  string `toml:"strategy"`
	ChunkSize int    `toml:"chunk_size"`
	Overlap   int    `toml:"overlap"`
}

type SearchConfig struct {
	TopK int `toml:"top_k"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8080", MaxUploadSize: 50 << 20},
		Embedding: EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536},
		Database:  DatabaseConfig{Driver: "sqlite", Path: "warraq.db"},
		Chunking:  ChunkingConfig{Strategy: "auto", ChunkSize: 512, Overlap: 50},
		Search:    SearchConfig{TopK: 5},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "warraq.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("WARRAQ_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("WARRAQ_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("WARRAQ_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("WARRAQ_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("WARRAQ_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("WARRAQ_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("WARRAQ_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("WARRAQ_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if v := os.Getenv("WARRAQ_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.ChunkSize = n
		}
	}
	if v := os.Getenv("WARRAQ_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("WARRAQ_SEARCH_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.TopK = n
		}
	}
	if os.Getenv("WARRAQ_OBSERVER_ENABLED") == "true" || os.Getenv("WARRAQ_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
