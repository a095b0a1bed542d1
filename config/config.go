package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the knowledge base services.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	History   HistoryConfig   `mapstructure:"history"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	DocumentsDir   string        `mapstructure:"documents_dir"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// TelegramConfig contains bot settings
type TelegramConfig struct {
	Token        string        `mapstructure:"token"`
	Mode         string        `mapstructure:"mode"` // ask, ingest
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	DownloadsDir string        `mapstructure:"downloads_dir"`
}

// ProvidersConfig selects the chat and embedding backends.
type ProvidersConfig struct {
	Chat      ChatProviderConfig      `mapstructure:"chat"`
	Embedding EmbeddingProviderConfig `mapstructure:"embedding"`
}

// ChatProviderConfig configures the completion model.
type ChatProviderConfig struct {
	Provider    string        `mapstructure:"provider"` // ollama, openai
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EmbeddingProviderConfig configures the embedding model.
type EmbeddingProviderConfig struct {
	Provider   string        `mapstructure:"provider"` // ollama, openai, huggingface
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// QdrantConfig contains connection details for the vector store.
type QdrantConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the feedback database settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string from either the url or the parts.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains redis settings for the session history backend.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig configures the embedding cache and its janitor.
type CacheConfig struct {
	Dir           string        `mapstructure:"dir"`
	PruneSchedule string        `mapstructure:"prune_schedule"` // cron expression, empty disables pruning
	Retention     time.Duration `mapstructure:"retention"`
}

// ChunkingConfig controls how ingested documents are split.
type ChunkingConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// RetrievalConfig controls similarity search and reranking.
type RetrievalConfig struct {
	TopK       int  `mapstructure:"top_k"`
	Rerank     bool `mapstructure:"rerank"`
	Candidates int  `mapstructure:"candidates"` // candidate pool when reranking
}

// HistoryConfig controls conversation history storage.
type HistoryConfig struct {
	Backend  string        `mapstructure:"backend"` // inmemory, redis
	MaxTurns int           `mapstructure:"max_turns"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LoadConfig reads configuration from a json file plus LILEG_* env overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.default_timeout", 60*time.Second)
	viper.SetDefault("general.documents_dir", ".documents")
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("telegram.mode", "ask")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.downloads_dir", ".documents")
	viper.SetDefault("providers.chat.provider", "ollama")
	viper.SetDefault("providers.chat.model", "phi4-mini:3.8b")
	viper.SetDefault("providers.chat.temperature", 0.0)
	viper.SetDefault("providers.chat.max_tokens", 1024)
	viper.SetDefault("providers.chat.timeout", 120*time.Second)
	viper.SetDefault("providers.embedding.provider", "ollama")
	viper.SetDefault("providers.embedding.model", "all-minilm:l6-v2")
	viper.SetDefault("providers.embedding.dimensions", 384)
	viper.SetDefault("providers.embedding.timeout", 60*time.Second)
	viper.SetDefault("qdrant.url", "http://localhost:6333")
	viper.SetDefault("qdrant.collection", "knowledge")
	viper.SetDefault("qdrant.timeout", 15*time.Second)
	viper.SetDefault("cache.dir", ".cache/embeddings")
	viper.SetDefault("cache.retention", 30*24*time.Hour)
	viper.SetDefault("chunking.size", 1024)
	viper.SetDefault("chunking.overlap", 100)
	viper.SetDefault("retrieval.top_k", 12)
	viper.SetDefault("retrieval.candidates", 25)
	viper.SetDefault("history.backend", "inmemory")
	viper.SetDefault("history.max_turns", 20)
	viper.SetDefault("history.ttl", 48*time.Hour)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			viper.AddConfigPath(exeDir)
			viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("LILEG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	return &config
}
