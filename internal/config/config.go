// Package config loads client session configuration from a YAML file
// with environment-variable fallbacks.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerURL string `yaml:"server_url"`
	WorldID   string `yaml:"world_id"`
	UserID    string `yaml:"user_id"`
	HTTPAddr  string `yaml:"http_addr"`

	// document types this session tracks; a type listed under
	// pass_through applies data but is never rendered on its own
	DocumentTypes []string `yaml:"document_types"`
	PassThrough   []string `yaml:"pass_through"`

	// directory of <Type>.schema.json files, optional
	SchemaDir string `yaml:"schema_dir"`

	KafkaBrokers []string `yaml:"kafka_brokers"`

	Archive struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"archive"`

	Neo4j struct {
		URI      string `yaml:"uri"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"neo4j"`
}

// Load reads the YAML file at path (skipped when path is empty), then
// layers env vars over it and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ServerURL = getEnv("WORLD_SERVER_URL", cfg.ServerURL)
	cfg.WorldID = getEnv("WORLD_ID", cfg.WorldID)
	cfg.UserID = getEnv("WORLD_USER_ID", cfg.UserID)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.SchemaDir = getEnv("SCHEMA_DIR", cfg.SchemaDir)
	if brokers := getEnvList("KAFKA_BROKERS"); len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}
	cfg.Archive.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Archive.Endpoint)
	cfg.Archive.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Archive.AccessKey)
	cfg.Archive.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.Archive.SecretKey)
	cfg.Neo4j.URI = getEnv("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = getEnv("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = getEnv("NEO4J_PASSWORD", cfg.Neo4j.Password)

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if len(cfg.DocumentTypes) == 0 {
		cfg.DocumentTypes = []string{"Item", "Actor", "Folder", "JournalEntry", "Scene", "RollTable"}
	}
	if len(cfg.PassThrough) == 0 {
		cfg.PassThrough = []string{"RollTable"}
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("config missing server_url")
	}
	if cfg.WorldID == "" {
		return nil, fmt.Errorf("config missing world_id")
	}
	return &cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
