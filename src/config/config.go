package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full configuration of the research assistant. It is built once
// at startup and handed to every component explicitly.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Tools   ToolsConfig   `mapstructure:"tools"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Session SessionConfig `mapstructure:"session"`
	Shell   ShellConfig   `mapstructure:"shell"`
	Web     WebConfig     `mapstructure:"web"`
	Log     LogConfig     `mapstructure:"log"`
}

type ModelConfig struct {
	Provider     string        `mapstructure:"provider"`
	Name         string        `mapstructure:"name"`
	PromptPrefix string        `mapstructure:"prompt_prefix"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type AgentConfig struct {
	SystemPrompt  string `mapstructure:"system_prompt"`
	MaxIterations int    `mapstructure:"max_iterations"`
}

type ToolsConfig struct {
	Search SearchConfig `mapstructure:"search"`
	Wiki   WikiConfig   `mapstructure:"wiki"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

type SearchConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type WikiConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	Language string        `mapstructure:"language"`
	MaxChars int           `mapstructure:"max_chars"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// ArchiveConfig selects where successful results are persisted. Backends is a
// list so the same record can be written to several sinks.
type ArchiveConfig struct {
	Backends        []string `mapstructure:"backends"`
	Path            string   `mapstructure:"path"`
	PostgresDSN     string   `mapstructure:"postgres_dsn"`
	MongoURI        string   `mapstructure:"mongo_uri"`
	MongoDatabase   string   `mapstructure:"mongo_database"`
	MongoCollection string   `mapstructure:"mongo_collection"`
}

type SessionConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type ShellConfig struct {
	AutoSave bool `mapstructure:"auto_save"`
}

type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	validProviders = map[string]bool{"gemini": true, "google": true, "openai": true, "anthropic": true, "claude": true, "ollama": true, "dummy": true}
	validArchives  = map[string]bool{"file": true, "postgres": true, "mongo": true}
	validSessions  = map[string]bool{"memory": true, "redis": true}
)

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	provider := strings.ToLower(strings.TrimSpace(c.Model.Provider))
	if !validProviders[provider] {
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if strings.TrimSpace(c.Model.Name) == "" && provider != "dummy" {
		return errors.New("model.name is required")
	}
	if c.Agent.MaxIterations <= 0 {
		return errors.New("agent.max_iterations must be positive")
	}
	if len(c.Archive.Backends) == 0 {
		return errors.New("archive.backends must name at least one backend")
	}
	for _, b := range c.Archive.Backends {
		switch b {
		case "file":
			if strings.TrimSpace(c.Archive.Path) == "" {
				return errors.New("archive.path is required for the file backend")
			}
		case "postgres":
			if strings.TrimSpace(c.Archive.PostgresDSN) == "" {
				return errors.New("archive.postgres_dsn is required for the postgres backend")
			}
		case "mongo":
			if strings.TrimSpace(c.Archive.MongoURI) == "" {
				return errors.New("archive.mongo_uri is required for the mongo backend")
			}
		}
		if !validArchives[b] {
			return fmt.Errorf("unknown archive backend %q", b)
		}
	}
	if !validSessions[c.Session.Backend] {
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && strings.TrimSpace(c.Session.RedisAddr) == "" {
		return errors.New("session.redis_addr is required for the redis backend")
	}
	return nil
}
