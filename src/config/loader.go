package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. RESEARCHBOT_MODEL_NAME.
const EnvPrefix = "RESEARCHBOT"

// Load reads .env (when present), an optional researchbot.yaml and environment
// overrides, in that order of precedence from lowest to highest.
// An explicit path must exist; the default search is best effort.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("researchbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	normalize(&cfg)
	return &cfg
}

// setDefaults registers every key of Config. AutomaticEnv only reaches
// Unmarshal for keys viper already knows, so a key without a default here
// cannot be set from the environment alone.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.name", "gemini-2.5-flash")
	v.SetDefault("model.prompt_prefix", "")
	v.SetDefault("model.max_tokens", 2048)
	v.SetDefault("model.timeout", 90*time.Second)

	v.SetDefault("agent.system_prompt", "")
	v.SetDefault("agent.max_iterations", 6)

	v.SetDefault("tools.search.enabled", true)
	v.SetDefault("tools.search.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("tools.search.max_results", 5)
	v.SetDefault("tools.search.timeout", 15*time.Second)
	v.SetDefault("tools.wiki.enabled", true)
	v.SetDefault("tools.wiki.base_url", "")
	v.SetDefault("tools.wiki.language", "en")
	v.SetDefault("tools.wiki.max_chars", 100)
	v.SetDefault("tools.wiki.timeout", 15*time.Second)
	v.SetDefault("tools.cache.size", 256)
	v.SetDefault("tools.cache.ttl", 30*time.Minute)

	v.SetDefault("archive.backends", []string{"file"})
	v.SetDefault("archive.path", "research_output.txt")
	v.SetDefault("archive.postgres_dsn", "")
	v.SetDefault("archive.mongo_uri", "")
	v.SetDefault("archive.mongo_database", "researchbot")
	v.SetDefault("archive.mongo_collection", "research_outputs")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.redis_addr", "")
	v.SetDefault("session.redis_password", "")
	v.SetDefault("session.redis_db", 0)
	v.SetDefault("session.key_prefix", "researchbot:session")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("shell.auto_save", true)

	v.SetDefault("web.addr", ":8501")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// normalize trims and lower-cases enum-like values. Comma separated archive
// backends coming from a single environment variable are split here.
func normalize(cfg *Config) {
	cfg.Model.Provider = strings.ToLower(strings.TrimSpace(cfg.Model.Provider))
	cfg.Model.Name = strings.TrimSpace(cfg.Model.Name)
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	var backends []string
	seen := make(map[string]bool)
	for _, raw := range cfg.Archive.Backends {
		for _, part := range strings.Split(raw, ",") {
			b := strings.ToLower(strings.TrimSpace(part))
			if b == "" || seen[b] {
				continue
			}
			seen[b] = true
			backends = append(backends, b)
		}
	}
	cfg.Archive.Backends = backends
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}
