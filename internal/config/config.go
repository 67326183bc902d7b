package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Judge     JudgeConfig     `yaml:"judge" mapstructure:"judge"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Mapper    MapperConfig    `yaml:"mapper" mapstructure:"mapper"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PricingConfig overrides per-provider model pricing. Models not listed
// keep their built-in rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    map[string]ModelPricing `yaml:"openai" mapstructure:"openai"`
	Gemini    map[string]ModelPricing `yaml:"gemini" mapstructure:"gemini"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// JudgeConfig configures the AI tier of the question mapper.
type JudgeConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	Provider            string  `yaml:"provider" mapstructure:"provider"`
	MaxTokens           int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RatePerSecond       float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst               int     `yaml:"burst" mapstructure:"burst"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
	MemoTTLMins         int     `yaml:"memo_ttl_mins" mapstructure:"memo_ttl_mins"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	CacheTTL string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token      string  `yaml:"token" mapstructure:"token"`
	QuestionDB string  `yaml:"question_db" mapstructure:"question_db"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Retries    int     `yaml:"retries" mapstructure:"retries"`
}

// MapperConfig configures question mapping.
type MapperConfig struct {
	SynonymsPath string `yaml:"synonyms_path" mapstructure:"synonyms_path"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// BatchConfig configures batch evaluation.
type BatchConfig struct {
	MaxConcurrentSites int `yaml:"max_concurrent_sites" mapstructure:"max_concurrent_sites"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// secretEnv lists the conventional provider variables accepted alongside
// the FEASIBILITY_ prefixed ones.
var secretEnv = map[string]string{
	"anthropic.key": "ANTHROPIC_API_KEY",
	"openai.key":    "OPENAI_API_KEY",
	"gemini.key":    "GEMINI_API_KEY",
	"notion.token":  "NOTION_TOKEN",
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FEASIBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range secretEnv {
		envName := "FEASIBILITY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, alias); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "feasibility.db")
	v.SetDefault("judge.enabled", true)
	v.SetDefault("judge.provider", "anthropic")
	v.SetDefault("judge.max_tokens", 512)
	v.SetDefault("judge.rate_per_second", 2.0)
	v.SetDefault("judge.burst", 2)
	v.SetDefault("judge.breaker_threshold", 5)
	v.SetDefault("judge.breaker_cooldown_secs", 30)
	v.SetDefault("judge.memo_ttl_mins", 60)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.cache_ttl", "5m")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("notion.retries", 3)
	v.SetDefault("mapper.timeout_secs", 30)
	v.SetDefault("mapper.concurrency", 4)
	v.SetDefault("batch.max_concurrent_sites", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
