// Package config loads studyloop settings from defaults, an optional YAML
// file, a .env file and STUDYLOOP_* environment variables, in increasing
// priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/studyloop/internal/graphmirror"
	"github.com/abhisek/studyloop/internal/llm"
	"github.com/abhisek/studyloop/internal/logger"
	"github.com/abhisek/studyloop/internal/pathcache"
	"github.com/abhisek/studyloop/internal/problemgen"
	"github.com/abhisek/studyloop/internal/tracing"
)

// EnvPrefix is prepended to every environment key, e.g. STUDYLOOP_LLM_PROVIDER.
const EnvPrefix = "STUDYLOOP"

// Config is the full application configuration.
type Config struct {
	DB         DB                    `mapstructure:"db"`
	Log        logger.Config         `mapstructure:"log"`
	LLM        llm.Config            `mapstructure:"llm"`
	Redis      pathcache.RedisConfig `mapstructure:"redis"`
	Neo4j      graphmirror.Config    `mapstructure:"neo4j"`
	Tracing    tracing.Config        `mapstructure:"tracing"`
	Generation Generation            `mapstructure:"generation"`
}

// DB locates the SQLite file. An empty Path means the default data dir.
type DB struct {
	Path string `mapstructure:"path"`
}

// Generation tunes question and flashcard generation.
type Generation struct {
	Lookback         int     `mapstructure:"lookback"`
	ScanLimit        int     `mapstructure:"scan_limit"`
	MaxAvoid         int     `mapstructure:"max_avoid"`
	ExtraCandidates  int     `mapstructure:"extra_candidates"`
	MaxAvoidInPrompt int     `mapstructure:"max_avoid_in_prompt"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature"`
}

// Protocol returns the avoidance protocol limits with the default validators.
func (g Generation) Protocol() problemgen.ProtocolConfig {
	pc := problemgen.DefaultProtocolConfig()
	pc.Lookback = g.Lookback
	pc.ScanLimit = g.ScanLimit
	pc.MaxAvoid = g.MaxAvoid
	pc.ExtraCandidates = g.ExtraCandidates
	return pc
}

// Generator returns the LLM generator settings.
func (g Generation) Generator() problemgen.Config {
	return problemgen.Config{
		MaxTokens:        g.MaxTokens,
		Temperature:      g.Temperature,
		MaxAvoidInPrompt: g.MaxAvoidInPrompt,
	}
}

// providerKeyEnv lists the conventional API key variables honored after the
// STUDYLOOP_ ones.
var providerKeyEnv = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// Load reads configuration. file may be empty, in which case ./studyloop.yaml
// is used if present. A .env file in the working directory is loaded first
// and never overrides variables that are already set.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for name, env := range providerKeyEnv {
		key := "llm." + name + ".api_key"
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	_ = v.BindEnv("db.path", EnvPrefix+"_DB_PATH", EnvPrefix+"_DB")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("studyloop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
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
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	lc := llm.DefaultConfig()
	v.SetDefault("llm.provider", lc.Provider)
	for name, pc := range map[string]llm.ProviderConfig{
		"anthropic":  lc.Anthropic,
		"openai":     lc.OpenAI,
		"openrouter": lc.OpenRouter,
		"gemini":     lc.Gemini,
	} {
		v.SetDefault("llm."+name+".api_key", pc.APIKey)
		v.SetDefault("llm."+name+".model", pc.Model)
		v.SetDefault("llm."+name+".base_url", pc.BaseURL)
	}
	v.SetDefault("llm.retry.max_attempts", lc.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", lc.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", lc.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", lc.Retry.Multiplier)
	v.SetDefault("llm.timeout", lc.Timeout)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("redis.key_prefix", "studyloop:paths:")

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.timeout", "10s")
	v.SetDefault("neo4j.max_pool_size", 50)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service_name", "studyloop")

	pc := problemgen.DefaultProtocolConfig()
	gc := problemgen.DefaultConfig()
	v.SetDefault("generation.lookback", pc.Lookback)
	v.SetDefault("generation.scan_limit", pc.ScanLimit)
	v.SetDefault("generation.max_avoid", pc.MaxAvoid)
	v.SetDefault("generation.extra_candidates", pc.ExtraCandidates)
	v.SetDefault("generation.max_avoid_in_prompt", gc.MaxAvoidInPrompt)
	v.SetDefault("generation.max_tokens", gc.MaxTokens)
	v.SetDefault("generation.temperature", gc.Temperature)
}
