package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultHistoryLimit    = 50
	maxHistoryLimit        = 200
	defaultAIModel         = "gpt-4o"
	defaultAIMaxTokens     = 300
	defaultAISystemPrompt  = `You are a helpful parenting assistant for "Mum's Space" - a supportive community for mothers. Provide warm, practical, and evidence-based parenting advice. Keep responses concise but caring (2-3 paragraphs max). Focus on common parenting challenges like sleep, feeding, behavior, development, and emotional support. Always be encouraging and remind parents that every child is different. If it's a serious medical concern, suggest consulting a healthcare provider.`
	defaultAICacheDuration = "1h"
)

// Config is the global configuration object which is filled via the
// configuration file, environment (prefix MUMSSPACE) and command-line flags.
type Config struct {
	ServerConfig      ServerConfig      `mapstructure:"server"`
	HistoryConfig     HistoryConfig     `mapstructure:"history"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	RedisConfig       RedisConfig       `mapstructure:"redis"`
	AIConfig          AIConfig          `mapstructure:"ai"`
	LogLevel          string            `mapstructure:"log_level"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`
}

// HistoryConfig configures the message history returned on room switches and
// via the REST history endpoint.
type HistoryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// PersistenceConfig configures the persistence backend. Type is one of
// "buntdb", "sqlite" or "postgres"; an empty type means memory-only operation.
type PersistenceConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// RedisConfig configures the optional redis cache used for AI answers. An
// empty address disables the cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AIConfig configures the parenting-advice completion endpoint. An empty base
// URL disables the AI help feature.
type AIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	SystemPrompt  string `mapstructure:"system_prompt"`
	MaxTokens     int    `mapstructure:"max_tokens"`
	CacheDuration string `mapstructure:"cache_duration"`
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.String("addr", "", "listen address (including port)")
	flagSet.String("log-level", "", "log level (TRACE/DEBUG/INFO/WARN/ERROR)")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath,
// which can either point to a single TOML file or to a directory, in which
// case all *.toml files in this directory are concatenated. It returns a
// Config object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	viper.SetDefault("server.addr", "localhost:8000")
	viper.SetDefault("history.default_limit", defaultHistoryLimit)
	viper.SetDefault("history.max_limit", maxHistoryLimit)
	viper.SetDefault("ai.model", defaultAIModel)
	viper.SetDefault("ai.max_tokens", defaultAIMaxTokens)
	viper.SetDefault("ai.system_prompt", defaultAISystemPrompt)
	viper.SetDefault("ai.cache_duration", defaultAICacheDuration)
	viper.SetDefault("log_level", "INFO")
	err := viper.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("MUMSSPACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := os.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		err = viper.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}
	if cfg.HistoryConfig.DefaultLimit <= 0 {
		cfg.HistoryConfig.DefaultLimit = defaultHistoryLimit
	}
	if cfg.HistoryConfig.MaxLimit <= 0 {
		cfg.HistoryConfig.MaxLimit = maxHistoryLimit
	}
	return &cfg, nil
}
