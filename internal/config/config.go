package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LLMConfig configures the OpenRouter chat-completions client. The key pool
// is the ordered, non-empty subset of api_key_1..api_key_4.
type LLMConfig struct {
	APIKey1        string        `mapstructure:"api_key_1"`
	APIKey2        string        `mapstructure:"api_key_2"`
	APIKey3        string        `mapstructure:"api_key_3"`
	APIKey4        string        `mapstructure:"api_key_4"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Referer        string        `mapstructure:"referer"`
	Title          string        `mapstructure:"title"`
}

// APIKeys returns the configured credentials in order, empty slots dropped.
func (c LLMConfig) APIKeys() []string {
	var keys []string
	for _, k := range []string{c.APIKey1, c.APIKey2, c.APIKey3, c.APIKey4} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

type ChatConfig struct {
	MaxHistoryLength int `mapstructure:"max_history_length"`
	MaxSampleRows    int `mapstructure:"max_sample_rows"`
	MaxResultRows    int `mapstructure:"max_result_rows"`
}

type UploadConfig struct {
	Dir       string `mapstructure:"dir"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "310s") // must cover the LLM request timeout

	// LLM
	v.SetDefault("llm.model", "google/gemini-2.5-pro-exp-03-25:free")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.request_timeout", "300s")
	v.SetDefault("llm.referer", "https://sql-ai-chatbot.streamlit.app")
	v.SetDefault("llm.title", "SQLite AI Chatbot")

	// Chat
	v.SetDefault("chat.max_history_length", 10)
	v.SetDefault("chat.max_sample_rows", 5)
	v.SetDefault("chat.max_result_rows", 100)

	// Upload
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.max_size_mb", 100)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("llm.api_key_1", "OPENROUTER_API_KEY_1")
	v.BindEnv("llm.api_key_2", "OPENROUTER_API_KEY_2")
	v.BindEnv("llm.api_key_3", "OPENROUTER_API_KEY_3")
	v.BindEnv("llm.api_key_4", "OPENROUTER_API_KEY_4")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("llm.base_url", "OPENROUTER_BASE_URL")
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("upload.dir", "UPLOAD_DIR")
}
