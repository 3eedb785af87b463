package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/annovation/chatbot-backend/internal/logger"
	"github.com/annovation/chatbot-backend/internal/utils"
)

// DefaultSystemDirective is the fixed behavior directive sent as the first
// prompt message of every turn. It is configuration, not room state.
const DefaultSystemDirective = "You are a friendly chat assistant for Korean users. " +
	"Answer in polite Korean unless the user writes in another language, and keep answers concise."

type ChatConfig struct {
	// RecentTurns is the number of most recent turns replayed verbatim
	// on every prompt, and the number of turns folded per summary segment.
	RecentTurns     int    `yaml:"recent_turns"`
	SystemDirective string `yaml:"system_directive"`
}

type OpenAIConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type Config struct {
	Port         string       `yaml:"port"`
	AllowOrigins []string     `yaml:"allow_origins"`
	Chat         ChatConfig   `yaml:"chat"`
	OpenAI       OpenAIConfig `yaml:"openai"`
}

func defaults() *Config {
	return &Config{
		Port: "8080",
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		Chat: ChatConfig{
			RecentTurns:     3,
			SystemDirective: DefaultSystemDirective,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 180,
			MaxRetries:     4,
		},
	}
}

// Load builds the config from defaults, an optional YAML file, and finally
// environment variable overrides, in that precedence order.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}

	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.Chat.RecentTurns = utils.GetEnvAsInt("CHAT_RECENT_TURNS", cfg.Chat.RecentTurns, log)
	cfg.Chat.SystemDirective = utils.GetEnv("CHAT_SYSTEM_DIRECTIVE", cfg.Chat.SystemDirective, log)
	cfg.OpenAI.BaseURL = utils.GetEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL, log)
	cfg.OpenAI.Model = utils.GetEnv("OPENAI_MODEL", cfg.OpenAI.Model, log)
	cfg.OpenAI.TimeoutSeconds = utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", cfg.OpenAI.TimeoutSeconds, log)
	cfg.OpenAI.MaxRetries = utils.GetEnvAsInt("OPENAI_MAX_RETRIES", cfg.OpenAI.MaxRetries, log)

	if cfg.Chat.RecentTurns < 1 {
		return nil, fmt.Errorf("chat.recent_turns must be >= 1, got %d", cfg.Chat.RecentTurns)
	}
	return cfg, nil
}
