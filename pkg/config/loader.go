package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration file from the given path. An empty path
// falls back to the default search locations; a missing file yields the
// default configuration.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		mergeEnvVars(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}

	config := getDefaultConfig()
	ext := filepath.Ext(configPath)

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: JSON parsing failed: %v", ErrInvalidFormat, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: YAML parsing failed: %v", ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}

	fillDefaults(config)
	mergeEnvVars(config)

	for _, c := range config.Categories {
		c.Normalize()
	}

	return config, nil
}

func getDefaultConfigPath() string {
	paths := []string{
		"./config.yaml",
		"./config.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".restockbot", "config.yaml"),
			filepath.Join(homeDir, ".restockbot", "config.json"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./config.yaml"
}

// fillDefaults restores sections the file omitted entirely.
func fillDefaults(config *Config) {
	if config.App == nil {
		config.App = NewAppConfig()
	}
	if config.Bot == nil {
		config.Bot = NewBotConfig()
	}
	if config.Browser == nil {
		config.Browser = NewBrowserConfig()
	}
	if config.Telegram == nil {
		config.Telegram = NewTelegramConfig()
	}
	if config.Server == nil {
		config.Server = NewServerConfig()
	}
	if config.Scheduler == nil {
		config.Scheduler = NewSchedulerConfig()
	}
	if config.Telegram.Timeout <= 0 {
		config.Telegram.Timeout = 30
	}
}

// mergeEnvVars lets environment variables override file values, so secrets
// can stay out of the config file.
func mergeEnvVars(config *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.App.LogLevel = v
	}
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		config.Telegram.BotToken = v
	}
	if v := os.Getenv("CHAT_ID"); v != "" {
		config.Telegram.ChatID = v
	}

	user := os.Getenv("PCC_USER")
	pass := os.Getenv("PCC_PASS")
	if user != "" || pass != "" {
		if config.Bot.Credentials == nil {
			config.Bot.Credentials = &Credentials{}
		}
		if user != "" {
			config.Bot.Credentials.Email = user
		}
		if pass != "" {
			config.Bot.Credentials.Password = pass
		}
	}
}
