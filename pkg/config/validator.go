package config

import "fmt"

// ValidateConfig checks the loaded configuration before the bot starts.
func (c *Config) ValidateConfig() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrMissingRequired)
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if err := validateCategory(cat); err != nil {
			return fmt.Errorf("%w: category %d (%s): %v", ErrCategoryConfig, i, cat.Name, err)
		}
		if seen[cat.Name] {
			return fmt.Errorf("%w: duplicate category name %q", ErrCategoryConfig, cat.Name)
		}
		seen[cat.Name] = true
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("%w: telegram bot_token", ErrMissingRequired)
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("%w: telegram chat_id", ErrMissingRequired)
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("%w: server port must be within 1-65535", ErrInvalidValue)
		}
	}

	return nil
}

func validateCategory(cat *CategoryConfig) error {
	if cat.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingRequired)
	}
	if cat.URL == "" {
		return fmt.Errorf("%w: url", ErrMissingRequired)
	}
	if len(cat.Articles) == 0 {
		return fmt.Errorf("%w: articles", ErrMissingRequired)
	}
	for j, rule := range cat.Articles {
		if len(rule.Model) == 0 {
			return fmt.Errorf("%w: articles[%d].model", ErrMissingRequired, j)
		}
		if rule.MaxPrice < 0 {
			return fmt.Errorf("%w: articles[%d].max_price must not be negative", ErrInvalidValue, j)
		}
	}
	if cat.MinUpdateSeconds < 0 || cat.MaxUpdateSeconds < 0 {
		return fmt.Errorf("%w: update bounds must not be negative", ErrInvalidValue)
	}
	if cat.MaxUpdateSeconds > 0 && cat.MinUpdateSeconds > cat.MaxUpdateSeconds {
		return fmt.Errorf("%w: min_update_seconds exceeds max_update_seconds", ErrInvalidValue)
	}
	return nil
}
