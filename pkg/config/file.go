package config

// Config is the top-level bot configuration.
type Config struct {
	App        *AppConfig        `json:"app" yaml:"app"`
	Bot        *BotConfig        `json:"bot" yaml:"bot"`
	Browser    *BrowserConfig    `json:"browser" yaml:"browser"`
	Telegram   *TelegramConfig   `json:"telegram" yaml:"telegram"`
	Server     *ServerConfig     `json:"server" yaml:"server"`
	Scheduler  *SchedulerConfig  `json:"scheduler" yaml:"scheduler"`
	Categories []*CategoryConfig `json:"categories" yaml:"categories"`
}

// AppConfig holds runtime settings unrelated to tracking itself.
type AppConfig struct {
	LogLevel    string `json:"log_level" yaml:"log_level"`
	LogFile     string `json:"log_file" yaml:"log_file"`
	Development bool   `json:"development" yaml:"development"`
}

// BotConfig holds the operator-level switches.
type BotConfig struct {
	// Notify mirrors tracker findings to the notification channel.
	Notify bool `json:"notify" yaml:"notify"`
	// Purchase globally enables automated purchasing.
	Purchase bool `json:"purchase" yaml:"purchase"`
	// PurchaseSame allows buying an item that was already purchased in a
	// previous attempt this session.
	PurchaseSame bool `json:"purchase_same" yaml:"purchase_same"`

	Credentials *Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// Credentials is the single shop account the bot operates with. Environment
// variables PCC_USER / PCC_PASS override the file values.
type Credentials struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

// BrowserConfig controls the shared headless session.
type BrowserConfig struct {
	Headless             bool   `json:"headless" yaml:"headless"`
	ExecPath             string `json:"exec_path,omitempty" yaml:"exec_path,omitempty"`
	NavigationsPerMinute int    `json:"navigations_per_minute" yaml:"navigations_per_minute"`
}

// TelegramConfig holds the notification channel settings. BOT_TOKEN and
// CHAT_ID environment variables override the file values.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
	Timeout  int    `json:"timeout" yaml:"timeout"`
}

// ServerConfig holds the local status API settings.
type ServerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port" yaml:"port"`
}

// SchedulerConfig holds the periodic summary report settings.
type SchedulerConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	SummaryCron string `json:"summary_cron" yaml:"summary_cron"`
}

func getDefaultConfig() *Config {
	return &Config{
		App:       NewAppConfig(),
		Bot:       NewBotConfig(),
		Browser:   NewBrowserConfig(),
		Telegram:  NewTelegramConfig(),
		Server:    NewServerConfig(),
		Scheduler: NewSchedulerConfig(),
	}
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		LogLevel:    "info",
		Development: true,
	}
}

func NewBotConfig() *BotConfig {
	return &BotConfig{
		Notify:   true,
		Purchase: false,
	}
}

func NewBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:             true,
		NavigationsPerMinute: 0,
	}
}

func NewTelegramConfig() *TelegramConfig {
	return &TelegramConfig{
		Timeout: 30,
	}
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Address: "127.0.0.1",
		Port:    8327,
	}
}

func NewSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		SummaryCron: "0 9 * * *",
	}
}
