// Package config loads and validates the watcher configuration at startup.
// Fail-fast: structural errors and missing credentials abort the process
// before the scheduler starts.
package config

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/benny59/architetti/internal/store"
)

// Configuration validation errors.
var (
	ErrNoSources          = errors.New("at least one source is required")
	ErrInvalidNickname    = errors.New("nickname must match [a-z][a-z0-9_]*")
	ErrDuplicateNickname  = errors.New("nickname is registered twice")
	ErrSourceMissingURL   = errors.New("source needs at least one url")
	ErrInvalidDriver      = errors.New("database.driver must be 'sqlite3' or 'pgx'")
	ErrMissingDSN         = errors.New("database.dsn is required")
	ErrInvalidInterval    = errors.New("interval must be positive")
	ErrInvalidCron        = errors.New("cron expression is invalid")
	ErrInvalidMaxPages    = errors.New("max_pages must be between 1 and 10")
	ErrInvalidLogLevel    = errors.New("log_level must be one of: debug, info, warn, error")
	ErrMissingBotToken    = errors.New("telegram bot token is required")
	ErrMissingChatID      = errors.New("telegram chat id is required")
	ErrMissingCredentials = errors.New("europaconcorsi username and password are required")
)

// Keys of the persisted configuration partition read by ResolveSecrets.
const (
	KeyBotToken = "TELEGRAM_BOT_TOKEN"
	KeyChatID   = "TELEGRAM_CHAT_ID"
	KeyUsername = "EUROPACONCORSI_USERNAME"
	KeyPassword = "EUROPACONCORSI_PASSWORD"
)

// AuthenticatedSource is the only registration that needs credentials.
const AuthenticatedSource = "europaconcorsi"

// DefaultChatID is the notification channel used when neither the
// environment, the file nor the persisted partition names one.
const DefaultChatID int64 = -1001993911752

// HardPageCap bounds pagination for every adapter.
const HardPageCap = 10

var nicknamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Config holds all runtime configuration. It is assembled once by Load and
// passed by reference; nothing reads configuration globally afterwards.
type Config struct {
	LogLevel    string            `mapstructure:"log_level"`
	Interval    time.Duration     `mapstructure:"interval"`
	Cron        string            `mapstructure:"cron"`
	MaxPages    int               `mapstructure:"max_pages"`
	Database    DatabaseConfig    `mapstructure:"database"`
	RedisURL    string            `mapstructure:"redis_url"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Server      ServerConfig      `mapstructure:"server"`
	Credentials CredentialsConfig `mapstructure:"europaconcorsi"`
	Sources     []SourceConfig    `mapstructure:"sources"`
}

// DatabaseConfig selects the SQL engine behind the dedup store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// TelegramConfig describes the notification channel.
type TelegramConfig struct {
	Token  string        `mapstructure:"token"`
	ChatID int64         `mapstructure:"chat_id"`
	Delay  time.Duration `mapstructure:"delay"`
	DryRun bool          `mapstructure:"dry_run"`
}

// HTTPConfig tunes the shared page fetcher.
type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// BrowserConfig tunes the headless browser session.
type BrowserConfig struct {
	ExecPath string        `mapstructure:"exec_path"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ServerConfig is the operator HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// CredentialsConfig holds the login for the authenticated source.
type CredentialsConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SourceConfig is the static part of a site registration.
type SourceConfig struct {
	Nickname string   `mapstructure:"nickname"`
	Enabled  bool     `mapstructure:"enabled"`
	URLs     []string `mapstructure:"urls"`
	Exclude  []string `mapstructure:"exclude"`
}

// Load reads the YAML file at path (optional) and applies environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", time.Hour)
	v.SetDefault("max_pages", HardPageCap)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "records.db")
	v.SetDefault("telegram.delay", 4*time.Second)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.timeout", 2*time.Minute)
	v.SetDefault("server.addr", ":8081")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"log_level":               "LOG_LEVEL",
		"interval":                "SCRAPE_INTERVAL",
		"cron":                    "SCRAPE_CRON",
		"database.driver":         "DATABASE_DRIVER",
		"database.dsn":            "DATABASE_URL",
		"redis_url":               "REDIS_URL",
		"telegram.token":          KeyBotToken,
		"telegram.chat_id":        KeyChatID,
		"telegram.dry_run":        "TELEGRAM_DRY_RUN",
		"europaconcorsi.username": KeyUsername,
		"europaconcorsi.password": KeyPassword,
		"browser.exec_path":       "CHROME_PATH",
		"server.addr":             "SERVER_ADDR",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

// DefaultSources mirrors the registrations the watcher ships with.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Nickname: "professione_architetto",
			Enabled:  true,
			URLs:     []string{"https://www.professionearchitetto.it/key/concorsi-di-progettazione/"},
		},
		{
			Nickname: "genovaconcorsi",
			Enabled:  true,
			URLs: []string{
				"https://appalti.comune.genova.it/PortaleAppalti/it/homepage.wp?actionPath=/ExtStr2/do/FrontEnd/Bandi/view.action",
			},
		},
		{
			Nickname: "demanio",
			Enabled:  true,
			URLs:     []string{"https://www.agenziademanio.it/it/gare-aste/lavori/?garaFilters=r%3A07"},
		},
		{
			Nickname: "europaconcorsi",
			Enabled:  false,
			URLs:     []string{"https://europaconcorsi.com/bandi/partecipazione-ristretta"},
		},
		{
			Nickname: "aria",
			Enabled:  false,
			URLs:     []string{"https://www.sintel.regione.lombardia.it/eprocdata/sintelSearch.xhtml"},
		},
		{
			Nickname: "dummy_site",
			Enabled:  false,
			URLs:     []string{"dummy://"},
		},
	}
}

// Validate checks the structural configuration. Credentials are checked
// separately by ValidateSecrets once the persisted partition was consulted.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if !nicknamePattern.MatchString(src.Nickname) {
			return fmt.Errorf("%w: source[%d] %q", ErrInvalidNickname, i, src.Nickname)
		}
		if seen[src.Nickname] {
			return fmt.Errorf("%w: %s", ErrDuplicateNickname, src.Nickname)
		}
		seen[src.Nickname] = true

		if len(src.URLs) == 0 {
			return fmt.Errorf("%w: %s", ErrSourceMissingURL, src.Nickname)
		}
	}

	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return ErrInvalidDriver
	}
	if c.Database.DSN == "" {
		return ErrMissingDSN
	}

	if c.Interval <= 0 {
		return ErrInvalidInterval
	}

	if c.Cron != "" {
		if _, err := cron.ParseStandard(c.Cron); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCron, err)
		}
	}

	if c.MaxPages < 1 || c.MaxPages > HardPageCap {
		return ErrInvalidMaxPages
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// EnabledSources returns only the enabled registrations, in file order.
func (c *Config) EnabledSources() []SourceConfig {
	var enabled []SourceConfig
	for _, src := range c.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled
}

// IsEnabled reports whether the named source is configured and enabled.
func (c *Config) IsEnabled(nickname string) bool {
	for _, src := range c.Sources {
		if src.Nickname == nickname {
			return src.Enabled
		}
	}
	return false
}

// Nicknames returns every configured nickname, enabled or not.
func (c *Config) Nicknames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		names = append(names, src.Nickname)
	}
	return names
}

// SecretSource is the persisted key/value partition.
type SecretSource interface {
	ConfigValue(ctx context.Context, key string) (string, error)
}

// ResolveSecrets fills credentials that neither the file nor the environment
// provided from the persisted configuration partition. The chat id falls back
// to DefaultChatID last.
func (c *Config) ResolveSecrets(ctx context.Context, src SecretSource) error {
	lookup := func(key string, dst *string) error {
		if *dst != "" {
			return nil
		}
		val, err := src.ConfigValue(ctx, key)
		if errors.Is(err, store.ErrConfigKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		*dst = val
		return nil
	}

	if err := lookup(KeyBotToken, &c.Telegram.Token); err != nil {
		return err
	}
	if err := lookup(KeyUsername, &c.Credentials.Username); err != nil {
		return err
	}
	if err := lookup(KeyPassword, &c.Credentials.Password); err != nil {
		return err
	}

	if c.Telegram.ChatID == 0 {
		var raw string
		if err := lookup(KeyChatID, &raw); err != nil {
			return err
		}
		if raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrMissingChatID, raw)
			}
			c.Telegram.ChatID = id
		}
	}
	if c.Telegram.ChatID == 0 {
		c.Telegram.ChatID = DefaultChatID
	}

	return nil
}

// ValidateSecrets enforces the credentials required by the enabled sources
// and the notification channel.
func (c *Config) ValidateSecrets() error {
	if !c.Telegram.DryRun {
		if c.Telegram.Token == "" {
			return ErrMissingBotToken
		}
		if c.Telegram.ChatID == 0 {
			return ErrMissingChatID
		}
	}

	if c.IsEnabled(AuthenticatedSource) {
		if c.Credentials.Username == "" || c.Credentials.Password == "" {
			return ErrMissingCredentials
		}
	}

	return nil
}
