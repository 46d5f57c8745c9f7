package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration. It is built once at process start
// and handed to every collaborator constructor.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Router    RouterConfig
	Graph     GraphConfig
	LLM       LLMConfig
	Speech    SpeechConfig
	Documents DocumentsConfig
	Meeting   MeetingConfig
	Presenter PresenterConfig
	Reminder  ReminderConfig
	Secrets   SecretsConfig
	Contacts  ContactsConfig
}

// ServerConfig holds webhook listener settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level       string
	Development bool
}

// RouterConfig holds the activation and classification knobs.
type RouterConfig struct {
	WakeWord      string   `mapstructure:"wake_word"`
	SuppressTerms []string `mapstructure:"suppress_terms"`
	Threshold     float64
	KeywordBonus  float64       `mapstructure:"keyword_bonus"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// GraphConfig holds Microsoft Graph credentials and targets.
type GraphConfig struct {
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TeamID       string `mapstructure:"team_id"`
	ChannelID    string `mapstructure:"channel_id"`
	UserID       string `mapstructure:"user_id"`
	BaseURL      string `mapstructure:"base_url"`
	Authority    string
	Timeout      time.Duration
}

// Configured reports whether app credentials are present.
func (g GraphConfig) Configured() bool {
	return g.TenantID != "" && g.ClientID != "" && g.ClientSecret != ""
}

// LLMConfig holds provider settings.
type LLMConfig struct {
	Provider  string
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	Model     string
	Timeout   time.Duration
}

// SpeechConfig holds text-to-speech and speech-to-text settings.
type SpeechConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Voice      string
	TTSModel   string `mapstructure:"tts_model"`
	STTModel   string `mapstructure:"stt_model"`
	OutputDir  string `mapstructure:"output_dir"`
	CaptureDir string `mapstructure:"capture_dir"`
}

// DocumentsConfig points at the directory holding readable files and slide decks.
type DocumentsConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// MeetingConfig holds scheduling defaults.
type MeetingConfig struct {
	DefaultAttendees []string      `mapstructure:"default_attendees"`
	Duration         time.Duration `mapstructure:"duration"`
	ReminderLead     time.Duration `mapstructure:"reminder_lead"`
	Timezone         string
}

// PresenterConfig holds slide walk pacing. SlidePause is an upper bound: a
// long deck shortens it so the walk ends inside router.timeout.
type PresenterConfig struct {
	SlidePause time.Duration `mapstructure:"slide_pause"`
}

// ReminderConfig holds the reminder queue settings.
type ReminderConfig struct {
	RedisURL     string        `mapstructure:"redis_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BatchSize    int           `mapstructure:"batch_size"`
	RetryInitial time.Duration `mapstructure:"retry_initial"`
	RetryMax     time.Duration `mapstructure:"retry_max"`
}

// SecretsConfig locates the encrypted provider key file.
type SecretsConfig struct {
	Dir string
}

// ContactsConfig locates the contacts book.
type ContactsConfig struct {
	Path string
}

// legacyEnv maps config keys to the bare environment names the service has
// always been deployed with.
var legacyEnv = map[string]string{
	"server.port":         "PORT",
	"graph.tenant_id":     "TENANT_ID",
	"graph.client_id":     "CLIENT_ID",
	"graph.client_secret": "CLIENT_SECRET",
	"graph.team_id":       "TEAM_ID",
	"graph.channel_id":    "CHANNEL_ID",
	"reminder.redis_url":  "REDIS_URL",
	"speech.api_key":      "OPENAI_API_KEY",
}

// Load reads configuration from file and env. Env var overrides use prefix TEAMMATE_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("TEAMMATE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "teammate"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TEAMMATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "TEAMMATE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	// read config file if present; a missing default file is fine, a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "teammate", "teammate.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("router.wake_word", "teammate")
	v.SetDefault("router.suppress_terms", []string{"ignore", "don’t", "don't", "do not"})
	v.SetDefault("router.threshold", 0.5)
	v.SetDefault("router.keyword_bonus", 1.0)
	v.SetDefault("router.timeout", 30*time.Second)

	v.SetDefault("graph.tenant_id", "")
	v.SetDefault("graph.client_id", "")
	v.SetDefault("graph.client_secret", "")
	v.SetDefault("graph.team_id", "")
	v.SetDefault("graph.channel_id", "")
	v.SetDefault("graph.user_id", "user@example.com")
	v.SetDefault("graph.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("graph.authority", "https://login.microsoftonline.com")
	v.SetDefault("graph.timeout", 15*time.Second)

	v.SetDefault("llm.provider", "local")
	v.SetDefault("llm.api_key_env", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", 8*time.Second)

	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.base_url", "")
	v.SetDefault("speech.voice", "alloy")
	v.SetDefault("speech.tts_model", "tts-1")
	v.SetDefault("speech.stt_model", "whisper-1")
	v.SetDefault("speech.output_dir", filepath.Join(home, ".local", "share", "teammate", "speech"))
	v.SetDefault("speech.capture_dir", filepath.Join(home, ".local", "share", "teammate", "capture"))

	v.SetDefault("documents.data_dir", "data")

	v.SetDefault("meeting.default_attendees", []string{"user@example.com"})
	v.SetDefault("meeting.duration", time.Hour)
	v.SetDefault("meeting.reminder_lead", 2*time.Minute)
	v.SetDefault("meeting.timezone", "UTC")

	v.SetDefault("presenter.slide_pause", 2*time.Second)

	v.SetDefault("reminder.redis_url", "")
	v.SetDefault("reminder.poll_interval", 15*time.Second)
	v.SetDefault("reminder.max_attempts", 3)
	v.SetDefault("reminder.batch_size", 20)
	v.SetDefault("reminder.retry_initial", 30*time.Second)
	v.SetDefault("reminder.retry_max", 10*time.Minute)

	v.SetDefault("secrets.dir", filepath.Join(home, ".config", "teammate"))
	v.SetDefault("contacts.path", filepath.Join(home, ".config", "teammate", "contacts.json"))
}

// Validate rejects settings the router cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Router.WakeWord) == "" {
		return fmt.Errorf("config: router.wake_word must not be empty")
	}
	if c.Router.Threshold < 0 || c.Router.Threshold > 1 {
		return fmt.Errorf("config: router.threshold must be within [0,1], got %v", c.Router.Threshold)
	}
	if c.Router.KeywordBonus < 0 {
		return fmt.Errorf("config: router.keyword_bonus must not be negative, got %v", c.Router.KeywordBonus)
	}
	if c.Router.Timeout <= 0 {
		return fmt.Errorf("config: router.timeout must be positive")
	}
	if c.Reminder.MaxAttempts < 1 {
		return fmt.Errorf("config: reminder.max_attempts must be at least 1")
	}
	return nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// Credentials are left out; prefer env vars or the secrets store for those.
func Save(cfg Config) error {
	path := os.Getenv("TEAMMATE_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "teammate", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("server.port", cfg.Server.Port)
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("router.wake_word", cfg.Router.WakeWord)
	v.Set("router.suppress_terms", cfg.Router.SuppressTerms)
	v.Set("router.threshold", cfg.Router.Threshold)
	v.Set("router.keyword_bonus", cfg.Router.KeywordBonus)
	v.Set("router.timeout", cfg.Router.Timeout.String())
	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("documents.data_dir", cfg.Documents.DataDir)
	v.Set("meeting.default_attendees", cfg.Meeting.DefaultAttendees)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
