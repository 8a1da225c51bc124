package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/outreach-engine/internal/channel/email"
	"github.com/jwalitptl/outreach-engine/internal/lifecycle"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/outreach"
	"github.com/jwalitptl/outreach-engine/internal/repository/postgres"
	"github.com/jwalitptl/outreach-engine/internal/sweep"
	"github.com/jwalitptl/outreach-engine/pkg/messaging/redis"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Sweeps    SweepsConfig    `mapstructure:"sweeps"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Email     EmailConfig     `mapstructure:"email"`
}

type ServerConfig struct {
	Port      int     `mapstructure:"port" envconfig:"SERVER_PORT"`
	RateLimit float64 `mapstructure:"rate_limit" envconfig:"SERVER_RATE_LIMIT"`
	RateBurst int     `mapstructure:"rate_burst" envconfig:"SERVER_RATE_BURST"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled" envconfig:"DB_ENABLED"`
	Host     string `mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT"`
	User     string `mapstructure:"user" envconfig:"DB_USER"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	Enabled       bool          `mapstructure:"enabled" envconfig:"REDIS_ENABLED"`
	URL           string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries    int           `mapstructure:"max_retries" envconfig:"REDIS_MAX_RETRIES"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" envconfig:"REDIS_RETRY_BACKOFF"`
	EventTopic    string        `mapstructure:"event_topic" envconfig:"REDIS_EVENT_TOPIC"`
	OutboundTopic string        `mapstructure:"outbound_topic" envconfig:"REDIS_OUTBOUND_TOPIC"`
}

type LifecycleConfig struct {
	SilenceThresholdHours int    `mapstructure:"silence_threshold_hours" envconfig:"SILENCE_THRESHOLD_HOURS"`
	EscalationCutoff      string `mapstructure:"escalation_cutoff" envconfig:"ESCALATION_CUTOFF"`
	CheckpointCutoff      string `mapstructure:"checkpoint_cutoff" envconfig:"CHECKPOINT_CUTOFF"`
	AdvanceNoticeDays     int    `mapstructure:"advance_notice_days" envconfig:"ADVANCE_NOTICE_DAYS"`
	Timezone              string `mapstructure:"timezone" envconfig:"TIMEZONE"`
}

type SweepsConfig struct {
	CandidateInterval     time.Duration `mapstructure:"candidate_interval" envconfig:"SWEEP_CANDIDATE_INTERVAL"`
	CheckpointInterval    time.Duration `mapstructure:"checkpoint_interval" envconfig:"SWEEP_CHECKPOINT_INTERVAL"`
	AdvanceNoticeInterval time.Duration `mapstructure:"advance_notice_interval" envconfig:"SWEEP_ADVANCE_NOTICE_INTERVAL"`
	ReminderEnabled       bool          `mapstructure:"reminder_enabled" envconfig:"SWEEP_REMINDER_ENABLED"`
	ReminderTemplate      string        `mapstructure:"reminder_template" envconfig:"SWEEP_REMINDER_TEMPLATE"`
	ReminderChannels      []string      `mapstructure:"reminder_channels" envconfig:"SWEEP_REMINDER_CHANNELS"`
}

type DispatchConfig struct {
	Throttle       time.Duration `mapstructure:"throttle" envconfig:"DISPATCH_THROTTLE"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" envconfig:"DISPATCH_ATTEMPT_TIMEOUT"`
	MaxOutcomes    int           `mapstructure:"max_outcomes" envconfig:"DISPATCH_MAX_OUTCOMES"`
}

type EmailConfig struct {
	Host    string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port    int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	User    string `mapstructure:"user" envconfig:"SMTP_USER"`
	Pass    string `mapstructure:"pass" envconfig:"SMTP_PASS"`
	From    string `mapstructure:"from" envconfig:"SMTP_FROM"`
	Subject string `mapstructure:"subject" envconfig:"SMTP_SUBJECT"`
}

// Load reads config.yaml and then lets environment variables override
// individual fields, so deployments can stay file-free.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	config := defaults()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8080,
			RateLimit: 100,
			RateBurst: 200,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "outreach",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			URL:           "redis://localhost:6379/0",
			MaxRetries:    3,
			RetryBackoff:  100 * time.Millisecond,
			EventTopic:    "outreach.events",
			OutboundTopic: "outreach.outbound",
		},
		Lifecycle: LifecycleConfig{
			SilenceThresholdHours: 8,
			EscalationCutoff:      "18:30",
			CheckpointCutoff:      "15:00",
			AdvanceNoticeDays:     3,
			Timezone:              "Local",
		},
		Sweeps: SweepsConfig{
			CandidateInterval:     30 * time.Minute,
			CheckpointInterval:    time.Hour,
			AdvanceNoticeInterval: time.Hour,
			ReminderTemplate:      "Hi {name}, we have not heard from you in {silence_hours} hours. Still interested?",
			ReminderChannels:      []string{"chat", "sms"},
		},
		Dispatch: DispatchConfig{
			Throttle:       200 * time.Millisecond,
			AttemptTimeout: 10 * time.Second,
			MaxOutcomes:    1000,
		},
		Email: EmailConfig{
			Host:    "localhost",
			Port:    587,
			From:    "outreach@localhost",
			Subject: "Update from the recruiting team",
		},
	}
}

func (c *Config) ToLifecycleConfig() (lifecycle.Config, error) {
	escalation, err := lifecycle.ParseDayTime(c.Lifecycle.EscalationCutoff)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("invalid escalation cutoff: %w", err)
	}
	checkpoint, err := lifecycle.ParseDayTime(c.Lifecycle.CheckpointCutoff)
	if err != nil {
		return lifecycle.Config{}, fmt.Errorf("invalid checkpoint cutoff: %w", err)
	}
	loc := time.Local
	if c.Lifecycle.Timezone != "" && c.Lifecycle.Timezone != "Local" {
		loc, err = time.LoadLocation(c.Lifecycle.Timezone)
		if err != nil {
			return lifecycle.Config{}, fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return lifecycle.Config{
		SilenceThreshold:  time.Duration(c.Lifecycle.SilenceThresholdHours) * time.Hour,
		EscalationCutoff:  escalation,
		CheckpointCutoff:  checkpoint,
		AdvanceNoticeDays: c.Lifecycle.AdvanceNoticeDays,
		Location:          loc,
	}, nil
}

func (c *Config) ToDispatcherConfig() outreach.DispatcherConfig {
	return outreach.DispatcherConfig{
		Throttle:       c.Dispatch.Throttle,
		AttemptTimeout: c.Dispatch.AttemptTimeout,
		MaxOutcomes:    c.Dispatch.MaxOutcomes,
	}
}

func (c *Config) ToReminderConfig() sweep.ReminderConfig {
	channels := make([]model.ChannelKind, 0, len(c.Sweeps.ReminderChannels))
	for _, ch := range c.Sweeps.ReminderChannels {
		channels = append(channels, model.ChannelKind(ch))
	}
	return sweep.ReminderConfig{
		Enabled:  c.Sweeps.ReminderEnabled,
		Template: c.Sweeps.ReminderTemplate,
		Channels: channels,
	}
}

func (c *Config) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.Redis.URL,
		MaxRetries:   c.Redis.MaxRetries,
		RetryBackoff: c.Redis.RetryBackoff,
	}
}

func (c *Config) ToEmailConfig() email.Config {
	return email.Config{
		Host:    c.Email.Host,
		Port:    c.Email.Port,
		User:    c.Email.User,
		Pass:    c.Email.Pass,
		From:    c.Email.From,
		Subject: c.Email.Subject,
	}
}

func (c *Config) ToDBConfig() postgres.DBConfig {
	return postgres.DBConfig{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Name:     c.Database.Name,
		SSLMode:  c.Database.SSLMode,
	}
}
