// Package config loads preminder settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shanehull/preminder/internal/schedule"
)

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // sqlite file
}

type HistoryConfig struct {
	Path string `yaml:"path"` // empty selects a file under the temp dir
}

type ScheduleConfig struct {
	DailyAt  string        `yaml:"daily_at"` // HH:MM
	Timezone string        `yaml:"timezone"` // IANA name or "Local"
	Pacing   time.Duration `yaml:"pacing"`   // delay between events within a cycle
}

type SearchConfig struct {
	APIKey  string        `yaml:"api_key"`
	CSEID   string        `yaml:"cse_id"`
	Limit   int           `yaml:"limit"`
	Timeout time.Duration `yaml:"timeout"`
}

type OracleConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Concurrency int           `yaml:"concurrency"`
	Retries     int           `yaml:"retries"`
	Backoff     time.Duration `yaml:"backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

type SMTPConfig struct {
	Server  string        `yaml:"server"`
	Port    int           `yaml:"port"`
	User    string        `yaml:"user"`
	Pass    string        `yaml:"pass"`
	From    string        `yaml:"from"` // defaults to user
	Timeout time.Duration `yaml:"timeout"`
}

type DedupConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Search   SearchConfig   `yaml:"search"`
	Oracle   OracleConfig   `yaml:"oracle"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Log      LogConfig      `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "./database/preminder.db"},
		Schedule: ScheduleConfig{
			DailyAt:  "21:30",
			Timezone: "Local",
			Pacing:   60 * time.Second,
		},
		Search: SearchConfig{Limit: 3, Timeout: 15 * time.Second},
		Oracle: OracleConfig{
			Model:       "gemini-2.5-flash",
			Concurrency: 3,
			Retries:     2,
			Backoff:     500 * time.Millisecond,
			MaxBackoff:  5 * time.Second,
		},
		SMTP:  SMTPConfig{Server: "smtp.gmail.com", Port: 587, Timeout: 10 * time.Second},
		Dedup: DedupConfig{Enabled: true},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("GEMINI_API_KEY", &c.Oracle.APIKey)
	str("GOOGLE_API_KEY", &c.Search.APIKey)
	str("GOOGLE_CSE_ID", &c.Search.CSEID)
	str("SENDER_EMAIL", &c.SMTP.User)
	str("EMAIL_PASSWORD", &c.SMTP.Pass)
	str("SMTP_SERVER", &c.SMTP.Server)
	str("BATCH_TIME", &c.Schedule.DailyAt)
	str("PREMINDER_DB", &c.Database.Path)

	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTP.Port = port
	}
	return nil
}

// Location resolves the schedule time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || strings.EqualFold(c.Schedule.Timezone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// Validate checks settings that every command relies on. Credentials are
// checked by the components that need them.
func (c Config) Validate() error {
	var errs []error
	if _, err := schedule.ParseClock(c.Schedule.DailyAt); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	if c.Schedule.Pacing < 0 {
		errs = append(errs, errors.New("schedule.pacing must not be negative"))
	}
	if c.Search.Limit < 1 || c.Search.Limit > 3 {
		errs = append(errs, fmt.Errorf("search.limit must be between 1 and 3, got %d", c.Search.Limit))
	}
	if c.Oracle.Concurrency < 1 {
		errs = append(errs, errors.New("oracle.concurrency must be at least 1"))
	}
	if c.Oracle.Retries < 0 {
		errs = append(errs, errors.New("oracle.retries must not be negative"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	return errors.Join(errs...)
}
