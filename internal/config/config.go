package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"quiz-round-service/internal/domain"
)

// Snapshot backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Question bank sources.
const (
	BankFile     = "file"
	BankPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	State struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Key     string `yaml:"key"`
	} `yaml:"state"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Bank            string        `yaml:"bank"`
		BankSource      string        `yaml:"bank_source"`
		NegativeMarking bool          `yaml:"negative_marking"`
		Timer           string        `yaml:"timer"`
		Teams           []domain.Team `yaml:"teams"`
	} `yaml:"quiz"`
	Admin struct {
		Token     string `yaml:"token"`
		TokenHash string `yaml:"token_hash"`
	} `yaml:"admin"`
}

// DefaultTeams is the roster used when the config lists none.
func DefaultTeams() []domain.Team {
	return []domain.Team{
		{ID: "alpha", Name: "Alpha"},
		{ID: "bravo", Name: "Bravo"},
		{ID: "charlie", Name: "Charlie"},
		{ID: "delta", Name: "Delta"},
		{ID: "echo", Name: "Echo"},
		{ID: "foxtrot", Name: "Foxtrot"},
	}
}

// Load reads YAML config from path, then applies defaults and environment
// overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) applyDefaults() {
	if c.State.Backend == "" {
		c.State.Backend = BackendFile
	}
	if c.State.Path == "" {
		c.State.Path = "data/state.json"
	}
	if c.Quiz.BankSource == "" {
		c.Quiz.BankSource = BankFile
	}
	if c.Quiz.Bank == "" {
		c.Quiz.Bank = "config/questions.yaml"
	}
	if len(c.Quiz.Teams) == 0 {
		c.Quiz.Teams = DefaultTeams()
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
