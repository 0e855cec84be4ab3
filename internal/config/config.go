package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultPath = "config/config.yaml"

type HTTP struct {
	Addr           string        `yaml:"addr"`         // ":8080"
	ReadTimeout    time.Duration `yaml:"readTimeout"`  // "15s"
	WriteTimeout   time.Duration `yaml:"writeTimeout"` // "30s"
	IdleTimeout    time.Duration `yaml:"idleTimeout"`  // "60s"
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

type Session struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`    // "24h"
	Secure bool          `yaml:"secure"` // cookie only over https
}

type Upload struct {
	Folder            string   `yaml:"folder"`   // "static/uploads"
	MaxBytes          int64    `yaml:"maxBytes"` // 5 MiB
	AllowedExtensions []string `yaml:"allowedExtensions"`
	PublicURL         string   `yaml:"publicURL"` // "/static/uploads"
}

type Rooms struct {
	CodeLength    int           `yaml:"codeLength"`    // 4
	IdleGrace     time.Duration `yaml:"idleGrace"`     // "2m"
	SweepInterval time.Duration `yaml:"sweepInterval"` // "1m"
}

type Logging struct {
	Env       string `yaml:"env"`     // dev|stage|prod
	Service   string `yaml:"service"` // "roomchat"
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"` // std|zap
	Debug     bool   `yaml:"debug"`
	AddSource bool   `yaml:"addSource"`
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Session Session `yaml:"session"`
	Upload  Upload  `yaml:"upload"`
	Rooms   Rooms   `yaml:"rooms"`
	Logging Logging `yaml:"logging"`
}

// Load reads the YAML file named by CONFIG_PATH (config/config.yaml when
// unset, and then optional), applies environment overrides and defaults, and
// validates the result.
func Load() (*Config, error) {
	var cfg Config

	path, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit || path == "" {
		path = defaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	} else if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("UPLOAD_FOLDER"); v != "" {
		c.Upload.Folder = v
	}
	if v := os.Getenv("UPLOAD_ALLOWED_EXTENSIONS"); v != "" {
		c.Upload.AllowedExtensions = splitList(v)
	}
	if v := os.Getenv("UPLOAD_PUBLIC_URL"); v != "" {
		c.Upload.PublicURL = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Logging.Env = v
	}
	if v := os.Getenv("LOG_BACKEND"); v != "" {
		c.Logging.Backend = v
	}

	var err error
	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		if c.Upload.MaxBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("UPLOAD_MAX_BYTES: %w", err)
		}
	}
	if v := os.Getenv("ROOM_CODE_LENGTH"); v != "" {
		if c.Rooms.CodeLength, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("ROOM_CODE_LENGTH: %w", err)
		}
	}
	if v := os.Getenv("ROOM_IDLE_GRACE"); v != "" {
		if c.Rooms.IdleGrace, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("ROOM_IDLE_GRACE: %w", err)
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if c.Session.TTL, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
	}
	if v := os.Getenv("LOG_DEBUG"); v != "" {
		if c.Logging.Debug, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("LOG_DEBUG: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Upload.Folder == "" {
		c.Upload.Folder = "static/uploads"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 5 << 20
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}
	}
	if c.Upload.PublicURL == "" {
		c.Upload.PublicURL = "/static/uploads"
	}
	if c.Rooms.CodeLength == 0 {
		c.Rooms.CodeLength = 4
	}
	if c.Rooms.IdleGrace == 0 {
		c.Rooms.IdleGrace = 2 * time.Minute
	}
	if c.Rooms.SweepInterval == 0 {
		c.Rooms.SweepInterval = time.Minute
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "roomchat"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session secret is required (SECRET_KEY)"))
	}
	if c.Rooms.CodeLength < 1 || c.Rooms.CodeLength > 8 {
		errs = append(errs, fmt.Errorf("room code length must be 1..8, got %d", c.Rooms.CodeLength))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("upload max bytes must be positive, got %d", c.Upload.MaxBytes))
	}
	if u, err := url.Parse(c.Upload.PublicURL); err != nil {
		errs = append(errs, fmt.Errorf("upload public url: %w", err))
	} else if u.IsAbs() && u.Host == "" {
		errs = append(errs, fmt.Errorf("upload public url %q has no host", c.Upload.PublicURL))
	}
	if c.Rooms.IdleGrace < 0 || c.Rooms.SweepInterval < 0 {
		errs = append(errs, errors.New("room sweep durations must not be negative"))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
