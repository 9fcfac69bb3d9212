package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Server        ServerSettings       `yaml:"server"`
	Database      DatabaseSettings     `yaml:"database"`
	Security      SecuritySettings     `yaml:"security"`
	Notifications NotificationSettings `yaml:"notifications"`
	Redis         RedisSettings        `yaml:"redis"`
	Logging       LoggingSettings      `yaml:"logging"`
	SMTP          SMTPSettings         `yaml:"smtp"`
}

type ServerSettings struct {
	Port           string   `yaml:"port"`
	GinMode        string   `yaml:"gin_mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseSettings struct {
	Driver       string `yaml:"driver"` // mysql (default) or postgres
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Name         string `yaml:"name"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DebugSQL     bool   `yaml:"debug_sql"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type SecuritySettings struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type NotificationSettings struct {
	RetentionDays int           `yaml:"retention_days"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	EmailEnabled  bool          `yaml:"email_enabled"`
	AppBaseURL    string        `yaml:"app_base_url"`
}

type RedisSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LoggingSettings struct {
	Level string `yaml:"level"` // debug / info / warn / error
	File  string `yaml:"file"`
}

type SMTPSettings struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	From          string `yaml:"from"`
	SkipTLSVerify bool   `yaml:"skip_tls_verify"`
}

// DefaultSettings returns the settings used when neither file nor environment say otherwise.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Port:           "8080",
			GinMode:        "debug",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseSettings{Driver: "mysql", Host: "127.0.0.1", Port: "3306", MaxOpenConns: 20, MaxIdleConns: 5},
		Notifications: NotificationSettings{
			RetentionDays: 30,
			SweepInterval: 24 * time.Hour,
		},
		Redis:   RedisSettings{Addr: "127.0.0.1:6379"},
		Logging: LoggingSettings{Level: "info", File: LogFilePath()},
		SMTP:    SMTPSettings{Port: 587},
	}
}

// LoadSettings applies defaults, then the YAML file at path (a missing file is fine),
// then environment variables.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	s.applyEnv(os.LookupEnv)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	str("SERVER_PORT", &s.Server.Port)
	str("GIN_MODE", &s.Server.GinMode)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		s.Server.AllowedOrigins = origins
	}

	str("DB_DRIVER", &s.Database.Driver)
	str("DB_HOST", &s.Database.Host)
	str("DB_PORT", &s.Database.Port)
	str("DB_DATABASE", &s.Database.Name)
	str("DB_USERNAME", &s.Database.User)
	str("DB_PASSWORD", &s.Database.Password)
	boolean("DEBUG_SQL", &s.Database.DebugSQL)
	boolean("DB_AUTO_MIGRATE", &s.Database.AutoMigrate)

	str("JWT_SECRET", &s.Security.JWTSecret)

	integer("NOTIFICATION_RETENTION_DAYS", &s.Notifications.RetentionDays)
	if v, ok := lookup("NOTIFICATION_SWEEP_INTERVAL"); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			s.Notifications.SweepInterval = d
		}
	}
	boolean("NOTIFICATION_EMAIL_ENABLED", &s.Notifications.EmailEnabled)
	str("APP_BASE_URL", &s.Notifications.AppBaseURL)

	boolean("REDIS_ENABLED", &s.Redis.Enabled)
	str("REDIS_ADDR", &s.Redis.Addr)
	str("REDIS_PASSWORD", &s.Redis.Password)
	integer("REDIS_DB", &s.Redis.DB)

	str("LOG_LEVEL", &s.Logging.Level)
	str("LOG_FILE", &s.Logging.File)

	str("SMTP_HOST", &s.SMTP.Host)
	integer("SMTP_PORT", &s.SMTP.Port)
	str("SMTP_USER", &s.SMTP.User)
	str("SMTP_PASS", &s.SMTP.Password)
	str("SMTP_FROM", &s.SMTP.From)
	if v, ok := lookup("SMTP_SKIP_TLS_VERIFY"); ok {
		s.SMTP.SkipTLSVerify = strings.TrimSpace(v) == "1"
	}
}

// Validate rejects settings the service cannot start with.
func (s *Settings) Validate() error {
	switch strings.ToLower(s.Database.Driver) {
	case "mysql", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", s.Database.Driver)
	}
	if s.Notifications.RetentionDays <= 0 {
		return fmt.Errorf("notifications.retention_days must be positive, got %d", s.Notifications.RetentionDays)
	}
	if s.Notifications.SweepInterval <= 0 {
		return fmt.Errorf("notifications.sweep_interval must be positive")
	}
	if s.Server.GinMode == "release" && s.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required in release mode")
	}
	if s.Redis.Enabled && s.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	return nil
}

// RetentionHorizon is how long notifications are kept before the sweep deletes them.
func (n NotificationSettings) RetentionHorizon() time.Duration {
	return time.Duration(n.RetentionDays) * 24 * time.Hour
}
