// Package config carga la configuración YAML y aplica overrides por
// variables de entorno. Los secretos (JWT, S3) se pueden dejar fuera del
// YAML y venir solo por env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr               string   `yaml:"addr"`
		BaseURL            string   `yaml:"base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory (memory solo para dev/tests)
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis | off
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		// PublicTTL: TTL del cacheo de la galería pública.
		PublicTTL string `yaml:"public_ttl"`
	} `yaml:"cache"`

	JWT struct {
		Issuer        string `yaml:"issuer"`
		AccessSecret  string `yaml:"access_secret"`
		RefreshSecret string `yaml:"refresh_secret"`
		AccessTTL     string `yaml:"access_ttl"`
		RefreshTTL    string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Refresh struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"refresh"`
	} `yaml:"rate"`

	Posters struct {
		// fs | s3
		Driver       string `yaml:"driver"`
		MaxSizeBytes int64  `yaml:"max_size_bytes"`
		FS           struct {
			Dir string `yaml:"dir"`
		} `yaml:"fs"`
		S3 struct {
			Bucket        string `yaml:"bucket"`
			Region        string `yaml:"region"`
			Endpoint      string `yaml:"endpoint"` // opcional (MinIO)
			AccessKey     string `yaml:"access_key"`
			SecretKey     string `yaml:"secret_key"`
			Prefix        string `yaml:"prefix"`
			PublicBaseURL string `yaml:"public_base_url"`
		} `yaml:"s3"`
	} `yaml:"posters"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
	} `yaml:"security"`
}

// Load lee el YAML (si existe), aplica defaults y overrides por env, y
// valida. Un path vacío o inexistente no es error: todo puede venir por
// env (útil en contenedores).
func Load(path string) (*Config, error) {
	var c Config

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.PublicTTL == "" {
		c.Cache.PublicTTL = "30s"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = c.Server.BaseURL
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "168h" // 7 días
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Refresh.Limit == 0 {
		c.Rate.Refresh.Limit = 30
	}
	if c.Rate.Refresh.Window == "" {
		c.Rate.Refresh.Window = "1m"
	}
	if c.Posters.Driver == "" {
		c.Posters.Driver = "fs"
	}
	if c.Posters.MaxSizeBytes == 0 {
		c.Posters.MaxSizeBytes = 5 << 20 // 5MB
	}
	if c.Posters.FS.Dir == "" {
		c.Posters.FS.Dir = "./data/posters"
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 10
	}
}

// applyEnvOverrides pisa el YAML con variables de entorno CARTELERA_*.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("CARTELERA_APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CARTELERA_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("CARTELERA_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("CARTELERA_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvCSV("CARTELERA_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("CARTELERA_STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("CARTELERA_STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CARTELERA_CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("CARTELERA_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("CARTELERA_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("CARTELERA_JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("CARTELERA_JWT_ACCESS_SECRET"); ok {
		c.JWT.AccessSecret = v
	}
	if v, ok := getEnvStr("CARTELERA_JWT_REFRESH_SECRET"); ok {
		c.JWT.RefreshSecret = v
	}
	if v, ok := getEnvStr("CARTELERA_JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("CARTELERA_JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}
	if v, ok := getEnvBool("CARTELERA_RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("CARTELERA_POSTERS_DRIVER"); ok {
		c.Posters.Driver = v
	}
	if v, ok := getEnvStr("CARTELERA_POSTERS_DIR"); ok {
		c.Posters.FS.Dir = v
	}
	if v, ok := getEnvStr("CARTELERA_S3_BUCKET"); ok {
		c.Posters.S3.Bucket = v
	}
	if v, ok := getEnvStr("CARTELERA_S3_REGION"); ok {
		c.Posters.S3.Region = v
	}
	if v, ok := getEnvStr("CARTELERA_S3_ENDPOINT"); ok {
		c.Posters.S3.Endpoint = v
	}
	if v, ok := getEnvStr("CARTELERA_S3_ACCESS_KEY"); ok {
		c.Posters.S3.AccessKey = v
	}
	if v, ok := getEnvStr("CARTELERA_S3_SECRET_KEY"); ok {
		c.Posters.S3.SecretKey = v
	}
	if v, ok := getEnvStr("CARTELERA_S3_PUBLIC_BASE_URL"); ok {
		c.Posters.S3.PublicBaseURL = v
	}
}

// Validate chequea lo que no puede arrancar mal. Un secreto de firma
// ausente o repetido es error fatal de configuración, no algo a
// recuperar en runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.AccessSecret) == "" {
		return fmt.Errorf("config: jwt.access_secret is required")
	}
	if strings.TrimSpace(c.JWT.RefreshSecret) == "" {
		return fmt.Errorf("config: jwt.refresh_secret is required")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("config: jwt access and refresh secrets must differ")
	}
	if _, err := time.ParseDuration(c.JWT.AccessTTL); err != nil {
		return fmt.Errorf("config: jwt.access_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.JWT.RefreshTTL); err != nil {
		return fmt.Errorf("config: jwt.refresh_ttl: %w", err)
	}
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config: storage.dsn is required for driver postgres")
		}
	case "memory":
		// sin requisitos
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Posters.Driver {
	case "fs":
	case "s3":
		if c.Posters.S3.Bucket == "" {
			return fmt.Errorf("config: posters.s3.bucket is required for driver s3")
		}
	default:
		return fmt.Errorf("config: unknown posters driver %q", c.Posters.Driver)
	}
	return nil
}

// Accessors con parseo de duraciones (ya validadas en Load).

func (c *Config) AccessTTL() time.Duration  { return mustDur(c.JWT.AccessTTL, 15*time.Minute) }
func (c *Config) RefreshTTL() time.Duration { return mustDur(c.JWT.RefreshTTL, 168*time.Hour) }
func (c *Config) PublicCacheTTL() time.Duration {
	return mustDur(c.Cache.PublicTTL, 30*time.Second)
}
func (c *Config) LoginRateWindow() time.Duration   { return mustDur(c.Rate.Login.Window, time.Minute) }
func (c *Config) RefreshRateWindow() time.Duration { return mustDur(c.Rate.Refresh.Window, time.Minute) }

func mustDur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
