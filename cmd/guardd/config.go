package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

// serviceConfig is the binary's configuration. Precedence, lowest to
// highest: built-in defaults, the JSON config file, environment, flags.
// Secrets come from the environment only.
type serviceConfig struct {
	Addr            string        `json:"addr"`
	UpstreamURL     string        `json:"upstream_url"`
	BackendURL      string        `json:"backend_url"`
	LinkBaseURL     string        `json:"link_base_url"`
	RedisAddr       string        `json:"redis_addr"`
	RedisDB         int           `json:"redis_db"`
	LogLevel        string        `json:"log_level"`
	DefaultDeny     bool          `json:"default_deny"`
	AuditEnabled    bool          `json:"audit_enabled"`
	LookupTimeout   time.Duration `json:"-"`
	LookupTimeoutMS int           `json:"lookup_timeout_ms"`

	SMTPAddr string `json:"smtp_addr"`
	SMTPFrom string `json:"smtp_from"`

	// Environment only.
	JWTSecret     string `json:"-"`
	ServiceToken  string `json:"-"`
	RedisPassword string `json:"-"`
	SMTPUsername  string `json:"-"`
	SMTPPassword  string `json:"-"`
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Addr:            ":8443",
		BackendURL:      "http://localhost:8080",
		LinkBaseURL:     "http://localhost:3000",
		LogLevel:        "info",
		AuditEnabled:    true,
		LookupTimeoutMS: 5000,
	}
}

func loadConfig(args []string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	fs := flag.NewFlagSet("guardd", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to JSON config file")
	addr := fs.String("addr", "", "listen address")
	upstream := fs.String("upstream", "", "frontend origin to proxy behind the guard")
	backend := fs.String("backend", "", "users backend base URL")
	linkBase := fs.String("link-base", "", "base URL for password reset links")
	redisAddr := fs.String("redis", "", "redis address (empty: in-memory reset store)")
	logLevel := fs.String("log-level", "", "zerolog level")
	defaultDeny := fs.Bool("default-deny", false, "deny paths not present in the route policy")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configPath != "" {
		if err := overlayFile(&cfg, *configPath); err != nil {
			return cfg, err
		}
	}

	overlayEnv(&cfg)

	// Flags win, but only the ones actually passed: a flag left at its
	// zero value must not clobber the file or env layer, and an explicit
	// -default-deny=false must still win over a file's true.
	passed := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { passed[f.Name] = true })

	if passed["addr"] {
		cfg.Addr = *addr
	}
	if passed["upstream"] {
		cfg.UpstreamURL = *upstream
	}
	if passed["backend"] {
		cfg.BackendURL = *backend
	}
	if passed["link-base"] {
		cfg.LinkBaseURL = *linkBase
	}
	if passed["redis"] {
		cfg.RedisAddr = *redisAddr
	}
	if passed["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if passed["default-deny"] {
		cfg.DefaultDeny = *defaultDeny
	}

	if cfg.LookupTimeoutMS > 0 {
		cfg.LookupTimeout = time.Duration(cfg.LookupTimeoutMS) * time.Millisecond
	}

	if cfg.JWTSecret == "" {
		return cfg, errors.New("GUARDD_JWT_SECRET is required")
	}
	if cfg.BackendURL == "" {
		return cfg, errors.New("users backend URL is required")
	}

	return cfg, nil
}

func overlayFile(cfg *serviceConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func overlayEnv(cfg *serviceConfig) {
	if v := os.Getenv("GUARDD_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("GUARDD_SERVICE_TOKEN"); v != "" {
		cfg.ServiceToken = v
	}
	if v := os.Getenv("GUARDD_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("GUARDD_SMTP_USERNAME"); v != "" {
		cfg.SMTPUsername = v
	}
	if v := os.Getenv("GUARDD_SMTP_PASSWORD"); v != "" {
		cfg.SMTPPassword = v
	}
}
