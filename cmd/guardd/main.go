// Command guardd runs the portal's session guard as a standalone service:
// an identity-aware proxy in front of the frontend plus the password-reset
// API, backed by the external users service and, optionally, redis.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	portalguard "github.com/eduportal/portalguard"
	"github.com/eduportal/portalguard/directory"
	"github.com/eduportal/portalguard/internal/httpserver"
	"github.com/eduportal/portalguard/mailer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("guardd exited")
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	engineCfg := portalguard.DefaultConfig()
	engineCfg.Credential.Secret = []byte(cfg.JWTSecret)
	engineCfg.Reset.LinkBaseURL = cfg.LinkBaseURL
	engineCfg.Routes.AllowUnregistered = !cfg.DefaultDeny
	engineCfg.Audit.Enabled = cfg.AuditEnabled
	if cfg.LookupTimeout > 0 {
		engineCfg.Directory.LookupTimeout = cfg.LookupTimeout
	}

	dir, err := directory.NewRESTClient(directory.Config{
		BaseURL:      cfg.BackendURL,
		Timeout:      engineCfg.Directory.LookupTimeout,
		ServiceToken: cfg.ServiceToken,
	})
	if err != nil {
		return err
	}

	builder := portalguard.New().
		WithConfig(engineCfg).
		WithDirectory(dir).
		WithMailer(buildMailer(cfg, logger)).
		WithAuditSink(portalguard.NewZerologSink(logger.With().Str("component", "audit").Logger()))

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return err
		}
		builder = builder.WithRedis(client)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
	} else {
		logger.Warn().Msg("no redis configured, reset tokens are process-local")
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	srv, err := httpserver.New(httpserver.Config{
		Addr:        cfg.Addr,
		UpstreamURL: cfg.UpstreamURL,
	}, engine, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
}

func buildMailer(cfg serviceConfig, logger zerolog.Logger) portalguard.Mailer {
	if cfg.SMTPAddr != "" {
		return mailer.NewSMTPMailer(mailer.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	}
	return mailer.NewLogMailer(logger.With().Str("component", "mailer").Logger())
}
