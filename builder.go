package portalguard

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/eduportal/portalguard/credential"
	"github.com/eduportal/portalguard/internal/limiters"
	"github.com/eduportal/portalguard/internal/stores"
	"github.com/eduportal/portalguard/routes"
)

// Builder assembles an [Engine]. Without a redis client the reset table
// falls back to the in-memory store — acceptable for development and tests,
// never for production, since tokens die with the process.
type Builder struct {
	config Config
	redis  *redis.Client

	directory  UserDirectory
	mailer     Mailer
	resetStore ResetTokenStore
	auditSink  AuditSink

	built bool
}

// New starts a builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithResetStore overrides the reset token store. Takes precedence over
// the redis-derived default.
func (b *Builder) WithResetStore(s ResetTokenStore) *Builder {
	b.resetStore = s
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration, compiles the route policy, and wires
// the stores. The builder is single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	verifier, err := credential.NewVerifier(credential.Config{
		Secret:       cloneBytes(cfg.Credential.Secret),
		Leeway:       cfg.Credential.Leeway,
		MaxFutureIAT: cfg.Credential.MaxFutureIAT,
	})
	if err != nil {
		return nil, err
	}

	policy, err := compileRoutePolicy(cfg.Routes)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		verifier: verifier,
		policy:   policy,
	}

	engine.directory = b.directory
	engine.mailer = b.mailer
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	switch {
	case b.resetStore != nil:
		engine.resetStore = b.resetStore
	case b.redis != nil:
		engine.resetStore = stores.NewRedisResetStore(b.redis)
	default:
		engine.resetStore = stores.NewMemoryResetStore()
	}

	if b.redis != nil && cfg.Reset.MaxRequests > 0 {
		engine.resetLimiter = limiters.NewResetLimiter(b.redis, limiters.ResetConfig{
			MaxRequests: cfg.Reset.MaxRequests,
			Window:      cfg.Reset.RequestWindow,
		})
	}

	b.built = true

	return engine, nil
}

// compileRoutePolicy translates the declarative RoutesConfig into a frozen
// lookup structure. Role-gated entries win over plain protected entries for
// the same path; public entries never override either.
func compileRoutePolicy(cfg RoutesConfig) (*routes.Policy, error) {
	def := routes.Access{Level: routes.Authenticated}
	if cfg.AllowUnregistered {
		def = routes.Access{Level: routes.Public}
	}

	policy := routes.New(def)

	for path, allowed := range cfg.RoleGated {
		roleNames := make([]string, 0, len(allowed))
		for _, role := range allowed {
			roleNames = append(roleNames, string(role))
		}
		if err := policy.RegisterExact(path, routes.Access{Level: routes.RoleGated, Roles: roleNames}); err != nil {
			return nil, err
		}
	}

	for _, path := range cfg.Protected {
		if _, gated := cfg.RoleGated[path]; gated {
			continue
		}
		if err := policy.RegisterExact(path, routes.Access{Level: routes.Authenticated}); err != nil {
			return nil, err
		}
	}

	for _, prefix := range cfg.ProtectedPrefixes {
		if err := policy.RegisterPrefix(prefix, routes.Access{Level: routes.Authenticated}); err != nil {
			return nil, err
		}
	}

	for _, path := range cfg.Public {
		if _, gated := cfg.RoleGated[path]; gated {
			return nil, errors.New("route declared both public and role gated: " + path)
		}
		if err := policy.RegisterExact(path, routes.Access{Level: routes.Public}); err != nil {
			if errors.Is(err, routes.ErrDuplicatePattern) {
				return nil, errors.New("route declared both public and protected: " + path)
			}
			return nil, err
		}
	}

	for _, prefix := range cfg.PublicPrefixes {
		if err := policy.RegisterPrefix(prefix, routes.Access{Level: routes.Public}); err != nil {
			return nil, err
		}
	}

	policy.Freeze()
	return policy, nil
}
