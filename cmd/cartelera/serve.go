package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/cartelera/internal/auth"
	"github.com/dropDatabas3/cartelera/internal/cache"
	"github.com/dropDatabas3/cartelera/internal/config"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
	"github.com/dropDatabas3/cartelera/internal/events"
	carthttp "github.com/dropDatabas3/cartelera/internal/http"
	"github.com/dropDatabas3/cartelera/internal/jwt"
	"github.com/dropDatabas3/cartelera/internal/observability/logger"
	"github.com/dropDatabas3/cartelera/internal/poster"
	"github.com/dropDatabas3/cartelera/internal/rate"
	"github.com/dropDatabas3/cartelera/internal/security/password"
	"github.com/dropDatabas3/cartelera/internal/store/memory"
	"github.com/dropDatabas3/cartelera/internal/store/pg"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "cartelera"})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

// repos agrupa los tres repositorios ya construidos sobre el driver
// elegido.
type repos struct {
	admins repository.AdminRepository
	tokens repository.RefreshTokenRepository
	events repository.EventRepository
	pool   *pgxpool.Pool // nil en modo memoria
}

func buildRepos(ctx context.Context, cfg *config.Config) (*repos, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		lifetime, _ := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		pool, err := pg.NewPool(ctx, cfg.Storage.DSN, pg.PoolOptions{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return nil, err
		}
		return &repos{
			admins: pg.NewAdminRepo(pool),
			tokens: pg.NewTokenRepo(pool),
			events: pg.NewEventRepo(pool),
			pool:   pool,
		}, nil
	case "memory":
		logger.L().Warn("storage en memoria: los datos se pierden al reiniciar")
		st := memory.NewStore()
		return &repos{admins: st.Admins(), tokens: st.Tokens(), events: st.Events()}, nil
	default:
		return nil, fmt.Errorf("storage driver desconocido %q", cfg.Storage.Driver)
	}
}

func buildPosters(ctx context.Context, cfg *config.Config) (poster.Store, string, error) {
	switch cfg.Posters.Driver {
	case "s3":
		st, err := poster.NewS3Store(ctx, poster.S3Config{
			Bucket:        cfg.Posters.S3.Bucket,
			Region:        cfg.Posters.S3.Region,
			Endpoint:      cfg.Posters.S3.Endpoint,
			AccessKey:     cfg.Posters.S3.AccessKey,
			SecretKey:     cfg.Posters.S3.SecretKey,
			Prefix:        cfg.Posters.S3.Prefix,
			PublicBaseURL: cfg.Posters.S3.PublicBaseURL,
		})
		return st, "", err
	default:
		st, err := poster.NewFSStore(cfg.Posters.FS.Dir, cfg.Server.BaseURL)
		return st, cfg.Posters.FS.Dir, err
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	reps, err := buildRepos(ctx, cfg)
	if err != nil {
		return err
	}
	if reps.pool != nil {
		defer reps.pool.Close()
	}

	posters, postersDir, err := buildPosters(ctx, cfg)
	if err != nil {
		return err
	}

	issuer, err := jwt.NewIssuer(cfg.JWT.Issuer, cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return err
	}

	authSvc := auth.New(auth.Deps{
		Admins: reps.admins,
		Tokens: reps.tokens,
		Issuer: issuer,
		Policy: password.Policy{
			MinLength:     cfg.Security.PasswordPolicy.MinLength,
			RequireUpper:  cfg.Security.PasswordPolicy.RequireUpper,
			RequireLower:  cfg.Security.PasswordPolicy.RequireLower,
			RequireDigit:  cfg.Security.PasswordPolicy.RequireDigit,
			RequireSymbol: cfg.Security.PasswordPolicy.RequireSymbol,
		},
	})

	var publicCache cache.Cache = cache.Nop{}
	var redisCache *cache.Redis
	switch cfg.Cache.Kind {
	case "memory":
		publicCache = cache.NewMemory(cfg.PublicCacheTTL())
	case "redis":
		redisCache = cache.NewRedis(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		publicCache = redisCache
	}

	eventsSvc := events.New(events.Deps{
		Events:         reps.events,
		Posters:        posters,
		Passwords:      authSvc,
		Cache:          publicCache,
		CacheTTL:       cfg.PublicCacheTTL(),
		MaxPosterBytes: cfg.Posters.MaxSizeBytes,
	})

	var loginLimiter, refreshLimiter rate.Limiter
	if cfg.Rate.Enabled {
		if redisCache != nil {
			// comparte la conexión Redis del cache
			loginLimiter = rate.NewRedisLimiter(redisCache.Client(), "rl:", cfg.Rate.Login.Limit, cfg.LoginRateWindow())
			refreshLimiter = rate.NewRedisLimiter(redisCache.Client(), "rl:", cfg.Rate.Refresh.Limit, cfg.RefreshRateWindow())
		} else {
			loginLimiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.LoginRateWindow())
			refreshLimiter = rate.NewMemoryLimiter(cfg.Rate.Refresh.Limit, cfg.RefreshRateWindow())
		}
	}

	metricsHandler, err := carthttp.RegisterMetrics(carthttp.MetricsConfig{
		Pool: func() *pgxpool.Pool { return reps.pool },
	})
	if err != nil {
		return err
	}

	var ready func(context.Context) error
	if reps.pool != nil {
		ready = reps.pool.Ping
	}

	router := carthttp.NewRouter(carthttp.RouterDeps{
		Auth:               authSvc,
		Events:             eventsSvc,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MaxPosterBytes:     cfg.Posters.MaxSizeBytes,
		LoginLimiter:       loginLimiter,
		RefreshLimiter:     refreshLimiter,
		MetricsHandler:     metricsHandler,
		Ready:              ready,
		PostersDir:         postersDir,
	})

	// purga periódica de refresh tokens vencidos
	go purgeExpiredTokens(ctx, reps.tokens)

	return carthttp.NewServer(cfg.Server.Addr, router).Run(ctx)
}

func purgeExpiredTokens(ctx context.Context, tokens repository.RefreshTokenRepository) {
	tick := time.NewTicker(time.Hour)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n, err := tokens.DeleteExpired(ctx)
			if err != nil {
				logger.L().Warn("purga de refresh tokens falló", logger.Err(err))
				continue
			}
			if n > 0 {
				logger.L().Info("refresh tokens vencidos purgados", logger.Int("purged", int(n)))
			}
		}
	}
}
