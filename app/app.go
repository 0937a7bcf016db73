package app

import (
	"context"
	"database/sql"
	"fmt"
	"go-trip-api/config"
	"go-trip-api/db"
	"go-trip-api/handler"
	"go-trip-api/logger"
	"go-trip-api/metrics"
	"go-trip-api/ratelimit"
	"go-trip-api/repository"
	"go-trip-api/repository/memory"
	"go-trip-api/router"
	"go-trip-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Command selects what the binary does.
type Command string

const (
	CommandServe   Command = "serve"
	CommandMigrate Command = "migrate"
)

// ParseCommand reads the subcommand from args. Anything unknown means serve.
func ParseCommand(args []string) Command {
	if len(args) > 0 && args[0] == string(CommandMigrate) {
		return CommandMigrate
	}
	return CommandServe
}

// Stores groups the repositories the services are built on.
type Stores struct {
	Users      repository.IUserRepository
	Tokens     repository.ITokenRepository
	Trips      repository.ITripRepository
	Flights    repository.IFlightRepository
	Stays      repository.IStayRepository
	Activities repository.IActivityRepository
}

// PostgresStores returns the SQL-backed repositories.
func PostgresStores(database *sql.DB) Stores {
	return Stores{
		Users:      repository.NewUserRepository(database),
		Tokens:     repository.NewTokenRepository(database),
		Trips:      repository.NewTripRepository(database),
		Flights:    repository.NewFlightRepository(database),
		Stays:      repository.NewStayRepository(database),
		Activities: repository.NewActivityRepository(database),
	}
}

// MemoryStores returns repositories backed by one in-process store.
func MemoryStores(s *memory.Store) Stores {
	return Stores{
		Users:      s.Users(),
		Tokens:     s.Tokens(),
		Trips:      s.Trips(),
		Flights:    s.Flights(),
		Stays:      s.Stays(),
		Activities: s.Activities(),
	}
}

// App is the wired HTTP application.
type App struct {
	Router   http.Handler
	Auth     *service.AuthService
	Registry *prometheus.Registry

	closers []func()
}

// New wires services, limiters and the router. rdb may be nil, in which case
// rate limiting is in-process and reads are not cached. database is only used
// for the readiness probe and may be nil.
func New(cfg *config.Config, stores Stores, database *sql.DB, rdb *redis.Client) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(a.Registry)

	// A typed nil *redis.Client must not reach the services as a non-nil interface.
	var cache service.ICacheClient
	var limiter ratelimit.Limiter
	if rdb != nil {
		cache = rdb
		limiter = ratelimit.NewRedisLimiter(rdb)
	} else {
		mem := ratelimit.NewMemoryLimiter(cfg.RateLimit.Window, time.Minute)
		a.closers = append(a.closers, mem.Stop)
		limiter = mem
	}

	hasher, err := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	codec := service.NewTokenCodec(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.AccessTTL)

	a.Auth = service.NewAuthService(stores.Users, stores.Tokens, hasher, codec, cfg.Auth.RefreshTTL,
		service.WithUserCache(cache),
		service.WithAuthEvents(collector),
	)
	trips := service.NewTripService(stores.Trips, cache, service.TodayIn(cfg.Location()))
	itinerary := service.NewItineraryService(trips, stores.Flights, stores.Stays, stores.Activities)

	deps := router.Deps{
		Auth:      a.Auth,
		Trips:     trips,
		Itinerary: itinerary,
		Limiter:   limiter,
		Policies: ratelimit.NewAuthPolicies(cfg.RateLimit.Login, cfg.RateLimit.Register,
			cfg.RateLimit.Session, cfg.RateLimit.Window),
		Metrics:  collector,
		Gatherer: a.Registry,
		Cookie: handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Path:   cfg.Auth.CookiePath,
			Secure: !cfg.IsDevelopment(),
		},
		CORSOrigin: cfg.Server.CORSOrigin,
		TrustProxy: cfg.Server.TrustProxy,
	}
	if database != nil {
		deps.DB = database
	}
	if cfg.RateLimit.APIPerMinute > 0 {
		apiLimiter := ratelimit.NewAPILimiter(cfg.RateLimit.APIPerMinute, 5*time.Minute)
		a.closers = append(a.closers, apiLimiter.Stop)
		deps.APILimiter = apiLimiter
	}

	a.Router = router.NewRouter(deps)
	return a, nil
}

// Close stops background cleanup goroutines.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// Run is the process entry point; args are os.Args[1:].
func Run(args []string) error {
	if err := config.LoadConfig("."); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := &config.AppConfig
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	logger.Log.WithField("env", cfg.Server.Env).Info("Configuration loaded successfully")

	if err := db.RunMigrations(db.URL(cfg)); err != nil {
		return err
	}
	if ParseCommand(args) == CommandMigrate {
		return nil
	}
	return serve(cfg)
}

func serve(cfg *config.Config) error {
	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	rdb, err := db.ConnectRedis(cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	a, err := New(cfg, PostgresStores(database), database, rdb)
	if err != nil {
		return err
	}
	defer a.Close()

	port := cfg.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("Server exited properly")
	return nil
}
