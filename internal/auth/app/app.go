// Package app wires configuration, storage, services and the HTTP server
// into the runnable auth service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	httpapi "github.com/aussiebroadwan/authbase/internal/auth/http"
	"github.com/aussiebroadwan/authbase/internal/auth/notify"
	"github.com/aussiebroadwan/authbase/internal/auth/service"
	"github.com/aussiebroadwan/authbase/internal/auth/store"
	"github.com/aussiebroadwan/authbase/internal/auth/store/drivers/mongo"
	"github.com/aussiebroadwan/authbase/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/httpx"
	"github.com/aussiebroadwan/authbase/pkg/metricsx"
	"github.com/aussiebroadwan/authbase/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

// BuildVersion is overwritten at build time via -ldflags -X.
var BuildVersion = "v0.1.0"

const otpLimiterPrefix = "authbase:ratelimit:otp:"

// Application is the assembled service.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	db      store.Store
	redis   *redis.Client // nil without REDIS_URL
	metrics *metricsx.Metrics

	housekeeping *service.HousekeepingService
	server       *http.Server
}

// New validates cfg and builds every dependency. Nothing is served until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: cfg.AppName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metricsx.New("authbase"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := app.openStore(); err != nil {
		return nil, err
	}
	if err := app.openRedis(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	router, err := app.buildRouter()
	if err != nil {
		_ = app.close()
		return nil, err
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return app, nil
}

// Run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests for up to ShutdownGracePeriod and releases resources.
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.housekeeping.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("auth service listening",
			"port", app.cfg.Port,
			"store", app.cfg.StoreDriver,
		)
		serveErr <- app.server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutting down", "grace_period", app.cfg.ShutdownGracePeriod)

		shutdownCtx, stop := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
		defer stop()
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("graceful shutdown failed, closing connections", "error", err)
			_ = app.server.Close()
		}
	}

	cancel()
	wg.Wait()

	return errors.Join(runErr, app.close())
}

func (app *Application) close() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	app.logger.Info("auth service stopped")
	return errors.Join(errs...)
}

// openStore opens the configured driver and applies its migrations (tables
// for sqlite, indexes for mongo).
func (app *Application) openStore() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.StoreDriver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		db, err = mongo.NewStore(ctx, app.cfg.MongoURI, app.cfg.MongoDatabase)
	default:
		db, err = sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("open %s store: %w", app.cfg.StoreDriver, err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate %s store: %w", app.cfg.StoreDriver, err)
	}

	app.db = db
	app.logger.Info("store ready", "driver", app.cfg.StoreDriver)
	return nil
}

// openRedis connects the optional Redis that shares the OTP limiter between
// replicas.
func (app *Application) openRedis() error {
	if app.cfg.RedisURL == "" {
		app.logger.Info("REDIS_URL not set, OTP rate limiting is per instance")
		return nil
	}

	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect redis: %w", err)
	}

	app.redis = client
	return nil
}

// senders picks real delivery where it is configured and logs messages
// otherwise.
func (app *Application) senders() (notify.Mailer, notify.SMSSender) {
	var (
		mailer notify.Mailer    = notify.LogSender{}
		sms    notify.SMSSender = notify.LogSender{}
	)

	if app.cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(app.cfg.SMTPHost, app.cfg.SMTPPort,
			app.cfg.SMTPUsername, app.cfg.SMTPPassword, app.cfg.EmailFrom)
	} else {
		app.logger.Warn("SMTP_HOST not set, emails are only logged")
	}

	if app.cfg.TwilioSID != "" && app.cfg.TwilioToken != "" {
		sms = notify.NewTwilioSender(app.cfg.TwilioSID, app.cfg.TwilioToken, app.cfg.TwilioFrom)
	} else {
		app.logger.Warn("Twilio not configured, SMS messages are only logged")
	}

	return mailer, sms
}

// buildRouter assembles the services and mounts them on the router.
func (app *Application) buildRouter() (*httpapi.Router, error) {
	keys, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("signing keys: %w", err)
	}

	hasher := cryptox.NewHasher(app.cfg.BcryptCost)
	tokens := &service.TokenService{
		Keys:             keys,
		Store:            app.db,
		AccessTTL:        app.cfg.AccessTTL,
		RefreshTTL:       app.cfg.RefreshTTL,
		ResetPasswordTTL: app.cfg.ResetTTL,
		VerifyEmailTTL:   app.cfg.VerifyEmailTTL,
	}
	users := &service.UserService{
		Store:      app.db,
		Hasher:     hasher,
		AdminEmail: app.cfg.AdminEmail,
	}

	mailer, sms := app.senders()

	router := httpapi.NewRouter(BuildVersion, app.db, app.logger, app.metrics)
	router.UserService = users
	router.AuthService = &service.AuthService{
		Store:     app.db,
		Users:     users,
		Tokens:    tokens,
		OTP:       &service.OTPService{Store: app.db, Issuer: app.cfg.AppName},
		Hasher:    hasher,
		Mailer:    mailer,
		SMS:       sms,
		ClientURL: app.cfg.ClientURL,
		Events:    app.metrics,
	}
	router.Authenticator = &service.Authenticator{Keys: keys, Store: app.db}
	router.Authorizer = service.NewAuthorizer()
	router.Strategies = buildStrategies(app.cfg, app.logger)
	router.Cookies = httpapi.CookieConfig{
		TTL:    app.cfg.CookieTTL,
		Secure: app.cfg.Production(),
	}
	if app.redis != nil {
		router.OTPCounter = httpx.NewRedisWindowCounter(app.redis, otpLimiterPrefix)
		router.LimiterCheck = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	}
	router.ApplyRoutes()

	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
	app.housekeeping.Purged = app.metrics

	return router, nil
}
