package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"signaltracker/backend/libs/db"
	libredis "signaltracker/backend/libs/redis"
	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/config"
	httpserver "signaltracker/backend/services/dashboard-gateway/internal/http"
	"signaltracker/backend/services/dashboard-gateway/internal/http/handlers"
	"signaltracker/backend/services/dashboard-gateway/internal/http/middleware"
	"signaltracker/backend/services/dashboard-gateway/internal/password"
	redisstore "signaltracker/backend/services/dashboard-gateway/internal/redis"
	"signaltracker/backend/services/dashboard-gateway/internal/render"
	"signaltracker/backend/services/dashboard-gateway/internal/repository"
	"signaltracker/backend/services/dashboard-gateway/internal/service"
	"signaltracker/backend/services/dashboard-gateway/internal/ws"
)

// App wires dashboard gateway dependencies.
type App struct {
	server *httpserver.Server
	redis  *goredis.Client
	db     *sql.DB
	hub    *ws.Hub
	logger *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	redisClient, err := libredis.NewRedisClient(libredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	a := &App{redis: redisClient, logger: logger}

	var views service.ViewStore
	if cfg.Database.DSN != "" {
		pool, err := db.NewPostgresDB(cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.db = pool
		if err := db.MigrateUp(pool, repository.Migrations, repository.MigrationsDir, "dashboard_schema_migrations", logger); err != nil {
			a.Close()
			return nil, err
		}
		views = repository.NewMapViewRepository(pool)
	} else {
		logger.Info("postgres dsn not set, saved views disabled")
	}

	legends, err := render.NewLegendRenderer()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("legend renderer: %w", err)
	}

	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPTimeout())
	base := clients.NewBaseClient(cfg.Backend.URL, httpClient)
	homeClient := clients.NewHomeClient(base)
	adminClient := clients.NewAdminClient(base)
	mapClient := clients.NewMapViewClient(base)
	excelClient := clients.NewExcelClient(base)
	settingsClient := clients.NewSettingsClient(base)

	sessions := redisstore.NewSessionStore(redisClient, cfg.SessionTTL())
	kpiCache := redisstore.NewCache(redisClient, "dashboard", cfg.DashboardCacheTTL())
	thresholdCache := redisstore.NewCache(redisClient, "settings", cfg.ThresholdsCacheTTL())

	accounts := make([]service.StaticAccount, len(cfg.Accounts))
	for i, acc := range cfg.Accounts {
		accounts[i] = service.StaticAccount{
			ID:           acc.ID,
			Email:        acc.Email,
			Name:         acc.Name,
			UserType:     acc.UserType,
			PasswordHash: acc.PasswordHash,
		}
	}

	a.hub = ws.NewHub(logger)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.SessionTTL())
	authService := service.NewAuthService(homeClient, mapClient, sessions, tokens, password.NewBcryptHasher(0), accounts, logger)
	dashboardService := service.NewDashboardService(adminClient, kpiCache, logger)
	settingsService := service.NewSettingsService(settingsClient, thresholdCache, logger)
	mapService := service.NewMapService(mapClient, settingsService, views, a.hub, legends, logger)
	adminService := service.NewAdminService(adminClient, logger)
	uploadService := service.NewUploadService(excelClient, logger)
	accountService := service.NewAccountService(homeClient, settingsClient, logger)

	live := ws.NewServer(a.hub, 0, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || cfg.OriginAllowed(origin)
	}, logger)

	checks := map[string]handlers.Pinger{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandlers:      handlers.NewAuthHandlers(authService, cfg.SessionTTL(), cfg.HTTP.SecureCookie, logger),
		AccountHandlers:   handlers.NewAccountHandlers(accountService, logger),
		DashboardHandlers: handlers.NewDashboardHandlers(dashboardService, logger),
		MapHandlers:       handlers.NewMapHandlers(mapService, logger),
		AdminHandlers:     handlers.NewAdminHandlers(adminService, logger),
		UploadHandlers:    handlers.NewUploadHandlers(uploadService, logger),
		SettingsHandlers:  handlers.NewSettingsHandlers(settingsService, logger),
		HealthHandler:     handlers.NewHealthHandler(checks),
		LiveHandler:       live.HandleWS,
	}, middleware.AuthMiddleware(authService, logger))

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		cfg.WriteTimeout(),
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)
	a.server.OnShutdown(a.hub.CloseAll)

	return a, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases redis and postgres connections.
func (a *App) Close() {
	if a.hub != nil {
		a.hub.CloseAll()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close postgres", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
}
