package bootstrap

import (
	"log/slog"
	"os"

	_ "github.com/eleven-am/guild-backend/docs"
	"github.com/eleven-am/guild-backend/internal/account"
	"github.com/eleven-am/guild-backend/internal/auth"
	"github.com/eleven-am/guild-backend/internal/friend"
	"github.com/eleven-am/guild-backend/internal/graph"
	"github.com/eleven-am/guild-backend/internal/loader"
	"github.com/eleven-am/guild-backend/internal/login"
	"github.com/eleven-am/guild-backend/internal/pubsub"
	"github.com/eleven-am/guild-backend/internal/user"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	AccountHandler *account.Handler
	GraphHandler   *graph.Handler
	AuthMiddleware *auth.Middleware
	Loaders        *loader.Factory
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.AccountHandler.RegisterRoutes(api.Group("/auth"))

	graphGroup := api.Group("")
	graphGroup.Use(params.AuthMiddleware.OptionalAuthenticate)
	graphGroup.Use(params.Loaders.Middleware)
	params.GraphHandler.RegisterRoutes(graphGroup, params.AuthMiddleware.Authenticate)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.EchoWrapHandlerV3())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideSessionManager(cfg *Config) *auth.SessionManager {
	return auth.NewSessionManager(cfg.HMACKey, cfg.CookieSecure, cfg.CookieDomain)
}

func ProvideAuthMiddleware(sessions *auth.SessionManager) *auth.Middleware {
	return auth.NewMiddleware(sessions)
}

// ProvideProviders registers the login providers that have credentials
// configured.
func ProvideProviders(cfg *Config, logger *slog.Logger) login.Providers {
	var providers []login.Provider
	if p := login.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL); p != nil {
		providers = append(providers, p)
	}
	if p := login.NewFacebookProvider(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookRedirectURL, logger); p != nil {
		providers = append(providers, p)
	}
	if p := login.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL); p != nil {
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		logger.Warn("no login providers configured")
	}
	return login.NewProviders(providers...)
}

func ProvideResolver(users *user.Store, logins *login.Store, cfg *Config, logger *slog.Logger) *login.Resolver {
	return login.NewResolver(users, logins, cfg.AvatarPlaceholders, logger)
}

func ProvideLinker(users *user.Store, logins *login.Store, logger *slog.Logger) *login.Linker {
	return login.NewLinker(users, logins, logger)
}

func ProvideImporter(friends *friend.Store, logins *login.Store, broker *pubsub.Broker, logger *slog.Logger) *friend.Importer {
	return friend.NewImporter(friends, logins, broker, logger)
}

func ProvideAccountService(users *user.Store, resolver *login.Resolver, linker *login.Linker, importer *friend.Importer, logger *slog.Logger) *account.Service {
	return account.NewService(users, resolver, linker, importer, logger)
}

func ProvideAccountHandler(service *account.Service, providers login.Providers, sessions *auth.SessionManager, cfg *Config, logger *slog.Logger) *account.Handler {
	return account.NewHandler(service, providers, sessions, cfg.AllowedOrigins, logger.With("handler", "account"))
}

func ProvideLoaderFactory(users *user.Store, logins *login.Store, friends *friend.Store, cfg *Config, logger *slog.Logger) *loader.Factory {
	return loader.NewFactory(users, logins, friends, loader.Options{
		Wait:     cfg.LoaderBatchWait,
		MaxBatch: cfg.LoaderMaxBatch,
		Logger:   logger,
	})
}

func ProvideGraphResolver(factory *loader.Factory, users *user.Store, friends *friend.Store, logins *login.Store, logger *slog.Logger) *graph.Resolver {
	return graph.NewResolver(factory, users, friends, logins, logger)
}

func ProvideStreamHandler(broker *pubsub.Broker, logger *slog.Logger) *graph.StreamHandler {
	return graph.NewStreamHandler(broker, logger.With("handler", "stream"))
}

func ProvideGraphHandler(resolver *graph.Resolver, users *user.Store, importer *friend.Importer, broker *pubsub.Broker, streams *graph.StreamHandler, logger *slog.Logger) *graph.Handler {
	return graph.NewHandler(resolver, users, importer, broker, streams, logger.With("handler", "graph"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideSessionManager,
		ProvideAuthMiddleware,
		ProvideProviders,
		ProvideResolver,
		ProvideLinker,
		ProvideImporter,
		ProvideAccountService,
		ProvideAccountHandler,
		ProvideLoaderFactory,
		ProvideGraphResolver,
		ProvideStreamHandler,
		ProvideGraphHandler,
	),
	fx.Invoke(RegisterRoutes),
)
