package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/chartscope-portal/internal/client"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
	"github.com/bobmcallan/chartscope-portal/internal/handlers"
	"github.com/bobmcallan/chartscope-portal/internal/history"
	"github.com/bobmcallan/chartscope-portal/internal/interfaces"
	"github.com/bobmcallan/chartscope-portal/internal/mcp"
	"github.com/bobmcallan/chartscope-portal/internal/session"
	"github.com/bobmcallan/chartscope-portal/internal/settings"
	"github.com/bobmcallan/chartscope-portal/internal/storage"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

// pruneInterval is how often idle browser sessions are swept.
const pruneInterval = 5 * time.Minute

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Storage  interfaces.StorageManager
	History  *history.Store
	Settings *settings.Store
	Catalog  *tiers.Catalog
	Analyzer *client.AnalyzerClient
	Sessions *session.Registry

	// HTTP handlers
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	DashboardHandler    *handlers.DashboardHandler
	AnalyzeHandler      *handlers.AnalyzeHandler
	ResultsHandler      *handlers.ResultsHandler
	HistoryHandler      *handlers.HistoryHandler
	SettingsHandler     *handlers.SettingsHandler
	TiersHandler        *handlers.TiersHandler
	MCPHandler          *mcp.Handler

	stopPruner context.CancelFunc
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("running in dev mode, templates are re-parsed on every request")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	if err := a.initServices(); err != nil {
		return nil, err
	}
	a.initHandlers()

	logger.Info().
		Str("backend", cfg.API.URL).
		Dur("timeout", cfg.API.GetTimeout()).
		Msg("application initialization complete")

	return a, nil
}

// initServices opens storage and builds the domain services.
func (a *App) initServices() error {
	mgr, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.Storage = mgr

	kv := mgr.KeyValueStorage()
	a.History = history.NewStore(kv, a.Logger, a.Config.History)
	a.Settings = settings.NewStore(kv, a.Logger, a.Config.Settings)

	a.Analyzer = client.NewAnalyzerClient(a.Config.API.URL,
		client.WithPaths(a.Config.API.AnalyzePath, a.Config.API.TiersPath, a.Config.API.HealthPath),
	)
	a.Catalog = tiers.NewCatalog(a.Analyzer, a.Logger, tiers.WithFetchTimeout(a.Config.API.GetCatalogTimeout()))

	a.Sessions = session.NewRegistry(a.NewController, a.Logger, session.DefaultIdleTTL)
	a.Sessions.SetSecureCookies(strings.HasPrefix(a.Config.BaseURL(), "https://"))

	ctx, cancel := context.WithCancel(context.Background())
	a.stopPruner = cancel
	a.Sessions.StartPruner(ctx, pruneInterval)

	a.Logger.Debug().Msg("services initialized")
	return nil
}

// NewController builds a submission controller bound to the shared stores.
// nav may be nil.
func (a *App) NewController(nav submission.Navigator) *submission.Controller {
	opts := []submission.Option{
		submission.WithTimeout(a.Config.API.GetTimeout()),
		submission.WithRecorder(a.History),
		submission.WithBudgetFunc(a.Settings.BudgetLimit),
		submission.WithDefaultTier(a.Settings.Get(context.Background()).DefaultTier),
	}
	if nav != nil {
		opts = append(opts, submission.WithNavigator(nav))
	}
	return submission.NewController(a.Analyzer, a.Logger, opts...)
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	renderer := handlers.NewRenderer(a.Logger, a.Config.IsDevMode())

	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Analyzer)
	a.DashboardHandler = handlers.NewDashboardHandler(a.Logger, renderer, a.History, a.Settings)
	a.AnalyzeHandler = handlers.NewAnalyzeHandler(a.Logger, renderer, a.Sessions, a.Settings, a.Catalog)
	a.ResultsHandler = handlers.NewResultsHandler(a.Logger, renderer, a.Sessions, a.History, a.Settings)
	a.HistoryHandler = handlers.NewHistoryHandler(a.Logger, renderer, a.History)
	a.SettingsHandler = handlers.NewSettingsHandler(a.Logger, renderer, a.Settings, a.Catalog)
	a.TiersHandler = handlers.NewTiersHandler(a.Logger, a.Catalog)

	a.MCPHandler = mcp.NewHandler(mcp.Deps{
		Controller: a.NewController(nil),
		Catalog:    a.Catalog,
		History:    a.History,
		Settings:   a.Settings,
	}, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.stopPruner != nil {
		a.stopPruner()
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
