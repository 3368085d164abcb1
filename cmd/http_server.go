package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/auth"
	authPostgres "github.com/approveflow/expense-service/internal/auth/postgres"
	"github.com/approveflow/expense-service/internal/company"
	companyPostgres "github.com/approveflow/expense-service/internal/company/postgres"
	"github.com/approveflow/expense-service/internal/core/events"
	"github.com/approveflow/expense-service/internal/currency"
	"github.com/approveflow/expense-service/internal/expense"
	expensePostgres "github.com/approveflow/expense-service/internal/expense/postgres"
	"github.com/approveflow/expense-service/internal/rule"
	rulePostgres "github.com/approveflow/expense-service/internal/rule/postgres"
	"github.com/approveflow/expense-service/internal/transport/rest"
	"github.com/approveflow/expense-service/internal/user"
	userPostgres "github.com/approveflow/expense-service/internal/user/postgres"
	"github.com/approveflow/expense-service/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	GormDB         *gorm.DB
	Router         *chi.Mux
	CurrencyClient *currency.Client
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.CurrencyClient.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) {
	eventBus := events.NewEventBus(deps.Logger)
	registerEventHandlers(eventBus, deps.Logger)

	authRepo := authPostgres.NewAuthRepository(deps.GormDB)
	tokenGen := auth.NewJWTTokenGenerator(deps.Config.Security.JWTSecret, deps.Config.Security.AccessTokenDuration)
	authService := auth.NewService(authRepo, tokenGen, deps.Config.Security.BCryptCost, deps.Logger)
	authHandler := auth.NewHandler(authService)

	userRepo := userPostgres.NewUserRepository(deps.GormDB)
	userService := user.NewService(userRepo, deps.Config.Security.BCryptCost, deps.Logger)
	userHandler := user.NewHandler(userService)

	companyRepo := companyPostgres.NewCompanyRepository(deps.GormDB)
	companyService := company.NewService(companyRepo, deps.Logger)
	companyHandler := company.NewHandler(companyService)

	ruleRepo := rulePostgres.NewRuleRepository(deps.GormDB)
	ruleService := rule.NewService(ruleRepo, deps.Logger)
	ruleHandler := rule.NewHandler(ruleService)

	expenseRepo := expensePostgres.NewExpenseRepository(deps.GormDB)
	expenseService := expense.NewService(
		expenseRepo,
		userService,
		companyService,
		ruleRepo,
		deps.CurrencyClient,
		eventBus,
		deps.Logger,
	)
	expenseHandler := expense.NewHandler(expenseService)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, rest.Handlers{
		Auth:    authHandler,
		Expense: expenseHandler,
		Rule:    ruleHandler,
		User:    userHandler,
		Company: companyHandler,
	}, deps.Logger)
}

// registerEventHandlers attaches the in-process listeners for workflow
// lifecycle events. Today that is audit logging; notification delivery hangs
// off the same subscriptions.
func registerEventHandlers(bus *events.EventBus, log *slog.Logger) {
	audit := func(ctx context.Context, event events.Event) error {
		log.Info("workflow event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	}

	bus.Subscribe(events.ExpenseSubmittedEvent, audit)
	bus.Subscribe(events.ExpenseDecidedEvent, audit)
	bus.Subscribe(events.ExpenseOverriddenEvent, audit)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	currencyClient := currency.NewClient(currency.Config{
		APIURL:          config.Currency.APIURL,
		RequestTimeout:  config.Currency.RequestTimeout,
		CacheTTL:        config.Currency.CacheTTL,
		RefreshInterval: config.Currency.RefreshInterval,
	}, log)

	return &Dependencies{
		Config:         config,
		Logger:         log,
		DB:             db,
		GormDB:         gormDB,
		Router:         chi.NewRouter(),
		CurrencyClient: currencyClient,
	}, nil
}

// initDB opens the pgx stdlib connection pool used for health checks and as
// the underlying connection for GORM.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
