package main

import (
	"fmt"

	"go.uber.org/zap"

	"ajo/internal/domain/account"
	"ajo/internal/domain/ledger"
	"ajo/internal/domain/profile"
	"ajo/internal/domain/refcode"
	"ajo/internal/domain/user"
	"ajo/internal/infrastructure/memory"
	"ajo/internal/infrastructure/postgres"
	httphandlers "ajo/internal/interfaces/http"
	"ajo/internal/shared/auth"
	"ajo/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB // nil with the in-memory store

	// Handlers
	AuthHandler        *httphandlers.AuthHandler
	UserHandler        *httphandlers.UserHandler
	AccountHandler     *httphandlers.AccountHandler
	TransactionHandler *httphandlers.TransactionHandler

	// Auth
	JWT      *auth.JWT
	Profiles *profile.Service
}

// repositories is the durable store selected by STORE_DRIVER.
type repositories struct {
	db       *postgres.DB
	accounts account.Repository
	ledger   ledger.Repository
	profiles profile.Repository
	users    user.Repository
}

func openStore(cfg *config.Config, log *zap.Logger) (*repositories, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			accounts: store.Accounts(),
			ledger:   store.Ledger(),
			profiles: store.Profiles(),
			users:    store.Users(),
		}, nil

	case config.StoreDriverPostgres:
		db, err := postgres.New(cfg.Database.ConnectionString(), cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		log.Info("connected to database",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.DBName),
		)

		if cfg.Store.AutoMigrate {
			if err := db.Migrate(cfg.Database.DBName, log); err != nil {
				db.Close()
				return nil, err
			}
		}

		return &repositories{
			db:       db,
			accounts: postgres.NewAccountRepository(db),
			ledger:   postgres.NewLedgerRepository(db),
			profiles: postgres.NewProfileRepository(db),
			users:    postgres.NewUserRepository(db),
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config, log *zap.Logger) (*Dependencies, error) {
	repos, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	codes := refcode.New()

	// Initialize domain services
	userService := user.NewService(repos.users, log.Named("user"))
	profileService := profile.NewService(repos.profiles, log.Named("profile"))

	accountService := account.NewService(repos.accounts, codes, log.Named("account"))
	accountService.SetMaxCodeAttempts(cfg.Ledger.CodeMaxAttempts)

	ledgerService := ledger.NewService(repos.ledger, codes, log.Named("ledger"))
	ledgerService.SetMaxReferenceAttempts(cfg.Ledger.CodeMaxAttempts)
	ledgerService.SetEagerWithdrawalCheck(cfg.Ledger.EagerWithdrawalCheck)

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	// Initialize handlers
	transactionHandler := httphandlers.NewTransactionHandler(ledgerService, log)
	transactionHandler.SetHistoryPageSize(cfg.Ledger.DefaultHistoryPageSize)

	return &Dependencies{
		DB:                 repos.db,
		AuthHandler:        httphandlers.NewAuthHandler(userService, profileService, jwt, log),
		UserHandler:        httphandlers.NewUserHandler(userService, profileService, log),
		AccountHandler:     httphandlers.NewAccountHandler(accountService, ledgerService, log),
		TransactionHandler: transactionHandler,
		JWT:                jwt,
		Profiles:           profileService,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
