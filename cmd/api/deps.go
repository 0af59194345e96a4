package main

import (
	"fmt"
	"log"

	"amanah/internal/domain/category"
	"amanah/internal/domain/ledger"
	"amanah/internal/domain/pocket"
	"amanah/internal/domain/user"
	"amanah/internal/infrastructure/memory"
	"amanah/internal/infrastructure/postgres"
	httphandlers "amanah/internal/interfaces/http"
	"amanah/internal/shared/auth"
	"amanah/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler     *httphandlers.AuthHandler
	PocketHandler   *httphandlers.PocketHandler
	CategoryHandler *httphandlers.CategoryHandler
	DonationHandler *httphandlers.DonationHandler
	ExpenseHandler  *httphandlers.ExpenseHandler

	// Auth
	JWT *auth.JWT
}

// repositories groups the storage layer so both backends wire identically.
type repositories struct {
	users      user.Repository
	pockets    pocket.Repository
	categories category.Repository
	donations  ledger.DonationRepository
	expenses   ledger.ExpenseRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	var (
		repos repositories
		db    *postgres.DB
	)

	switch cfg.DataBackend {
	case config.BackendPostgres:
		connStr := cfg.Database.ConnectionString()
		if err := postgres.RunMigrations(connStr); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}

		var err error
		db, err = postgres.New(connStr)
		if err != nil {
			return nil, err
		}
		log.Println("Connected to database")

		repos = repositories{
			users:      postgres.NewUserRepository(db),
			pockets:    postgres.NewPocketRepository(db),
			categories: postgres.NewCategoryRepository(db),
			donations:  postgres.NewDonationRepository(db),
			expenses:   postgres.NewExpenseRepository(db),
		}

	case config.BackendMemory:
		log.Println("Using in-memory storage, data will not survive a restart")
		store := memory.NewStore()
		repos = repositories{
			users:      memory.NewUserRepository(store),
			pockets:    memory.NewPocketRepository(store),
			categories: memory.NewCategoryRepository(store),
			donations:  memory.NewDonationRepository(store),
			expenses:   memory.NewExpenseRepository(store),
		}

	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}

	// Initialize domain services
	pocketService := pocket.NewService(repos.pockets)
	categoryService := category.NewService(repos.categories)
	donationService := ledger.NewDonationService(repos.donations, repos.pockets, repos.categories)
	expenseService := ledger.NewExpenseService(repos.expenses, repos.pockets, repos.categories)

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	return &Dependencies{
		DB:              db,
		AuthHandler:     httphandlers.NewAuthHandler(repos.users, jwt),
		PocketHandler:   httphandlers.NewPocketHandler(pocketService),
		CategoryHandler: httphandlers.NewCategoryHandler(categoryService),
		DonationHandler: httphandlers.NewDonationHandler(donationService),
		ExpenseHandler:  httphandlers.NewExpenseHandler(expenseService),
		JWT:             jwt,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
