package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"amanah/internal/domain/pocket"
	"amanah/internal/domain/user"
	"amanah/internal/infrastructure/postgres"
	"amanah/internal/shared/auth"
	"amanah/internal/shared/config"
)

const usage = `Amanah Admin CLI - Management commands for the Amanah API

Usage:
  admin <command> [options]

Commands:
  create-user   Create a user account
  migrate       Apply pending database migrations
  reconcile     Recalculate pocket balances and report drift

Examples:
  # Create an administrator
  admin create-user --email=admin@example.org --name="Siti" --role=admin

  # Create a treasurer, reading the password from stdin
  admin create-user --email=treasurer@example.org --name="Budi" --role=treasurer

  # Apply migrations
  admin migrate

  # Reconcile every pocket
  admin reconcile --all

  # Reconcile one pocket
  admin reconcile --pocket-id=<uuid>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	// .env is optional
	godotenv.Load()

	command := os.Args[1]

	switch command {
	case "create-user":
		runCreateUser(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "reconcile":
		runReconcile(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func runCreateUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	email := fs.String("email", "", "Email address (required)")
	name := fs.String("name", "", "Display name (required)")
	role := fs.String("role", "viewer", "Role: admin, treasurer or viewer")
	password := fs.String("password", "", "Password (prompted if omitted)")

	fs.Usage = func() {
		fmt.Println("Usage: admin create-user [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *email == "" || *name == "" {
		fmt.Println("Error: --email and --name are required")
		fs.Usage()
		os.Exit(1)
	}

	parsedRole, ok := auth.ParseRole(*role)
	if !ok {
		log.Fatalf("Invalid role %q, must be admin, treasurer or viewer", *role)
	}

	if *password == "" {
		fmt.Print("Password: ")
		if _, err := fmt.Scanln(password); err != nil {
			log.Fatalf("Failed to read password: %v", err)
		}
	}
	if len(*password) < auth.MinPasswordLength {
		log.Fatalf("Password must be at least %d characters", auth.MinPasswordLength)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	db := mustConnect()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := postgres.NewUserRepository(db).Create(ctx, user.CreateParams{
		Email:        *email,
		Name:         *name,
		PasswordHash: hash,
		Role:         parsedRole,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("Created user %d (%s, %s)\n", u.ID, u.Email, u.Role)
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := postgres.RunMigrations(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations applied")
}

func runReconcile(args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)

	pocketID := fs.String("pocket-id", "", "Pocket ID to reconcile")
	allPockets := fs.Bool("all", false, "Reconcile every pocket, including inactive ones")

	fs.Usage = func() {
		fmt.Println("Usage: admin reconcile [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *pocketID == "" && !*allPockets {
		fmt.Println("Error: must specify --pocket-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	db := mustConnect()
	defer db.Close()

	svc := pocket.NewService(postgres.NewPocketRepository(db))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// The service gates reconciliation behind the admin role
	operator := auth.Identity{Role: auth.RoleAdmin}

	var ids []string
	if *allPockets {
		pockets, err := svc.ListPockets(ctx, true)
		if err != nil {
			log.Fatalf("Failed to list pockets: %v", err)
		}
		for _, p := range pockets {
			ids = append(ids, p.ID)
		}
		log.Printf("Reconciling %d pocket(s)", len(ids))
	} else {
		ids = []string{*pocketID}
	}

	var drifted int
	for _, id := range ids {
		rec, err := svc.Reconcile(ctx, operator, id)
		if err != nil {
			log.Fatalf("Failed to reconcile pocket %s: %v", id, err)
		}
		if rec.Drift != 0 {
			drifted++
			fmt.Printf("%s: balance %d -> %d (drift %+d)\n", rec.PocketID, rec.BalanceBefore, rec.BalanceAfter, rec.Drift)
		} else {
			fmt.Printf("%s: balance %d, no drift\n", rec.PocketID, rec.BalanceAfter)
		}
	}

	if drifted > 0 {
		fmt.Printf("\n%d pocket(s) had drifted balances\n", drifted)
	} else {
		fmt.Println("\nAll balances consistent")
	}
}

func mustConnect() *postgres.DB {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")
	return db
}
