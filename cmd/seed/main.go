// Command seed creates privileged accounts directly in the credential store.
// It is the only way to obtain admin or moderator users; the HTTP API never
// exposes role assignment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dom/authroutes/internal/app"
	"github.com/dom/authroutes/internal/config"
	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/logging"
	"github.com/dom/authroutes/internal/service"
)

func main() {
	name := flag.String("name", "", "Name for a single custom account")
	email := flag.String("email", "", "Email for a single custom account (omit to create the default admin and moderator)")
	password := flag.String("password", "", "Password for a single custom account")
	role := flag.String("role", "admin", "Role for a single custom account: user, moderator or admin")
	allowProduction := flag.Bool("allow-production", false, "Allow seeding when ENVIRONMENT=production")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.IsProduction())

	if cfg.IsProduction() && !*allowProduction {
		fmt.Println("Error: refusing to seed in production without --allow-production")
		os.Exit(1)
	}

	accounts := app.DefaultSeedAccounts
	if *email != "" {
		r, err := domain.ParseRole(*role)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		accounts = []app.SeedAccount{{Name: *name, Email: *email, Password: *password, Role: r}}
	}

	repos, closeStore, err := app.OpenRepositories(cfg, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	services := service.NewServices(repos, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	results, err := app.Seed(ctx, services.Auth, accounts)
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("SKIP %s (already exists)\n", r.Account.Email)
			continue
		}
		fmt.Printf("OK   %s\n", r.Account.Email)
		fmt.Printf("     Role: %s\n", r.User.Role.DisplayName())
	}
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
}
