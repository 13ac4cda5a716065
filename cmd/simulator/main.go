package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dom/authroutes/internal/client"
	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:4000/api"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(apiURL, args)
	case "devices":
		devicesCmd(apiURL, args)
	case "roles":
		rolesCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Session Simulator - Development tool for exercising the auth API

USAGE:
  simulator <command> [options]

COMMANDS:
  full      Register a user, then walk through me, dashboard, refresh and logout
  devices   Log the same account in from two devices and show the first losing its session
  roles     Log in as the seeded accounts and probe every role-gated route
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:4000/api)

EXAMPLES:
  # Walk a fresh account through its whole session
  simulator full

  # Reuse an existing account
  simulator devices --email=alice@test.com --password=secret123

  # Check the role gates after running the seed command
  simulator roles`)
}

func newClient(apiURL string) *client.Client {
	c, err := client.New(apiURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return c
}

func step(label string, err error) {
	if err != nil {
		fmt.Printf("%-28s FAILED\n  Error: %v\n", label, err)
		os.Exit(1)
	}
	fmt.Printf("%-28s OK\n", label)
}

func fullCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	password := fs.String("password", "testpassword123", "Password for the generated account")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c := newClient(apiURL)
	email := fmt.Sprintf("sim_%s@test.com", uuid.New().String()[:8])

	fmt.Println("=== Session Simulator: Full Flow ===")
	fmt.Println()

	step("Initialize (anonymous)", c.Initialize(ctx))

	user, err := c.Register(ctx, "Simulated User", email, *password)
	step("Register + login", err)
	fmt.Printf("  User: %s <%s> role=%s\n", user.Name, user.Email, user.Role)

	_, err = c.Me(ctx)
	step("GET /auth/me", err)

	var dashboard struct {
		Message string `json:"message"`
	}
	step("GET /protected/dashboard", c.AuthenticatedDo(ctx, http.MethodGet, "/protected/dashboard", nil, &dashboard))
	fmt.Printf("  %s\n", dashboard.Message)

	_, err = c.Refresh(ctx)
	step("POST /auth/refresh", err)

	step("POST /auth/logout", c.Logout(ctx))

	_, err = c.Me(ctx)
	if client.IsUnauthorized(err) {
		fmt.Printf("%-28s OK (401 as expected)\n", "GET /auth/me after logout")
	} else {
		fmt.Printf("%-28s UNEXPECTED: %v\n", "GET /auth/me after logout", err)
		os.Exit(1)
	}
}

func devicesCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("devices", flag.ExitOnError)
	email := fs.String("email", "", "Existing account email (default: register a new one)")
	password := fs.String("password", "testpassword123", "Account password")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	laptop := newClient(apiURL)
	phone := newClient(apiURL)

	fmt.Println("=== Session Simulator: Two Devices ===")
	fmt.Println()

	if *email == "" {
		*email = fmt.Sprintf("sim_%s@test.com", uuid.New().String()[:8])
		_, err := laptop.Register(ctx, "Two Device User", *email, *password)
		step("Register on laptop", err)
	} else {
		_, err := laptop.Login(ctx, *email, *password)
		step("Login on laptop", err)
	}

	_, err := phone.Login(ctx, *email, *password)
	step("Login on phone", err)

	_, err = laptop.Refresh(ctx)
	if client.IsUnauthorized(err) {
		fmt.Printf("%-28s OK (laptop session replaced: %v)\n", "Refresh on laptop", err)
	} else {
		fmt.Printf("%-28s UNEXPECTED: %v\n", "Refresh on laptop", err)
		os.Exit(1)
	}

	_, err = phone.Refresh(ctx)
	step("Refresh on phone", err)
}

func rolesCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("roles", flag.ExitOnError)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	accounts := []struct {
		email    string
		password string
	}{
		{"admin@test.com", "admin123"},
		{"moderator@test.com", "moderator123"},
	}
	routes := []string{"/protected/dashboard", "/protected/moderator", "/protected/admin"}

	fmt.Println("=== Session Simulator: Role Gates ===")

	for _, acct := range accounts {
		fmt.Println()
		c := newClient(apiURL)
		user, err := c.Login(ctx, acct.email, acct.password)
		step("Login "+acct.email, err)
		fmt.Printf("  Role: %s\n", user.Role.DisplayName())

		for _, route := range routes {
			err := c.AuthenticatedDo(ctx, http.MethodGet, route, nil, nil)
			switch {
			case err == nil:
				fmt.Printf("  %-24s allowed\n", route)
			default:
				fmt.Printf("  %-24s denied (%v)\n", route, err)
			}
		}
	}
}
