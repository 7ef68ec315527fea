package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"net/http"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/lovrop/najdeno/internal/api"
	"github.com/lovrop/najdeno/internal/db"
	"github.com/lovrop/najdeno/internal/model"
	"github.com/lovrop/najdeno/internal/store"
	"github.com/lovrop/najdeno/internal/task"
)

const adminEmail = "admin@najdeno.local"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: najdeno <init|serve>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\nUsage: najdeno <init|serve>\n", os.Args[1])
		os.Exit(1)
	}
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbPath := fs.String("db", "najdeno.sqlite3", "path to SQLite database file")
	fs.Parse(args)

	if _, err := os.Stat(*dbPath); err == nil {
		fmt.Fprintf(os.Stderr, "Error: database file %s already exists\n", *dbPath)
		os.Exit(1)
	}

	database, password, err := initDatabase(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	database.Close()

	fmt.Printf("Database created: %s\n", *dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", adminEmail)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password — it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "najdeno.sqlite3", "path to SQLite database file")
	addr := fs.String("addr", ":8080", "listen address")
	jwtSecret := fs.String("jwt-secret", "", "JWT signing key (persisted in the database if empty)")
	fs.Parse(args)

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		database, password, err := initDatabase(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		database.Close()

		fmt.Printf("Database created: %s\n", *dbPath)
		fmt.Println("Admin account created:")
		fmt.Printf("  Email:    %s\n", adminEmail)
		fmt.Printf("  Password: %s\n", password)
		fmt.Println()
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	// Run migrations (idempotent).
	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *jwtSecret == "" {
		secret, err := store.GetJWTSecret(ctx, database)
		if err != nil {
			log.Fatalf("Failed to load JWT secret: %v", err)
		}
		*jwtSecret = secret
	}

	// Background queue for post-mutation side effects. Delivery itself is an
	// external service; until one is wired, notifications are just logged.
	queue := task.NewQueue(256)
	queue.Handle(task.KindMatchFound, func(ctx context.Context, t task.Task) error {
		slog.Info("match found",
			"item", t.Payload["item_id"], "match", t.Payload["match_id"], "score", t.Payload["score"])
		return nil
	})
	queue.Handle(task.KindWelcomeEmail, func(ctx context.Context, t task.Task) error {
		slog.Info("welcome email queued", "email", t.Payload["email"])
		return nil
	})
	go queue.Run(ctx)

	handler := api.LoggingMiddleware(api.NewRouter(database, *jwtSecret, queue))

	fmt.Printf("Server listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initDatabase creates a new database, runs migrations, and creates the admin user.
func initDatabase(path string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	ctx := context.Background()
	_, err = store.CreateUser(ctx, database, "Admin", "Admin", adminEmail, "", string(hash), model.RoleAdmin)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("creating admin user: %w", err)
	}

	return database, password, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
