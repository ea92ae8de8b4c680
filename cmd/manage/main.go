// Command manage runs one-off administrative tasks against the configured
// store and bucket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cattube/internal/config"
	"cattube/internal/database"
	"cattube/internal/logger"
	"cattube/internal/middleware"
	"cattube/internal/repository"
	"cattube/internal/services"
	"cattube/internal/storage"
	"cattube/internal/web"
)

const usage = `usage: manage <command> [flags]

commands:
  createuser -username NAME -password PASS   create a login account
  collectstatic                              upload static assets to the bucket
  migrate                                    apply database migrations`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "createuser":
		err = createUser(ctx, cfg, args)
	case "collectstatic":
		err = collectStatic(ctx, cfg)
	case "migrate":
		err = migrate(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("✗ %s failed: %v", os.Args[1], err)
	}
}

func createUser(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("createuser", flag.ExitOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "login password")
	fs.Parse(args)

	var users repository.UserStore
	switch cfg.StoreDriver {
	case "pebble":
		db, err := database.NewPebbleDB(cfg.DataDir, nil)
		if err != nil {
			return err
		}
		defer db.Close()
		users = repository.NewPebbleStore(db).Users()
	default:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = repository.NewUserRepo(pool)
	}

	auth := services.NewAuthService(users, middleware.NewJWTAuth(cfg.JWTSecret))
	u, err := auth.CreateUser(ctx, *username, *password)
	if err != nil {
		if verr, ok := err.(*services.ValidationError); ok {
			return fmt.Errorf("%v", verr.Fields)
		}
		return err
	}
	logger.Infof("✓ Created user %s (%s)", u.Username, u.ID)
	return nil
}

func collectStatic(ctx context.Context, cfg *config.Config) error {
	n, err := storage.NewBucket(cfg).PublishStatic(ctx, web.Static())
	if err != nil {
		return err
	}
	logger.Infof("✓ %d static files copied to %s", n, cfg.StaticURL())
	return nil
}

func migrate(cfg *config.Config) error {
	if cfg.StoreDriver != "postgres" {
		logger.Infof("%s store needs no migrations", cfg.StoreDriver)
		return nil
	}

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(pool); err != nil {
		return err
	}
	version, err := database.MigrationVersion(pool)
	if err != nil {
		return err
	}
	logger.Infof("✓ Database at migration version %d", version)
	return nil
}
