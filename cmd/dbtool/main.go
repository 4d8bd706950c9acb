// Command dbtool prepares the cache schema ahead of a deployment.
package main

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"
	"vehicle-sync-service/internal/adapters/cache"
	"vehicle-sync-service/internal/config"
	"vehicle-sync-service/internal/platform/db"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	driver := config.Get("CACHE_DRIVER", "postgres")
	switch driver {
	case "postgres":
		databaseURL := config.Get("DATABASE_URL", "")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("DATABASE_URL is required")
		}
		conn, err := db.OpenPostgres(ctx, databaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()
		initSchema(ctx, conn, cache.DialectPostgres)

	case "sqlite":
		conn, err := db.OpenSqlite(ctx, config.Get("DB_PATH", "data/cache.db"))
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()
		initSchema(ctx, conn, cache.DialectSqlite)

	default:
		log.Fatalf("CACHE_DRIVER %q has no schema to prepare", driver)
	}
}

func initSchema(ctx context.Context, conn *sql.DB, dialect cache.Dialect) {
	log.Printf("Initializing %s cache schema...", dialect)
	if err := cache.InitSchema(ctx, conn, dialect); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}
