package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// app wires the sync store, notifier and backends behind the HTTP handlers.
type app struct {
	registry          *StoreRegistry
	notifier          *ChangeNotifier
	remote            RemoteBackend
	apiKey            string
	heartbeatInterval time.Duration
}

func main() {
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	local, err := NewFileBackend(dataDir)
	if err != nil {
		log.Fatal("Failed to create data directory: ", err)
	}

	// The Postgres remote backend is optional; without DB_HOST every tenant
	// stays on local files.
	var remote RemoteBackend
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		pool, err := connectPostgres(dbHost)
		if err != nil {
			log.Fatal("Failed to connect to database after retries: ", err)
		}
		defer pool.Close()
		remote = NewPostgresBackend(pool)
	}

	notifier := NewChangeNotifier()
	a := &app{
		registry:          NewStoreRegistry(&routingBackend{local: local, remote: remote}, notifier),
		notifier:          notifier,
		remote:            remote,
		apiKey:            os.Getenv("API_KEY"),
		heartbeatInterval: defaultHeartbeatInterval,
	}

	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3001"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "If-Match", "x-user-id", "x-api-key"},
		ExposeHeaders:    []string{"Content-Length", "ETag"},
		AllowCredentials: true,
	}))

	a.registerRoutes(r)

	port := getEnvOrDefault("PORT", "8080")
	log.Printf("Server starting on port %s", port)
	r.Run(":" + port)
}

// registerRoutes attaches all API routes; tests reuse it on a bare engine.
func (a *app) registerRoutes(r *gin.Engine) {
	r.GET("/api/health", health)
	r.GET("/api/ledger", a.getLedger)
	r.PUT("/api/ledger", a.requireAPIKey, a.putLedger)
	r.GET("/api/ledger/stream", a.streamLedger)
	r.GET("/api/balances", a.getBalances)
	r.GET("/api/settlement", a.getSettlement)
	r.GET("/api/remote/status", a.remoteStatus)
	r.POST("/api/remote/link", a.requireAPIKey, a.remoteLink)
	r.POST("/api/remote/save", a.requireAPIKey, a.remoteSave)
	// remote/load commits a new version, so it is gated like the writes.
	r.GET("/api/remote/load", a.requireAPIKey, a.remoteLoad)
}

// requireAPIKey gates write routes when API_KEY is configured.
func (a *app) requireAPIKey(c *gin.Context) {
	if a.apiKey != "" && c.GetHeader("x-api-key") != a.apiKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_api_key"})
		return
	}
	c.Next()
}

// connectPostgres dials the database with retries, runs migrations, and
// returns the runtime pool.
func connectPostgres(dbHost string) (*pgxpool.Pool, error) {
	dbPort := getEnvOrDefault("DB_PORT", "5432")
	dbUser := getEnvOrDefault("DB_USER", "postgres")
	dbPassword := getEnvOrDefault("DB_PASSWORD", "password")
	dbName := getEnvOrDefault("DB_NAME", "splitsync")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	maxRetries := 30
	retryInterval := time.Second * 2

	var pool *pgxpool.Pool
	var err error
	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(context.Background(), connStr)
		if err == nil {
			err = pool.Ping(context.Background())
			if err == nil {
				log.Println("Successfully connected to database")
				break
			}
			pool.Close()
		}
		log.Printf("Attempt %d: Error connecting to database: %v", i+1, err)
		time.Sleep(retryInterval)
	}
	if err != nil {
		return nil, err
	}

	migrationsPath := filepath.Join(".", "db", "migrations")
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		log.Printf("Migrations directory not found at %s, skipping migrations", migrationsPath)
		return pool, nil
	}

	log.Println("Running database migrations...")
	migrationDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer migrationDB.Close()

	if err := runMigrations(migrationDB, migrationsPath); err != nil {
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	if version, dirty, err := getMigrationVersion(migrationDB, migrationsPath); err == nil {
		if dirty {
			log.Printf("Current migration version: %d (DIRTY - migration failed)", version)
		} else {
			log.Printf("Current migration version: %d", version)
		}
	}
	log.Println("Database migrations completed successfully")

	return pool, nil
}
