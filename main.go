package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/foloup/backend/repository"
	svc "github.com/foloup/backend/services"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Setup structured logging with JSON format
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config := svc.LoadConfig()
	server := svc.NewServer(config)

	if config.Database.URL != "" {
		pool, repo, err := openDatabase(config.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		slog.Info("Connected to database")

		if err := repo.AutoMigrate(); err != nil {
			slog.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}

		if config.Database.Seed {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := svc.NewDatabaseSeeder(repo).SeedDatabase(ctx); err != nil {
				slog.Error("Failed to seed database", "error", err)
			}
			cancel()
		}

		server.SetDatabase(repo, pool)
	} else {
		slog.Warn("DATABASE_URL not configured, running without database")
	}

	if err := server.InitializeServices(); err != nil {
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	server.Start()
}

// openDatabase shares one pgx pool between gorm and the health check
func openDatabase(cfg svc.DatabaseConfig) (*pgxpool.Pool, *repository.GORMRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, repository.NewGORMRepository(db), nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
