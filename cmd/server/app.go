package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/eco-bazaar/internal/adapter/storage"
	"github.com/rl1809/eco-bazaar/internal/config"
	"github.com/rl1809/eco-bazaar/internal/core/service"
	"github.com/rl1809/eco-bazaar/internal/logger"
	"github.com/rl1809/eco-bazaar/internal/port"
)

// app holds the wired services and everything that must be closed on exit.
type app struct {
	cfg *config.Config
	log *slog.Logger

	store port.DatabaseRepository
	cache port.CacheRepository

	accounts *service.AccountService
	catalog  *service.CatalogService
	carts    *service.CartService
	orders   *service.OrderService

	closers []func() error
}

func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.LogLevel})
	return cfg, log, nil
}

func openMySQL(ctx context.Context, cfg config.MySQLConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	switch cfg.Store.Driver {
	case config.StoreMemory:
		a.store = storage.NewMemoryStore()
		log.Warn("using in-memory store, data is lost on exit")
	default:
		db, err := openMySQL(ctx, cfg.MySQL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.store = storage.NewMySQLAdapter(db)
		log.Info("connected to mysql")
	}

	if cfg.Redis.Addr == "" {
		a.cache = storage.NewMemoryCache()
		log.Warn("redis not configured, using in-process cache")
	} else {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.close()
			rdb.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.cache = storage.NewRedisAdapter(rdb)
		log.Info("connected to redis")
	}

	a.accounts = service.NewAccountService(a.store, a.cache, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	a.catalog = service.NewCatalogService(a.store, a.cache)
	a.carts = service.NewCartService(a.store, a.cache, cfg.Order.QuoteConcurrency)
	a.orders = service.NewOrderService(a.store, a.cache, cfg.Order.QueueSize, log)
	return a, nil
}

// close releases connections in reverse order of opening.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
