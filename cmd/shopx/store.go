package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/config"
	"github.com/bluescreen10/shopx/gormstore"
	"github.com/bluescreen10/shopx/memstore"
	"github.com/bluescreen10/shopx/mongostore"
	"github.com/bluescreen10/shopx/mysqlstore"
	"github.com/bluescreen10/shopx/redisstore"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const cleanUpInterval = 5 * time.Minute

type openedStore struct {
	store       shopx.Store
	broadcaster shopx.Broadcaster
	closers     []func() error
}

func (o *openedStore) close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
}

// openStore connects the configured driver. Expired records are swept
// until done is closed, for the drivers that need it. When a redis url is
// configured, storage changes are broadcast through it whatever the driver.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, done <-chan struct{}) (*openedStore, error) {
	o := &openedStore{}

	var rdb *redis.Client
	redisURL := cfg.RedisURL
	if redisURL == "" && cfg.StoreDriver == config.DriverRedis {
		redisURL = cfg.StoreDSN
	}
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		o.closers = append(o.closers, rdb.Close)
		o.broadcaster = redisstore.NewBroadcaster(rdb, redisstore.DefaultChannel)
	}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		s := memstore.New()
		go s.PeriodicCleanUp(cleanUpInterval, done)
		o.store = s

	case config.DriverRedis:
		o.store = redisstore.New(rdb)

	case config.DriverSQLite, config.DriverPostgres:
		dialector := sqlite.Open(cfg.StoreDSN)
		if cfg.StoreDriver == config.DriverPostgres {
			dialector = postgres.Open(cfg.StoreDSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{})
		if err != nil {
			o.close()
			return nil, fmt.Errorf("%s: %w", cfg.StoreDriver, err)
		}
		if sqlDB, err := db.DB(); err == nil {
			o.closers = append(o.closers, sqlDB.Close)
		}
		s, err := gormstore.New(db)
		if err != nil {
			o.close()
			return nil, err
		}
		s.SetLogger(logger.Named("gormstore"))
		go s.PeriodicCleanUp(cleanUpInterval, done)
		o.store = s

	case config.DriverMySQL:
		db, err := sql.Open("mysql", cfg.StoreDSN)
		if err != nil {
			o.close()
			return nil, fmt.Errorf("mysql: %w", err)
		}
		o.closers = append(o.closers, db.Close)
		s, err := mysqlstore.New(db)
		if err != nil {
			o.close()
			return nil, err
		}
		go s.PeriodicCleanUp(cleanUpInterval, done)
		o.store = s

	case config.DriverMongo:
		mdb, err := mongostore.Connect(ctx, cfg.StoreDSN, "shopx")
		if err != nil {
			o.close()
			return nil, err
		}
		o.closers = append(o.closers, func() error {
			return mdb.Client().Disconnect(context.Background())
		})
		s, err := mongostore.New(ctx, mdb)
		if err != nil {
			o.close()
			return nil, err
		}
		o.store = s

	default:
		o.close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	return o, nil
}
