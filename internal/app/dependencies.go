// Package app wires shared infrastructure: the rate limiter store, the
// startup migration runner, and the asynq client/server pair.
package app

import (
	"strings"

	"github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewValidator returns the request validator shared across handlers.
func NewValidator() *validator.Validate {
	return validator.New()
}

// NewLimiterStore wires the global rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "aurum:limit"})
}

// NewGlobalLimiter builds the instance-wide limiter from a rate.
func NewGlobalLimiter(store limiter.Store, rate limiter.Rate) *limiter.Limiter {
	return limiter.New(store, rate)
}

// RunMigrations applies pending migrations from the given source path.
// An empty path disables the runner.
func RunMigrations(sourcePath, databaseURL string) error {
	path := strings.TrimSpace(sourcePath)
	if path == "" {
		return nil
	}
	if !strings.Contains(path, "://") {
		path = "file://" + path
	}
	m, err := migrate.New(path, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// NewTaskClient returns the asynq producer used by the API process.
func NewTaskClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

// NewTaskServer returns the asynq consumer used by the worker process.
func NewTaskServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return asynq.NewServer(opt, asynq.Config{Concurrency: concurrency}), nil
}
