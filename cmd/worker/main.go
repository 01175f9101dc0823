package main

import (
	"os"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/faresearch/internal/cache"
	"github.com/dharmasatrya/faresearch/internal/config"
	"github.com/dharmasatrya/faresearch/internal/jobs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	redisCfg := cache.DefaultRedisConfig()
	redisCfg.Addr = cfg.Redis.Addr
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB

	// The worker only deletes keys; without Redis there is nothing to delete.
	store, err := cache.NewRedisStore(redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	facade := cache.NewFacade(store, cfg.Cache.Namespace, cache.DefaultTTLs())
	defer facade.Close()

	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Queues: map[string]int{
			jobs.QueueCache: 10,
			"default":       1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskInvalidateCache, jobs.HandleInvalidate(facade))

	log.Info().Int("concurrency", cfg.Queue.Concurrency).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
