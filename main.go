package main

import (
	"context"
	"log"
	"time"

	"lesson-enrollment/cmd"
	"lesson-enrollment/internal/data/repository"
	"lesson-enrollment/internal/scheduler"
	"lesson-enrollment/internal/wire"
	"lesson-enrollment/pkg/broadcast"
	"lesson-enrollment/pkg/database"
	"lesson-enrollment/pkg/gateway"
	"lesson-enrollment/pkg/locker"
	"lesson-enrollment/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("env", config.App.Env),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Connect to Redis for the locker counters
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	cancelPing()

	logger.Info("Redis connected successfully")

	// Initialize all repositories and infrastructure
	repos := repository.NewRepository(db, logger)
	tx := repository.NewTxManager(db, logger,
		config.Enroll.RetryAttempts,
		time.Duration(config.Enroll.RetryBaseDelayMs)*time.Millisecond,
	)
	inventory := locker.NewRedisInventory(redisClient, logger)
	gw := gateway.NewClient(config.Kispg.BaseURL, config.Kispg.MerchantID, config.Kispg.MerchantKey, logger)

	var broadcaster broadcast.Broadcaster = broadcast.Noop{}
	if config.Broker.URL != "" {
		broadcaster = broadcast.NewRabbitMQ(config.Broker.URL, logger)
	}

	// Wire all dependencies
	app := wire.Wiring(repos, tx, gw, inventory, broadcaster, config, logger)

	// Start background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	reaper := scheduler.NewReaper(repos, broadcaster,
		time.Duration(config.Enroll.ReaperMinutes)*time.Minute, logger)
	go reaper.Run(workerCtx)

	lockerSync := scheduler.NewLockerSync(repos, inventory,
		time.Duration(config.Enroll.LockerSyncHours)*time.Hour, logger)
	go lockerSync.Run(workerCtx)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
