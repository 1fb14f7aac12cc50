package main

import (
	"PPEGuard/internal/config"
	"PPEGuard/pkg/log"
	"PPEGuard/pkg/metrics"
	"PPEGuard/pkg/redis"
	websocketPkg "PPEGuard/pkg/websocket"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	ppeConfig, err := config.LoadPPEConfig()
	if err != nil {
		logger.Fatal(err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	redisServer := redis.New()
	detector, err := config.NewDetector(logger)
	if err != nil {
		logger.Errorf("Image inference disabled: %v", err)
	}

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithRedisServer(redisServer),
		config.WithDetector(detector),
		config.WithMiddleware(),
		config.WithUtils(),
		config.WithMetrics(metrics.New()),
		config.WithPPEConfig(ppeConfig),
	}
	if os.Getenv("AWS_BUCKET_NAME") != "" {
		options = append(options, config.WithS3Client())
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if ws, ok := detector.(websocketPkg.IWebsocket); ok {
		ws.CloseConnection()
	}
	if err := server.Shutdown(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
