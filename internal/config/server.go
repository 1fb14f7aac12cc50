package config

import (
	"PPEGuard/database/postgres"
	ppeHandler "PPEGuard/internal/api/ppe/handler"
	ppeRepository "PPEGuard/internal/api/ppe/repository"
	ppeService "PPEGuard/internal/api/ppe/service"
	"PPEGuard/internal/middleware"
	"PPEGuard/pkg/metrics"
	ppePkg "PPEGuard/pkg/ppe"
	"PPEGuard/pkg/redis"
	"PPEGuard/pkg/s3"
	"PPEGuard/pkg/utils"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
	detector    ppePkg.Detector
	metrics     *metrics.Metrics
	ppeConfig   ppeService.Config
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		ppeConfig: ppeService.DefaultConfig(),
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.metrics == nil {
		server.metrics = metrics.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db

		if os.Getenv("DB_AUTO_MIGRATE") == "true" {
			if err := postgres.MigrateUp(db, s.log); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

// WithDetector sets the inference backend used by image and live sessions.
func WithDetector(detector ppePkg.Detector) ServerOption {
	return func(s *Server) error {
		s.detector = detector
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func WithPPEConfig(cfg ppeService.Config) ServerOption {
	return func(s *Server) error {
		s.ppeConfig = cfg
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// PPE Compliance Domain
	ppeRepo := ppeRepository.New(s.db, s.log)
	ppeServices := ppeService.NewPPEService(s.log, ppeRepo, s.redisServer, s.s3Client, s.detector, s.utils, s.metrics, s.ppeConfig)
	ppeHandlers := ppeHandler.New(s.log, s.validator, s.middleware, ppeServices, s.utils, s.metrics)

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, ppeHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown() error {
	if err := s.engine.Shutdown(); err != nil {
		return err
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}

func (s *Server) setupMetrics() {
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
}
