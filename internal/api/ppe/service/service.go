package ppeService

import (
	"PPEGuard/internal/api/ppe"
	ppeRepository "PPEGuard/internal/api/ppe/repository"
	"PPEGuard/internal/entity"
	"PPEGuard/pkg/metrics"
	ppePkg "PPEGuard/pkg/ppe"
	"PPEGuard/pkg/redis"
	"PPEGuard/pkg/s3"
	"PPEGuard/pkg/utils"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IPPEService interface {
	EvaluateFrame(ctx context.Context, frame entity.Frame) (ppe.EvaluateFrameResponse, error)
	CreateSession(ctx context.Context, name string, frames []entity.Frame) (ppe.SessionResponse, error)
	CreateImageSession(ctx context.Context, name string, timestamps []float64, images [][]byte) (ppe.SessionResponse, error)
	GetSession(ctx context.Context, id string) (ppe.SessionResponse, error)
	ListSessions(ctx context.Context, limit, offset int) (ppe.SessionListResponse, error)
	GetWindow(ctx context.Context, id string, at float64) (entity.WindowSnapshot, error)
	DeleteSession(ctx context.Context, id string) error

	NewLiveSession() *ppePkg.Session
	ProcessLiveFrame(ctx context.Context, session *ppePkg.Session, frame entity.Frame) (ppePkg.MonitorUpdate, error)
	ProcessLiveImage(ctx context.Context, session *ppePkg.Session, timestamp float64, image []byte) (ppePkg.MonitorUpdate, error)
}

type Config struct {
	Engine ppePkg.Config

	// Inference calls run in batches of BatchSize with BatchPause between batches.
	BatchSize  int
	BatchPause time.Duration

	// CacheTTL bounds how long analyzed frames stay available for window playback.
	CacheTTL time.Duration

	MaxImageWidth  int
	MaxImageHeight int
	ImageQuality   int
}

func DefaultConfig() Config {
	return Config{
		Engine:         ppePkg.DefaultConfig(),
		BatchSize:      5,
		BatchPause:     200 * time.Millisecond,
		CacheTTL:       24 * time.Hour,
		MaxImageWidth:  1920,
		MaxImageHeight: 1080,
		ImageQuality:   85,
	}
}

type ppeService struct {
	log           *logrus.Logger
	ppeRepository ppeRepository.Repository
	cache         redis.IRedis
	s3            s3.ItfS3
	detector      ppePkg.Detector
	utils         utils.IUtils
	metrics       *metrics.Metrics
	cfg           Config
	mapper        *ppePkg.Mapper
}

// NewPPEService wires the compliance engine to storage. s3 and detector may be nil: reports
// are then not archived and image sessions fail with ErrInferenceUnavailable.
func NewPPEService(
	log *logrus.Logger,
	pr ppeRepository.Repository,
	cache redis.IRedis,
	s3 s3.ItfS3,
	detector ppePkg.Detector,
	utils utils.IUtils,
	m *metrics.Metrics,
	cfg Config,
) IPPEService {
	cfg.Engine = cfg.Engine.Normalize()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if m == nil {
		m = metrics.New()
	}

	return &ppeService{
		log:           log,
		ppeRepository: pr,
		cache:         cache,
		s3:            s3,
		detector:      detector,
		utils:         utils,
		metrics:       m,
		cfg:           cfg,
		mapper:        ppePkg.NewMapper(cfg.Engine),
	}
}
