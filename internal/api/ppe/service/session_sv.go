package ppeService

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	contextPkg "PPEGuard/pkg/context"
	ppePkg "PPEGuard/pkg/ppe"
	"PPEGuard/pkg/redis"
	"errors"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const defaultListLimit = 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sessionReport is the archived JSON document of an analyzed session.
type sessionReport struct {
	Session ppe.SessionResponse     `json:"session"`
	Windows []entity.WindowSnapshot `json:"windows"`
}

func (s *ppeService) CreateSession(ctx context.Context, name string, frames []entity.Frame) (ppe.SessionResponse, error) {
	return s.analyzeAndStore(ctx, name, entity.SessionSourceDetections, frames)
}

func (s *ppeService) analyzeAndStore(ctx context.Context, name string, source entity.SessionSource, frames []entity.Frame) (ppe.SessionResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if len(frames) == 0 {
		return ppe.SessionResponse{}, ppe.ErrEmptySession
	}

	result, err := ppePkg.Analyze(ctx, s.cfg.Engine, frames)
	if err != nil {
		s.metrics.SessionsFailed.Add(1)
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"frames":     len(frames),
			"error":      err.Error(),
		}).Error("Failed to analyze session")

		if errors.Is(err, ppePkg.ErrOutOfOrder) {
			return ppe.SessionResponse{}, ppe.ErrOutOfOrderFrames
		}
		return ppe.SessionResponse{}, err
	}

	for _, frame := range result.Frames {
		s.metrics.ObserveFrame(frame.Summary)
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return ppe.SessionResponse{}, ppe.ErrInternalServerError
	}
	ctx = contextPkg.WithSessionID(ctx, id)

	session := entity.AnalysisSession{
		ID:         id,
		Name:       name,
		Source:     source,
		FrameCount: len(result.Frames),
		AlertCount: len(result.Alerts),
		Duration:   result.Duration,
		CreatedAt:  time.Now(),
	}
	session.UpdatedAt = session.CreatedAt

	if err := s.persistSession(ctx, session, result.Alerts); err != nil {
		s.metrics.SessionsFailed.Add(1)
		return ppe.SessionResponse{}, ppe.ErrInternalServerError
	}

	if err := s.cache.SetFrames(ctx, id, ppePkg.SortFrames(frames), s.cfg.CacheTTL); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Warn("Failed to cache session frames")
	}

	resp := toSessionResponse(session, result.Alerts)
	resp.Frames = result.Frames
	resp.Summary = &result.Summary

	if url := s.archiveReport(ctx, resp, result.Windows); url != "" {
		resp.ReportURL = url
	}

	s.metrics.SessionsAnalyzed.Add(1)
	s.metrics.AlertsEmitted.Add(uint64(len(result.Alerts)))

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": id,
		"source":     source.String(),
		"frames":     session.FrameCount,
		"alerts":     session.AlertCount,
	}).Info("Session analyzed")

	return resp, nil
}

func (s *ppeService) persistSession(ctx context.Context, session entity.AnalysisSession, alerts []entity.AlertInterval) error {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.ppeRepository.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return err
	}

	stored := make([]entity.StoredAlert, 0, len(alerts))
	for _, alert := range alerts {
		alertID, err := s.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			_ = repo.Rollback()
			return err
		}
		stored = append(stored, entity.StoredAlert{
			ID:        alertID,
			SessionID: session.ID,
			Alert:     alert,
		})
	}

	if err := repo.Sessions.CreateSession(ctx, session); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create session")
		_ = repo.Rollback()
		return err
	}

	if err := repo.Alerts.CreateAlerts(ctx, stored); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create session alerts")
		_ = repo.Rollback()
		return err
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit session")
		return err
	}

	return nil
}

// archiveReport uploads the session report and returns its URL, or "" when archiving is off or failed.
func (s *ppeService) archiveReport(ctx context.Context, resp ppe.SessionResponse, windows []entity.WindowSnapshot) string {
	if s.s3 == nil {
		return ""
	}
	requestID := contextPkg.GetRequestID(ctx)

	report, err := json.Marshal(sessionReport{Session: resp, Windows: windows})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode session report")
		return ""
	}

	url, err := s.s3.UploadReport(ctx, resp.ID, report)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": resp.ID,
			"error":      err.Error(),
		}).Warn("Failed to upload session report")
		return ""
	}

	repo, err := s.ppeRepository.NewClient(false)
	if err != nil {
		return ""
	}
	if err := repo.Sessions.UpdateReportURL(ctx, resp.ID, url); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": resp.ID,
			"error":      err.Error(),
		}).Warn("Failed to store report url")
		return ""
	}

	return url
}

func (s *ppeService) GetSession(ctx context.Context, id string) (ppe.SessionResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.ppeRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return ppe.SessionResponse{}, ppe.ErrInternalServerError
	}

	session, err := repo.Sessions.GetSessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, ppe.ErrSessionNotFound) {
			return ppe.SessionResponse{}, err
		}
		return ppe.SessionResponse{}, ppe.ErrInternalServerError
	}

	stored, err := repo.Alerts.GetAlertsBySessionID(ctx, id)
	if err != nil {
		return ppe.SessionResponse{}, ppe.ErrInternalServerError
	}

	alerts := make([]entity.AlertInterval, 0, len(stored))
	for _, a := range stored {
		alerts = append(alerts, a.Alert)
	}

	resp := toSessionResponse(session, alerts)
	if s.s3 != nil && session.ReportURL != "" {
		presigned, err := s.s3.PresignUrl(session.ReportURL)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": id,
				"error":      err.Error(),
			}).Warn("Failed to presign report url")
		} else {
			resp.ReportURL = presigned
		}
	}

	return resp, nil
}

func (s *ppeService) ListSessions(ctx context.Context, limit, offset int) (ppe.SessionListResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	repo, err := s.ppeRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return ppe.SessionListResponse{}, ppe.ErrInternalServerError
	}

	sessions, err := repo.Sessions.ListSessions(ctx, limit, offset)
	if err != nil {
		return ppe.SessionListResponse{}, ppe.ErrInternalServerError
	}

	resp := ppe.SessionListResponse{
		Sessions: make([]ppe.SessionResponse, 0, len(sessions)),
		Limit:    limit,
		Offset:   offset,
	}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(session, nil))
	}

	return resp, nil
}

// GetWindow recomputes the reliability window at the given offset from the cached frames.
func (s *ppeService) GetWindow(ctx context.Context, id string, at float64) (entity.WindowSnapshot, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if at < 0 || math.IsNaN(at) || math.IsInf(at, 0) {
		return entity.WindowSnapshot{}, ppe.ErrInvalidWindowTime
	}

	repo, err := s.ppeRepository.NewClient(false)
	if err != nil {
		return entity.WindowSnapshot{}, ppe.ErrInternalServerError
	}
	if _, err := repo.Sessions.GetSessionByID(ctx, id); err != nil {
		if errors.Is(err, ppe.ErrSessionNotFound) {
			return entity.WindowSnapshot{}, err
		}
		return entity.WindowSnapshot{}, ppe.ErrInternalServerError
	}

	frames, err := s.cache.GetFrames(ctx, id)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": id,
			}).Warn("Session frames expired from cache")
			return entity.WindowSnapshot{}, ppe.ErrSessionFramesExpired
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Error("Failed to read cached session frames")
		return entity.WindowSnapshot{}, ppe.ErrInternalServerError
	}

	return ppePkg.NewAggregator(s.cfg.Engine).Snapshot(frames, at), nil
}

func (s *ppeService) DeleteSession(ctx context.Context, id string) error {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.ppeRepository.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return ppe.ErrInternalServerError
	}

	session, err := repo.Sessions.GetSessionByID(ctx, id)
	if err != nil {
		_ = repo.Rollback()
		if errors.Is(err, ppe.ErrSessionNotFound) {
			return err
		}
		return ppe.ErrInternalServerError
	}

	if err := repo.Alerts.DeleteAlertsBySessionID(ctx, id); err != nil {
		_ = repo.Rollback()
		return ppe.ErrInternalServerError
	}
	if err := repo.Sessions.DeleteSession(ctx, id); err != nil {
		_ = repo.Rollback()
		return ppe.ErrInternalServerError
	}
	if err := repo.Commit(); err != nil {
		return ppe.ErrInternalServerError
	}

	if err := s.cache.DeleteFrames(ctx, id); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Warn("Failed to drop cached session frames")
	}

	if s.s3 != nil && session.ReportURL != "" {
		if err := s.s3.DeleteFile(session.ReportURL); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": id,
				"error":      err.Error(),
			}).Warn("Failed to delete session report")
		}
	}

	return nil
}

func toSessionResponse(session entity.AnalysisSession, alerts []entity.AlertInterval) ppe.SessionResponse {
	if alerts == nil {
		alerts = make([]entity.AlertInterval, 0)
	}
	return ppe.SessionResponse{
		ID:         session.ID,
		Name:       session.Name,
		Source:     session.Source.String(),
		FrameCount: session.FrameCount,
		AlertCount: session.AlertCount,
		Duration:   session.Duration,
		ReportURL:  session.ReportURL,
		CreatedAt:  session.CreatedAt.Format(time.RFC3339),
		Alerts:     alerts,
	}
}
