package ppeService

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	contextPkg "PPEGuard/pkg/context"
	ppePkg "PPEGuard/pkg/ppe"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// NewLiveSession returns the engine state for one live connection. Callers drop it on disconnect.
func (s *ppeService) NewLiveSession() *ppePkg.Session {
	return ppePkg.NewSession(s.cfg.Engine)
}

func (s *ppeService) ProcessLiveFrame(ctx context.Context, session *ppePkg.Session, frame entity.Frame) (ppePkg.MonitorUpdate, error) {
	requestID := contextPkg.GetRequestID(ctx)

	records, err := session.Feed(frame)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"timestamp":  frame.Timestamp,
			"error":      err.Error(),
		}).Warn("Live frame rejected")

		if errors.Is(err, ppePkg.ErrOutOfOrder) {
			return ppePkg.MonitorUpdate{}, ppe.ErrOutOfOrderFrames
		}
		return ppePkg.MonitorUpdate{}, err
	}

	summary := ppePkg.Summarize(records)
	s.metrics.ObserveFrame(summary)

	return ppePkg.MonitorUpdate{
		Timestamp: frame.Timestamp,
		Records:   records,
		Summary:   summary,
		Alerts:    session.Alerts(),
	}, nil
}

func (s *ppeService) ProcessLiveImage(ctx context.Context, session *ppePkg.Session, timestamp float64, image []byte) (ppePkg.MonitorUpdate, error) {
	if s.detector == nil {
		return ppePkg.MonitorUpdate{}, ppe.ErrInferenceUnavailable
	}
	if err := s.utils.ValidateImageBytes(image); err != nil {
		return ppePkg.MonitorUpdate{}, ppe.ErrInvalidImage
	}

	frame, degraded := s.detectFrame(ctx, timestamp, image)

	update, err := s.ProcessLiveFrame(ctx, session, frame)
	if err != nil {
		return ppePkg.MonitorUpdate{}, err
	}
	update.Degraded = degraded

	return update, nil
}
