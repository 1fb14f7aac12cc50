package ppeService

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	contextPkg "PPEGuard/pkg/context"
	ppePkg "PPEGuard/pkg/ppe"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *ppeService) EvaluateFrame(ctx context.Context, frame entity.Frame) (ppe.EvaluateFrameResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	records := s.mapper.MapFrame(frame)
	summary := ppePkg.Summarize(records)
	s.metrics.ObserveFrame(summary)

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"timestamp":  frame.Timestamp,
		"persons":    summary.PersonsEvaluated,
		"alarms":     summary.PersonsWithAlarm,
	}).Debug("Frame evaluated")

	return ppe.EvaluateFrameResponse{
		Timestamp: frame.Timestamp,
		Records:   records,
		Summary:   summary,
	}, nil
}
