package ppeService

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	contextPkg "PPEGuard/pkg/context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

func (s *ppeService) CreateImageSession(ctx context.Context, name string, timestamps []float64, images [][]byte) (ppe.SessionResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if len(images) == 0 {
		return ppe.SessionResponse{}, ppe.ErrEmptySession
	}
	if s.detector == nil {
		return ppe.SessionResponse{}, ppe.ErrInferenceUnavailable
	}

	timestamps, err := s.frameTimestamps(timestamps, len(images))
	if err != nil {
		return ppe.SessionResponse{}, err
	}

	for i, img := range images {
		if err := s.utils.ValidateImageBytes(img); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"index":      i,
				"error":      err.Error(),
			}).Warn("Invalid image in session upload")
			return ppe.SessionResponse{}, ppe.ErrInvalidImage
		}
	}

	frames, err := s.detectFrames(ctx, timestamps, images)
	if err != nil {
		return ppe.SessionResponse{}, err
	}

	return s.analyzeAndStore(ctx, name, entity.SessionSourceImages, frames)
}

// frameTimestamps defaults missing timestamps to the sampling grid i * FrameInterval.
func (s *ppeService) frameTimestamps(timestamps []float64, n int) ([]float64, error) {
	if len(timestamps) == 0 {
		timestamps = make([]float64, n)
		for i := range timestamps {
			timestamps[i] = float64(i) * s.cfg.Engine.FrameInterval
		}
		return timestamps, nil
	}
	if len(timestamps) != n {
		return nil, ppe.ErrTimestampMismatch
	}
	return timestamps, nil
}

// detectFrames runs inference in fixed-size batches with a pause between batches. Results keep
// their input position, so the returned frames line up with timestamps.
func (s *ppeService) detectFrames(ctx context.Context, timestamps []float64, images [][]byte) ([]entity.Frame, error) {
	requestID := contextPkg.GetRequestID(ctx)
	frames := make([]entity.Frame, len(images))
	degraded := 0

	for start := 0; start < len(images); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(images))

		failed := make([]bool, end-start)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				frames[i], failed[i-start] = s.detectFrame(gctx, timestamps[i], images[i])
				return nil
			})
		}
		_ = g.Wait()

		for _, f := range failed {
			if f {
				degraded++
			}
		}

		if end < len(images) && s.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.BatchPause):
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"frames":     len(frames),
		"degraded":   degraded,
	}).Info("Session inference finished")

	return frames, nil
}

// detectFrame returns an empty frame flagged as degraded when inference fails.
func (s *ppeService) detectFrame(ctx context.Context, timestamp float64, image []byte) (entity.Frame, bool) {
	requestID := contextPkg.GetRequestID(ctx)

	prepared, err := s.utils.PrepareImageForInference(image, s.cfg.MaxImageWidth, s.cfg.MaxImageHeight, s.cfg.ImageQuality)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"timestamp":  timestamp,
			"error":      err.Error(),
		}).Warn("Failed to prepare image, sending original")
		prepared = image
	}

	started := time.Now()
	persons, err := s.detector.DetectPersons(ctx, prepared)
	s.metrics.ObserveInference(time.Since(started), err)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"timestamp":  timestamp,
			"error":      err.Error(),
		}).Warn("Inference failed, using empty frame")
		return entity.EmptyFrame(timestamp), true
	}

	if persons == nil {
		persons = make([]entity.PersonDetection, 0)
	}
	return entity.Frame{Timestamp: timestamp, Persons: persons}, false
}
