package ppe

import (
	"PPEGuard/internal/entity"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultMonitorInterval = 300 * time.Millisecond

var ErrMonitorRunning = errors.New("ppe: monitor already running")

// FrameSource yields the current camera image.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Detector runs PPE inference on one image.
type Detector interface {
	DetectPersons(ctx context.Context, image []byte) ([]entity.PersonDetection, error)
}

type MonitorUpdate struct {
	Timestamp float64                   `json:"timestamp"`
	Records   []entity.ComplianceRecord `json:"records"`
	Summary   entity.AlarmSummary       `json:"summary"`
	Alerts    []entity.AlertInterval    `json:"alerts"`

	// Degraded is set when inference failed and the frame was replaced by an empty one.
	Degraded bool `json:"degraded"`
}

type MonitorSink func(MonitorUpdate)

// Monitor samples a FrameSource on a fixed delay after each completed tick, while running.
type Monitor struct {
	source   FrameSource
	detector Detector
	session  *Session
	sink     MonitorSink
	interval time.Duration
	log      *logrus.Logger

	running atomic.Bool
	mu      sync.Mutex
	done    chan struct{}
	started time.Time
	now     func() time.Time
}

func NewMonitor(source FrameSource, detector Detector, cfg Config, interval time.Duration, sink MonitorSink, log *logrus.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		source:   source,
		detector: detector,
		session:  NewSession(cfg),
		sink:     sink,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Start launches the sampling loop. After a Stop it first waits for the previous loop to exit.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running.Load() {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	prev := m.done
	m.mu.Unlock()

	if prev != nil {
		<-prev
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another Start won the race while we waited
	if m.running.Load() || m.done != prev {
		return ErrMonitorRunning
	}

	m.done = make(chan struct{})
	m.started = m.now()
	m.session.Reset()
	m.running.Store(true)

	go m.loop(ctx, m.done)
	return nil
}

// Stop clears the run flag. The loop exits before its next tick.
func (m *Monitor) Stop() {
	m.running.Store(false)
}

func (m *Monitor) Running() bool {
	return m.running.Load()
}

// Wait blocks until the loop started by the last Start has exited.
func (m *Monitor) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.running.Store(false)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !m.running.Load() {
			return
		}

		m.tick(ctx)
		timer.Reset(m.interval)
	}
}

func (m *Monitor) tick(ctx context.Context) {
	image, err := m.source.Capture(ctx)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("[Monitor.tick] failed to capture frame")
		return
	}

	timestamp := m.now().Sub(m.started).Seconds()
	frame := entity.Frame{Timestamp: timestamp}
	degraded := false

	persons, err := m.detector.DetectPersons(ctx, image)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"timestamp": timestamp,
			"error":     err.Error(),
		}).Warn("[Monitor.tick] inference failed, using empty frame")
		frame = entity.EmptyFrame(timestamp)
		degraded = true
	} else {
		frame.Persons = persons
	}

	records, err := m.session.Feed(frame)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"timestamp": timestamp,
			"error":     err.Error(),
		}).Error("[Monitor.tick] failed to feed frame")
		return
	}

	if m.sink != nil {
		m.sink(MonitorUpdate{
			Timestamp: timestamp,
			Records:   records,
			Summary:   Summarize(records),
			Alerts:    m.session.Alerts(),
			Degraded:  degraded,
		})
	}
}
