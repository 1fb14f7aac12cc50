package ppe

import (
	"PPEGuard/internal/entity"
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

type FrameResult struct {
	Timestamp float64                   `json:"timestamp"`
	Records   []entity.ComplianceRecord `json:"records"`
	Summary   entity.AlarmSummary       `json:"summary"`
}

type Result struct {
	Frames  []FrameResult           `json:"frames"`
	Alerts  []entity.AlertInterval  `json:"alerts"`
	Windows []entity.WindowSnapshot `json:"windows"`
	Summary entity.AlarmSummary     `json:"summary"`

	// Duration is the timestamp of the last frame.
	Duration float64 `json:"duration"`
}

// Session owns the engine state of one processing session. Frames must be fed in
// timestamp order. Not safe for concurrent use.
type Session struct {
	mapper     *Mapper
	debouncer  *Debouncer[int64]
	aggregator *Aggregator

	// frames holds only the current and previous window; fed counts every accepted frame.
	frames []entity.Frame
	fed    int
	last   float64
}

func NewSession(cfg Config) *Session {
	cfg = cfg.Normalize()
	return &Session{
		mapper:     NewMapper(cfg),
		debouncer:  NewDebouncer[int64](cfg, ByTrackingID),
		aggregator: NewAggregator(cfg),
		frames:     make([]entity.Frame, 0),
	}
}

// Feed maps the frame and advances the debouncer. A frame older than the last one is rejected.
func (s *Session) Feed(frame entity.Frame) ([]entity.ComplianceRecord, error) {
	if s.fed > 0 && frame.Timestamp < s.last {
		return nil, ErrOutOfOrder
	}

	records := s.mapper.MapFrame(frame)
	if err := s.debouncer.ProcessAll(records); err != nil {
		return nil, err
	}
	s.frames = append(s.frames, frame)
	s.fed++
	s.last = frame.Timestamp
	s.prune()
	return records, nil
}

// prune drops frames older than the window before the one holding the latest frame.
func (s *Session) prune() {
	start, _ := s.aggregator.Bounds(s.last)
	cutoff := start - s.aggregator.size

	i := 0
	for i < len(s.frames) && s.frames[i].Timestamp < cutoff {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(s.frames, s.frames[i:])
	clear(s.frames[n:])
	s.frames = s.frames[:n]
}

// Alerts returns the consolidated alerts for everything fed so far.
func (s *Session) Alerts() []entity.AlertInterval {
	return Consolidate(s.debouncer.Alerts())
}

// Window snapshots the window containing at. Only the window of the latest frame and the
// one before it are retained, so older windows come back with fewer frames.
func (s *Session) Window(at float64) entity.WindowSnapshot {
	return s.aggregator.Snapshot(s.frames, at)
}

// FrameCount is the number of frames accepted since the last Reset.
func (s *Session) FrameCount() int {
	return s.fed
}

func (s *Session) RetainedFrames() int {
	return len(s.frames)
}

func (s *Session) Reset() {
	s.debouncer.Reset()
	s.frames = make([]entity.Frame, 0)
	s.fed = 0
	s.last = 0
}

// SortFrames returns a copy of frames ordered by timestamp, keeping arrival order for ties.
func SortFrames(frames []entity.Frame) []entity.Frame {
	sorted := make([]entity.Frame, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return sorted
}

// Analyze runs a whole recorded session. The debounce and window reducers run concurrently
// over the sorted frames and stop between frames when ctx is cancelled.
func Analyze(ctx context.Context, cfg Config, frames []entity.Frame) (*Result, error) {
	sorted := SortFrames(frames)
	session := NewSession(cfg)

	var (
		frameResults []FrameResult
		windows      []entity.WindowSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		frameResults = make([]FrameResult, 0, len(sorted))
		for _, frame := range sorted {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := session.Feed(frame)
			if err != nil {
				return err
			}
			frameResults = append(frameResults, FrameResult{
				Timestamp: frame.Timestamp,
				Records:   records,
				Summary:   Summarize(records),
			})
		}
		return nil
	})
	g.Go(func() error {
		var err error
		windows, err = session.aggregator.Timeline(gctx, sorted)
		return err
	})
	if err := g.Wait(); err != nil {
		session.Reset()
		return nil, err
	}

	result := &Result{
		Frames:  frameResults,
		Alerts:  session.Alerts(),
		Windows: windows,
	}
	for _, fr := range frameResults {
		result.Summary.PersonsEvaluated += fr.Summary.PersonsEvaluated
		result.Summary.PersonsWithAlarm += fr.Summary.PersonsWithAlarm
		result.Summary.TotalMissingItems += fr.Summary.TotalMissingItems
	}
	if n := len(sorted); n > 0 {
		result.Duration = sorted[n-1].Timestamp
	}
	return result, nil
}
