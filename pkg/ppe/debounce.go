package ppe

import (
	"PPEGuard/internal/entity"
	"errors"
	"sort"
)

var ErrOutOfOrder = errors.New("ppe: record is older than the previous record for the same person")

// KeyFunc extracts the identity a record is debounced under.
type KeyFunc[K comparable] func(entity.ComplianceRecord) K

func ByTrackingID(record entity.ComplianceRecord) int64 {
	return record.PersonID
}

type accumulator struct {
	startTime        float64
	consecutiveCount int
	lastFrameTime    float64
	source           entity.ComplianceRecord
}

// Debouncer tracks consecutive non-compliance per identity. Records for one identity must
// arrive in non-decreasing timestamp order. A Debouncer is owned by a single session and
// is not safe for concurrent use.
type Debouncer[K comparable] struct {
	cfg            Config
	requiredFrames int
	key            KeyFunc[K]
	accumulators   map[K]*accumulator
	lastSeen       map[K]float64
}

func NewDebouncer[K comparable](cfg Config, key KeyFunc[K]) *Debouncer[K] {
	cfg = cfg.Normalize()
	return &Debouncer[K]{
		cfg:            cfg,
		requiredFrames: cfg.RequiredFrames(),
		key:            key,
		accumulators:   make(map[K]*accumulator),
		lastSeen:       make(map[K]float64),
	}
}

// Process applies one record. An out-of-order record leaves the state untouched.
func (d *Debouncer[K]) Process(record entity.ComplianceRecord) error {
	k := d.key(record)
	if last, ok := d.lastSeen[k]; ok && record.Timestamp < last {
		return ErrOutOfOrder
	}
	d.lastSeen[k] = record.Timestamp

	if !record.HasAlarm {
		delete(d.accumulators, k)
		return nil
	}

	acc, ok := d.accumulators[k]
	if ok && record.Timestamp-acc.lastFrameTime <= d.cfg.MaxGap {
		acc.consecutiveCount++
		acc.lastFrameTime = record.Timestamp
		return nil
	}

	d.accumulators[k] = &accumulator{
		startTime:        record.Timestamp,
		consecutiveCount: 1,
		lastFrameTime:    record.Timestamp,
		source:           record,
	}
	return nil
}

func (d *Debouncer[K]) ProcessAll(records []entity.ComplianceRecord) error {
	for _, record := range records {
		if err := d.Process(record); err != nil {
			return err
		}
	}
	return nil
}

// Alerts emits one interval per accumulator that reached the required frame count,
// ordered by start time then person.
func (d *Debouncer[K]) Alerts() []entity.AlertInterval {
	alerts := make([]entity.AlertInterval, 0)
	for _, acc := range d.accumulators {
		if acc.consecutiveCount < d.requiredFrames {
			continue
		}
		alerts = append(alerts, entity.AlertInterval{
			PersonID:     acc.source.PersonID,
			StartTime:    acc.startTime,
			Duration:     float64(acc.consecutiveCount) * d.cfg.FrameInterval,
			SourceRecord: acc.source,
		})
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].StartTime != alerts[j].StartTime {
			return alerts[i].StartTime < alerts[j].StartTime
		}
		return alerts[i].PersonID < alerts[j].PersonID
	})
	return alerts
}

// Tracking is the number of identities currently accumulating.
func (d *Debouncer[K]) Tracking() int {
	return len(d.accumulators)
}

func (d *Debouncer[K]) Reset() {
	d.accumulators = make(map[K]*accumulator)
	d.lastSeen = make(map[K]float64)
}

// Consolidate keeps intervals first-fit by start time, dropping any interval that overlaps
// an already accepted one. Ranges are half-open.
func Consolidate(intervals []entity.AlertInterval) []entity.AlertInterval {
	sorted := make([]entity.AlertInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	accepted := make([]entity.AlertInterval, 0, len(sorted))
	for _, candidate := range sorted {
		overlapping := false
		for _, kept := range accepted {
			if candidate.Overlaps(kept) {
				overlapping = true
				break
			}
		}
		if !overlapping {
			accepted = append(accepted, candidate)
		}
	}
	return accepted
}
