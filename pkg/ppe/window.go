package ppe

import (
	"PPEGuard/internal/entity"
	"context"
	"math"
	"sort"
)

// Aggregator builds majority-vote snapshots over fixed time windows.
//
// A person is kept when seen in a strict majority of the window's frames, and is then
// credited with every equipment type seen on them anywhere in the window.
type Aggregator struct {
	size          float64
	minConfidence float64
}

func NewAggregator(cfg Config) *Aggregator {
	cfg = cfg.Normalize()
	return &Aggregator{
		size:          cfg.WindowSize,
		minConfidence: cfg.WindowMinConfidence,
	}
}

// Bounds returns the half-open window [start, end) containing at.
func (a *Aggregator) Bounds(at float64) (float64, float64) {
	start := math.Floor(at/a.size) * a.size
	return start, start + a.size
}

type windowEntry struct {
	person *entity.WindowPerson
	seen   map[entity.BodyPart]map[entity.EquipmentType]struct{}
}

func (a *Aggregator) Snapshot(frames []entity.Frame, at float64) entity.WindowSnapshot {
	start, end := a.Bounds(at)
	inWindow := make([]entity.Frame, 0)
	for _, frame := range frames {
		if frame.Timestamp >= start && frame.Timestamp < end {
			inWindow = append(inWindow, frame)
		}
	}
	return a.aggregate(inWindow, start, end)
}

// aggregate builds the snapshot of [start, end) from frames already known to belong to it.
func (a *Aggregator) aggregate(frames []entity.Frame, start, end float64) entity.WindowSnapshot {
	snapshot := entity.WindowSnapshot{
		WindowStart: start,
		WindowEnd:   end,
		FrameCount:  len(frames),
		Persons:     make([]entity.WindowPerson, 0),
	}

	entries := make(map[int64]*windowEntry)
	for _, frame := range frames {
		for _, person := range frame.Persons {
			entry, ok := entries[person.TrackingID]
			if !ok {
				entry = &windowEntry{
					person: &entity.WindowPerson{
						PersonID:       person.TrackingID,
						EquipmentUnion: make(map[entity.BodyPart][]entity.EquipmentType),
					},
					seen: make(map[entity.BodyPart]map[entity.EquipmentType]struct{}),
				}
				entries[person.TrackingID] = entry
			}
			entry.person.AppearCount++
			a.union(entry, person)
		}
	}

	minFrames := int(math.Ceil(float64(snapshot.FrameCount) / 2))
	for _, entry := range entries {
		if entry.person.AppearCount <= minFrames {
			continue
		}
		entry.person.Coverage = coverage(entry.person.EquipmentUnion)
		snapshot.Persons = append(snapshot.Persons, *entry.person)
	}
	sort.Slice(snapshot.Persons, func(i, j int) bool {
		return snapshot.Persons[i].PersonID < snapshot.Persons[j].PersonID
	})

	return snapshot
}

// Timeline computes one snapshot per window from the first to the last frame.
// frames must be sorted by timestamp.
func (a *Aggregator) Timeline(ctx context.Context, frames []entity.Frame) ([]entity.WindowSnapshot, error) {
	snapshots := make([]entity.WindowSnapshot, 0)
	if len(frames) == 0 {
		return snapshots, nil
	}

	// Window edges come from an integer index so every frame lands in exactly one window.
	index := math.Floor(frames[0].Timestamp / a.size)
	lo := 0
	for lo < len(frames) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := index * a.size
		end := (index + 1) * a.size
		hi := lo
		for hi < len(frames) && frames[hi].Timestamp < end {
			hi++
		}
		snapshots = append(snapshots, a.aggregate(frames[lo:hi], start, end))
		lo = hi
		index++
	}
	return snapshots, nil
}

func (a *Aggregator) union(entry *windowEntry, person entity.PersonDetection) {
	for _, part := range person.BodyParts {
		if !part.Name.IsKnown() {
			continue
		}
		seen, ok := entry.seen[part.Name]
		if !ok {
			seen = make(map[entity.EquipmentType]struct{})
			entry.seen[part.Name] = seen
			entry.person.EquipmentUnion[part.Name] = make([]entity.EquipmentType, 0)
		}
		for _, eq := range part.Equipment {
			if eq.Confidence < a.minConfidence {
				continue
			}
			equipmentType := eq.Type
			if equipmentType == "" {
				equipmentType = entity.ParseEquipmentType(eq.RawType)
			}
			if equipmentType == entity.EquipmentUnrecognized {
				continue
			}
			if _, dup := seen[equipmentType]; dup {
				continue
			}
			seen[equipmentType] = struct{}{}
			entry.person.EquipmentUnion[part.Name] = append(entry.person.EquipmentUnion[part.Name], equipmentType)
		}
	}
}

func coverage(union map[entity.BodyPart][]entity.EquipmentType) map[entity.BodyPart]bool {
	out := make(map[entity.BodyPart]bool, len(entity.RequiredBodyParts))
	for _, bodyPart := range entity.RequiredBodyParts {
		out[bodyPart] = false
		for _, equipmentType := range union[bodyPart] {
			if Satisfies(bodyPart, equipmentType) {
				out[bodyPart] = true
				break
			}
		}
	}
	return out
}
