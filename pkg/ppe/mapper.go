package ppe

import (
	"PPEGuard/internal/entity"
	"math"
)

// Mapper turns the raw detections of one person in one frame into a ComplianceRecord.
// It holds no state between calls.
type Mapper struct {
	cfg   Config
	vocab Vocabulary
}

func NewMapper(cfg Config) *Mapper {
	cfg = cfg.Normalize()
	return &Mapper{
		cfg:   cfg,
		vocab: NewVocabulary(cfg.Locale),
	}
}

func (m *Mapper) Map(timestamp float64, person entity.PersonDetection) entity.ComplianceRecord {
	satisfied := make(map[entity.BodyPart]bool, len(entity.RequiredBodyParts))
	present := make([]entity.ResolvedEquipment, 0)

	// Threshold on raw confidences; only the displayed values are floored.
	for _, part := range person.BodyParts {
		if !part.Name.IsKnown() {
			continue
		}
		for _, eq := range part.Equipment {
			if eq.Confidence < m.cfg.ConfidenceThreshold {
				continue
			}

			equipmentType := eq.Type
			if equipmentType == "" {
				equipmentType = entity.ParseEquipmentType(eq.RawType)
			}

			label := m.vocab.EquipmentLabel(equipmentType, rawOrType(eq, equipmentType))
			if Satisfies(part.Name, equipmentType) {
				satisfied[part.Name] = true
				label = m.vocab.Resolve(part.Name, string(equipmentType)).Label
			}

			present = append(present, entity.ResolvedEquipment{
				BodyPart:           part.Name,
				BodyPartLabel:      m.vocab.BodyPartLabel(part.Name),
				Type:               equipmentType,
				TypeLabel:          label,
				Confidence:         FormatPercentage(eq.Confidence),
				BodyPartConfidence: FormatPercentage(part.DetectionConfidence),
				Covers:             eq.Covers,
				CoversConfidence:   FormatPercentage(eq.CoversConfidence),
				Box:                eq.Box,
			})
		}
	}

	missing := make([]entity.MissingItem, 0)
	for _, bodyPart := range entity.RequiredBodyParts {
		if satisfied[bodyPart] {
			continue
		}
		canonical, _ := CanonicalType(bodyPart)
		missing = append(missing, entity.MissingItem{
			BodyPart:               bodyPart,
			BodyPartLabel:          m.vocab.BodyPartLabel(bodyPart),
			CanonicalEquipmentType: canonical,
			TypeLabel:              m.vocab.EquipmentLabel(canonical, string(canonical)),
		})
	}

	return entity.ComplianceRecord{
		PersonID:  person.TrackingID,
		Timestamp: timestamp,
		Box:       person.Box,
		Present:   present,
		Missing:   missing,
		HasAlarm:  len(missing) > 0,
	}
}

// MapFrame maps every person of the frame, keeping detection order.
func (m *Mapper) MapFrame(frame entity.Frame) []entity.ComplianceRecord {
	records := make([]entity.ComplianceRecord, 0, len(frame.Persons))
	for _, person := range frame.Persons {
		records = append(records, m.Map(frame.Timestamp, person))
	}
	return records
}

// FormatPercentage floors a confidence to one decimal for display.
func FormatPercentage(confidence float64) float64 {
	return math.Floor(confidence*10) / 10
}

func rawOrType(eq entity.EquipmentDetection, equipmentType entity.EquipmentType) string {
	if eq.RawType != "" {
		return eq.RawType
	}
	return string(equipmentType)
}
