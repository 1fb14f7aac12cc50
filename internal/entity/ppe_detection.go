package entity

import "strings"

type BodyPart string

const (
	BodyPartFace      BodyPart = "FACE"
	BodyPartHead      BodyPart = "HEAD"
	BodyPartLeftHand  BodyPart = "LEFT_HAND"
	BodyPartRightHand BodyPart = "RIGHT_HAND"
	BodyPartUnknown   BodyPart = "UNKNOWN"
)

// RequiredBodyParts is the display order used for missing items.
var RequiredBodyParts = []BodyPart{
	BodyPartFace,
	BodyPartHead,
	BodyPartLeftHand,
	BodyPartRightHand,
}

func ParseBodyPart(raw string) BodyPart {
	switch BodyPart(strings.ToUpper(strings.TrimSpace(raw))) {
	case BodyPartFace:
		return BodyPartFace
	case BodyPartHead:
		return BodyPartHead
	case BodyPartLeftHand:
		return BodyPartLeftHand
	case BodyPartRightHand:
		return BodyPartRightHand
	default:
		return BodyPartUnknown
	}
}

func (b BodyPart) IsKnown() bool {
	return b != BodyPartUnknown && b != ""
}

type EquipmentType string

const (
	EquipmentMask         EquipmentType = "MASK"
	EquipmentFaceCover    EquipmentType = "FACE_COVER"
	EquipmentHelmet       EquipmentType = "HELMET"
	EquipmentHeadCover    EquipmentType = "HEAD_COVER"
	EquipmentGlove        EquipmentType = "GLOVE"
	EquipmentHandCover    EquipmentType = "HAND_COVER"
	EquipmentUnrecognized EquipmentType = "UNRECOGNIZED"
)

func ParseEquipmentType(raw string) EquipmentType {
	switch EquipmentType(strings.ToUpper(strings.TrimSpace(raw))) {
	case EquipmentMask:
		return EquipmentMask
	case EquipmentFaceCover:
		return EquipmentFaceCover
	case EquipmentHelmet:
		return EquipmentHelmet
	case EquipmentHeadCover:
		return EquipmentHeadCover
	case EquipmentGlove:
		return EquipmentGlove
	case EquipmentHandCover:
		return EquipmentHandCover
	default:
		return EquipmentUnrecognized
	}
}

// Rect is a bounding box in ratios of the image size.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type EquipmentDetection struct {
	RawType          string        `json:"raw_type"`
	Type             EquipmentType `json:"type"`
	Confidence       float64       `json:"confidence"`
	Covers           bool          `json:"covers"`
	CoversConfidence float64       `json:"covers_confidence"`
	Box              Rect          `json:"box"`
}

type BodyPartDetection struct {
	Name                BodyPart             `json:"name"`
	DetectionConfidence float64              `json:"detection_confidence"`
	Equipment           []EquipmentDetection `json:"equipment"`
}

type PersonDetection struct {
	TrackingID int64               `json:"tracking_id"`
	Box        Rect                `json:"box"`
	BodyParts  []BodyPartDetection `json:"body_parts"`
}

type Frame struct {
	Timestamp float64           `json:"timestamp"`
	Persons   []PersonDetection `json:"persons"`
}

// EmptyFrame stands in for a frame whose inference call failed.
func EmptyFrame(timestamp float64) Frame {
	return Frame{Timestamp: timestamp, Persons: []PersonDetection{}}
}

type ResolvedEquipment struct {
	BodyPart           BodyPart      `json:"body_part"`
	BodyPartLabel      string        `json:"body_part_label"`
	Type               EquipmentType `json:"type"`
	TypeLabel          string        `json:"type_label"`
	Confidence         float64       `json:"confidence"`
	BodyPartConfidence float64       `json:"body_part_confidence"`
	Covers             bool          `json:"covers"`
	CoversConfidence   float64       `json:"covers_confidence"`
	Box                Rect          `json:"box"`
}

type MissingItem struct {
	BodyPart               BodyPart      `json:"body_part"`
	BodyPartLabel          string        `json:"body_part_label"`
	CanonicalEquipmentType EquipmentType `json:"canonical_equipment_type"`
	TypeLabel              string        `json:"type_label"`
}

type ComplianceRecord struct {
	PersonID  int64               `json:"person_id"`
	Timestamp float64             `json:"timestamp"`
	Box       Rect                `json:"box"`
	Present   []ResolvedEquipment `json:"present"`
	Missing   []MissingItem       `json:"missing"`
	HasAlarm  bool                `json:"has_alarm"`
}

type AlertInterval struct {
	PersonID     int64            `json:"person_id"`
	StartTime    float64          `json:"start_time"`
	Duration     float64          `json:"duration"`
	SourceRecord ComplianceRecord `json:"source_record"`
}

// End is the exclusive end of the half-open range [StartTime, End).
func (a AlertInterval) End() float64 {
	return a.StartTime + a.Duration
}

func (a AlertInterval) Overlaps(other AlertInterval) bool {
	return a.StartTime < other.End() && other.StartTime < a.End()
}

type WindowPerson struct {
	PersonID       int64                        `json:"person_id"`
	AppearCount    int                          `json:"appear_count"`
	EquipmentUnion map[BodyPart][]EquipmentType `json:"equipment_union"`
	Coverage       map[BodyPart]bool            `json:"coverage"`
}

type WindowSnapshot struct {
	WindowStart float64        `json:"window_start"`
	WindowEnd   float64        `json:"window_end"`
	FrameCount  int            `json:"frame_count"`
	Persons     []WindowPerson `json:"persons"`
}

type AlarmSummary struct {
	PersonsEvaluated  int `json:"persons_evaluated"`
	PersonsWithAlarm  int `json:"persons_with_alarm"`
	TotalMissingItems int `json:"total_missing_items"`
}

func (s AlarmSummary) Compliant() bool {
	return s.PersonsWithAlarm == 0
}
