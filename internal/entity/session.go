package entity

import "time"

type AnalysisSession struct {
	ID         string
	Name       string
	Source     SessionSource
	FrameCount int
	AlertCount int
	Duration   float64
	ReportURL  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SessionSource uint8

const (
	SessionSourceUnknown    SessionSource = 0
	SessionSourceDetections SessionSource = 1
	SessionSourceImages     SessionSource = 2
	SessionSourceLive       SessionSource = 3
)

var SessionSourceMap = map[SessionSource]string{
	SessionSourceDetections: "detections",
	SessionSourceImages:     "images",
	SessionSourceLive:       "live",
}

func (s SessionSource) String() string {
	if name, ok := SessionSourceMap[s]; ok {
		return name
	}
	return "unknown"
}

func (s SessionSource) Value() uint8 {
	return uint8(s)
}

type StoredAlert struct {
	ID        string
	SessionID string
	Alert     AlertInterval
	CreatedAt time.Time
}
