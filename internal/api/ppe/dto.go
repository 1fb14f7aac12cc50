package ppe

import (
	"PPEGuard/internal/entity"
	ppePkg "PPEGuard/pkg/ppe"
	rekognitionPkg "PPEGuard/pkg/rekognition"

	"github.com/aws/aws-sdk-go/service/rekognition"
)

// FramePayload is one sampled frame with the raw inference payload for it.
type FramePayload struct {
	Timestamp *float64                                     `json:"timestamp" validate:"required,gte=0"`
	Detection *rekognition.DetectProtectiveEquipmentOutput `json:"detection" validate:"required"`
}

type EvaluateFrameRequest struct {
	FramePayload
}

type EvaluateFrameResponse struct {
	Timestamp float64                   `json:"timestamp"`
	Records   []entity.ComplianceRecord `json:"records"`
	Summary   entity.AlarmSummary       `json:"summary"`
}

type CreateSessionRequest struct {
	Name   string         `json:"name" validate:"omitempty,max=120"`
	Frames []FramePayload `json:"frames" validate:"required,min=1,max=20000,dive"`
}

type CreateImageSessionRequest struct {
	Name       string    `form:"name" validate:"omitempty,max=120"`
	Timestamps []float64 `validate:"omitempty,dive,gte=0"`
	Images     [][]byte  `validate:"required,min=1,max=600"`
}

type ListSessionsRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

type SessionResponse struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Source     string                 `json:"source"`
	FrameCount int                    `json:"frame_count"`
	AlertCount int                    `json:"alert_count"`
	Duration   float64                `json:"duration"`
	ReportURL  string                 `json:"report_url,omitempty"`
	CreatedAt  string                 `json:"created_at"`
	Alerts     []entity.AlertInterval `json:"alerts"`
	Frames     []ppePkg.FrameResult   `json:"frames,omitempty"`
	Summary    *entity.AlarmSummary   `json:"summary,omitempty"`
}

type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// LiveFrameMessage is a text message on the live websocket.
type LiveFrameMessage struct {
	FramePayload
}

type LiveErrorMessage struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// ToFrame decodes the payload into an engine frame.
func (p FramePayload) ToFrame() entity.Frame {
	var ts float64
	if p.Timestamp != nil {
		ts = *p.Timestamp
	}
	return entity.Frame{
		Timestamp: ts,
		Persons:   rekognitionPkg.DecodeOutput(p.Detection),
	}
}
