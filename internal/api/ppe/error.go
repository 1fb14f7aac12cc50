package ppe

import (
	"PPEGuard/pkg/response"
	"net/http"
)

var (
	ErrInvalidPayload       = response.NewError(http.StatusBadRequest, "invalid detection payload")
	ErrOutOfOrderFrames     = response.NewError(http.StatusBadRequest, "frames are not ordered by timestamp")
	ErrEmptySession         = response.NewError(http.StatusBadRequest, "session has no frames")
	ErrInvalidImage         = response.NewError(http.StatusBadRequest, "invalid image file")
	ErrTimestampMismatch    = response.NewError(http.StatusBadRequest, "timestamps do not match the number of images")
	ErrInvalidWindowTime    = response.NewError(http.StatusBadRequest, "window time must be a non-negative number of seconds")
	ErrSessionNotFound      = response.NewError(http.StatusNotFound, "session not found")
	ErrSessionFramesExpired = response.NewError(http.StatusNotFound, "session frames are no longer cached")
	ErrInferenceUnavailable = response.NewError(http.StatusBadGateway, "inference service unavailable")
	ErrInternalServerError  = response.NewError(http.StatusInternalServerError, "internal server error")
)
