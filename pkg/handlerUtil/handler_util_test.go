package handlerUtil

import (
	"PPEGuard/internal/api/ppe"
	ppePkg "PPEGuard/pkg/ppe"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return h.Handle(c, "req-1", err, c.Path(), "test")
	})

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, testErr)

	var body ErrorResponse
	raw, _ := io.ReadAll(resp.Body)
	if strings.HasPrefix(string(raw), "{") {
		require.NoError(t, jsoniter.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestHandle_ResponseError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		want     string
	}{
		{ppe.ErrSessionNotFound, fiber.StatusNotFound, "SESSION_NOT_FOUND"},
		{ppe.ErrInvalidWindowTime, fiber.StatusBadRequest, "INVALID_WINDOW_TIME"},
		{fmt.Errorf("detect: %w", ppe.ErrInferenceUnavailable), fiber.StatusBadGateway, "INFERENCE_UNAVAILABLE"},
		{ppe.ErrInternalServerError, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			status, body := handle(t, tt.err)
			assert.Equal(t, tt.wantCode, status)
			assert.Equal(t, tt.want, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandle_EngineOutOfOrder(t *testing.T) {
	status, body := handle(t, fmt.Errorf("feed: %w", ppePkg.ErrOutOfOrder))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "OUT_OF_ORDER_FRAMES", body.Code)
}

func TestHandle_Timeout(t *testing.T) {
	status, _ := handle(t, context.DeadlineExceeded)
	assert.Equal(t, fiber.StatusRequestTimeout, status)

	status, _ = handle(t, context.Canceled)
	assert.Equal(t, fiber.StatusRequestTimeout, status)
}

func TestHandle_FiberError(t *testing.T) {
	status, body := handle(t, fiber.NewError(fiber.StatusUnprocessableEntity, "bad form"))

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "bad form", body.Error)
}

func TestHandle_UnexpectedError(t *testing.T) {
	status, body := handle(t, errors.New("disk on fire"))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, body.Code)
	assert.True(t, strings.HasPrefix(body.Details, "trace_id: "), body.Details)
	assert.NotContains(t, body.Error, "disk on fire")
}
