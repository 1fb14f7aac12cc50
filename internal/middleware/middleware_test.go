package middleware

import (
	contextPkg "PPEGuard/pkg/context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRequestIDMiddleware(t *testing.T) {
	m := New(quietLogger())
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Len(t, string(body), 26)
	assert.Equal(t, string(body), resp.Header.Get(RequestIDKey))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, "client-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "client-id", string(body))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, "bad id\twith spaces")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Len(t, string(body), 26)
}

func TestRequestIDMiddleware_UserContext(t *testing.T) {
	app := fiber.New()
	app.Use(NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(contextPkg.GetRequestID(c.UserContext()))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDKey, "gate-7.cam_2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "gate-7.cam_2", string(body))
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("01HX3Z"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID(strings.Repeat("a", maxRequestIDLength+1)))
	assert.False(t, validRequestID("id\nforged log line"))
}

func TestRateLimiter(t *testing.T) {
	limits := map[string]limit{
		LimitImages:   {rate: 0, burst: 2},
		LimitEvaluate: {rate: 0, burst: 1},
	}
	m := &middleware{rateLimitter: newRateLimiter(limits, limit{rate: 0, burst: 1}), log: quietLogger()}
	app := fiber.New()
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	app.Get("/images", m.RateLimit(LimitImages), ok)
	app.Get("/evaluate", m.RateLimit(LimitEvaluate), ok)

	get := func(path string) int {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	codes := []int{get("/images"), get("/images"), get("/images")}
	assert.Equal(t, []int{fiber.StatusNoContent, fiber.StatusNoContent, fiber.StatusTooManyRequests}, codes)

	// each group has its own bucket for the same client
	assert.Equal(t, fiber.StatusNoContent, get("/evaluate"))
	assert.Equal(t, fiber.StatusTooManyRequests, get("/evaluate"))
}

func TestRateLimiter_UnknownGroupUsesFallback(t *testing.T) {
	r := newRateLimiter(defaultLimits, limit{rate: 3, burst: 7})

	limiter := r.limiterFor("reports", "10.0.0.1")
	assert.Equal(t, 7, limiter.Burst())
	assert.Same(t, limiter, r.limiterFor("reports", "10.0.0.1"))
	assert.NotSame(t, limiter, r.limiterFor("reports", "10.0.0.2"))
	assert.Equal(t, defaultLimits[LimitImages].burst, r.limiterFor(LimitImages, "10.0.0.1").Burst())
}

func TestSanitizeRequestBody(t *testing.T) {
	got := sanitizeRequestBody("/api/v1/ppe/sessions", []byte(`{"name":"gate","token":"abc","frames":[{},{},{}]}`))

	assert.True(t, strings.Contains(got, `"token":"[SECRET]"`), got)
	assert.True(t, strings.Contains(got, `"frames":"[3 items]"`), got)
	assert.True(t, strings.Contains(got, `"name":"gate"`), got)

	assert.Equal(t, "[non-JSON body]", sanitizeRequestBody("/", []byte("not json")))
}
