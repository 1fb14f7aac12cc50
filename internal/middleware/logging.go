package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Detection payloads are large and already summarized in the response.
var bulkyFields = []string{"detection", "frames"}

func LoggerConfig(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		logFields := logrus.Fields{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    latency.Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get("User-Agent"),
			"response_size": len(c.Response().Body()),
		}

		if body := c.Request().Body(); len(body) > 0 && !strings.HasPrefix(string(c.Request().Header.ContentType()), "multipart/") {
			logFields["request_body"] = sanitizeRequestBody(c.Path(), body)
		}

		entry := logger.WithFields(logFields)
		if status >= 500 {
			entry.Error("Server error")
		} else if status >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Success")
		}

		return err
	}
}

func sanitizeRequestBody(path string, body []byte) string {
	var jsonBody map[string]interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	sensitiveFields := []string{
		"password", "token", "secret", "key", "auth",
		"credential", "authorization",
	}

	for _, field := range sensitiveFields {
		if _, exists := jsonBody[field]; exists {
			jsonBody[field] = "[SECRET]"
		}
	}

	if strings.Contains(path, "/ppe/") {
		for _, field := range bulkyFields {
			if value, exists := jsonBody[field]; exists {
				jsonBody[field] = summarizeValue(value)
			}
		}
	}

	sanitized, err := json.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}

func summarizeValue(value interface{}) string {
	switch v := value.(type) {
	case []interface{}:
		return "[" + strconv.Itoa(len(v)) + " items]"
	case map[string]interface{}:
		return "[object]"
	default:
		return "[omitted]"
	}
}
