package middleware

import (
	"PPEGuard/pkg/response"
	"net/http"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

// Route groups with their own buckets per client IP.
const (
	LimitEvaluate = "evaluate"
	LimitSessions = "sessions"
	LimitImages   = "images"
)

type limit struct {
	rate  rate.Limit
	burst int
}

var defaultLimits = map[string]limit{
	LimitEvaluate: {rate: 50, burst: 100},
	LimitSessions: {rate: 20, burst: 40},
	LimitImages:   {rate: 1, burst: 3},
}

type rateLimiter struct {
	limits   map[string]limit
	fallback limit
	buckets  map[string]*rate.Limiter
	mutex    sync.Mutex
}

func newRateLimiter(limits map[string]limit, fallback limit) *rateLimiter {
	return &rateLimiter{
		limits:   limits,
		fallback: fallback,
		buckets:  make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the bucket of one client within one route group.
func (r *rateLimiter) limiterFor(group, ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := group + "|" + ip
	limiter, ok := r.buckets[key]
	if !ok {
		l, known := r.limits[group]
		if !known {
			l = r.fallback
		}
		limiter = rate.NewLimiter(l.rate, l.burst)
		r.buckets[key] = limiter
	}
	return limiter
}

func (m *middleware) RateLimit(group string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		clientIP := ctx.IP()
		limiter := m.rateLimitter.limiterFor(group, clientIP)

		if !limiter.Allow() {
			m.log.WithFields(logrus.Fields{
				"ip":         clientIP,
				"group":      group,
				"request_id": m.GetRequestID(ctx),
			}).Warn("Rate limit exceeded")

			if limiter.Limit() > 0 {
				ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(1/float64(limiter.Limit()))+1))
			}
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": ErrTooManyRequests.Error(),
				"code":  "RATE_LIMITED",
			})
		}

		return ctx.Next()
	}
}
