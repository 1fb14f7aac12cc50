package metrics

import (
	"PPEGuard/internal/entity"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFrame(t *testing.T) {
	m := New()

	m.ObserveFrame(entity.AlarmSummary{PersonsEvaluated: 3, PersonsWithAlarm: 2, TotalMissingItems: 5})
	m.ObserveFrame(entity.AlarmSummary{PersonsEvaluated: 1})

	assert.Equal(t, uint64(2), m.FramesEvaluated.Load())
	assert.Equal(t, uint64(4), m.PersonsEvaluated.Load())
	assert.Equal(t, uint64(2), m.PersonsWithAlarm.Load())
	assert.Equal(t, uint64(5), m.MissingItems.Load())
}

func TestObserveInference(t *testing.T) {
	m := New()

	m.ObserveInference(20*time.Millisecond, nil)
	m.ObserveInference(time.Second, errors.New("timeout"))

	assert.Equal(t, uint64(1), m.InferenceFailures.Load())
	assert.Equal(t, 1, testutil.CollectAndCount(m.inferenceLatency))
}

func TestHandler(t *testing.T) {
	m := New()
	m.AlertsEmitted.Add(3)
	m.LiveConnections.Add(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.True(t, strings.Contains(text, "ppe_alerts_emitted_total 3"), text)
	assert.True(t, strings.Contains(text, "ppe_live_connections 1"), text)
	assert.True(t, strings.Contains(text, "ppe_inference_duration_seconds_bucket"), text)
}
