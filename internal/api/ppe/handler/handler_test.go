package ppeHandler

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	"PPEGuard/internal/middleware"
	"PPEGuard/pkg/metrics"
	ppePkg "PPEGuard/pkg/ppe"
	"PPEGuard/pkg/utils"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	gorilla "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engineService runs the real engine and keeps sessions in memory.
type engineService struct {
	mu       sync.Mutex
	sessions map[string]ppe.SessionResponse
	frames   map[string][]entity.Frame
	lastAt   float64
}

func newEngineService() *engineService {
	return &engineService{
		sessions: make(map[string]ppe.SessionResponse),
		frames:   make(map[string][]entity.Frame),
	}
}

func (s *engineService) EvaluateFrame(_ context.Context, frame entity.Frame) (ppe.EvaluateFrameResponse, error) {
	records := ppePkg.NewMapper(ppePkg.DefaultConfig()).MapFrame(frame)
	return ppe.EvaluateFrameResponse{Timestamp: frame.Timestamp, Records: records, Summary: ppePkg.Summarize(records)}, nil
}

func (s *engineService) CreateSession(ctx context.Context, name string, frames []entity.Frame) (ppe.SessionResponse, error) {
	result, err := ppePkg.Analyze(ctx, ppePkg.DefaultConfig(), frames)
	if err != nil {
		return ppe.SessionResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("session-%d", len(s.sessions)+1)
	resp := ppe.SessionResponse{
		ID:         id,
		Name:       name,
		Source:     entity.SessionSourceDetections.String(),
		FrameCount: len(result.Frames),
		AlertCount: len(result.Alerts),
		Duration:   result.Duration,
		Alerts:     result.Alerts,
	}
	s.sessions[id] = resp
	s.frames[id] = ppePkg.SortFrames(frames)
	return resp, nil
}

func (s *engineService) CreateImageSession(context.Context, string, []float64, [][]byte) (ppe.SessionResponse, error) {
	return ppe.SessionResponse{}, ppe.ErrInferenceUnavailable
}

func (s *engineService) GetSession(_ context.Context, id string) (ppe.SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.sessions[id]
	if !ok {
		return ppe.SessionResponse{}, ppe.ErrSessionNotFound
	}
	return resp, nil
}

func (s *engineService) ListSessions(_ context.Context, limit, offset int) (ppe.SessionListResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := ppe.SessionListResponse{Sessions: []ppe.SessionResponse{}, Limit: limit, Offset: offset}
	for _, resp := range s.sessions {
		list.Sessions = append(list.Sessions, resp)
	}
	return list, nil
}

func (s *engineService) GetWindow(_ context.Context, id string, at float64) (entity.WindowSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAt = at
	frames, ok := s.frames[id]
	if !ok {
		return entity.WindowSnapshot{}, ppe.ErrSessionNotFound
	}
	if at < 0 {
		return entity.WindowSnapshot{}, ppe.ErrInvalidWindowTime
	}
	return ppePkg.NewAggregator(ppePkg.DefaultConfig()).Snapshot(frames, at), nil
}

func (s *engineService) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ppe.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *engineService) NewLiveSession() *ppePkg.Session {
	return ppePkg.NewSession(ppePkg.DefaultConfig())
}

func (s *engineService) ProcessLiveFrame(_ context.Context, session *ppePkg.Session, frame entity.Frame) (ppePkg.MonitorUpdate, error) {
	records, err := session.Feed(frame)
	if err != nil {
		return ppePkg.MonitorUpdate{}, ppe.ErrOutOfOrderFrames
	}
	return ppePkg.MonitorUpdate{
		Timestamp: frame.Timestamp,
		Records:   records,
		Summary:   ppePkg.Summarize(records),
		Alerts:    session.Alerts(),
	}, nil
}

func (s *engineService) ProcessLiveImage(context.Context, *ppePkg.Session, float64, []byte) (ppePkg.MonitorUpdate, error) {
	return ppePkg.MonitorUpdate{}, ppe.ErrInferenceUnavailable
}

func newTestApp(t *testing.T) (*fiber.App, *engineService, *metrics.Metrics) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := newEngineService()
	m := metrics.New()
	mw := middleware.New(log)

	app := fiber.New()
	app.Use(mw.NewRequestIDMiddleware())
	New(log, validator.New(), mw, svc, utils.New(), m).Start(app.Group("/api/v1"))
	return app, svc, m
}

// bareHeadPayload is a detection payload with one person whose head has no equipment.
func bareHeadPayload(ts float64) string {
	return fmt.Sprintf(`{"timestamp":%g,"detection":{"Persons":[{"Id":1,"BodyParts":[{"Name":"HEAD","Confidence":99.5,"EquipmentDetections":[]}]}]}}`, ts)
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestEvaluateFrame(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/api/v1/ppe/frames/evaluate", bareHeadPayload(2))
	require.Equal(t, fiber.StatusOK, status, body)

	var resp ppe.EvaluateFrameResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Records, 1)
	assert.True(t, resp.Records[0].HasAlarm)
	assert.Equal(t, entity.EquipmentHelmet, resp.Records[0].Missing[0].CanonicalEquipmentType)
	assert.Equal(t, 2.0, resp.Timestamp)
}

func TestEvaluateFrameValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/api/v1/ppe/frames/evaluate", `{"timestamp":1}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "VALIDATION_ERROR")

	status, body = doJSON(t, app, "POST", "/api/v1/ppe/frames/evaluate", `{"timestamp":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "INVALID_PAYLOAD")
}

func TestSessionLifecycle(t *testing.T) {
	app, svc, _ := newTestApp(t)

	frames := make([]string, 0, 4)
	for _, ts := range []float64{3, 0, 1, 2} {
		frames = append(frames, bareHeadPayload(ts))
	}
	status, body := doJSON(t, app, "POST", "/api/v1/ppe/sessions", `{"name":"gate","frames":[`+strings.Join(frames, ",")+`]}`)
	require.Equal(t, fiber.StatusCreated, status, body)

	var created ppe.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	require.Len(t, created.Alerts, 1)
	assert.Equal(t, 4.0, created.Alerts[0].Duration)
	assert.Equal(t, 3.0, created.Duration)

	status, body = doJSON(t, app, "GET", "/api/v1/ppe/sessions/"+created.ID, "")
	require.Equal(t, fiber.StatusOK, status, body)

	status, body = doJSON(t, app, "GET", "/api/v1/ppe/sessions/"+created.ID+"/window?at=1.5", "")
	require.Equal(t, fiber.StatusOK, status, body)
	var snapshot entity.WindowSnapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snapshot))
	assert.Equal(t, 3, snapshot.FrameCount)
	assert.Equal(t, 1.5, svc.lastAt)

	status, _ = doJSON(t, app, "GET", "/api/v1/ppe/sessions/"+created.ID+"/window?at=soon", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = doJSON(t, app, "GET", "/api/v1/ppe/sessions?limit=5", "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Contains(t, body, created.ID)

	status, _ = doJSON(t, app, "GET", "/api/v1/ppe/sessions?limit=500", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, "DELETE", "/api/v1/ppe/sessions/"+created.ID, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body = doJSON(t, app, "GET", "/api/v1/ppe/sessions/"+created.ID, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, "SESSION_NOT_FOUND")
}

func TestCreateSessionRequiresFrames(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/api/v1/ppe/sessions", `{"name":"empty","frames":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "VALIDATION_ERROR")
}

func TestCreateImageSessionNoImages(t *testing.T) {
	app, _, _ := newTestApp(t)

	var buf bytes.Buffer
	buf.WriteString("--boundary\r\nContent-Disposition: form-data; name=\"name\"\r\n\r\ncam\r\n--boundary--\r\n")
	req := httptest.NewRequest("POST", "/api/v1/ppe/sessions/images", &buf)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParseTimestamps(t *testing.T) {
	got, err := parseTimestamps([]string{"0, 0.5", "1"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, got)

	_, err = parseTimestamps([]string{"0,x"})
	assert.Error(t, err)

	got, err = parseTimestamps(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLiveWebSocket(t *testing.T) {
	app, _, m := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	url := "ws://" + ln.Addr().String() + "/api/v1/ppe/live/ws"
	conn, resp, err := gorilla.DefaultDialer.Dial(url, http.Header{})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return m.LiveConnections.Load() == 1 }, time.Second, 10*time.Millisecond)

	var update ppePkg.MonitorUpdate
	for _, ts := range []float64{0, 1, 2} {
		require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(bareHeadPayload(ts))))
		update = ppePkg.MonitorUpdate{}
		require.NoError(t, conn.ReadJSON(&update))
	}
	require.Len(t, update.Alerts, 1)
	assert.Equal(t, 3.0, update.Alerts[0].Duration)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(bareHeadPayload(0.5))))
	var liveErr ppe.LiveErrorMessage
	require.NoError(t, conn.ReadJSON(&liveErr))
	assert.Equal(t, fiber.StatusBadRequest, liveErr.Code)

	require.NoError(t, conn.WriteMessage(gorilla.BinaryMessage, []byte{0xff, 0xd8}))
	liveErr = ppe.LiveErrorMessage{}
	require.NoError(t, conn.ReadJSON(&liveErr))
	assert.Equal(t, fiber.StatusBadGateway, liveErr.Code)

	require.NoError(t, conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return m.LiveConnections.Load() == 0 }, time.Second, 10*time.Millisecond)
}
