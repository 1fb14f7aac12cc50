package ppeHandler

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/middleware"
	contextPkg "PPEGuard/pkg/context"
	"PPEGuard/pkg/log"
	"PPEGuard/pkg/response"
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// handleLiveWebSocket runs one live session per connection. Text messages carry a detection
// payload, binary messages an image that is sent to inference. All state is dropped on close.
func (h *PPEHandler) handleLiveWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx, cancel := context.WithCancel(contextPkg.WithRequestID(context.Background(), requestID))
	defer cancel()

	session := h.ppeService.NewLiveSession()
	started := time.Now()

	h.metrics.LiveConnections.Add(1)
	defer h.metrics.LiveConnections.Add(-1)

	log.WithRequestID(ctx).Info("Live PPE WebSocket client connected")
	defer func() {
		log.WithRequestID(ctx).WithField("frames", session.FrameCount()).Info("Live PPE WebSocket client disconnected")
		session.Reset()
	}()

	c.SetPingHandler(func(data string) error {
		h.log.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("Live PPE WebSocket error: %v", err)
			} else {
				h.log.Info("Live PPE WebSocket connection closed")
			}
			break
		}

		var result interface{}
		switch messageType {
		case websocket.TextMessage:
			var msg ppe.LiveFrameMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				result = liveError(ppe.ErrInvalidPayload)
				break
			}
			if err := h.validator.Struct(msg); err != nil {
				result = liveError(ppe.ErrInvalidPayload)
				break
			}

			update, err := h.ppeService.ProcessLiveFrame(ctx, session, msg.ToFrame())
			if err != nil {
				result = liveError(err)
				break
			}
			result = update
		case websocket.BinaryMessage:
			update, err := h.ppeService.ProcessLiveImage(ctx, session, time.Since(started).Seconds(), message)
			if err != nil {
				result = liveError(err)
				break
			}
			result = update
		default:
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(result); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}

func liveError(err error) ppe.LiveErrorMessage {
	return ppe.LiveErrorMessage{
		Error: err.Error(),
		Code:  response.StatusCode(err),
	}
}
