package websocketPkg

import (
	"PPEGuard/internal/entity"
	"PPEGuard/pkg/rekognition"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultPPEDetectionURL = "ws://localhost:8000/api/v1/ppe/ws"

// IWebsocket is a client for a remote PPE inference service. The service receives one
// binary image per message and answers with a DetectProtectiveEquipment shaped JSON body.
type IWebsocket interface {
	DetectPersons(ctx context.Context, image []byte) ([]entity.PersonDetection, error)
	IsConnected() bool
	Reconnect() error
	CloseConnection()
}

type webSocketClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	exchange     sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	log          *logrus.Logger
}

func NewAIWebSocketClient(log *logrus.Logger) IWebsocket {
	url := os.Getenv("AI_PPE_DETECTION_URL")
	if url == "" {
		url = defaultPPEDetectionURL
	}

	client := newClient(url, log)
	go client.connectInBackground()

	return client
}

func newClient(url string, log *logrus.Logger) *webSocketClient {
	return &webSocketClient{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		log:          log,
	}
}

func (c *webSocketClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		c.log.WithFields(logrus.Fields{
			"url":   c.url,
			"error": err.Error(),
		}).Warn("[webSocketClient.connectInBackground] initial connection failed, will retry on demand")
		return
	}
	c.log.WithField("url", c.url).Info("[webSocketClient.connectInBackground] connected to PPE inference service")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return fmt.Errorf("URL for PPE detection not configured")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("[webSocketClient] failed to send pong")
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) CloseConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("[webSocketClient.keepAlive] ping failed, marking connection as dead")
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("not connected to PPE detection service")
	}

	return c.conn, nil
}

// dropConnection forgets conn if it is still the current one.
func (c *webSocketClient) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

// DetectPersons sends one image and waits for its detections. Calls are serialized over the
// single connection.
func (c *webSocketClient) DetectPersons(ctx context.Context, image []byte) ([]entity.PersonDetection, error) {
	c.exchange.Lock()
	defer c.exchange.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := c.getConnection()
	if err != nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to PPE detection service: %w", err)
		}
		conn, err = c.getConnection()
		if err != nil {
			return nil, err
		}
	}

	writeDeadline := c.deadline(ctx, c.writeTimeout)
	c.mu.Lock()
	conn.SetWriteDeadline(writeDeadline)
	err = conn.WriteMessage(websocket.BinaryMessage, image)
	c.mu.Unlock()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error sending PPE frame: %w", err)
	}

	conn.SetReadDeadline(c.deadline(ctx, c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error reading PPE response: %w", err)
	}

	c.mu.Lock()
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	c.mu.Unlock()

	persons, err := rekognition.DecodePayload(message)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling PPE response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"frame_size": len(image),
		"persons":    len(persons),
	}).Debug("[webSocketClient.DetectPersons] received PPE detections")

	return persons, nil
}

func (c *webSocketClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
