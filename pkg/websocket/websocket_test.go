package websocketPkg

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ppeResponse = `{"Persons":[{"Id":2,"BodyParts":[{"Name":"HEAD","Confidence":99,"EquipmentDetections":[{"Type":"HELMET","Confidence":97}]}]}]}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newInferenceServer answers every binary frame with reply, or closes on an empty frame.
func newInferenceServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.BinaryMessage || len(msg) == 0 {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDetectPersons(t *testing.T) {
	srv := newInferenceServer(t, ppeResponse)
	client := newClient(wsURL(srv), quietLogger())
	defer client.CloseConnection()

	assert.False(t, client.IsConnected())

	persons, err := client.DetectPersons(context.Background(), []byte{0xFF, 0xD8, 0xFF})
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, int64(2), persons[0].TrackingID)
	assert.True(t, client.IsConnected())

	// the connection is reused
	persons, err = client.DetectPersons(context.Background(), []byte{0xFF})
	require.NoError(t, err)
	assert.Len(t, persons, 1)
}

func TestDetectPersons_BadPayload(t *testing.T) {
	srv := newInferenceServer(t, `{"Persons": 12}`)
	client := newClient(wsURL(srv), quietLogger())
	defer client.CloseConnection()

	_, err := client.DetectPersons(context.Background(), []byte{1})
	assert.Error(t, err)
}

func TestDetectPersons_ServerClosesConnection(t *testing.T) {
	srv := newInferenceServer(t, ppeResponse)
	client := newClient(wsURL(srv), quietLogger())
	defer client.CloseConnection()

	_, err := client.DetectPersons(context.Background(), []byte{})
	assert.Error(t, err)
	assert.False(t, client.IsConnected())

	_, err = client.DetectPersons(context.Background(), []byte{1})
	assert.NoError(t, err)
}

func TestDetectPersons_Unreachable(t *testing.T) {
	client := newClient("ws://127.0.0.1:1/ppe", quietLogger())

	_, err := client.DetectPersons(context.Background(), []byte{1})
	assert.Error(t, err)
}

func TestDetectPersons_CancelledContext(t *testing.T) {
	client := newClient("ws://127.0.0.1:1/ppe", quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.DetectPersons(ctx, []byte{1})
	assert.ErrorIs(t, err, context.Canceled)
}
