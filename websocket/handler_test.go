package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/yggdrasil/generator"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T, idleTimeout time.Duration) string {
	g := &generator.Generator{}

	s := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		h := HandlerWithMetrics(&StreamHandler{
			Generator:         g,
			ClientIdleTimeout: idleTimeout,
		})
		defer h.Close()

		Handle(context.Background(), conn, h)
	}))
	t.Cleanup(s.Close)

	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamHandlerGrow(t *testing.T) {
	conn := dial(t, newTestServer(t, time.Minute))
	send := JSONSender(conn)
	receive := JSONReceiver(conn)

	_, err := send(Msg{
		Type:   MsgTypeGrowRequest,
		Config: json.RawMessage(`{"seed":7}`),
	})
	require.NoError(t, err)

	var layers []Msg
	for {
		msg, _, err := receive()
		require.NoError(t, err)

		if msg.Type != MsgTypeLayer {
			require.Equal(t, MsgTypeSummary, msg.Type)
			require.NotNil(t, msg.Summary)
			require.Equal(t, uint32(7), msg.Summary.Seed)
			require.NotEmpty(t, msg.Summary.RunID)
			require.Len(t, layers, msg.Summary.Layers)
			require.Equal(t, msg.Summary.NodeCount, layers[len(layers)-1].Layer.NodeCount)
			break
		}

		require.NotNil(t, msg.Layer)
		require.Equal(t, len(layers), msg.Layer.Index)
		layers = append(layers, msg)
	}
}

func TestStreamHandlerErrors(t *testing.T) {
	tests := []struct {
		name    string
		msg     Msg
		errType string
	}{
		{
			name:    "unknown message",
			msg:     Msg{Type: "ping"},
			errType: ErrTypeUnknownMsg,
		},
		{
			name: "malformed config",
			msg: Msg{
				Type:   MsgTypeGrowRequest,
				Config: json.RawMessage(`"seed"`),
			},
			errType: models.ErrTypeInvalidConfig,
		},
		{
			name: "invalid config",
			msg: Msg{
				Type:   MsgTypeGrowRequest,
				Config: json.RawMessage(`{"radiusDecay":2}`),
			},
			errType: models.ErrTypeInvalidConfig,
		},
	}

	url := newTestServer(t, time.Minute)

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conn := dial(t, url)

			_, err := JSONSender(conn)(test.msg)
			require.NoError(t, err)

			msg, _, err := JSONReceiver(conn)()
			require.NoError(t, err)
			require.Equal(t, MsgTypeError, msg.Type)
			require.NotNil(t, msg.Error)
			require.Equal(t, test.errType, msg.Error.Type)
			require.NotEmpty(t, msg.Error.Message)
		})
	}
}

func TestHandleIdleTimeout(t *testing.T) {
	conn := dial(t, newTestServer(t, time.Millisecond*50))

	_, _, err := JSONReceiver(conn)()
	require.Error(t, err)
}

func TestHandleContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		defer close(done)
		Handle(ctx, conn, &StreamHandler{ClientIdleTimeout: time.Minute})
	}))
	defer s.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(s.URL, "http"))
	cancel()

	_, _, err := JSONReceiver(conn)()
	require.Error(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return")
	}
}
