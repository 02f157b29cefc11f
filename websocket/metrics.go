package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	errTypeLabel = "error_type"
	msgTypeLabel = "msg_type"
)

var (
	wsConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from WebSocket connections.",
	}, []string{
		msgTypeLabel,
	})

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_bytes",
		Help: "The number of bytes received from WebSocket connections.",
	}, []string{
		msgTypeLabel,
	})

	wsReceiveError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occured while receiving a websocket message.",
	}, []string{
		errTypeLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	}, []string{
		msgTypeLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{
		msgTypeLabel,
	})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket message.",
	}, []string{
		errTypeLabel,
		msgTypeLabel,
	})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ws_msg_latency",
		Help:    "The time to process a WebSocket msg.",
		Buckets: prometheus.ExponentialBuckets(.001, 4, 8),
	}, []string{
		msgTypeLabel,
	})
)

// HandlerWithMetrics wraps a handler with Prometheus metrics about
// connections and exchanged messages.
func HandlerWithMetrics(h Handler) Handler {
	return &handlerWithMetrics{Handler: h}
}

type handlerWithMetrics struct {
	Handler
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	wsConnectedClients.Inc()
	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandleMsg(ctx context.Context, send Sender, msg Msg) error {
	start := time.Now()
	err := h.Handler.HandleMsg(ctx, send, msg)

	wsMsgLatency.
		With(prometheus.Labels{msgTypeLabel: string(msg.Type)}).
		Observe(time.Since(start).Seconds())
	return err
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedClients.Dec()
	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil {
			wsReceiveError.
				With(prometheus.Labels{errTypeLabel: errorType(err)}).
				Inc()
		} else {
			wsReceivedMsgs.
				With(prometheus.Labels{msgTypeLabel: string(msg.Type)}).
				Inc()
		}

		if n != 0 {
			wsReceivedBytes.
				With(prometheus.Labels{msgTypeLabel: string(msg.Type)}).
				Add(float64(n))
		}

		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() Sender {
	send := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := string(msg.Type)

		n, err := send(msg)
		if err != nil {
			wsSendError.
				With(prometheus.Labels{
					errTypeLabel: errorType(err),
					msgTypeLabel: msgType,
				}).
				Inc()
		}

		if n != 0 {
			wsSentMsgs.
				With(prometheus.Labels{msgTypeLabel: msgType}).
				Inc()
			wsSentBytes.
				With(prometheus.Labels{msgTypeLabel: msgType}).
				Add(float64(n))
		}

		return n, err
	}
}

func errorType(err error) string {
	if isClosed(err) {
		return "closed"
	}
	if t := errors.Type(err); t != "" {
		return t
	}
	return "unknown"
}
