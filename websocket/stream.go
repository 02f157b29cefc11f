package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/yggdrasil/generator"
	"github.com/aukilabs/yggdrasil/models"
	"github.com/aukilabs/yggdrasil/network"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	// ErrTypeUnknownMsg is the error type sent when a client sends a message
	// that is not handled.
	ErrTypeUnknownMsg = "unknown-msg"
)

// Summary describes a grown network.
type Summary struct {
	RunID     string           `json:"runId"`
	Seed      uint32           `json:"seed"`
	NodeCount int              `json:"nodeCount"`
	Layers    int              `json:"layers"`
	Depth     float64          `json:"depth"`
	Center    [3]float64       `json:"center"`
	Attempts  network.Attempts `json:"attempts"`
	Duration  time.Duration    `json:"duration"`
}

// Error describes why a request failed.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StreamHandler grows the networks requested by a client and streams the
// growth progress, one message per layer followed by a summary.
type StreamHandler struct {
	Generator         *generator.Generator
	ClientIdleTimeout time.Duration

	conn     *websocket.Conn
	clientID string
}

func (h *StreamHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn
	h.clientID = uuid.NewString()
}

func (h *StreamHandler) HandleMsg(ctx context.Context, send Sender, msg Msg) error {
	switch msg.Type {
	case MsgTypeGrowRequest:
		return h.handleGrow(ctx, send, msg)

	default:
		return sendError(send, ErrTypeUnknownMsg, "unknown message type: "+string(msg.Type))
	}
}

func (h *StreamHandler) handleGrow(ctx context.Context, send Sender, msg Msg) error {
	c := models.DefaultConfiguration()
	if len(msg.Config) != 0 {
		if err := json.Unmarshal(msg.Config, &c); err != nil {
			return sendError(send, models.ErrTypeInvalidConfig, "invalid config json")
		}
	}

	var sendErr error
	n, err := h.Generator.Stream(ctx, c, func(l network.Layer) {
		if sendErr == nil {
			_, sendErr = send(Msg{Type: MsgTypeLayer, Layer: &l})
		}
	})
	if sendErr != nil {
		return sendErr
	}

	switch {
	case err == nil:

	case errors.IsType(err, models.ErrTypeInvalidConfig):
		return sendError(send, models.ErrTypeInvalidConfig, err.Error())

	case errors.IsType(err, generator.ErrTypeInvalidNetwork):
		return sendError(send, generator.ErrTypeInvalidNetwork, "the configuration grows too many nodes")

	default:
		return err
	}

	center := n.Center()
	_, err = send(Msg{
		Type: MsgTypeSummary,
		Summary: &Summary{
			RunID:     n.ID(),
			Seed:      n.Seed(),
			NodeCount: n.NodeCount(),
			Layers:    n.Layers(),
			Depth:     n.Depth(),
			Center:    [3]float64{center.X, center.Y, center.Z},
			Attempts:  n.Attempts(),
			Duration:  n.Duration(),
		},
	})
	return err
}

func (h *StreamHandler) HandleDisconnect(err error) {
}

func (h *StreamHandler) Receiver() Receiver {
	return JSONReceiver(h.conn)
}

func (h *StreamHandler) Sender() Sender {
	return JSONSender(h.conn)
}

func (h *StreamHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *StreamHandler) GetClientID() string {
	return h.clientID
}

func (h *StreamHandler) Close() {
}

func sendError(send Sender, errType, msg string) error {
	_, err := send(Msg{
		Type: MsgTypeError,
		Error: &Error{
			Type:    errType,
			Message: msg,
		},
	})
	return err
}
