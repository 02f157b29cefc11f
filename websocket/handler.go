package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/yggdrasil/network"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// MsgType identifies the content of a message.
type MsgType string

const (
	// Sent by clients to grow a network. Carries a growth configuration.
	MsgTypeGrowRequest MsgType = "grow"

	// Sent after each completed growth layer.
	MsgTypeLayer MsgType = "layer"

	// Sent once a network is grown.
	MsgTypeSummary MsgType = "summary"

	// Sent when a request cannot be fulfilled.
	MsgTypeError MsgType = "error"
)

// Msg is a message exchanged over a connection.
type Msg struct {
	Type    MsgType         `json:"type"`
	Config  json.RawMessage `json:"config,omitempty"`
	Layer   *network.Layer  `json:"layer,omitempty"`
	Summary *Summary        `json:"summary,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Receiver receives a message and returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender sends a message and returns the number of bytes written.
type Sender func(Msg) (int, error)

// Handler represents a streaming handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a message from the client. Returned errors disconnect the
	// client.
	HandleMsg(ctx context.Context, send Sender, msg Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender passed to HandleMsg.
	Sender() Sender

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Get ClientID
	GetClientID() string

	// Closes the handler and releases its allocated resources.
	Close()
}

// Handle serves a connection with the given handler until the client
// disconnects, stays idle too long or ctx is done.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.HandleConnect(conn)

	msgs := make(chan Msg)
	receiveErr := make(chan error, 1)
	receive := h.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			msg, _, err := receive()
			if err != nil {
				receiveErr <- errors.New("receiving message failed").Wrap(err)
				return
			}

			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	idleTimeout := h.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	send := h.Sender()
	disconnect := func(err error) {
		conn.Close()
		h.HandleDisconnect(err)
	}

	for {
		select {
		case <-ctx.Done():
			disconnect(ctx.Err())
			return

		case <-idleTimer.C:
			disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))
			return

		case err := <-receiveErr:
			disconnect(err)
			return

		case msg := <-msgs:
			idleTimer.Stop()

			if err := h.HandleMsg(ctx, send, msg); err != nil {
				disconnect(errors.New("handling message failed").Wrap(err))
				return
			}
			idleTimer.Reset(idleTimeout)
		}
	}
}

// JSONReceiver returns a receiver that decodes JSON messages from conn.
func JSONReceiver(conn *websocket.Conn) Receiver {
	return func() (Msg, int, error) {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			return Msg{}, 0, err
		}

		var msg Msg
		if err := json.Unmarshal(data, &msg); err != nil {
			return Msg{}, len(data), errors.New("decoding message failed").Wrap(err)
		}
		return msg, len(data), nil
	}
}

// JSONSender returns a sender that encodes messages as JSON to conn.
func JSONSender(conn *websocket.Conn) Sender {
	return func(msg Msg) (int, error) {
		data, err := json.Marshal(msg)
		if err != nil {
			return 0, errors.New("encoding message failed").Wrap(err)
		}

		if err := websocket.Message.Send(conn, string(data)); err != nil {
			return 0, err
		}
		return len(data), nil
	}
}
