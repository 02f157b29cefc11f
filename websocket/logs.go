package websocket

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

// HandlerWithLogs wraps a handler with connection logs and a periodic summary
// of the received and sent messages.
func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	remoteAddr string
	userAgent  string

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	if req := conn.Request(); req != nil {
		h.remoteAddr = req.RemoteAddr
		h.userAgent = req.UserAgent()
	}

	logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("remote_addr", h.remoteAddr).
		WithTag("user_agent", h.userAgent).
		Info("new client is connected")
}

func (h *handlerWithLogs) HandleMsg(ctx context.Context, send Sender, msg Msg) error {
	start := time.Now()
	err := h.Handler.HandleMsg(ctx, send, msg)

	logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("msg_type", msg.Type).
		WithTag("duration", time.Since(start)).
		Debug("message handled")
	return err
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	entry := logs.WithTag(logs.ClientIDTag, h.GetClientID())
	if err != nil && !isClosed(err) {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("client disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !isClosed(err) {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				Warn(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msg.Type).
				Debug("message received")
			h.incCounter("received_" + string(msg.Type))
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	send := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		n, err := send(msg)
		if err != nil && !stderrors.Is(err, net.ErrClosed) {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msg.Type).
				Warn(errors.New("sending message failed").Wrap(err))
		} else if err == nil {
			h.incCounter("sent_" + string(msg.Type))
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(key string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[key]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("time_interval", h.summaryInterval)

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("message summary")
}

func isClosed(err error) bool {
	return stderrors.Is(err, io.EOF) || stderrors.Is(err, net.ErrClosed)
}
