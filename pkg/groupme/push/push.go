// Package push implements GroupMe's real-time push channel, a Bayeux
// protocol session over WebSocket. A Listener performs the handshake,
// subscribes to the authenticated user's channel, and delivers published
// envelopes to a handler until stopped.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

const (
	// DefaultServerURL is the production GroupMe push endpoint.
	DefaultServerURL = "wss://push.groupme.com/faye"

	maxConsecutiveErrors = 5
	errorPauseDuration   = 30 * time.Second
	handshakeTimeout     = 30 * time.Second
)

// Envelope is a single Bayeux message.
type Envelope struct {
	Channel                  string          `json:"channel"`
	ClientID                 string          `json:"clientId,omitempty"`
	ID                       string          `json:"id,omitempty"`
	Version                  string          `json:"version,omitempty"`
	SupportedConnectionTypes []string        `json:"supportedConnectionTypes,omitempty"`
	Subscription             string          `json:"subscription,omitempty"`
	Successful               *bool           `json:"successful,omitempty"`
	Error                    string          `json:"error,omitempty"`
	Data                     json.RawMessage `json:"data,omitempty"`
	Ext                      map[string]any  `json:"ext,omitempty"`
}

// Handler receives data published to the subscribed channel.
type Handler func(channel string, data json.RawMessage)

// Listener maintains a push subscription for one user. Start launches the
// listening loop; Stop tears it down and waits for it to finish.
type Listener struct {
	serverURL string
	token     string
	userID    string
	handler   Handler
	logger    *slog.Logger

	seq      atomic.Int64
	started  atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewListener creates a Listener for the given user. If serverURL is empty,
// DefaultServerURL is used.
func NewListener(serverURL, token, userID string, handler Handler, logger *slog.Logger) *Listener {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		serverURL: serverURL,
		token:     token,
		userID:    userID,
		handler:   handler,
		logger:    logger,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the listening loop in a goroutine. Repeated calls are
// no-ops.
func (l *Listener) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.loop()
}

// Stop signals the listening loop to stop and waits for it to finish.
// It is safe to call Stop multiple times, or without a prior Start.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	if !l.started.Load() {
		return
	}
	<-l.done
}

// loop connects, subscribes, and reads until Stop() is called, reconnecting
// after failures with a pause once errors accumulate.
func (l *Listener) loop() {
	defer close(l.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-l.stopCh
		cancel()
	}()

	var consecutiveErrors int

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		conn, err := l.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			l.logger.Error("push connect failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)
			if consecutiveErrors >= maxConsecutiveErrors {
				l.logger.Warn("push paused after consecutive errors",
					"pause", errorPauseDuration,
				)
				select {
				case <-l.stopCh:
					return
				case <-time.After(errorPauseDuration):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0
		l.read(ctx, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "listener stopping")
	}
}

// connect dials the push server, performs the Bayeux handshake, and
// subscribes to the user channel.
func (l *Listener) connect(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, l.serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("push: dial %s: %w", l.serverURL, err)
	}

	handshake, err := l.roundTrip(dialCtx, conn, Envelope{
		Channel:                  "/meta/handshake",
		Version:                  "1.0",
		SupportedConnectionTypes: []string{"websocket"},
		ID:                       l.nextID(),
	})
	if err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, err
	}
	if handshake.ClientID == "" {
		_ = conn.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, fmt.Errorf("push: handshake returned no client id (error: %s)", handshake.Error)
	}

	subscribe, err := l.roundTrip(dialCtx, conn, Envelope{
		Channel:      "/meta/subscribe",
		ClientID:     handshake.ClientID,
		Subscription: "/user/" + l.userID,
		ID:           l.nextID(),
		Ext: map[string]any{
			"access_token": l.token,
			"timestamp":    time.Now().Unix(),
		},
	})
	if err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "subscribe failed")
		return nil, err
	}
	if subscribe.Successful == nil || !*subscribe.Successful {
		_ = conn.Close(websocket.StatusProtocolError, "subscribe failed")
		return nil, fmt.Errorf("push: subscribe to /user/%s rejected (error: %s)", l.userID, subscribe.Error)
	}

	l.logger.Info("push subscribed", "channel", "/user/"+l.userID)
	return conn, nil
}

// roundTrip sends one Bayeux message and returns the reply addressed to the
// same channel. Replies for other channels received in between are
// dispatched normally.
func (l *Listener) roundTrip(ctx context.Context, conn *websocket.Conn, msg Envelope) (*Envelope, error) {
	if err := writeBatch(ctx, conn, msg); err != nil {
		return nil, err
	}

	for {
		batch, err := readBatch(ctx, conn)
		if err != nil {
			return nil, err
		}
		for i := range batch {
			if batch[i].Channel == msg.Channel {
				return &batch[i], nil
			}
			l.dispatch(&batch[i])
		}
	}
}

// read delivers published envelopes until the connection fails or ctx is
// cancelled.
func (l *Listener) read(ctx context.Context, conn *websocket.Conn) {
	for {
		batch, err := readBatch(ctx, conn)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Error("push read failed", "error", err)
			}
			return
		}
		for i := range batch {
			l.dispatch(&batch[i])
		}
	}
}

// dispatch hands a non-meta envelope with data to the handler.
func (l *Listener) dispatch(env *Envelope) {
	if len(env.Data) == 0 || isMetaChannel(env.Channel) {
		return
	}
	l.handler(env.Channel, env.Data)
}

func (l *Listener) nextID() string {
	return strconv.FormatInt(l.seq.Add(1), 10)
}

func isMetaChannel(channel string) bool {
	return len(channel) >= 6 && channel[:6] == "/meta/"
}

// writeBatch sends a Bayeux batch (messages travel as JSON arrays).
func writeBatch(ctx context.Context, conn *websocket.Conn, msgs ...Envelope) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("push: marshal batch: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("push: write batch: %w", err)
	}
	return nil
}

// readBatch receives one Bayeux batch.
func readBatch(ctx context.Context, conn *websocket.Conn) ([]Envelope, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("push: read batch: %w", err)
	}
	var batch []Envelope
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("push: decode batch: %w", err)
	}
	return batch, nil
}
