// Package callback receives GroupMe bot callbacks over HTTP. GroupMe POSTs
// every message in a bot's group to the bot's callback URL; the Dispatcher
// routes those posts to per-bot handlers, optionally guarded by a shared
// token carried in the query string.
package callback

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/groupme/pkg/groupme"
)

const maxCallbackBytes = 1 << 20

// Handler processes one callback message for a bot.
type Handler interface {
	HandleMessage(ctx context.Context, bot string, msg *groupme.Message) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, bot string, msg *groupme.Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, bot string, msg *groupme.Message) error {
	return f(ctx, bot, msg)
}

type callbackEntry struct {
	handler Handler
	token   string
}

// Dispatcher routes incoming bot callbacks to registered handlers.
type Dispatcher struct {
	mu          sync.RWMutex
	handlers    map[string]callbackEntry
	attachments *groupme.AttachmentRegistry
	logger      *slog.Logger
}

// NewDispatcher creates a ready-to-use dispatcher. A nil registry falls back
// to the default attachment types.
func NewDispatcher(attachments *groupme.AttachmentRegistry, logger *slog.Logger) *Dispatcher {
	if attachments == nil {
		attachments = groupme.NewAttachmentRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers:    make(map[string]callbackEntry),
		attachments: attachments,
		logger:      logger,
	}
}

// Register adds a handler for the named bot with an optional shared token.
// When a token is set, callbacks must carry it as a ?token= query parameter.
func (d *Dispatcher) Register(bot string, h Handler, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[bot] = callbackEntry{handler: h, token: token}
}

// Routes returns an http.Handler serving POST /callbacks/{bot}.
func (d *Dispatcher) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/callbacks/{bot}", d.ServeHTTP)
	return r
}

// ServeHTTP implements http.Handler. It extracts the bot name from the chi
// URL param, validates the shared token if configured, and dispatches the
// decoded message to the registered handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bot := chi.URLParam(r, "bot")
	if bot == "" {
		http.Error(w, "missing bot", http.StatusBadRequest)
		return
	}

	d.mu.RLock()
	entry, ok := d.handlers[bot]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("callback received for unregistered bot", "bot", bot)
		http.Error(w, "unknown bot", http.StatusNotFound)
		return
	}

	if entry.token != "" {
		token := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(entry.token)) != 1 {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var msg groupme.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		d.logger.Warn("callback body is not a message", "bot", bot, "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	msg.Attachments, err = d.attachments.DecodeAll(msg.RawAttachments)
	if err != nil {
		d.logger.Warn("callback attachments undecodable", "bot", bot, "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := entry.handler.HandleMessage(r.Context(), bot, &msg); err != nil {
		d.logger.Error("callback handler failed", "bot", bot, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}
