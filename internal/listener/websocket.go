package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/canopy-network/course-indexer/pkg/blob"
)

// SubscribePath is the event subscription endpoint of the source node.
const SubscribePath = "/v1/subscribe-events"

// Config configures the WebSocket listener.
type Config struct {
	URL            string        // Base URL of the event source (e.g., "wss://node.example.com")
	MaxRetries     int           // Max reconnection attempts (default: 25)
	ReconnectDelay time.Duration // Base delay between reconnects (default: 1s)
}

// EventHandler is called with every raw event envelope received.
type EventHandler func(ctx context.Context, data []byte) error

// Listener subscribes to the event source via WebSocket and hands each
// envelope to a handler. A frame holds one envelope or a JSON array of them.
type Listener struct {
	config  Config
	onEvent EventHandler
	conn    *websocket.Conn
	mu      sync.RWMutex

	// Connection counters (protected by mu)
	connectedAt  time.Time
	messageCount uint64
}

// New creates a new WebSocket listener.
func New(config Config, onEvent EventHandler) *Listener {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 25
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = time.Second
	}
	return &Listener{
		config:  config,
		onEvent: onEvent,
	}
}

// Run starts the listener. It blocks until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	wsURL, err := l.buildURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}

	for attempt := 0; attempt < l.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		slog.Info("connecting to event source",
			"attempt", attempt+1,
			"max_retries", l.config.MaxRetries,
			"url", wsURL,
		)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			l.mu.Lock()
			l.conn = conn
			l.connectedAt = time.Now()
			l.messageCount = 0
			l.mu.Unlock()

			slog.Info("websocket connected", "url", wsURL)

			err = l.listen(ctx, conn)
			if ctx.Err() != nil {
				_ = l.Close()
				return ctx.Err()
			}
			if errors.Is(err, blob.ErrMalformedEvent) {
				_ = l.Close()
				return err
			}

			l.mu.Lock()
			uptime := time.Since(l.connectedAt)
			msgCount := l.messageCount
			if l.conn != nil {
				_ = l.conn.Close()
				l.conn = nil
			}
			l.mu.Unlock()

			slog.Warn("websocket disconnected",
				"err", err,
				"uptime", uptime.Round(time.Second),
				"messages_received", msgCount,
			)

			// Reset attempt counter on successful connection
			attempt = 0
			continue
		}

		slog.Warn("failed to connect to event source",
			"attempt", attempt+1,
			"err", err,
		)

		// Linear backoff
		delay := time.Duration(attempt+1) * l.config.ReconnectDelay
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retries (%d) reached", l.config.MaxRetries)
}

// buildURL constructs the WebSocket subscription URL.
func (l *Listener) buildURL() (string, error) {
	parsed, err := url.Parse(l.config.URL)
	if err != nil {
		return "", err
	}

	host := parsed.Host
	basePath := parsed.Path
	if host == "" {
		host, basePath = parsed.Path, ""
	}

	wsScheme := "ws"
	if parsed.Scheme == "https" || parsed.Scheme == "wss" {
		wsScheme = "wss"
	}

	wsURL := url.URL{
		Scheme: wsScheme,
		Host:   host,
		Path:   strings.TrimSuffix(basePath, "/") + SubscribePath,
	}

	return wsURL.String(), nil
}

// listen reads frames until the connection fails. A handler error drops the
// connection so the source resends from where the subscriber stopped. An
// unreadable frame is malformed input and ends the subscription.
func (l *Listener) listen(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		envelopes, err := splitFrame(data)
		if err != nil {
			slog.Error("websocket frame unreadable",
				"err", err,
				"data_len", len(data),
			)
			return fmt.Errorf("%w: unreadable frame: %v", blob.ErrMalformedEvent, err)
		}

		l.mu.Lock()
		l.messageCount++
		msgNum := l.messageCount
		l.mu.Unlock()

		slog.Debug("websocket events received",
			"events", len(envelopes),
			"msg_num", msgNum,
			"size_bytes", len(data),
		)

		for _, env := range envelopes {
			if err := l.onEvent(ctx, env); err != nil {
				slog.Error("event handler failed", "msg_num", msgNum, "err", err)
				return fmt.Errorf("handle event: %w", err)
			}
		}
	}
}

// splitFrame returns the envelopes of one frame.
func splitFrame(data []byte) ([][]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	if data[0] != '[' {
		return [][]byte{data}, nil
	}
	var batch []json.RawMessage
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(batch))
	for _, raw := range batch {
		out = append(out, raw)
	}
	return out, nil
}

// Close gracefully closes the WebSocket connection.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		err := l.conn.Close()
		l.conn = nil
		return err
	}
	return nil
}
