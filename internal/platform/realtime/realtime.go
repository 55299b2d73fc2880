// Package realtime provides a change-feed client for the managed backend's
// realtime service (Phoenix protocol over WebSocket).
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/groupdesk/groupdesk/pkg/logger"
)

// Event is a postgres change delivered over the feed.
type Event struct {
	Type   string          // INSERT, UPDATE, DELETE
	Schema string
	Table  string
	Record json.RawMessage // new row as sent by the backend
}

// EventHandler handles change events.
type EventHandler func(event Event)

// ChangesConfig filters a postgres changes subscription.
type ChangesConfig struct {
	Event  string // INSERT, UPDATE, DELETE, *; defaults to *
	Schema string // defaults to public
	Table  string
	Filter string // optional, e.g. "channel_id=eq.42"
}

// Client maintains the websocket connection and channel subscriptions.
type Client struct {
	mu       sync.RWMutex
	url      string
	conn     *websocket.Conn
	channels map[string]*Channel
	handlers map[string][]EventHandler
	done     chan struct{}
	ref      int
	log      *logger.Logger
}

// Channel is a joined realtime topic.
type Channel struct {
	client  *Client
	topic   string
	config  ChangesConfig
	joined  bool
	joinRef string
}

// New creates a realtime client for the given platform URL and API key.
func New(projectURL, apiKey string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault("realtime")
	}

	wsURL := strings.TrimRight(projectURL, "/")
	if strings.HasPrefix(wsURL, "https") {
		wsURL = "wss" + wsURL[len("https"):]
	} else if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + wsURL[len("http"):]
	}
	wsURL += "/realtime/v1/websocket?apikey=" + apiKey + "&vsn=1.0.0"

	return &Client{
		url:      wsURL,
		channels: make(map[string]*Channel),
		handlers: make(map[string][]EventHandler),
		done:     make(chan struct{}),
		log:      log,
	}
}

// Connect establishes the websocket connection and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop()
	go c.heartbeat()
	return nil
}

// Disconnect closes the connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	close(c.done)

	err := c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

// Subscribe joins a postgres changes topic and registers the handler.
func (c *Client) Subscribe(ctx context.Context, cfg ChangesConfig, handler EventHandler) (*Channel, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Event == "" {
		cfg.Event = "*"
	}

	topic := fmt.Sprintf("realtime:%s:%s", cfg.Schema, cfg.Table)
	if cfg.Filter != "" {
		topic += ":" + cfg.Filter
	}

	c.mu.Lock()
	ch, ok := c.channels[topic]
	if !ok {
		ch = &Channel{client: c, topic: topic, config: cfg}
		c.channels[topic] = ch
	}
	key := topic + ":" + cfg.Event
	c.handlers[key] = append(c.handlers[key], handler)
	c.mu.Unlock()

	if err := ch.join(); err != nil {
		return nil, err
	}
	return ch, nil
}

func (ch *Channel) join() error {
	ch.client.mu.Lock()
	defer ch.client.mu.Unlock()

	if ch.joined {
		return nil
	}
	if ch.client.conn == nil {
		return fmt.Errorf("not connected")
	}

	ch.client.ref++
	ref := fmt.Sprintf("%d", ch.client.ref)
	ch.joinRef = ref

	msg := map[string]any{
		"topic": ch.topic,
		"event": "phx_join",
		"payload": map[string]any{
			"config": map[string]any{
				"postgres_changes": []map[string]any{{
					"event":  ch.config.Event,
					"schema": ch.config.Schema,
					"table":  ch.config.Table,
					"filter": ch.config.Filter,
				}},
			},
		},
		"ref":      ref,
		"join_ref": ref,
	}
	if err := ch.client.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	ch.joined = true
	return nil
}

// Unsubscribe leaves the topic.
func (ch *Channel) Unsubscribe() error {
	ch.client.mu.Lock()
	defer ch.client.mu.Unlock()

	if !ch.joined {
		return nil
	}

	ch.client.ref++
	msg := map[string]any{
		"topic":    ch.topic,
		"event":    "phx_leave",
		"payload":  map[string]any{},
		"ref":      fmt.Sprintf("%d", ch.client.ref),
		"join_ref": ch.joinRef,
	}
	if ch.client.conn != nil {
		if err := ch.client.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("send leave: %w", err)
		}
	}
	ch.joined = false
	delete(ch.client.channels, ch.topic)
	return nil
}

func (c *Client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.log.WithError(err).Warn("realtime connection closed")
			return
		}
		c.dispatch(message)
	}
}

// dispatch routes a raw frame to subscribed handlers.
func (c *Client) dispatch(message []byte) {
	topic := gjson.GetBytes(message, "topic").String()
	frameEvent := gjson.GetBytes(message, "event").String()
	if frameEvent != "postgres_changes" {
		return
	}

	event, ok := decodeChange(message)
	if !ok {
		return
	}

	c.mu.RLock()
	handlers := append([]EventHandler{}, c.handlers[topic+":"+event.Type]...)
	handlers = append(handlers, c.handlers[topic+":*"]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

// decodeChange extracts the change payload of a postgres_changes frame.
func decodeChange(message []byte) (Event, bool) {
	data := gjson.GetBytes(message, "payload.data")
	if !data.Exists() {
		return Event{}, false
	}
	record := data.Get("record")
	if !record.Exists() {
		return Event{}, false
	}
	return Event{
		Type:   data.Get("type").String(),
		Schema: data.Get("schema").String(),
		Table:  data.Get("table").String(),
		Record: json.RawMessage(record.Raw),
	}, true
}

func (c *Client) heartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != nil {
				c.ref++
				msg := map[string]any{
					"topic":   "phoenix",
					"event":   "heartbeat",
					"payload": map[string]any{},
					"ref":     fmt.Sprintf("%d", c.ref),
				}
				if err := c.conn.WriteJSON(msg); err != nil {
					c.log.WithError(err).Warn("heartbeat failed")
				}
			}
			c.mu.Unlock()
		}
	}
}
