package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin only, so a page on another site cannot watch the device.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if after, ok := strings.CutPrefix(origin, "http://"); ok {
			return after == r.Host
		}
		if after, ok := strings.CutPrefix(origin, "https://"); ok {
			return after == r.Host
		}
		return false
	},
}

// WSMessage is a topic-based message sent to clients
type WSMessage struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// topicSubscribed acknowledges a subscribe or unsubscribe request with the
// client's current topics.
const topicSubscribed = "subscribed"

// wsClient represents a connected WebSocket client with subscriptions
type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	topics map[string]bool
}

func (c *wsClient) subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topics[topic]
}

// EventHub fans transition reports and new log entries out to websocket
// clients. Clients choose topics with {"action":"subscribe","topics":[...]}.
type EventHub struct {
	logs     *logging.RingBuffer
	interval time.Duration
	logger   *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewEventHub creates a hub that polls logs for new entries every interval
// once Run is called.
func NewEventHub(logs *logging.RingBuffer, interval time.Duration, logger *logging.Logger) *EventHub {
	return &EventHub{
		logs:     logs,
		interval: interval,
		logger:   logger,
		clients:  make(map[*wsClient]struct{}),
	}
}

// Run publishes new log entries until ctx is done, then disconnects every
// client.
func (h *EventHub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	_, cursor := h.logs.Since(^uint64(0))
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			var entries []logging.AppLogEntry
			entries, cursor = h.logs.Since(cursor)
			if len(entries) > 0 && h.hasSubscribers(TopicLogs) {
				h.Publish(TopicLogs, entries)
			}
		}
	}
}

// Publish sends a message to all clients subscribed to topic. Clients with a
// full buffer miss the message.
func (h *EventHub) Publish(topic string, data any) {
	msg, err := json.Marshal(WSMessage{Topic: topic, Data: data})
	if err != nil {
		h.logger.Warn("failed to encode event", "topic", topic, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.subscribed(topic) {
			select {
			case c.send <- msg:
			default:
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) hasSubscribers(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.subscribed(topic) {
			return true
		}
	}
	return false
}

func (h *EventHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *EventHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *EventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		conn:   conn,
		send:   make(chan []byte, 64),
		topics: make(map[string]bool),
	}
	h.add(c)

	go c.writePump()
	go h.readPump(c)
}

// readPump handles subscription messages until the connection fails.
func (h *EventHub) readPump(c *wsClient) {
	defer h.remove(c)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			Action string   `json:"action"`
			Topics []string `json:"topics"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.mu.Lock()
		switch msg.Action {
		case "subscribe":
			for _, topic := range msg.Topics {
				c.topics[topic] = true
			}
		case "unsubscribe":
			for _, topic := range msg.Topics {
				delete(c.topics, topic)
			}
		}
		current := make([]string, 0, len(c.topics))
		for topic := range c.topics {
			current = append(current, topic)
		}
		c.mu.Unlock()

		ack, _ := json.Marshal(WSMessage{Topic: topicSubscribed, Data: current})
		h.mu.RLock()
		if _, ok := h.clients[c]; ok {
			select {
			case c.send <- ack:
			default:
			}
		}
		h.mu.RUnlock()
	}
}

// writePump sends messages to the client until send is closed.
func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			// Closing the conn ends readPump, which removes the client and
			// closes send.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
