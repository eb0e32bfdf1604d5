package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/autovideo/api/internal/model"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
)

// Client represents a WebSocket client
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub maintains active WebSocket connections and fans job snapshots out to them
type Hub struct {
	// Clients grouped by job ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	JobID   string
	Message []byte
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for jobID, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, jobID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", "job_id", client.JobID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("websocket client unregistered", "job_id", client.JobID)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.JobID] {
				select {
				case client.Send <- msg.Message:
				default:
					// Slow consumer.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.JobID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.JobID)
	}
}

// Register adds a new client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers returns the number of clients watching jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}

// JobUpdated broadcasts a job snapshot to its subscribers. It never blocks the
// pipeline: when the queue is full the update is dropped.
func (h *Hub) JobUpdated(job *model.JobRecord) {
	data, err := EncodeJob(job)
	if err != nil {
		h.logger.Error("failed to marshal job message", "job_id", job.ID, "error", err)
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{JobID: job.ID, Message: data}:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping job update", "job_id", job.ID)
	}
}

// EncodeJob renders the message pushed to subscribers of a job.
func EncodeJob(job *model.JobRecord) ([]byte, error) {
	return json.Marshal(model.WSJobMessage{
		Type:  model.WSMessageTypeJob,
		JobID: job.ID,
		Job:   job,
	})
}

// HandleConnection serves one WebSocket connection until the peer goes away.
// initial, when not nil, is written before any broadcast. The writer goroutine
// exits before HandleConnection returns, so the conn is never touched after the
// handler releases it.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string, initial []byte) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, sendBuffer),
	}
	if initial != nil {
		client.Send <- initial
	}

	if !h.Register(client) {
		_ = c.WriteMessage(websocket.CloseMessage, []byte{})
		return
	}

	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return c.WriteMessage(messageType, data)
	}

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return

			case message, ok := <-client.Send:
				if !ok {
					// Dropped by the hub: say goodbye and unblock the reader.
					_ = write(websocket.CloseMessage, []byte{})
					_ = c.Close()
					return
				}
				if err := write(websocket.TextMessage, message); err != nil {
					_ = c.Close()
					return
				}

			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					_ = c.Close()
					return
				}
			}
		}
	}()

	h.readLoop(c, jobID, write)

	close(stop)
	<-writerDone
	_ = c.WriteMessage(websocket.CloseMessage, []byte{})
	h.Unregister(client)
}

func (h *Hub) readLoop(c *websocket.Conn, jobID string, write func(int, []byte) error) {
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "job_id", jobID, "error", err)
			}
			return
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			if err := write(websocket.TextMessage, pong); err != nil {
				return
			}
		}
	}
}
