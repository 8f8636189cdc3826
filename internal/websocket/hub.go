package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"shipscan/scanner-api/internal/model"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SnapshotFunc loads the current state of a job.
type SnapshotFunc func(id string) (model.ScanJob, error)

// Hub fans job updates out to websocket clients subscribed to that job.
type Hub struct {
	clients    map[*Client]struct{}
	publish    chan model.ScanJob
	register   chan *Client
	unregister chan *Client
	snapshot   SnapshotFunc
	log        zerolog.Logger
	done       chan struct{}
}

type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	jobID string
	send  chan []byte

	// lastUpdated is the UpdatedAt of the newest state sent to this client.
	lastUpdated time.Time
}

func NewHub(snapshot SnapshotFunc, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		publish:    make(chan model.ScanJob, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshot:   snapshot,
		log:        logger.With().Str("component", "websocket").Logger(),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx ends, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug().Str("job_id", c.jobID).Msg("websocket client connected")
			job, err := h.snapshot(c.jobID)
			if err != nil {
				h.drop(c)
				continue
			}
			h.deliver(c, job)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.log.Debug().Str("job_id", c.jobID).Msg("websocket client disconnected")
			}

		case job := <-h.publish:
			for c := range h.clients {
				if c.jobID == job.ID {
					h.deliver(c, job)
				}
			}
		}
	}
}

// Publish queues job for delivery. Intermediate updates are dropped when the
// queue is full; terminal updates wait for room until the hub stops.
func (h *Hub) Publish(job model.ScanJob) {
	job = job.Clone()
	select {
	case h.publish <- job:
		return
	default:
	}

	if !job.Status.Terminal() {
		h.log.Warn().Str("job_id", job.ID).Msg("publish queue full, skipping update")
		return
	}
	select {
	case h.publish <- job:
	case <-h.done:
	}
}

// deliver sends job to c unless c already has the same or a newer state.
func (h *Hub) deliver(c *Client, job model.ScanJob) {
	if !job.UpdatedAt.After(c.lastUpdated) {
		return
	}
	data, err := json.Marshal(Message{
		Type:      messageTypeScan,
		Data:      job,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal message")
		return
	}

	select {
	case c.send <- data:
		c.lastUpdated = job.UpdatedAt
	default:
		h.log.Warn().Str("job_id", c.jobID).Msg("slow websocket client dropped")
		h.drop(c)
		return
	}
	if job.Status.Terminal() {
		h.drop(c)
	}
}

// drop must only be called from Run.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeJob upgrades the connection and streams updates for jobID.
func (h *Hub) ServeJob(w http.ResponseWriter, r *http.Request, jobID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		hub:   h,
		conn:  conn,
		jobID: jobID,
		send:  make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
