package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"rfp-answer-engine/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const progressChannel = "pipeline_progress"

// Hub tracks websocket clients per project. Every instance subscribes to the same redis
// channel and delivers to its own clients, so a run executed on one instance reaches
// watchers connected to any other.
type Hub struct {
	// projectId -> clients watching that project
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb    *redis.Client
	logger logger.ILogger
}

type envelope struct {
	ProjectId string          `json:"project_id"`
	Message   json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ProjectId] = append(h.clients[client.ProjectId], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"project_id": client.ProjectId})

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.ProjectId]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.ProjectId] = append(clients[:i], clients[i+1:]...)
			client.closeSend()
			break
		}
	}
	if len(h.clients[client.ProjectId]) == 0 {
		delete(h.clients, client.ProjectId)
	}
}

// Publish delivers message to every watcher of projectId. With redis configured the message
// goes through the channel only, and each instance (this one included) delivers locally on
// receipt.
func (h *Hub) Publish(ctx context.Context, projectId uuid.UUID, message []byte) {
	if h.rdb == nil {
		h.deliver(projectId, message)
		return
	}

	payload, err := json.Marshal(envelope{ProjectId: projectId.String(), Message: message})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode progress message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := h.rdb.Publish(ctx, progressChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Redis publish failed, delivering locally", map[string]interface{}{"error": err.Error()})
		h.deliver(projectId, message)
	}
}

// ClientCount reports how many local clients watch projectId.
func (h *Hub) ClientCount(projectId uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[projectId])
}

// deliver holds the read lock across the sends; closeSend only runs under the write lock, so
// a client cannot be closed between lookup and send.
func (h *Hub) deliver(projectId uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[projectId] {
		select {
		case client.Send <- message:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"project_id": projectId})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, progressChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.logger.Warn("Hub", "Dropping malformed redis message", map[string]interface{}{"error": err.Error()})
			continue
		}
		projectId, err := uuid.Parse(env.ProjectId)
		if err != nil {
			continue
		}
		h.deliver(projectId, env.Message)
	}
}
