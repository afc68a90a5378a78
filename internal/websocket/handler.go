package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection as a watcher of projectId and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, projectId uuid.UUID, userId string) {
	client := &Client{Hub: hub, Conn: c, ProjectId: projectId, UserId: userId, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
