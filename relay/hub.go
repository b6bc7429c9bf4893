package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/lgr"
)

// Hub tracks connected clients and broadcasts periodic stats messages
// to all of them. Membership changes flow through channels; reads go
// through the RWMutex.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mutex   sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    map[string]*Client{},
	}
}

func (h *Hub) Run(canxCtx context.Context, svcs ServicesFactory) {
	ticker := time.NewTicker(svcs.CfgSvc.GetStatsBroadcastPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"hub context cancelled",
			)
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			lgr.Logger.Info(
				"client connected",
				slog.String("connID", client.ID),
				slog.String("session", client.SessionID),
				slog.Int("total", h.Count()),
			)

		case client := <-h.unregister:
			h.mutex.Lock()
			delete(h.clients, client.ID)
			h.mutex.Unlock()
			lgr.Logger.Info(
				"client disconnected",
				slog.String("connID", client.ID),
				slog.String("session", client.SessionID),
				slog.Int("total", h.Count()),
			)

		case <-ticker.C:
			h.broadcastStats()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastStats() {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	if len(clients) == 0 {
		return
	}

	msg := model.StatsMessage{
		Type:              model.MessageTypeStats,
		ActiveConnections: len(clients),
		Timestamp:         time.Now().Format(time.RFC3339),
	}

	for _, client := range clients {
		if err := client.writeJSON(msg); err != nil {
			// The read loop notices the dead socket and unregisters
			lgr.Logger.Warn(
				"error broadcasting stats",
				slog.String("connID", client.ID),
				slog.Any("error", err),
			)
		}
	}
}
