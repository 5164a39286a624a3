// Package sse provides Server-Sent Events for the owner's live lead feed.
package sse

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"funnel_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventLeadCaptured EventType = "lead_captured"
	EventLeadNotified EventType = "lead_notified"
)

// Event represents an SSE event payload
type Event struct {
	Type    EventType   `json:"type"`
	LeadID  uuid.UUID   `json:"leadId,omitempty"`
	TaskID  uuid.UUID   `json:"taskId,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	ownerID uuid.UUID
	events  chan Event
}

// Service fans events out to every open stream of a task owner.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ownerID] = append(s.clients[c.ownerID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.ownerID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.ownerID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.ownerID]) == 0 {
		delete(s.clients, c.ownerID)
	}
}

// Publish sends an event to every stream of one owner. Slow clients drop
// events rather than block the publisher.
func (s *Service) Publish(ownerID uuid.UUID, event Event) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := s.clients[ownerID]
	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full", slog.String("owner_id", ownerID.String()), slog.String("event", string(event.Type)))
		}
	}
	return len(clients)
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getOwnerID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := getOwnerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			ownerID: ownerID,
			events:  make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"ownerId": ownerID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event := <-cl.events:
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}
