package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stkw0/lms/internal/events"
)

// EventsHandler exposes the recent-event ring and bus statistics.
type EventsHandler struct {
	bus *events.EventBus
}

func NewEventsHandler(bus *events.EventBus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// Recent returns the most recent events, newest first. ?limit= caps the
// count.
func (h *EventsHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"events": h.bus.GetRecentEvents(limit)})
}

// Stats returns bus counters.
func (h *EventsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.bus.GetStats())
}
