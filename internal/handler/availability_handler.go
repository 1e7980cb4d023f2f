package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type slotWindowResponse struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

// GetAvailability projects any user's calendar as (start, end, status)
// windows; it needs no ownership of the target calendar.
func (h *Handler) GetAvailability(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}

	av, err := h.engine.GetAvailability(c.Request.Context(), userID, from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}

	windows := make([]slotWindowResponse, len(av.Windows))
	for i, w := range av.Windows {
		windows[i] = slotWindowResponse{Start: w.Start, End: w.End, Status: string(w.Status)}
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":  av.UserID,
		"from":    av.From,
		"to":      av.To,
		"windows": windows,
	})
}
