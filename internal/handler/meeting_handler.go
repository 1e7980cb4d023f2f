package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slot-booking-api/internal/middleware"
	"slot-booking-api/internal/model"
	"slot-booking-api/internal/scheduler"
)

type scheduleMeetingRequest struct {
	SlotID         string   `json:"slotId" binding:"required"`
	Title          string   `json:"title" binding:"required"`
	Description    string   `json:"description"`
	ParticipantIDs []string `json:"participantIds"`
}

type updateMeetingRequest struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	ParticipantIDs []string `json:"participantIds"`
}

type meetingResponse struct {
	ID             string    `json:"id"`
	SlotID         string    `json:"slotId"`
	OrganizerID    string    `json:"organizerId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ParticipantIDs []string  `json:"participantIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toMeetingResponse(m *model.Meeting) meetingResponse {
	ids := m.ParticipantIDs
	if ids == nil {
		ids = []string{}
	}
	return meetingResponse{
		ID:             m.ID,
		SlotID:         m.SlotID,
		OrganizerID:    m.OrganizerID,
		Title:          m.Title,
		Description:    m.Description,
		ParticipantIDs: ids,
		CreatedAt:      m.CreatedAt,
	}
}

func (h *Handler) ScheduleMeeting(c *gin.Context) {
	var req scheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	meeting, err := h.engine.ScheduleMeeting(c.Request.Context(), middleware.UserID(c), scheduler.ScheduleMeetingInput{
		SlotID:         req.SlotID,
		Title:          req.Title,
		Description:    req.Description,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMeetingResponse(meeting))
}

func (h *Handler) GetMeeting(c *gin.Context) {
	meeting, err := h.engine.GetMeeting(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMeetingResponse(meeting))
}

func (h *Handler) ListMeetings(c *gin.Context) {
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	page := pageQuery(c)

	meetings, total, err := h.engine.ListMeetings(c.Request.Context(), middleware.UserID(c), from, to, page)
	if err != nil {
		h.writeError(c, err)
		return
	}

	items := make([]meetingResponse, len(meetings))
	for i := range meetings {
		items[i] = toMeetingResponse(&meetings[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"page":  page.Number,
		"size":  page.Size,
		"total": total,
	})
}

func (h *Handler) UpdateMeeting(c *gin.Context) {
	var req updateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	meeting, err := h.engine.UpdateMeeting(c.Request.Context(), middleware.UserID(c), c.Param("id"), scheduler.UpdateMeetingInput{
		Title:          req.Title,
		Description:    req.Description,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMeetingResponse(meeting))
}

func (h *Handler) CancelMeeting(c *gin.Context) {
	if err := h.engine.CancelMeeting(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
