package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slot-booking-api/internal/middleware"
	"slot-booking-api/internal/model"
	"slot-booking-api/internal/scheduler"
)

type createSlotRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

type updateSlotRequest struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Status    *string    `json:"status"`
}

type slotResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSlotResponse(s *model.TimeSlot) slotResponse {
	return slotResponse{
		ID:        s.ID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (h *Handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	slot, err := h.engine.CreateSlot(c.Request.Context(), middleware.UserID(c), req.StartTime, req.EndTime)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSlotResponse(slot))
}

func (h *Handler) GetSlot(c *gin.Context) {
	slot, err := h.engine.GetSlot(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSlotResponse(slot))
}

func (h *Handler) ListSlots(c *gin.Context) {
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	page := pageQuery(c)

	slots, total, err := h.engine.ListSlots(c.Request.Context(), middleware.UserID(c), from, to, page)
	if err != nil {
		h.writeError(c, err)
		return
	}

	items := make([]slotResponse, len(slots))
	for i := range slots {
		items[i] = toSlotResponse(&slots[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"page":  page.Number,
		"size":  page.Size,
		"total": total,
	})
}

func (h *Handler) UpdateSlot(c *gin.Context) {
	var req updateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	in := scheduler.UpdateSlotInput{Start: req.StartTime, End: req.EndTime}
	if req.Status != nil {
		st := model.SlotStatus(*req.Status)
		in.Status = &st
	}

	slot, err := h.engine.UpdateSlot(c.Request.Context(), middleware.UserID(c), c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSlotResponse(slot))
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	if err := h.engine.DeleteSlot(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
