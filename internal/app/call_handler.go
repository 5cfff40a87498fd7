package app

import (
	"net/http"
	"strconv"

	"linkup/internal/service"
	"linkup/internal/util"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	callService service.CallService
}

func NewCallHandler(callService service.CallService) *CallHandler {
	return &CallHandler{callService: callService}
}

// StartCall records a new call session
// POST /api/v1/calls
func (h *CallHandler) StartCall(c *gin.Context) {
	var req receiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, bindingMessage(err))
		return
	}

	h.startCall(c, req.ReceiverID)
}

func (h *CallHandler) startCall(c *gin.Context, receiverID string) {
	call, err := h.callService.StartCall(c.Request.Context(), principal(c), receiverID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Call started", gin.H{
		"call_id":    call.ID,
		"started_at": call.StartedAt,
	})
}

// EndCall ends a call session the caller took part in
// POST /api/v1/calls/:id/end
func (h *CallHandler) EndCall(c *gin.Context) {
	h.endCall(c, c.Param("id"))
}

func (h *CallHandler) endCall(c *gin.Context, callID string) {
	call, err := h.callService.EndCall(c.Request.Context(), principal(c), callID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Call ended", gin.H{
		"call_id":          call.ID,
		"duration_seconds": call.DurationSeconds,
	})
}

// GetHistory lists the caller's recent calls
// GET /api/v1/calls?limit=
func (h *CallHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			util.BadRequest(c, "limit must be a number")
			return
		}
		limit = parsed
	}

	calls, err := h.callService.History(c.Request.Context(), principal(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Call history retrieved successfully", gin.H{"calls": calls})
}
