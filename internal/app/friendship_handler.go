package app

import (
	"net/http"

	"linkup/internal/service"
	"linkup/internal/util"

	"github.com/gin-gonic/gin"
)

type FriendshipHandler struct {
	friendshipService service.FriendshipService
}

func NewFriendshipHandler(friendshipService service.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendshipService: friendshipService}
}

type receiverRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required,uuid"`
}

// SendFriendRequest handles sending a friend request
// POST /api/v1/friends/requests
func (h *FriendshipHandler) SendFriendRequest(c *gin.Context) {
	var req receiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, bindingMessage(err))
		return
	}

	h.sendRequest(c, req.ReceiverID)
}

func (h *FriendshipHandler) sendRequest(c *gin.Context, receiverID string) {
	created, err := h.friendshipService.SubmitRequest(c.Request.Context(), principal(c), receiverID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Friend request sent successfully", gin.H{"request_id": created.ID})
}

// GetIncomingRequests lists pending requests addressed to the caller
// GET /api/v1/friends/requests
func (h *FriendshipHandler) GetIncomingRequests(c *gin.Context) {
	requests, err := h.friendshipService.ListIncoming(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend requests retrieved successfully", gin.H{"requests": requests})
}

// AcceptFriendRequest handles accepting a friend request
// POST /api/v1/friends/requests/:id/accept
func (h *FriendshipHandler) AcceptFriendRequest(c *gin.Context) {
	h.accept(c, c.Param("id"))
}

func (h *FriendshipHandler) accept(c *gin.Context, requestID string) {
	if err := h.friendshipService.Accept(c.Request.Context(), principal(c), requestID); err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request accepted successfully", gin.H{"request_id": requestID})
}

// RejectFriendRequest handles rejecting a friend request
// POST /api/v1/friends/requests/:id/reject
func (h *FriendshipHandler) RejectFriendRequest(c *gin.Context) {
	h.reject(c, c.Param("id"))
}

func (h *FriendshipHandler) reject(c *gin.Context, requestID string) {
	if err := h.friendshipService.Reject(c.Request.Context(), principal(c), requestID); err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request rejected successfully", gin.H{"request_id": requestID})
}

// GetFriends lists the caller's friends, most recently seen first
// GET /api/v1/friends
func (h *FriendshipHandler) GetFriends(c *gin.Context) {
	friends, err := h.friendshipService.ListFriends(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friends retrieved successfully", gin.H{"friends": friends})
}
