package app

import (
	"linkup/internal/util"

	"github.com/gin-gonic/gin"
)

// LegacyHandler serves the action-dispatch endpoints older clients use.
// Every action delegates to the same handler as its REST route.
type LegacyHandler struct {
	friendships *FriendshipHandler
	users       *UserHandler
	calls       *CallHandler
}

func NewLegacyHandler(friendships *FriendshipHandler, users *UserHandler, calls *CallHandler) *LegacyHandler {
	return &LegacyHandler{friendships: friendships, users: users, calls: calls}
}

type contactAction struct {
	Action     string `json:"action" binding:"required"`
	ReceiverID string `json:"receiver_id"`
	RequestID  string `json:"request_id"`
}

type callAction struct {
	Action     string `json:"action" binding:"required"`
	ReceiverID string `json:"receiver_id"`
	CallID     string `json:"call_id"`
}

// GetContacts dispatches GET /api/v1/contacts?action=friends|requests|search.
// A missing action lists friends.
func (h *LegacyHandler) GetContacts(c *gin.Context) {
	switch c.DefaultQuery("action", "friends") {
	case "friends":
		h.friendships.GetFriends(c)
	case "requests":
		h.friendships.GetIncomingRequests(c)
	case "search":
		h.users.SearchUsers(c)
	default:
		util.BadRequest(c, "Invalid action")
	}
}

// PostContacts dispatches POST /api/v1/contacts {action: send_request|accept_request|reject_request}
func (h *LegacyHandler) PostContacts(c *gin.Context) {
	var req contactAction
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, bindingMessage(err))
		return
	}

	switch req.Action {
	case "send_request":
		h.friendships.sendRequest(c, req.ReceiverID)
	case "accept_request":
		h.friendships.accept(c, req.RequestID)
	case "reject_request":
		h.friendships.reject(c, req.RequestID)
	default:
		util.BadRequest(c, "Invalid action")
	}
}

// GetCalls dispatches GET /api/v1/calls/legacy?action=history. A missing
// action means history.
func (h *LegacyHandler) GetCalls(c *gin.Context) {
	if c.DefaultQuery("action", "history") != "history" {
		util.BadRequest(c, "Invalid action")
		return
	}
	h.calls.GetHistory(c)
}

// PostCalls dispatches POST /api/v1/calls/legacy {action: start_call|end_call}
func (h *LegacyHandler) PostCalls(c *gin.Context) {
	var req callAction
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, bindingMessage(err))
		return
	}

	switch req.Action {
	case "start_call":
		h.calls.startCall(c, req.ReceiverID)
	case "end_call":
		h.calls.endCall(c, req.CallID)
	default:
		util.BadRequest(c, "Invalid action")
	}
}
