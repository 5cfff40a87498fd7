package app

import (
	"net/http"

	"linkup/internal/service"
	"linkup/internal/util"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	directoryService service.DirectoryService
}

func NewUserHandler(directoryService service.DirectoryService) *UserHandler {
	return &UserHandler{directoryService: directoryService}
}

// SearchUsers finds users by display name or email
// GET /api/v1/users/search?q=
func (h *UserHandler) SearchUsers(c *gin.Context) {
	results, err := h.directoryService.Search(c.Request.Context(), principal(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Users retrieved successfully", gin.H{"results": results})
}

// GetUser returns a public profile
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.directoryService.GetUser(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "User retrieved successfully", gin.H{"user": user})
}
