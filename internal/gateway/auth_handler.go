package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduvoyage/admin-gateway/internal/auth"
	"github.com/eduvoyage/admin-gateway/internal/models"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
	"github.com/eduvoyage/admin-gateway/pkg/response"
)

// AuthHandler exposes login, logout and the current session.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// Login authenticates against the upstream and persists the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	info, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}

// Logout clears the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me returns the active session.
func (h *AuthHandler) Me(c *gin.Context) {
	info, err := h.auth.Me(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}
