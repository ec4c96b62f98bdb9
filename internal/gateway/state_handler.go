package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduvoyage/admin-gateway/internal/engine"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
	"github.com/eduvoyage/admin-gateway/pkg/response"
)

// StateHandler exposes entity state snapshots to views.
type StateHandler struct {
	sup *engine.Supervisor
}

// NewStateHandler constructs StateHandler.
func NewStateHandler(sup *engine.Supervisor) *StateHandler {
	return &StateHandler{sup: sup}
}

// Get returns the snapshot for one entity.
func (h *StateHandler) Get(c *gin.Context) {
	name := c.Param("entity")
	entity, ok := h.sup.Lookup(name)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown entity "+name))
		return
	}
	response.JSON(c, http.StatusOK, entity.StateSnapshot())
}

// List returns every entity's snapshot keyed by name.
func (h *StateHandler) List(c *gin.Context) {
	out := make(map[string]interface{})
	for _, name := range h.sup.Entities() {
		if entity, ok := h.sup.Lookup(name); ok {
			out[name] = entity.StateSnapshot()
		}
	}
	response.JSON(c, http.StatusOK, out)
}
