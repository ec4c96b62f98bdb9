package gateway

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduvoyage/admin-gateway/internal/engine"
	"github.com/eduvoyage/admin-gateway/internal/metrics"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
	"github.com/eduvoyage/admin-gateway/pkg/response"
)

// TriggerHandler exposes the protocol's trigger surface. Views issue triggers
// by name; they never build upstream requests themselves.
type TriggerHandler struct {
	sup       *engine.Supervisor
	collector *metrics.Collector
}

// NewTriggerHandler constructs TriggerHandler.
func NewTriggerHandler(sup *engine.Supervisor, collector *metrics.Collector) *TriggerHandler {
	return &TriggerHandler{sup: sup, collector: collector}
}

// Dispatch accepts POST /triggers/:entity/:op with an optional JSON payload.
// Processing is asynchronous; the caller polls the state endpoint for the
// terminal outcome.
func (h *TriggerHandler) Dispatch(c *gin.Context) {
	entity := c.Param("entity")
	op := engine.Operation(c.Param("op"))
	if !engine.KnownOperation(op) {
		response.Error(c, appErrors.Validation("unknown operation "+string(op)))
		return
	}

	var payload json.RawMessage
	if c.Request.Body != nil {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, appErrors.Validation("unreadable trigger payload"))
			return
		}
		if len(raw) > 0 {
			if !json.Valid(raw) {
				response.Error(c, appErrors.Validation("trigger payload must be valid JSON"))
				return
			}
			payload = raw
		}
	}

	trigger := engine.NewTrigger(entity, op, payload)
	if err := h.sup.Dispatch(trigger); err != nil {
		response.Error(c, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordTrigger(entity, string(op))
	}
	response.Accepted(c, gin.H{"triggerId": trigger.ID, "entity": entity, "op": op})
}

// Entities lists the registered trigger namespaces.
func (h *TriggerHandler) Entities(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.sup.Entities())
}
