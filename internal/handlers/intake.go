package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finware/notify/internal/intake"
	"github.com/finware/notify/pkg/errors"
	"github.com/finware/notify/pkg/response"
)

const maxIntakeBody = 1 << 20 // 1 MiB

// IntakeHandler receives domain events from internal producers and turns
// them into notifications.
type IntakeHandler struct {
	dispatcher *intake.Dispatcher
}

// NewIntakeHandler constructs an intake handler.
func NewIntakeHandler(dispatcher *intake.Dispatcher) (*IntakeHandler, error) {
	if dispatcher == nil {
		return nil, stderrors.New("handlers: event dispatcher is required")
	}
	return &IntakeHandler{dispatcher: dispatcher}, nil
}

// Receive dispatches the posted event payload by its :kind path segment.
func (h *IntakeHandler) Receive(c *gin.Context) {
	kind := c.Param("kind")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIntakeBody))
	if err != nil {
		response.Error(c, errors.NewBadRequest("unable to read request body"))
		return
	}
	if len(payload) == 0 {
		response.Error(c, errors.NewBadRequest("request body is required"))
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), kind, json.RawMessage(payload))
	if err != nil {
		response.Error(c, err)
		return
	}

	body := gin.H{
		"accepted": result.Accepted,
		"failed":   result.Failed,
	}
	if result.Err != nil {
		body["errors"] = result.Err.Error()
	}

	status := http.StatusAccepted
	if result.Accepted == 0 && result.Failed > 0 {
		status = http.StatusBadRequest
	}
	response.Success(c, status, body)
}

// Kinds lists the event kinds the intake surface accepts.
func (h *IntakeHandler) Kinds(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"kinds": h.dispatcher.Kinds()})
}
