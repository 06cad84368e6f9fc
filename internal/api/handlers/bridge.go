package handlers

import (
	"net/http"

	"bridgeconnector/internal/api/middleware"
	"bridgeconnector/internal/bridge"
	"bridgeconnector/internal/logger"

	"github.com/gin-gonic/gin"
)

type BridgeHandler struct {
	bridge *bridge.Bridge
	logger *logger.Logger
}

func NewBridgeHandler(b *bridge.Bridge, logger *logger.Logger) *BridgeHandler {
	return &BridgeHandler{bridge: b, logger: logger}
}

// Handle runs one bridge action. The protocol is string based: every outcome,
// success or failure, is a 200 with the body carrying the result.
func (h *BridgeHandler) Handle(c *gin.Context) {
	params := middleware.Params(c)
	action := params["action"]

	out := h.bridge.Run(action, params)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}
